// Command bikecast trains and inspects the bike-rental demand model.
package main

import (
	"context"
	"os"

	"github.com/YuminosukeSato/bikecast/pkg/log"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.GetLogger().Error("bikecast failed", log.ErrAttrKey, err)
		os.Exit(1)
	}
}
