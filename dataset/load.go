// Package dataset reads the raw bike-rental table and turns it into a
// feature frame and a target vector.
package dataset

import (
	"io/fs"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/YuminosukeSato/bikecast/pkg/errors"
)

const (
	// DateColumn is the canonical name of the observation date column.
	DateColumn = "Date"

	// DefaultDateLayout is day/month/year. Single-digit day and month
	// elements accept both "1/12/2017" and "01/12/2017".
	DefaultDateLayout = "2/1/2006"

	bom        = "\ufeff"
	bomLatin1  = "\u00ef\u00bb\u00bf" // UTF-8 BOM bytes read as Windows-1252
	annotation = "("
)

// Load reads a comma-delimited file with one header row into a typed frame.
// Column names have BOM remnants removed and surrounding whitespace trimmed.
func Load(path string) (dataframe.DataFrame, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dataframe.DataFrame{}, errors.NewDataNotFoundError(path, err)
		}
		return dataframe.DataFrame{}, errors.NewIOError("read", path, err)
	}

	text, err := decode(raw)
	if err != nil {
		return dataframe.DataFrame{}, errors.NewIOError("decode", path, err)
	}
	if dataLines(text) == 0 {
		return dataframe.DataFrame{}, errors.Wrapf(errors.ErrEmptyData, "load %s", path)
	}

	df := dataframe.ReadCSV(strings.NewReader(text),
		dataframe.HasHeader(true),
		dataframe.DetectTypes(true),
	)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "parse csv %s", path)
	}
	if df.Nrow() == 0 {
		return dataframe.DataFrame{}, errors.Wrapf(errors.ErrEmptyData, "load %s", path)
	}

	return renameColumns(df, cleanHeader)
}

// decode returns the file as UTF-8. A leading BOM is dropped. Bytes that
// are not valid UTF-8 are read as Windows-1252.
func decode(raw []byte) (string, error) {
	var t transform.Transformer
	if utf8.Valid(raw) {
		t = unicode.BOMOverride(unicode.UTF8.NewDecoder())
	} else {
		t = charmap.Windows1252.NewDecoder()
	}
	out, _, err := transform.Bytes(t, raw)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// dataLines counts non-blank lines after the header.
func dataLines(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return max(n-1, 0)
}

func cleanHeader(name string) string {
	name = strings.ReplaceAll(name, bom, "")
	name = strings.ReplaceAll(name, bomLatin1, "")
	return strings.TrimSpace(name)
}

// CleanColumnName drops a trailing unit annotation: everything from the
// first "(" onwards, then trims whitespace.
func CleanColumnName(name string) string {
	if i := strings.Index(name, annotation); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// renameColumns rebuilds the frame with every name passed through fn.
// Two columns that end up with the same name are a DuplicateColumnError;
// dataframe.New would otherwise suffix them silently.
func renameColumns(df dataframe.DataFrame, fn func(string) string) (dataframe.DataFrame, error) {
	names := df.Names()
	cols := make([]series.Series, len(names))
	sources := make(map[string][]string, len(names))
	changed := false
	for i, name := range names {
		s := df.Col(name).Copy()
		s.Name = fn(name)
		changed = changed || s.Name != name
		sources[s.Name] = append(sources[s.Name], name)
		cols[i] = s
	}
	for _, s := range cols {
		if from := sources[s.Name]; len(from) > 1 {
			return df, errors.NewDuplicateColumnError(s.Name, from)
		}
	}
	if !changed {
		return df, nil
	}
	return dataframe.New(cols...), nil
}
