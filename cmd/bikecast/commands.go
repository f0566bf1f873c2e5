package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/bikecast/config"
	"github.com/YuminosukeSato/bikecast/pipeline"
	"github.com/YuminosukeSato/bikecast/pkg/errors"
	"github.com/YuminosukeSato/bikecast/pkg/log"
	"github.com/YuminosukeSato/bikecast/tracking"
)

// cli holds flag values shared by the subcommands.
type cli struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "bikecast",
		Short: "Hourly bike-rental demand regression",
		Long: `bikecast trains a regression model on the Seoul bike-sharing dataset.

Configuration comes from built-in defaults, an optional YAML file (--config)
and BIKECAST_* environment variables, in that order.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&c.logFormat, "log-format", "", "override logging.format (json, console)")

	root.AddCommand(c.trainCmd(), c.inspectCmd(), c.runsCmd())
	return root
}

// setup resolves the configuration and installs the logger.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Logging.Level = c.logLevel
	}
	if c.logFormat != "" {
		cfg.Logging.Format = c.logFormat
	}
	if err := log.SetupLogger(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

func (c *cli) trainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "train",
		Short: "Run the training pipeline once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := pipeline.New(c.cfg)
			if err != nil {
				return err
			}
			res, err := p.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s RMSE=%.4f MAE=%.4f R2=%.4f -> %s\n",
				res.RunID, res.Family, res.Metrics.RMSE, res.Metrics.MAE, res.Metrics.R2, res.ArtifactPath)
			return nil
		},
	}
}

func (c *cli) inspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <model>",
		Short: "Print the summary of a saved model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, meta, err := pipeline.LoadModel(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "family:     %s\n", meta.Family)
			if s, ok := m.(fmt.Stringer); ok {
				fmt.Fprintf(out, "model:      %s\n", s)
			}
			fmt.Fprintf(out, "trained at: %s\n", meta.TrainedAt.Format("2006-01-02T15:04:05Z07:00"))
			fmt.Fprintf(out, "features:   %d (%s)\n", len(meta.FeatureNames), strings.Join(meta.FeatureNames, ", "))

			keys := make([]string, 0, len(meta.Metrics))
			for k := range meta.Metrics {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fmt.Fprintf(out, "%-11s %.4f\n", k+":", meta.Metrics[k])
			}

			log.GetLoggerWithName("cli").Info("Inspected model",
				log.PathKey, args[0],
				log.ModelFamilyKey, meta.Family,
				log.FeaturesKey, len(meta.FeatureNames),
			)
			return nil
		},
	}
}

func (c *cli) runsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recorded pipeline runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tc := c.cfg.Tracking
			if tc.DSN == "" {
				return errors.NewValidationError("tracking.dsn", "run ledger is not configured", tc.DSN)
			}
			ledger, err := tracking.Open(cmd.Context(), tc.Driver, tc.DSN)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tCREATED\tFAMILY\tTRAIN\tTEST\tRMSE\tMAE\tR2\tARTIFACT")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%.4f\t%.4f\t%.4f\t%s\n",
					r.ID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.Family,
					r.TrainRows, r.TestRows, r.RMSE, r.MAE, r.R2, r.ArtifactPath)
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list (0 for all)")
	return cmd
}
