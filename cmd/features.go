package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/features"
)

var featuresCmd = &cobra.Command{
	Use:   "features",
	Short: "Compute a feature table for a city",
	Long:  "Reads a feature request (YAML or JSON), computes one row per hexagon of the city and writes CSV, JSON or XLSX.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		requestPath, _ := cmd.Flags().GetString("request")
		out, _ := cmd.Flags().GetString("out")
		if cmd.Flags().Changed("parallelism") {
			cfg.Engine.Parallelism, _ = cmd.Flags().GetInt("parallelism")
		}

		req, err := features.LoadRequestFile(requestPath)
		if err != nil {
			return err
		}

		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		table, err := env.Engine.Compute(ctx, req)
		if err != nil {
			return eris.Wrap(err, "features")
		}

		if out == "" {
			return features.WriteCSV(os.Stdout, table)
		}
		if err := features.WriteFile(out, table); err != nil {
			return err
		}
		zap.L().Info("features written",
			zap.String("path", out),
			zap.Int("rows", table.Len()),
			zap.Int("columns", len(table.Columns())),
		)
		return nil
	},
}

func init() {
	featuresCmd.Flags().String("request", "", "feature request file (.yaml or .json)")
	featuresCmd.Flags().String("out", "", "output file (.csv, .json or .xlsx); CSV to stdout when empty")
	featuresCmd.Flags().Int("parallelism", 1, "sub-queries computed concurrently")
	_ = featuresCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(featuresCmd)
}
