package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sucolo/hexfeat/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "hexfeat",
	Short: "Hexagon-grid urban feature engineering",
	Long:  "Uploads city POIs and districts into Elasticsearch and Redis, covers cities with H3 hexagons, and computes per-cell feature tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
