package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe Elasticsearch and Redis",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initEnv("read")
		if err != nil {
			return err
		}
		defer env.Close()

		st := env.Health.Status(cmd.Context())
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(st); err != nil {
			return eris.Wrap(err, "health: encode status")
		}
		if !st.Healthy() {
			return eris.New("health: a backing store is unavailable")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
