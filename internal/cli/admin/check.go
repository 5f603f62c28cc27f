package admin

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// CheckCmd validates configuration and loads every collaborator without
// serving or calling the generator.
func CheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and corpus",
		Long:  "Loads configuration, the corpus artifact or table, the embedder and the generator client, and verifies dimensions and row alignment.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			app, err := Bootstrap(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer app.Close()

			out, err := json.MarshalIndent(app.Health, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
}
