package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// HealthInfo mirrors the server's GET /health payload.
type HealthInfo struct {
	Status    string `json:"status"`
	Backend   string `json:"backend"`
	Chunks    int    `json:"chunks"`
	Dimension int    `json:"dimension"`
	Embedder  string `json:"embedder"`
	Generator string `json:"generator"`
}

// HealthCmd creates the health command.
func HealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			c := NewAPIClientWithCmd(cmd)

			var resp struct {
				Data HealthInfo `json:"data"`
			}
			if err := c.Get(cmd.Context(), "/health", &resp); err != nil {
				return err
			}

			if outputJSON {
				out, err := json.MarshalIndent(resp.Data, "", "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			}

			h := resp.Data
			fmt.Fprintf(cmd.OutOrStdout(), "status:    %s\nbackend:   %s\nchunks:    %d\ndimension: %d\nembedder:  %s\ngenerator: %s\n",
				h.Status, h.Backend, h.Chunks, h.Dimension, h.Embedder, h.Generator)
			return nil
		},
	}
}
