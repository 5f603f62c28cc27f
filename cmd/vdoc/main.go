package main

import (
	"fmt"
	"os"
	"time"

	"github.com/cloo-solutions/vdoc/internal/cli/client"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "vdoc",
		Short: "vdoc CLI - ask the virtual medical assistant",
		Long: `vdoc CLI sends questions to a running vdoc server.

Environment variables:
  VDOC_API_URL   API base URL (default: http://localhost:8080)`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env)")
	rootCmd.PersistentFlags().Duration("timeout", 90*time.Second, "HTTP request timeout")

	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.HealthCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
