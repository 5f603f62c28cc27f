package main

import (
	"fmt"
	"os"

	"github.com/cloo-solutions/vdoc/internal/cli/admin"
	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:          "vdocd",
		Short:        "vdoc daemon and local tools",
		Long:         "vdoc daemon for serving retrieval-augmented medical answers, plus local commands to query, validate and distribute the corpus",
		Version:      version,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.AskCmd())
	rootCmd.AddCommand(admin.CheckCmd())
	rootCmd.AddCommand(admin.MigrateCmd())
	rootCmd.AddCommand(admin.CorpusCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
