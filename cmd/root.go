// Package cmd implements the command-line interface for the ingest pipeline.
// It provides the root command and subcommands for running the pipeline,
// serving the HTTP API, scheduling runs, and inspecting the store.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/nziran/gradpipe/cmd/enrichcmd"
	"github.com/nziran/gradpipe/cmd/httpd"
	"github.com/nziran/gradpipe/cmd/ingest"
	cmdscheduler "github.com/nziran/gradpipe/cmd/scheduler"
	"github.com/nziran/gradpipe/cmd/stats"
	"github.com/nziran/gradpipe/internal/config"
)

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	rootCmd = &cobra.Command{
		Use:   "gradpipe",
		Short: "Admissions results ingest pipeline",
		Long:  `Fetches paginated admissions results, enriches them from detail pages, and loads them into Postgres.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are visible to Viper.
	_ = godotenv.Load()

	_ = rootCmd.ParseFlags(os.Args[1:])

	if err := config.InitViper(cfgFile); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml or ./config/config.yaml)",
	)

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gradpipe version %s\n", "1.0.0")
		},
	})

	rootCmd.AddCommand(ingest.Command())
	rootCmd.AddCommand(httpd.Command())
	rootCmd.AddCommand(cmdscheduler.Command())
	rootCmd.AddCommand(stats.Command())
	rootCmd.AddCommand(enrichcmd.Command())
}
