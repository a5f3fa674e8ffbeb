// Package enrichcmd implements the enrichment export and merge commands.
package enrichcmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nziran/gradpipe/cmd/common"
	"github.com/nziran/gradpipe/internal/enrich"
)

// Command returns the enrich command group.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Export records for enrichment and merge results back",
	}

	cmd.AddCommand(exportCommand())
	cmd.AddCommand(mergeCommand())
	return cmd
}

func exportCommand() *cobra.Command {
	var outPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write pending records as a JSON batch for the collaborator",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := common.Build(ctx)
			if err != nil {
				return err
			}
			defer deps.Close()

			path := outPath
			if path == "" {
				path = deps.Config.Enrich.ExportPath
			}

			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("create export file: %w", err)
			}
			defer f.Close()

			count, err := enrich.Export(ctx, deps.Applicants, f)
			if err != nil {
				return err
			}

			deps.Logger.Info("export written", "path", path, "records", count)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (defaults to enrich.export_path)")
	return cmd
}

func mergeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "merge <results.json>",
		Short: "Merge collaborator results back into the store by record key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			deps, err := common.Build(ctx)
			if err != nil {
				return err
			}
			defer deps.Close()

			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open results file: %w", err)
			}
			defer f.Close()

			report, err := enrich.MergeBack(ctx, deps.Applicants, f, deps.Logger)
			if err != nil {
				return err
			}

			fmt.Printf("merged %d, unmatched %d, failed %d\n", report.Matched, report.Unmatched, report.Failed)
			return nil
		},
	}
}
