// Package stats implements the store inspection command.
package stats

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/nziran/gradpipe/cmd/common"
)

// Command returns the stats command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print a summary of the stored records and the last checkpoint",
		RunE:  runStats,
	}
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	deps, err := common.Build(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	summary, err := deps.Applicants.Summary(ctx)
	if err != nil {
		return err
	}

	cp, err := deps.Checkpoints.Get(ctx)
	if err != nil {
		return err
	}

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Store summary")
	t.AppendRows([]table.Row{
		{"Total records", summary.Total},
		{"Accepted", summary.Accepted},
		{"Rejected", summary.Rejected},
		{"International", summary.International},
		{"With GPA", summary.WithGPA},
		{"Average GPA", fmt.Sprintf("%.2f", summary.AvgGPA)},
		{"Enriched", summary.Enriched},
	})

	if cp != nil {
		t.AppendSeparator()
		t.AppendRows([]table.Row{
			{"Last page loaded", cp.PageCursor},
			{"Last run status", cp.RunStatus},
			{"Checkpoint updated", cp.UpdatedAt.Format("2006-01-02 15:04:05 MST")},
		})
	}

	t.Render()
	return nil
}
