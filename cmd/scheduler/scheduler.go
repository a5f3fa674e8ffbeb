// Package scheduler implements cron-driven pipeline runs.
package scheduler

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/nziran/gradpipe/cmd/common"
	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/pipeline"
)

// Command returns the scheduler command.
func Command() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the ingest pipeline on a cron schedule",
		RunE:  runScheduler,
	}
}

func runScheduler(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	deps, err := common.Build(ctx)
	if err != nil {
		return err
	}
	defer deps.Close()

	spec := deps.Config.Scheduler.Cron
	c := cron.New()

	if _, err := c.AddFunc(spec, triggerJob(ctx, deps.Coordinator, deps.Logger)); err != nil {
		return err
	}

	deps.Logger.Info("scheduler started", "cron", spec)
	c.Start()
	defer func() { <-c.Stop().Done() }()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		deps.Logger.Info("scheduler stopping", "signal", sig.String())
	case <-ctx.Done():
	}

	deps.Coordinator.Stop()
	return nil
}

// triggerJob starts a run on each tick. A tick that lands while a run is
// still active is skipped, never queued.
func triggerJob(ctx context.Context, coordinator *pipeline.Coordinator, log logger.Interface) func() {
	return func() {
		handle, err := coordinator.Start(ctx)
		if err != nil {
			if errors.Is(err, domain.ErrBusy) {
				log.Warn("scheduled run skipped: previous run still active")
				return
			}
			log.Error("scheduled run failed to start", "error", err)
			return
		}

		log.Info("scheduled run started", "run_id", handle.ID)

		report := handle.Wait()
		log.Info("scheduled run finished",
			"run_id", report.RunID,
			"status", string(report.Status),
			"inserted", report.Inserted,
			"duplicates", report.Duplicates)
	}
}
