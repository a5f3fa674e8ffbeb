// Package pipeline orchestrates the ingest run: listing fetch, detail
// enrichment, normalization, loading, and checkpointing, under a
// process-wide busy gate.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nziran/gradpipe/internal/database"
	"github.com/nziran/gradpipe/internal/domain"
	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/normalize"
)

// RunStatus is the terminal status of a pipeline run.
type RunStatus string

const (
	// StatusCompleted means the run finished with no recorded failures.
	StatusCompleted RunStatus = "completed"
	// StatusPartial means the run finished (or was stopped) with some
	// recorded failures; partial progress is preserved.
	StatusPartial RunStatus = "partial"
	// StatusFailed means the run aborted on a fatal error.
	StatusFailed RunStatus = "failed"

	// statusRunning is the checkpoint status written mid-run.
	statusRunning = "running"
)

// PageFetcher retrieves one parsed listing page.
type PageFetcher interface {
	FetchPage(ctx context.Context, pageIndex int) (*domain.ListingPage, error)
}

// DetailFetcher resolves detail references into keyed results.
type DetailFetcher interface {
	FetchDetails(ctx context.Context, refs []string) []domain.DetailResult
}

// Loader persists normalized records and exposes the stored key set.
type Loader interface {
	LoadMany(ctx context.Context, recs []domain.NormalizedRecord) []domain.LoadOutcome
	ExistingURLs(ctx context.Context) (map[string]struct{}, error)
}

// CheckpointStore persists the page cursor between runs.
type CheckpointStore interface {
	Get(ctx context.Context) (*database.Checkpoint, error)
	Save(ctx context.Context, pageCursor int, runStatus string) error
}

// Config configures the coordinator.
type Config struct {
	MaxPages int
	// StalePageStop ends the run after this many consecutive pages that
	// produced no new records. Zero disables the early stop.
	StalePageStop int
	// TermYearMaxGap is passed through to the normalizer.
	TermYearMaxGap int
}

// RunReport carries per-stage counts for a finished run. Callers always see
// the full breakdown, never a bare success flag.
type RunReport struct {
	RunID               string    `json:"run_id"`
	Status              RunStatus `json:"status"`
	Pages               int       `json:"pages"`
	PageFailures        int       `json:"page_failures"`
	RowsParsed          int       `json:"rows_parsed"`
	RowParseFailures    int       `json:"row_parse_failures"`
	NewRecords          int       `json:"new_records"`
	DetailFailures      int       `json:"detail_failures"`
	Normalized          int       `json:"normalized"`
	NormalizationErrors int       `json:"normalization_errors"`
	Inserted            int       `json:"inserted"`
	Duplicates          int       `json:"duplicates"`
	LoadFailures        int       `json:"load_failures"`
	StartedAt           time.Time `json:"started_at"`
	FinishedAt          time.Time `json:"finished_at"`
	Err                 error     `json:"-"`
}

// RunHandle identifies an accepted run and lets callers wait for its report.
type RunHandle struct {
	ID     string
	done   chan struct{}
	report *RunReport
}

// Wait blocks until the run finishes and returns its report.
func (h *RunHandle) Wait() *RunReport {
	<-h.done
	return h.report
}

// Coordinator drives a full pipeline run page by page.
type Coordinator struct {
	fetcher     PageFetcher
	details     DetailFetcher
	loader      Loader
	checkpoints CheckpointStore
	cfg         Config
	state       *RunState
	log         logger.Interface
}

// NewCoordinator creates a coordinator over the given stages.
func NewCoordinator(
	fetcher PageFetcher,
	details DetailFetcher,
	loader Loader,
	checkpoints CheckpointStore,
	cfg Config,
	log logger.Interface,
) *Coordinator {
	return &Coordinator{
		fetcher:     fetcher,
		details:     details,
		loader:      loader,
		checkpoints: checkpoints,
		cfg:         cfg,
		state:       NewRunState(),
		log:         log,
	}
}

// Busy reports whether a run is active. Dependent downstream steps consult
// this to reject work while ingest is running.
func (c *Coordinator) Busy() bool {
	return c.state.IsRunning()
}

// Snapshot returns the live state of the current (or last) run.
func (c *Coordinator) Snapshot() RunSnapshot {
	return c.state.Snapshot()
}

// Stop requests a cooperative stop; the run ends between pages.
func (c *Coordinator) Stop() {
	c.state.Stop()
}

// Start acquires the busy gate and launches a run in the background.
// Returns domain.ErrBusy immediately when a run is already active.
//
// The run's lifetime is detached from the trigger context: an HTTP
// request context ends as soon as the 202 is written, and the run must
// outlive it. Stopping an accepted run goes through Stop.
func (c *Coordinator) Start(ctx context.Context) (*RunHandle, error) {
	runID := uuid.New().String()
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	if !c.state.TryAcquire(runID, cancel) {
		cancel()
		return nil, domain.ErrBusy
	}

	handle := &RunHandle{ID: runID, done: make(chan struct{})}

	go func() {
		defer close(handle.done)
		handle.report = c.run(runCtx, runID)
	}()

	return handle, nil
}

// Run executes a run synchronously. Returns domain.ErrBusy when a run is
// already active.
func (c *Coordinator) Run(ctx context.Context) (*RunReport, error) {
	handle, err := c.Start(ctx)
	if err != nil {
		return nil, err
	}

	report := handle.Wait()
	if report.Err != nil {
		return report, report.Err
	}
	return report, nil
}

// run drives the page loop. The gate is released on every exit path,
// including panics, and whatever checkpoint is valid is persisted before
// returning.
func (c *Coordinator) run(ctx context.Context, runID string) *RunReport {
	report := &RunReport{RunID: runID, StartedAt: time.Now()}

	defer c.state.Release()
	defer func() {
		report.FinishedAt = time.Now()
		c.finishCheckpoint(report)
	}()

	startPage, err := c.resumeCursor(ctx)
	if err != nil {
		return c.fatal(report, err)
	}

	seen, err := c.loader.ExistingURLs(ctx)
	if err != nil {
		return c.fatal(report, fmt.Errorf("load existing urls: %w", err))
	}

	c.log.Info("run started",
		"run_id", runID,
		"start_page", startPage,
		"known_urls", len(seen))

	staleStreak := 0

	for page := startPage; page <= c.cfg.MaxPages; page++ {
		// Cooperative stop, checked between pages. The page in progress
		// always finishes its load and checkpoint before this triggers.
		if c.state.StopRequested() {
			c.log.Warn("run stopped", "run_id", runID, "page", page)
			report.Status = StatusPartial
			return report
		}

		fresh, ok := c.processListing(ctx, page, seen, report)
		if !ok {
			continue
		}

		if len(fresh) == 0 {
			staleStreak++
			if c.cfg.StalePageStop > 0 && staleStreak >= c.cfg.StalePageStop {
				c.log.Info("early stop: no new records",
					"run_id", runID,
					"stale_pages", staleStreak)
				break
			}
			continue
		}
		staleStreak = 0

		if err := c.processPage(ctx, page, fresh, report); err != nil {
			return c.fatal(report, err)
		}
	}

	report.Status = terminalStatus(report)
	c.log.Info("run finished",
		"run_id", runID,
		"status", string(report.Status),
		"pages", report.Pages,
		"inserted", report.Inserted,
		"duplicates", report.Duplicates)

	return report
}

// processListing fetches one listing page and filters out already-seen
// records. Page-level fetch failures are recorded and skipped; the run
// continues with the next page.
func (c *Coordinator) processListing(
	ctx context.Context,
	page int,
	seen map[string]struct{},
	report *RunReport,
) ([]domain.PartialRecord, bool) {
	lp, err := c.fetcher.FetchPage(ctx, page)
	if err != nil {
		c.log.Error("page fetch failed", "page", page, "error", err)
		report.PageFailures++
		return nil, false
	}

	report.Pages++
	report.RowsParsed += len(lp.Records)
	report.RowParseFailures += lp.ParseFailures

	fresh := make([]domain.PartialRecord, 0, len(lp.Records))
	for _, rec := range lp.Records {
		if _, dup := seen[rec.EntryURL]; dup {
			continue
		}
		seen[rec.EntryURL] = struct{}{}
		fresh = append(fresh, rec)
	}

	report.NewRecords += len(fresh)
	return fresh, true
}

// processPage enriches, normalizes, and loads one page's fresh records,
// then persists the checkpoint. Only storage-level failures are fatal.
func (c *Coordinator) processPage(
	ctx context.Context,
	page int,
	fresh []domain.PartialRecord,
	report *RunReport,
) error {
	refs := make([]string, 0, len(fresh))
	for _, rec := range fresh {
		refs = append(refs, rec.EntryURL)
	}

	results := c.details.FetchDetails(ctx, refs)

	byRef := make(map[string]domain.DetailResult, len(results))
	failures := 0
	for _, res := range results {
		byRef[res.Ref] = res
		if res.Err != nil {
			failures++
		}
	}
	report.DetailFailures += failures
	c.state.AddDetail(len(results), failures)

	opts := normalize.Options{TermYearMaxGap: c.cfg.TermYearMaxGap}
	batch := make([]domain.NormalizedRecord, 0, len(fresh))
	for _, partial := range fresh {
		rec, err := normalize.Normalize(partial, byRef[partial.EntryURL], opts)
		if err != nil {
			c.log.Warn("record excluded", "error", err)
			report.NormalizationErrors++
			continue
		}
		batch = append(batch, rec)
	}
	report.Normalized += len(batch)

	for _, outcome := range c.loader.LoadMany(ctx, batch) {
		switch outcome.Result {
		case domain.LoadInserted, domain.LoadUpdated:
			report.Inserted++
		case domain.LoadSkippedDuplicate:
			report.Duplicates++
		case domain.LoadFailed:
			c.log.Error("record load failed", "url", outcome.URL, "error", outcome.Err)
			report.LoadFailures++
		}
	}

	if err := c.checkpoints.Save(ctx, page, statusRunning); err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}
	c.state.SetCursor(page)
	c.state.MarkCheckpoint()

	return nil
}

// resumeCursor decides the starting page: a run that did not complete
// resumes after its last checkpointed page, otherwise scanning starts over
// from the first page.
func (c *Coordinator) resumeCursor(ctx context.Context) (int, error) {
	cp, err := c.checkpoints.Get(ctx)
	if err != nil {
		return 0, fmt.Errorf("read checkpoint: %w", err)
	}

	if cp != nil && cp.RunStatus != string(StatusCompleted) && cp.PageCursor > 0 {
		return cp.PageCursor + 1, nil
	}
	return 1, nil
}

// fatal marks the run failed. The deferred paths still release the gate and
// persist the last valid checkpoint.
func (c *Coordinator) fatal(report *RunReport, err error) *RunReport {
	var fatalErr *domain.FatalRunError
	if !errors.As(err, &fatalErr) {
		err = &domain.FatalRunError{Err: err}
	}

	c.log.Error("run aborted", "run_id", report.RunID, "error", err)
	report.Status = StatusFailed
	report.Err = err
	return report
}

// finishCheckpoint persists the terminal status next to the last cursor.
// Best effort: a failure here must not mask the run's own outcome.
func (c *Coordinator) finishCheckpoint(report *RunReport) {
	snapshot := c.state.Snapshot()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.checkpoints.Save(ctx, snapshot.PageCursor, string(report.Status)); err != nil {
		c.log.Error("final checkpoint save failed", "error", err)
	}
}

func terminalStatus(report *RunReport) RunStatus {
	if report.PageFailures > 0 ||
		report.RowParseFailures > 0 ||
		report.DetailFailures > 0 ||
		report.NormalizationErrors > 0 ||
		report.LoadFailures > 0 {
		return StatusPartial
	}
	return StatusCompleted
}
