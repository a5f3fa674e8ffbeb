// Package enrich implements the collaborator boundary for program and
// university name cleanup: exporting stored rows as a JSON batch and merging
// the collaborator's output back by natural key.
package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nziran/gradpipe/internal/database"
	"github.com/nziran/gradpipe/internal/logger"
)

// Source lists rows awaiting enrichment.
type Source interface {
	RowsForEnrichment(ctx context.Context) ([]database.EnrichmentRow, error)
}

// Applier writes one enrichment result back by natural key.
type Applier interface {
	ApplyEnrichment(ctx context.Context, url, program, university string) (int64, error)
}

// Result is one collaborator output row, keyed by the record's natural key.
type Result struct {
	URL        string `json:"url"`
	Program    string `json:"program"`
	University string `json:"university"`
}

// MergeReport summarizes a merge-back pass. Unmatched keys are reported, not
// treated as failures: the store may have been rebuilt since export. Storage
// failures are counted per row and never abort the batch.
type MergeReport struct {
	Matched       int
	Unmatched     int
	Failed        int
	UnmatchedKeys []string
	FailedKeys    []string
}

// Export writes the pending rows as a JSON array for the collaborator.
func Export(ctx context.Context, src Source, w io.Writer) (int, error) {
	rows, err := src.RowsForEnrichment(ctx)
	if err != nil {
		return 0, fmt.Errorf("export enrichment rows: %w", err)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rows); err != nil {
		return 0, fmt.Errorf("encode enrichment rows: %w", err)
	}

	return len(rows), nil
}

// MergeBack applies a collaborator result batch. Each row is matched by its
// key; rows whose key no longer exists are counted and logged but never stop
// the batch.
func MergeBack(ctx context.Context, applier Applier, r io.Reader, log logger.Interface) (*MergeReport, error) {
	var results []Result
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode enrichment results: %w", err)
	}

	report := &MergeReport{}
	for _, res := range results {
		if res.URL == "" {
			report.Unmatched++
			report.UnmatchedKeys = append(report.UnmatchedKeys, res.URL)
			continue
		}

		rows, err := applier.ApplyEnrichment(ctx, res.URL, res.Program, res.University)
		if err != nil {
			log.Error("enrichment apply failed", "url", res.URL, "error", err)
			report.Failed++
			report.FailedKeys = append(report.FailedKeys, res.URL)
			continue
		}

		if rows == 0 {
			log.Warn("enrichment key matched no record", "url", res.URL)
			report.Unmatched++
			report.UnmatchedKeys = append(report.UnmatchedKeys, res.URL)
			continue
		}
		report.Matched++
	}

	log.Info("enrichment merge finished",
		"matched", report.Matched,
		"unmatched", report.Unmatched,
		"failed", report.Failed)

	return report, nil
}
