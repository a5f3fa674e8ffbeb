package database

import (
	"context"
	"fmt"
)

// Stats is the derived summary over the stored records.
type Stats struct {
	Total         int64   `db:"total"`
	Accepted      int64   `db:"accepted"`
	Rejected      int64   `db:"rejected"`
	International int64   `db:"international"`
	WithGPA       int64   `db:"with_gpa"`
	AvgGPA        float64 `db:"avg_gpa"`
	Enriched      int64   `db:"enriched"`
}

// Summary recomputes the aggregate view in one pass over the table.
func (r *ApplicantRepository) Summary(ctx context.Context) (*Stats, error) {
	var stats Stats
	err := r.db.GetContext(
		ctx,
		&stats,
		`SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'Accepted') AS accepted,
			COUNT(*) FILTER (WHERE status = 'Rejected') AS rejected,
			COUNT(*) FILTER (WHERE us_or_international = 'International') AS international,
			COUNT(gpa) AS with_gpa,
			COALESCE(AVG(gpa), 0) AS avg_gpa,
			COUNT(llm_generated_program) AS enriched
		 FROM applicants`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compute summary: %w", err)
	}

	return &stats, nil
}

// Refresh recomputes the summary and returns the record count. It backs the
// analysis refresh endpoint, which only runs while the ingest gate is free.
func (r *ApplicantRepository) Refresh(ctx context.Context) (int64, error) {
	stats, err := r.Summary(ctx)
	if err != nil {
		return 0, err
	}
	return stats.Total, nil
}
