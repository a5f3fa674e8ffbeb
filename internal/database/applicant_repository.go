package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/nziran/gradpipe/internal/domain"
)

// ApplicantRepository handles database operations for normalized records.
type ApplicantRepository struct {
	db *sqlx.DB
}

// NewApplicantRepository creates a new applicant repository.
func NewApplicantRepository(db *sqlx.DB) *ApplicantRepository {
	return &ApplicantRepository{db: db}
}

const insertApplicant = `
	INSERT INTO applicants (
		url, program, university, comments, date_added, status,
		decision_date, term, us_or_international,
		gpa, gre, gre_v, gre_aw, degree, scraped_at
	)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	ON CONFLICT (url) DO NOTHING
`

// Load upserts one normalized record. An insert whose key already exists is
// a skipped-duplicate outcome, not an error, which makes replays idempotent.
func (r *ApplicantRepository) Load(ctx context.Context, rec *domain.NormalizedRecord) domain.LoadOutcome {
	res, err := r.db.ExecContext(
		ctx,
		insertApplicant,
		rec.URL,
		nullString(rec.Program),
		nullString(rec.University),
		nullOptString(rec.Comments),
		nullOptTime(rec.DateAdded),
		string(rec.Status),
		nullOptString(rec.DecisionDate),
		nullOptString(rec.Term),
		string(rec.Residency),
		nullOptFloat(rec.GPA),
		nullOptFloat(rec.GRETotal),
		nullOptFloat(rec.GREVerbal),
		nullOptFloat(rec.GREWriting),
		nullOptString(degreeColumn(rec)),
		rec.ScrapedAt,
	)
	if err != nil {
		return domain.LoadOutcome{
			URL:    rec.URL,
			Result: domain.LoadFailed,
			Err:    &domain.LoadError{URL: rec.URL, Err: err},
		}
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return domain.LoadOutcome{
			URL:    rec.URL,
			Result: domain.LoadFailed,
			Err:    &domain.LoadError{URL: rec.URL, Err: err},
		}
	}

	if rows == 0 {
		return domain.LoadOutcome{URL: rec.URL, Result: domain.LoadSkippedDuplicate}
	}

	return domain.LoadOutcome{URL: rec.URL, Result: domain.LoadInserted, RowsAffected: rows}
}

// LoadMany loads a batch while preserving per-record outcome granularity.
// A failure on one record never aborts the batch.
func (r *ApplicantRepository) LoadMany(ctx context.Context, recs []domain.NormalizedRecord) []domain.LoadOutcome {
	outcomes := make([]domain.LoadOutcome, 0, len(recs))
	for i := range recs {
		outcomes = append(outcomes, r.Load(ctx, &recs[i]))
	}
	return outcomes
}

// ExistingURLs returns the set of natural keys already stored, used to skip
// already-loaded records before their detail fetch.
func (r *ApplicantRepository) ExistingURLs(ctx context.Context) (map[string]struct{}, error) {
	var urls []string
	if err := r.db.SelectContext(ctx, &urls, `SELECT url FROM applicants`); err != nil {
		return nil, fmt.Errorf("failed to list existing urls: %w", err)
	}

	set := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		set[u] = struct{}{}
	}
	return set, nil
}

// Count returns the total number of stored records.
func (r *ApplicantRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM applicants`); err != nil {
		return 0, fmt.Errorf("failed to count applicants: %w", err)
	}
	return count, nil
}

// EnrichmentRow is the slice of a stored record handed to the enrichment
// collaborator: the natural key plus the free-text fields to be cleaned up.
type EnrichmentRow struct {
	URL        string `db:"url" json:"url"`
	Program    string `db:"program" json:"program"`
	University string `db:"university" json:"university"`
}

// RowsForEnrichment returns records that have not been enriched yet.
func (r *ApplicantRepository) RowsForEnrichment(ctx context.Context) ([]EnrichmentRow, error) {
	var rows []EnrichmentRow
	err := r.db.SelectContext(
		ctx,
		&rows,
		`SELECT url, COALESCE(program, '') AS program, COALESCE(university, '') AS university
		 FROM applicants
		 WHERE llm_generated_program IS NULL
		 ORDER BY p_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rows for enrichment: %w", err)
	}
	return rows, nil
}

// ApplyEnrichment merges collaborator output back by natural key. Returns
// the number of rows updated; zero means the key matched nothing.
func (r *ApplicantRepository) ApplyEnrichment(ctx context.Context, url, program, university string) (int64, error) {
	res, err := r.db.ExecContext(
		ctx,
		`UPDATE applicants
		 SET llm_generated_program = $2, llm_generated_university = $3
		 WHERE url = $1`,
		url,
		nullString(program),
		nullString(university),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to apply enrichment: %w", err)
	}

	return res.RowsAffected()
}

// degreeColumn stores the level bucket when known, otherwise the raw degree,
// matching the store's single degree column.
func degreeColumn(rec *domain.NormalizedRecord) domain.Opt[string] {
	if rec.DegreeLevel.Known {
		return rec.DegreeLevel
	}
	return rec.Degree
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullOptString(o domain.Opt[string]) sql.NullString {
	return sql.NullString{String: o.Value, Valid: o.Known}
}

func nullOptFloat(o domain.Opt[float64]) sql.NullFloat64 {
	return sql.NullFloat64{Float64: o.Value, Valid: o.Known}
}

func nullOptTime(o domain.Opt[time.Time]) sql.NullTime {
	return sql.NullTime{Time: o.Value, Valid: o.Known}
}
