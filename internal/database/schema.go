package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// The applicants table carries one row per natural key (url). The UNIQUE
// constraint on url is the authoritative deduplication mechanism: it holds
// across process restarts and across two runs racing past the in-process
// gate.
const applicantsSchema = `
CREATE TABLE IF NOT EXISTS applicants (
	p_id BIGSERIAL PRIMARY KEY,
	url TEXT UNIQUE NOT NULL,
	program TEXT,
	university TEXT,
	comments TEXT,
	date_added DATE,
	status TEXT NOT NULL,
	decision_date TEXT,
	term TEXT,
	us_or_international TEXT NOT NULL,
	gpa FLOAT,
	gre FLOAT,
	gre_v FLOAT,
	gre_aw FLOAT,
	degree TEXT,
	scraped_at TIMESTAMPTZ NOT NULL,
	llm_generated_program TEXT,
	llm_generated_university TEXT
)`

const checkpointsSchema = `
CREATE TABLE IF NOT EXISTS pipeline_checkpoints (
	name TEXT PRIMARY KEY,
	page_cursor INT NOT NULL,
	run_status TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the pipeline tables when missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range []string{applicantsSchema, checkpointsSchema} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
