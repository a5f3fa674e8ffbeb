package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// checkpointName is the singleton row key for the ingest pipeline cursor.
const checkpointName = "ingest"

// Checkpoint is the persisted progress marker: page cursor plus the status
// of the run that wrote it. Read at run start to resume, written after each
// page's load completes.
type Checkpoint struct {
	Name       string    `db:"name"`
	PageCursor int       `db:"page_cursor"`
	RunStatus  string    `db:"run_status"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// CheckpointRepository persists pipeline checkpoints.
type CheckpointRepository struct {
	db *sqlx.DB
}

// NewCheckpointRepository creates a new checkpoint repository.
func NewCheckpointRepository(db *sqlx.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Get returns the stored checkpoint, or nil when none exists yet.
func (r *CheckpointRepository) Get(ctx context.Context) (*Checkpoint, error) {
	var cp Checkpoint
	err := r.db.GetContext(
		ctx,
		&cp,
		`SELECT name, page_cursor, run_status, updated_at
		 FROM pipeline_checkpoints WHERE name = $1`,
		checkpointName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}

	return &cp, nil
}

// Save upserts the checkpoint.
func (r *CheckpointRepository) Save(ctx context.Context, pageCursor int, runStatus string) error {
	_, err := r.db.ExecContext(
		ctx,
		`INSERT INTO pipeline_checkpoints (name, page_cursor, run_status, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (name) DO UPDATE
		 SET page_cursor = EXCLUDED.page_cursor,
		     run_status = EXCLUDED.run_status,
		     updated_at = now()`,
		checkpointName,
		pageCursor,
		runStatus,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}
