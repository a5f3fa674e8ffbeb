// Package common wires the shared dependencies used by every subcommand:
// configuration, logger, database, repositories, and the pipeline coordinator.
package common

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nziran/gradpipe/internal/config"
	"github.com/nziran/gradpipe/internal/database"
	"github.com/nziran/gradpipe/internal/detail"
	"github.com/nziran/gradpipe/internal/listing"
	"github.com/nziran/gradpipe/internal/logger"
	"github.com/nziran/gradpipe/internal/pipeline"
)

// Deps carries the fully wired application graph.
type Deps struct {
	Config      *config.Config
	Logger      logger.Interface
	DB          *sqlx.DB
	Applicants  *database.ApplicantRepository
	Checkpoints *database.CheckpointRepository
	Coordinator *pipeline.Coordinator
}

// Build constructs the dependency graph and ensures the schema exists.
func Build(ctx context.Context) (*Deps, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Logger.Level,
		Development: cfg.Logger.Development,
	})
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	db, err := database.NewPostgresConnection(database.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		User:     cfg.Database.User,
		Password: cfg.Database.Password,
		DBName:   cfg.Database.Name,
		SSLMode:  cfg.Database.SSLMode,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if err := database.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	applicants := database.NewApplicantRepository(db)
	checkpoints := database.NewCheckpointRepository(db)

	fetcher := listing.NewFetcher(listing.Config{
		BaseURL:        cfg.Source.BaseURL,
		UserAgent:      cfg.Source.UserAgent,
		PageDelay:      cfg.Source.PageDelay,
		RequestTimeout: cfg.Source.RequestTimeout,
		MaxRetries:     cfg.Source.MaxRetries,
	}, log)

	pool := detail.NewPool(detail.Config{
		Workers:        cfg.Details.Workers,
		UserAgent:      cfg.Source.UserAgent,
		RequestTimeout: cfg.Details.RequestTimeout,
		MaxRetries:     cfg.Details.MaxRetries,
	}, log)

	coordinator := pipeline.NewCoordinator(
		fetcher,
		pool,
		applicants,
		checkpoints,
		pipeline.Config{
			MaxPages:       cfg.Source.MaxPages,
			StalePageStop:  cfg.Source.StalePageStop,
			TermYearMaxGap: cfg.Pipeline.TermYearMaxGap,
		},
		log,
	)

	return &Deps{
		Config:      cfg,
		Logger:      log,
		DB:          db,
		Applicants:  applicants,
		Checkpoints: checkpoints,
		Coordinator: coordinator,
	}, nil
}

// Close releases the graph's resources.
func (d *Deps) Close() {
	if d.DB != nil {
		d.DB.Close()
	}
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}
}
