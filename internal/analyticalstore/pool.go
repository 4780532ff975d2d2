// Package analyticalstore is the typed gateway to the analytical store: a
// Postgres database holding the document-shaped transcript and exercise
// rows produced by the external transcription workflow and the Transcript
// Worker (spec.md §3). Unlike internal/opstore, it is reached with a raw
// github.com/jackc/pgx/v5 pool rather than an ORM, matching the teacher's
// direct pgx/v5 dependency and its pgconn-based Postgres error classification
// in internal/data/aggregates/errors.go.
package analyticalstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type Store struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

// Open connects to the analytical Postgres instance at url.
func Open(ctx context.Context, url string, log *logger.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse analytical store url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect analytical store: %w", err)
	}
	return &Store{pool: pool, log: log.With("store", "analytical")}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// Ping verifies connectivity for the /ready probe.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Migrate creates the tables this module owns if they do not already exist.
// Production deployments are expected to run a real migration tool; this
// exists for local/dev and test bootstrapping, matching opstore.AutoMigrate's
// role on the operational side.
func (s *Store) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS zoom_summaries (
			id                    BIGSERIAL PRIMARY KEY,
			user_id               TEXT NOT NULL,
			teacher_id            TEXT NOT NULL,
			class_id              TEXT NOT NULL,
			teacher_email         TEXT,
			meeting_date          TEXT NOT NULL,
			start_time            TEXT NOT NULL,
			end_time              TEXT NOT NULL,
			transcript            TEXT,
			transcript_length     INTEGER NOT NULL DEFAULT 0,
			transcript_source     TEXT NOT NULL DEFAULT 'unknown',
			status                TEXT NOT NULL DEFAULT 'pending',
			processing_attempts   INTEGER NOT NULL DEFAULT 0,
			last_error            TEXT,
			claimed_at            TIMESTAMPTZ,
			processed_at          TIMESTAMPTZ,
			processing_metadata   JSONB NOT NULL DEFAULT '{}'::jsonb,
			next_retry_hint_at    TIMESTAMPTZ,
			created_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at            TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (class_id, meeting_date, start_time)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_zoom_summaries_claim
			ON zoom_summaries (status, claimed_at, created_at)`,
		`CREATE TABLE IF NOT EXISTS lesson_exercises (
			id           BIGSERIAL PRIMARY KEY,
			summary_id   BIGINT NOT NULL REFERENCES zoom_summaries(id),
			user_id      TEXT NOT NULL,
			teacher_id   TEXT NOT NULL,
			class_id     TEXT NOT NULL,
			exercises    JSONB NOT NULL,
			status       TEXT NOT NULL DEFAULT 'pending_approval',
			generated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lesson_exercises_read
			ON lesson_exercises (class_id, user_id, generated_at DESC)`,
	}
	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate analytical store: %w", err)
		}
	}
	return nil
}
