package analyticalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

const (
	ExerciseSetStatusPendingApproval = "pending_approval"
	ExerciseSetStatusApproved        = "approved"
	ExerciseSetStatusRejected        = "rejected"
)

// ExerciseSet mirrors the lesson_exercises row (spec.md §3). Exercises holds
// the raw JSONB document (flashcards/cloze/grammar/sentence arrays, counts,
// metadata) produced by internal/engine; this package never interprets it.
type ExerciseSet struct {
	ID          int64
	SummaryID   int64
	UserID      string
	TeacherID   string
	ClassID     string
	Exercises   []byte
	Status      string
	GeneratedAt time.Time
}

type ExerciseSetRepo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewExerciseSetRepo(s *Store) *ExerciseSetRepo {
	return &ExerciseSetRepo{pool: s.pool, log: s.log.With("repo", "ExerciseSetRepo")}
}

const exerciseSetColumns = `id, summary_id, user_id, teacher_id, class_id, exercises, status, generated_at`

func scanExerciseSet(row pgx.Row) (*ExerciseSet, error) {
	var e ExerciseSet
	if err := row.Scan(&e.ID, &e.SummaryID, &e.UserID, &e.TeacherID, &e.ClassID, &e.Exercises, &e.Status, &e.GeneratedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// InsertTx inserts the ExerciseSet inside tx, as the first half of the
// "single logical write" of spec.md §4.3 process step 3; the caller commits
// tx only after also calling TranscriptRepo.MarkCompleted so no partial
// ExerciseSet is ever visible (spec.md §5, "No partial ExerciseSet is ever
// persisted").
func (r *ExerciseSetRepo) InsertTx(ctx context.Context, tx pgx.Tx, summaryID int64, userID, teacherID, classID string, exercises []byte) (*ExerciseSet, error) {
	row := tx.QueryRow(ctx, `
		INSERT INTO lesson_exercises (summary_id, user_id, teacher_id, class_id, exercises, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+exerciseSetColumns,
		summaryID, userID, teacherID, classID, exercises, ExerciseSetStatusPendingApproval,
	)
	set, err := scanExerciseSet(row)
	if err != nil {
		return nil, fmt.Errorf("insert exercise set: %w", err)
	}
	return set, nil
}

// RejectForSummary implements SPEC_FULL.md Open Question decision #1: when a
// TranscriptArtifact is externally reset from failed to pending, any prior
// non-rejected ExerciseSet for that summary is marked rejected rather than
// deleted, preserving spec.md §3's "at most one ExerciseSet whose status is
// not rejected" invariant without a destructive delete.
func (r *ExerciseSetRepo) RejectForSummary(ctx context.Context, summaryID int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE lesson_exercises SET status = $2
		WHERE summary_id = $1 AND status != $2`,
		summaryID, ExerciseSetStatusRejected,
	)
	if err != nil {
		return fmt.Errorf("reject exercise sets for summary %d: %w", summaryID, err)
	}
	return nil
}

// ExistsNonRejectedForSummary reports whether a non-rejected ExerciseSet
// exists for summaryID; the store tests use it to check the single-active
// invariant.
func (r *ExerciseSetRepo) ExistsNonRejectedForSummary(ctx context.Context, summaryID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM lesson_exercises WHERE summary_id = $1 AND status != $2)`,
		summaryID, ExerciseSetStatusRejected,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check existing exercise set: %w", err)
	}
	return exists, nil
}

// GetBySummaryID is used by GET /v1/lesson-status to report whether an
// ExerciseSet exists for a given transcript.
func (r *ExerciseSetRepo) GetBySummaryID(ctx context.Context, summaryID int64) (*ExerciseSet, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+exerciseSetColumns+` FROM lesson_exercises
		WHERE summary_id = $1 AND status != $2
		ORDER BY generated_at DESC
		LIMIT 1`,
		summaryID, ExerciseSetStatusRejected,
	)
	set, err := scanExerciseSet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("exercise set for summary %d: %w", summaryID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get exercise set by summary id: %w", err)
	}
	return set, nil
}

// ListByFilter implements GET /v1/exercises (spec.md §4.5): class_id is
// required, user_id optional, ordered by generated_at descending.
func (r *ExerciseSetRepo) ListByFilter(ctx context.Context, classID, userID string) ([]ExerciseSet, error) {
	var rows pgx.Rows
	var err error
	if userID == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT `+exerciseSetColumns+` FROM lesson_exercises
			WHERE class_id = $1 AND status != $2
			ORDER BY generated_at DESC`,
			classID, ExerciseSetStatusRejected,
		)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT `+exerciseSetColumns+` FROM lesson_exercises
			WHERE class_id = $1 AND user_id = $2 AND status != $3
			ORDER BY generated_at DESC`,
			classID, userID, ExerciseSetStatusRejected,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list exercise sets: %w", err)
	}
	defer rows.Close()

	var out []ExerciseSet
	for rows.Next() {
		var e ExerciseSet
		if err := rows.Scan(&e.ID, &e.SummaryID, &e.UserID, &e.TeacherID, &e.ClassID, &e.Exercises, &e.Status, &e.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan exercise set: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list exercise sets: %w", err)
	}
	return out, nil
}
