package analyticalstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

// Transcript status values, the state machine of spec.md §4.3.
const (
	StatusPending            = "pending"
	StatusAwaitingExercises  = "awaiting_exercises"
	StatusProcessing         = "processing"
	StatusCompleted          = "completed"
	StatusFailed             = "failed"
)

// TranscriptArtifact mirrors the zoom_summaries row (spec.md §3).
type TranscriptArtifact struct {
	ID                 int64
	UserID             string
	TeacherID          string
	ClassID            string
	TeacherEmail       string
	MeetingDate        string
	StartTime          string
	EndTime            string
	Transcript         string
	TranscriptLength   int
	TranscriptSource   string
	Status             string
	ProcessingAttempts int
	LastError          string
	ClaimedAt          *time.Time
	ProcessedAt        *time.Time
	ProcessingMetadata []byte
	NextRetryHintAt    *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// PriorClaimedAt is populated only by ClaimBatch, for the "reclaimed a
	// stale lease" log line (SPEC_FULL.md supplemented feature #1). It is
	// nil unless the claim took over a lapsed lease.
	PriorClaimedAt *time.Time
}

// NewInput is the business-key-bearing payload for InsertPending, grounded
// on the POST /v1/trigger request body of spec.md §4.5.
type NewInput struct {
	UserID       string
	TeacherID    string
	ClassID      string
	TeacherEmail string
	MeetingDate  string
	StartTime    string
	EndTime      string
}

type TranscriptRepo struct {
	pool *pgxpool.Pool
	log  *logger.Logger
}

func NewTranscriptRepo(s *Store) *TranscriptRepo {
	return &TranscriptRepo{pool: s.pool, log: s.log.With("repo", "TranscriptRepo")}
}

const transcriptColumns = `id, user_id, teacher_id, class_id, COALESCE(teacher_email, ''), meeting_date,
	start_time, end_time, COALESCE(transcript, ''), transcript_length, transcript_source, status,
	processing_attempts, COALESCE(last_error, ''), claimed_at, processed_at, processing_metadata,
	next_retry_hint_at, created_at, updated_at`

const transcriptColumnsQualified = `t.id, t.user_id, t.teacher_id, t.class_id, COALESCE(t.teacher_email, ''), t.meeting_date,
	t.start_time, t.end_time, COALESCE(t.transcript, ''), t.transcript_length, t.transcript_source, t.status,
	t.processing_attempts, COALESCE(t.last_error, ''), t.claimed_at, t.processed_at, t.processing_metadata,
	t.next_retry_hint_at, t.created_at, t.updated_at`

func scanTranscript(row pgx.Row) (*TranscriptArtifact, error) {
	var t TranscriptArtifact
	err := row.Scan(
		&t.ID, &t.UserID, &t.TeacherID, &t.ClassID, &t.TeacherEmail, &t.MeetingDate,
		&t.StartTime, &t.EndTime, &t.Transcript, &t.TranscriptLength, &t.TranscriptSource, &t.Status,
		&t.ProcessingAttempts, &t.LastError, &t.ClaimedAt, &t.ProcessedAt, &t.ProcessingMetadata,
		&t.NextRetryHintAt, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// InsertPending inserts a new TranscriptArtifact in status "pending", or
// returns the existing row for the same (class_id, meeting_date, start_time)
// business key, satisfying the POST /v1/trigger idempotency requirement
// (spec.md §4.5) — grounded on the teacher's pgconn.PgError unique-violation
// classification in internal/data/aggregates/errors.go.
func (r *TranscriptRepo) InsertPending(ctx context.Context, in NewInput) (artifact *TranscriptArtifact, created bool, err error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO zoom_summaries
			(user_id, teacher_id, class_id, teacher_email, meeting_date, start_time, end_time, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING `+transcriptColumns,
		in.UserID, in.TeacherID, in.ClassID, in.TeacherEmail, in.MeetingDate, in.StartTime, in.EndTime,
	)
	t, scanErr := scanTranscript(row)
	if scanErr == nil {
		return t, true, nil
	}

	var pgErr *pgconn.PgError
	if errors.As(scanErr, &pgErr) && pgErr.Code == "23505" {
		existing, getErr := r.GetByBusinessKey(ctx, in.ClassID, in.MeetingDate, in.StartTime)
		if getErr != nil {
			return nil, false, fmt.Errorf("insert pending transcript: fetch existing after conflict: %w", getErr)
		}
		return existing, false, nil
	}
	return nil, false, fmt.Errorf("insert pending transcript: %w", scanErr)
}

func (r *TranscriptRepo) GetByBusinessKey(ctx context.Context, classID, meetingDate, startTime string) (*TranscriptArtifact, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+transcriptColumns+` FROM zoom_summaries
		WHERE class_id = $1 AND meeting_date = $2 AND start_time = $3`,
		classID, meetingDate, startTime,
	)
	t, err := scanTranscript(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transcript for business key %s/%s/%s: %w", classID, meetingDate, startTime, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get transcript by business key: %w", err)
	}
	return t, nil
}

func (r *TranscriptRepo) GetByID(ctx context.Context, id int64) (*TranscriptArtifact, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+transcriptColumns+` FROM zoom_summaries WHERE id = $1`, id)
	t, err := scanTranscript(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("transcript %d: %w", id, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get transcript by id: %w", err)
	}
	return t, nil
}

// ClaimBatch atomically transitions up to limit eligible rows to
// "processing", implementing spec.md §4.3 steps 1-2: candidates are rows in
// {pending, awaiting_exercises} whose claimed_at is null or older than
// leaseDuration, plus "processing" rows whose claimed_at is older than
// leaseDuration (a lapsed lease), oldest created_at first; the winning UPDATE increments
// processing_attempts and stamps claimed_at, all inside one statement so a
// concurrent worker's claim over the same row can never partially apply.
func (r *TranscriptRepo) ClaimBatch(ctx context.Context, limit int, leaseDuration time.Duration) ([]TranscriptArtifact, error) {
	rows, err := r.pool.Query(ctx, `
		WITH candidate AS (
			SELECT id, claimed_at AS prior_claimed_at
			FROM zoom_summaries
			WHERE (status IN ('pending', 'awaiting_exercises')
			       AND (claimed_at IS NULL OR claimed_at < now() - make_interval(secs => $1)))
			   OR (status = 'processing' AND claimed_at < now() - make_interval(secs => $1))
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE zoom_summaries t
		SET status = 'processing',
		    processing_attempts = t.processing_attempts + 1,
		    claimed_at = now(),
		    updated_at = now()
		FROM candidate
		WHERE t.id = candidate.id
		RETURNING `+transcriptColumnsQualified+`, candidate.prior_claimed_at`,
		leaseDuration.Seconds(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("claim transcript batch: %w", err)
	}
	defer rows.Close()

	var out []TranscriptArtifact
	for rows.Next() {
		var t TranscriptArtifact
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.TeacherID, &t.ClassID, &t.TeacherEmail, &t.MeetingDate,
			&t.StartTime, &t.EndTime, &t.Transcript, &t.TranscriptLength, &t.TranscriptSource, &t.Status,
			&t.ProcessingAttempts, &t.LastError, &t.ClaimedAt, &t.ProcessedAt, &t.ProcessingMetadata,
			&t.NextRetryHintAt, &t.CreatedAt, &t.UpdatedAt, &t.PriorClaimedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed transcript: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("claim transcript batch: %w", err)
	}
	return out, nil
}

// MarkAwaitingExercises persists a fetched transcript and advances the row
// past the fetch stage (spec.md §4.3 process step 1).
func (r *TranscriptRepo) MarkAwaitingExercises(ctx context.Context, id int64, transcript, source string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE zoom_summaries
		SET status = 'awaiting_exercises', transcript = $2, transcript_length = $3,
		    transcript_source = $4, updated_at = now()
		WHERE id = $1`,
		id, transcript, len(transcript), source,
	)
	if err != nil {
		return fmt.Errorf("mark awaiting exercises: %w", err)
	}
	return nil
}

// MarkCompleted clears the lease and transitions to "completed" (spec.md
// §4.3 process step 3). The ExerciseSet insert is performed by the caller in
// the same pgx transaction via ExerciseSetRepo.InsertTx before this call.
func (r *TranscriptRepo) MarkCompleted(ctx context.Context, tx pgx.Tx, id int64, metadata []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE zoom_summaries
		SET status = 'completed', claimed_at = NULL, processed_at = now(),
		    processing_metadata = $2, updated_at = now()
		WHERE id = $1`,
		id, metadata,
	)
	if err != nil {
		return fmt.Errorf("mark transcript completed: %w", err)
	}
	return nil
}

// MarkRetry returns the artifact to "awaiting_exercises" with the lease
// cleared, so a later tick can reclaim it (spec.md §4.3 process step 4,
// retry branch). nextRetryHintAt is informational only (SPEC_FULL.md
// supplemented feature #2); it does not gate ClaimBatch's predicate.
func (r *TranscriptRepo) MarkRetry(ctx context.Context, id int64, lastError string, nextRetryHintAt time.Time) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE zoom_summaries
		SET status = 'awaiting_exercises', claimed_at = NULL, last_error = $2,
		    next_retry_hint_at = $3, updated_at = now()
		WHERE id = $1`,
		id, lastError, nextRetryHintAt,
	)
	if err != nil {
		return fmt.Errorf("mark transcript retry: %w", err)
	}
	return nil
}

// MarkFailed transitions to the terminal "failed" state (spec.md §4.3
// process steps 1 and 4, terminal branch).
func (r *TranscriptRepo) MarkFailed(ctx context.Context, id int64, lastError string) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE zoom_summaries
		SET status = 'failed', claimed_at = NULL, last_error = $2, updated_at = now()
		WHERE id = $1`,
		id, lastError,
	)
	if err != nil {
		return fmt.Errorf("mark transcript failed: %w", err)
	}
	return nil
}

// ResetToPending implements the external "failed -> pending" reset named in
// spec.md §4.3 (`failed` "requires external reset"), clearing counters.
// Callers should follow this with ExerciseSetRepo.RejectForSummary per
// SPEC_FULL.md Open Question decision #1.
func (r *TranscriptRepo) ResetToPending(ctx context.Context, id int64) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE zoom_summaries
		SET status = 'pending', processing_attempts = 0, last_error = NULL,
		    claimed_at = NULL, next_retry_hint_at = NULL, updated_at = now()
		WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("reset transcript to pending: %w", err)
	}
	return nil
}

// BeginTx exposes a raw pgx transaction for the worker's single logical
// write spanning TranscriptRepo.MarkCompleted and ExerciseSetRepo.InsertTx
// (spec.md §4.3 process step 3: "in a single logical write").
func (r *TranscriptRepo) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

