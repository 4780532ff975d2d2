// Package transcript implements the Transcript Worker of spec.md §4.3: it
// claims leased rows from the analytical store, runs the Exercise Engine
// over each one, and persists the result as a single logical write. Its
// loop shape follows the teacher's internal/jobs/worker/worker.go
// ticker-driven runLoop, adapted from a job-queue poll to the claim/lease
// CTE of internal/analyticalstore.TranscriptRepo.ClaimBatch.
package transcript

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/engine"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type Worker struct {
	log          *logger.Logger
	transcripts  *analyticalstore.TranscriptRepo
	exerciseSets *analyticalstore.ExerciseSetRepo
	engine       *engine.Engine
	pollEvery    time.Duration
	batchSize    int
	leaseFor     time.Duration
	maxRetries   int
}

func New(log *logger.Logger, transcripts *analyticalstore.TranscriptRepo, exerciseSets *analyticalstore.ExerciseSetRepo, eng *engine.Engine, pollEvery time.Duration, batchSize int, leaseFor time.Duration, maxRetries int) *Worker {
	return &Worker{
		log:          log.With("component", "TranscriptWorker"),
		transcripts:  transcripts,
		exerciseSets: exerciseSets,
		engine:       eng,
		pollEvery:    pollEvery,
		batchSize:    batchSize,
		leaseFor:     leaseFor,
		maxRetries:   maxRetries,
	}
}

// Run ticks every pollEvery until ctx is canceled, matching Monitor.Run's
// shape so both loops read the same under lifecycle.Supervisor.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.pollEvery)
	defer ticker.Stop()

	w.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *Worker) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("panic recovered in transcript worker tick", "panic", r)
		}
	}()

	claimed, err := w.transcripts.ClaimBatch(ctx, w.batchSize, w.leaseFor)
	if err != nil {
		w.log.Error("failed to claim transcript batch", "error", err)
		return
	}
	if len(claimed) == 0 {
		return
	}
	w.log.Debug("claimed transcripts", "count", len(claimed))

	for i := range claimed {
		artifact := claimed[i]
		if artifact.PriorClaimedAt != nil {
			w.log.Warn("reclaimed a stale lease", "summary_id", artifact.ID, "prior_claimed_at", artifact.PriorClaimedAt)
		}
		w.processOne(ctx, artifact)
	}
}

// processOne runs stage 0 (the short-transcript check of spec.md §4.3) and,
// for eligible rows, the Exercise Engine, then persists the outcome via
// MarkCompleted/MarkRetry/MarkFailed per spec.md §4.3 process step 4.
func (w *Worker) processOne(ctx context.Context, artifact analyticalstore.TranscriptArtifact) {
	log := w.log.With("summary_id", artifact.ID, "class_id", artifact.ClassID)

	if len(artifact.Transcript) < engine.MinTranscriptChars {
		w.finish(ctx, log, artifact, fmt.Errorf("transcript missing or below the minimum length: %w", apperr.ErrDataInvalid))
		return
	}

	genCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	doc, err := w.engine.Generate(genCtx, artifact.Transcript, engine.Context{
		UserID:      artifact.UserID,
		TeacherID:   artifact.TeacherID,
		ClassID:     artifact.ClassID,
		MeetingDate: artifact.MeetingDate,
		SummaryID:   artifact.ID,
	})
	if err != nil {
		w.finish(ctx, log, artifact, err)
		return
	}

	exercises, err := json.Marshal(doc)
	if err != nil {
		w.finish(ctx, log, artifact, fmt.Errorf("failed to encode generated exercise document: %w", err))
		return
	}
	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		w.finish(ctx, log, artifact, fmt.Errorf("failed to encode generated exercise metadata: %w", err))
		return
	}

	if err := w.persist(ctx, artifact, exercises, metadata); err != nil {
		log.Error("failed to persist generated exercise set", "error", err)
		w.finish(ctx, log, artifact, err)
		return
	}

	log.Info("generated and persisted exercise set", "quality_score", doc.Metadata.QualityScore, "quality_passed", doc.Metadata.QualityPassed)
}

// persist performs the single logical write of spec.md §4.3 process step 3:
// the ExerciseSet insert and the TranscriptArtifact's completion both happen
// inside one pgx transaction, so a crash between them never leaves a
// "completed" row without its exercises.
func (w *Worker) persist(ctx context.Context, artifact analyticalstore.TranscriptArtifact, exercises, metadata []byte) error {
	tx, err := w.transcripts.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := w.exerciseSets.InsertTx(ctx, tx, artifact.ID, artifact.UserID, artifact.TeacherID, artifact.ClassID, exercises); err != nil {
		return err
	}
	if err := w.transcripts.MarkCompleted(ctx, tx, artifact.ID, metadata); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// finish implements the outcome branch of spec.md §4.3 process step 4. A
// data-validity fault (apperr.ErrDataInvalid) is permanent by definition and
// goes straight to failed regardless of attempts, per scenario S4. Any other
// fault follows the attempts-based ceiling: under it, back to
// awaiting_exercises with an exponential hint of 60s * 2^(attempts-1); at or
// past it, terminal.
func (w *Worker) finish(ctx context.Context, log *logger.Logger, artifact analyticalstore.TranscriptArtifact, cause error) {
	lastErr := cause.Error()

	if apperr.IsDataInvalid(cause) {
		if err := w.transcripts.MarkFailed(ctx, artifact.ID, lastErr); err != nil {
			log.Error("failed to mark transcript failed", "error", err)
		}
		log.Error("transcript processing failed with invalid data, no retry", "last_error", lastErr)
		return
	}

	if artifact.ProcessingAttempts >= w.maxRetries {
		if err := w.transcripts.MarkFailed(ctx, artifact.ID, lastErr); err != nil {
			log.Error("failed to mark transcript failed", "error", err)
		}
		log.Error("transcript processing failed terminally", "attempts", artifact.ProcessingAttempts, "last_error", lastErr)
		return
	}

	backoff := time.Minute
	if artifact.ProcessingAttempts > 1 {
		backoff <<= uint(artifact.ProcessingAttempts - 1)
	}
	if err := w.transcripts.MarkRetry(ctx, artifact.ID, lastErr, time.Now().UTC().Add(backoff)); err != nil {
		log.Error("failed to mark transcript for retry", "error", err)
	}
	log.Warn("transcript processing failed, scheduled for retry", "attempts", artifact.ProcessingAttempts, "last_error", lastErr)
}
