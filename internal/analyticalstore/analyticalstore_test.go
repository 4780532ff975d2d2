package analyticalstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lesson-pipeline/internal/logger"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_DSN")
	if url == "" {
		t.Skip("set TEST_POSTGRES_DSN to run analytical store integration tests")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	ctx := context.Background()
	s, err := Open(ctx, url, log)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func newInput() NewInput {
	return NewInput{
		UserID:      uuid.NewString(),
		TeacherID:   uuid.NewString(),
		ClassID:     uuid.NewString(),
		MeetingDate: "2026-08-03",
		StartTime:   "17:00",
		EndTime:     "17:30",
	}
}

func TestTranscriptRepo_InsertPending_IsIdempotentOnBusinessKey(t *testing.T) {
	s := testStore(t)
	repo := NewTranscriptRepo(s)
	ctx := context.Background()
	in := newInput()

	first, created, err := repo.InsertPending(ctx, in)
	if err != nil {
		t.Fatalf("first InsertPending: %v", err)
	}
	if !created {
		t.Fatalf("expected first InsertPending to create a row")
	}

	second, created, err := repo.InsertPending(ctx, in)
	if err != nil {
		t.Fatalf("second InsertPending: %v", err)
	}
	if created {
		t.Fatalf("second InsertPending should not create a second row")
	}
	if second.ID != first.ID {
		t.Fatalf("expected the same row: first=%d second=%d", first.ID, second.ID)
	}
}

func TestTranscriptRepo_ClaimBatch_ExcludesLiveLease(t *testing.T) {
	s := testStore(t)
	repo := NewTranscriptRepo(s)
	ctx := context.Background()

	t1, _, err := repo.InsertPending(ctx, newInput())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	claimed, err := repo.ClaimBatch(ctx, 10, time.Hour)
	if err != nil {
		t.Fatalf("first ClaimBatch: %v", err)
	}
	if !containsID(claimed, t1.ID) {
		t.Fatalf("expected first ClaimBatch to claim %d", t1.ID)
	}

	againClaimed, err := repo.ClaimBatch(ctx, 10, time.Hour)
	if err != nil {
		t.Fatalf("second ClaimBatch: %v", err)
	}
	if containsID(againClaimed, t1.ID) {
		t.Fatalf("second ClaimBatch should not reclaim a live lease on %d", t1.ID)
	}
}

func TestTranscriptRepo_ClaimBatch_ReclaimsExpiredLease(t *testing.T) {
	s := testStore(t)
	repo := NewTranscriptRepo(s)
	ctx := context.Background()

	t1, _, err := repo.InsertPending(ctx, newInput())
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := repo.ClaimBatch(ctx, 10, 0); err != nil {
		t.Fatalf("initial claim: %v", err)
	}

	claimed, err := repo.ClaimBatch(ctx, 10, 0)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !containsID(claimed, t1.ID) {
		t.Fatalf("expected expired lease on %d to be reclaimed", t1.ID)
	}
	for _, c := range claimed {
		if c.ID == t1.ID && c.ProcessingAttempts != 2 {
			t.Fatalf("expected processing_attempts=2 after reclaim, got %d", c.ProcessingAttempts)
		}
	}
}

func TestExerciseSetRepo_RejectForSummary_PreservesSingleActiveInvariant(t *testing.T) {
	s := testStore(t)
	tr := NewTranscriptRepo(s)
	er := NewExerciseSetRepo(s)
	ctx := context.Background()

	artifact, _, err := tr.InsertPending(ctx, newInput())
	if err != nil {
		t.Fatalf("insert transcript: %v", err)
	}

	tx, err := tr.BeginTx(ctx)
	if err != nil {
		t.Fatalf("begin tx: %v", err)
	}
	if _, err := er.InsertTx(ctx, tx, artifact.ID, artifact.UserID, artifact.TeacherID, artifact.ClassID, []byte(`{"flashcards":[]}`)); err != nil {
		t.Fatalf("insert exercise set: %v", err)
	}
	if err := tr.MarkCompleted(ctx, tx, artifact.ID, []byte(`{}`)); err != nil {
		t.Fatalf("mark completed: %v", err)
	}
	if err := tx.Commit(ctx); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := er.RejectForSummary(ctx, artifact.ID); err != nil {
		t.Fatalf("RejectForSummary: %v", err)
	}

	_, err = er.GetBySummaryID(ctx, artifact.ID)
	if err == nil {
		t.Fatalf("expected no non-rejected exercise set after RejectForSummary")
	}

	exists, err := er.ExistsNonRejectedForSummary(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("ExistsNonRejectedForSummary: %v", err)
	}
	if exists {
		t.Fatalf("expected no non-rejected exercise set after RejectForSummary")
	}
}

func containsID(rows []TranscriptArtifact, id int64) bool {
	for _, r := range rows {
		if r.ID == id {
			return true
		}
	}
	return false
}
