package transcript

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/engine"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

const sampleTranscript = `Teacher: Today we will review the present perfect tense with several examples.
Student: I have visited Paris three times since last year.
Teacher: Correct: I have visited Paris three times since last year.
Student: She have finished her homework already.
Teacher: "have" should be "has" there.
Student: The weather has been quite cold this week.
Teacher: That is a very natural sentence, well done.
Student: We are planning to travel to Japan next spring.
Teacher: Excellent use of the present continuous for future plans.
Student: They will have completed the project by next Friday.`

func testAnalyticalStore(t *testing.T) *analyticalstore.Store {
	t.Helper()
	url := os.Getenv("TEST_POSTGRES_DSN")
	if url == "" {
		t.Skip("set TEST_POSTGRES_DSN to run transcript worker integration tests")
	}
	log := testLogger(t)
	ctx := context.Background()
	s, err := analyticalstore.Open(ctx, url, log)
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return l
}

func TestWorker_Tick_ClaimsGeneratesAndCompletesTranscript(t *testing.T) {
	s := testAnalyticalStore(t)
	transcripts := analyticalstore.NewTranscriptRepo(s)
	exerciseSets := analyticalstore.NewExerciseSetRepo(s)
	eng := engine.New(testLogger(t), nil, nil, engine.DefaultConfig())
	w := New(testLogger(t), transcripts, exerciseSets, eng, time.Hour, 10, time.Minute, 5)

	ctx := context.Background()
	artifact, _, err := transcripts.InsertPending(ctx, analyticalstore.NewInput{
		UserID:      uuid.NewString(),
		TeacherID:   uuid.NewString(),
		ClassID:     uuid.NewString(),
		MeetingDate: "2026-08-03",
		StartTime:   "17:00",
		EndTime:     "17:30",
	})
	if err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if err := transcripts.MarkAwaitingExercises(ctx, artifact.ID, sampleTranscript, "zoom"); err != nil {
		t.Fatalf("mark awaiting exercises: %v", err)
	}

	w.tick(ctx)

	updated, err := transcripts.GetByID(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if updated.Status != analyticalstore.StatusCompleted {
		t.Fatalf("expected status completed, got %s (last_error=%s)", updated.Status, updated.LastError)
	}

	set, err := exerciseSets.GetBySummaryID(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get exercise set: %v", err)
	}
	var doc engine.Document
	if err := json.Unmarshal(set.Exercises, &doc); err != nil {
		t.Fatalf("unmarshal exercises: %v", err)
	}
	if doc.Counts.Flashcards == 0 {
		t.Fatalf("expected at least one flashcard in the persisted document")
	}
}

func TestWorker_Tick_FailsTooShortTranscriptImmediately(t *testing.T) {
	s := testAnalyticalStore(t)
	transcripts := analyticalstore.NewTranscriptRepo(s)
	exerciseSets := analyticalstore.NewExerciseSetRepo(s)
	eng := engine.New(testLogger(t), nil, nil, engine.DefaultConfig())
	w := New(testLogger(t), transcripts, exerciseSets, eng, time.Hour, 10, time.Minute, 5)

	ctx := context.Background()
	artifact, _, err := transcripts.InsertPending(ctx, analyticalstore.NewInput{
		UserID:      uuid.NewString(),
		TeacherID:   uuid.NewString(),
		ClassID:     uuid.NewString(),
		MeetingDate: "2026-08-03",
		StartTime:   "18:00",
		EndTime:     "18:30",
	})
	if err != nil {
		t.Fatalf("insert pending: %v", err)
	}
	if err := transcripts.MarkAwaitingExercises(ctx, artifact.ID, "too short", "zoom"); err != nil {
		t.Fatalf("mark awaiting exercises: %v", err)
	}

	w.tick(ctx)

	updated, err := transcripts.GetByID(ctx, artifact.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if updated.Status != analyticalstore.StatusFailed {
		t.Fatalf("expected status failed (no retry for invalid data), got %s", updated.Status)
	}
	if updated.LastError == "" {
		t.Fatalf("expected last_error to be set")
	}

	if _, err := exerciseSets.GetBySummaryID(ctx, artifact.ID); err == nil {
		t.Fatalf("expected no exercise set to be created for a too-short transcript")
	}
}
