package opstore

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return l
}

// testStore opens the operational MySQL DSN named by TEST_MYSQL_DSN and
// migrates the tables this package owns, skipping when unset — the same
// opt-in integration pattern as the teacher's testutil.DB.
func testStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("set TEST_MYSQL_DSN to run operational store integration tests")
	}
	s, err := Open(dsn, testLogger(t))
	if err != nil {
		t.Fatalf("open test store: %v", err)
	}
	if err := s.AutoMigrate(); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return s
}

func TestClassRepo_SelectEndedUntriggered_ExcludesTriggeredAndOpen(t *testing.T) {
	s := testStore(t)
	repo := NewClassRepo(s)
	ctx := context.Background()

	now := time.Now().UTC()
	ended := now.Add(-time.Hour)

	eligible := Class{ID: uuid.NewString(), Status: "ended", MeetingEnd: &ended, AITriggered: false}
	triggered := Class{ID: uuid.NewString(), Status: "ended", MeetingEnd: &ended, AITriggered: true}
	stillOpen := Class{ID: uuid.NewString(), Status: "in_progress", MeetingEnd: nil, AITriggered: false}

	for _, c := range []Class{eligible, triggered, stillOpen} {
		if err := s.db.Create(&c).Error; err != nil {
			t.Fatalf("seed class: %v", err)
		}
	}
	t.Cleanup(func() {
		s.db.Where("id IN ?", []string{eligible.ID, triggered.ID, stillOpen.ID}).Delete(&Class{})
	})

	got, err := repo.SelectEndedUntriggered(ctx, 50)
	if err != nil {
		t.Fatalf("SelectEndedUntriggered: %v", err)
	}
	found := false
	for _, c := range got {
		if c.ID == eligible.ID {
			found = true
		}
		if c.ID == triggered.ID || c.ID == stillOpen.ID {
			t.Fatalf("SelectEndedUntriggered returned ineligible class %s", c.ID)
		}
	}
	if !found {
		t.Fatalf("SelectEndedUntriggered did not return eligible class %s", eligible.ID)
	}
}

func TestClassRepo_MarkTriggered_IsCompareAndSet(t *testing.T) {
	s := testStore(t)
	repo := NewClassRepo(s)
	ctx := context.Background()

	ended := time.Now().UTC().Add(-time.Hour)
	c := Class{ID: uuid.NewString(), Status: "ended", MeetingEnd: &ended, AITriggered: false}
	if err := s.db.Create(&c).Error; err != nil {
		t.Fatalf("seed class: %v", err)
	}
	t.Cleanup(func() { s.db.Delete(&Class{}, "id = ?", c.ID) })

	first, err := repo.MarkTriggered(ctx, c.ID)
	if err != nil {
		t.Fatalf("first MarkTriggered: %v", err)
	}
	if !first {
		t.Fatalf("first MarkTriggered should have won the race")
	}

	second, err := repo.MarkTriggered(ctx, c.ID)
	if err != nil {
		t.Fatalf("second MarkTriggered: %v", err)
	}
	if second {
		t.Fatalf("second MarkTriggered should not re-win an already-triggered class")
	}
}

func TestClassRepo_GetByID_NotFound(t *testing.T) {
	s := testStore(t)
	repo := NewClassRepo(s)

	_, err := repo.GetByID(context.Background(), uuid.NewString())
	if err == nil {
		t.Fatalf("expected not-found error")
	}
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected apperr.ErrNotFound, got %v", err)
	}
}
