package monitor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/opstore"
)

type fakeClassRepo struct {
	classes   []opstore.Class
	triggered map[string]bool
}

func (f *fakeClassRepo) SelectEndedUntriggered(ctx context.Context, limit int) ([]opstore.Class, error) {
	var out []opstore.Class
	for _, c := range f.classes {
		if !f.triggered[c.ID] {
			out = append(out, c)
		}
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeClassRepo) MarkTriggered(ctx context.Context, classID string) (bool, error) {
	if f.triggered[classID] {
		return false, nil
	}
	f.triggered[classID] = true
	return true, nil
}

type fakeUserRepo struct{ email string }

func (f *fakeUserRepo) EmailByID(ctx context.Context, userID string) (string, error) {
	return f.email, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New("test")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return l
}

func TestMonitor_Tick_MarksTriggeredOnSuccessfulDispatch(t *testing.T) {
	var requests int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	repo := &fakeClassRepo{
		classes:   []opstore.Class{{ID: "c-1", UserID: "u-1", TeacherID: "t-1", MeetingDate: "2026-08-03", StartTime: "17:00", EndTime: "17:30"}},
		triggered: map[string]bool{},
	}
	users := &fakeUserRepo{email: "teacher@example.com"}
	client := dispatch.New(testLogger(t), srv.URL, 2*time.Second)
	m := New(testLogger(t), repo, users, client, time.Hour, 50)

	m.tick(context.Background())

	if requests != 1 {
		t.Fatalf("want 1 dispatch request, got %d", requests)
	}
	if !repo.triggered["c-1"] {
		t.Fatalf("expected class c-1 to be marked triggered")
	}

	m.tick(context.Background())
	if requests != 1 {
		t.Fatalf("expected no re-dispatch of an already-triggered class, got %d total requests", requests)
	}
}

func TestMonitor_Tick_LeavesClassUntriggeredOnPermanentFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	repo := &fakeClassRepo{
		classes:   []opstore.Class{{ID: "c-2", UserID: "u-1", TeacherID: "t-1"}},
		triggered: map[string]bool{},
	}
	users := &fakeUserRepo{}
	client := dispatch.New(testLogger(t), srv.URL, 2*time.Second)
	m := New(testLogger(t), repo, users, client, time.Hour, 50)

	m.tick(context.Background())

	if repo.triggered["c-2"] {
		t.Fatalf("a permanently failed dispatch must not mark the class triggered")
	}
}
