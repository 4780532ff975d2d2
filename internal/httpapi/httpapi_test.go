package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/idempotency"
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

func TestTrigger_RejectsMissingRequiredFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/v1/trigger", (&TriggerHandler{log: testLogger(t)}).Trigger)

	req := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewBufferString(`{"user_id":"u-1"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("want=400 got=%d body=%s", w.Code, w.Body.String())
	}
}

func newIntegrationEnv(t *testing.T) (*analyticalstore.Store, *idempotency.Cache) {
	t.Helper()
	pgURL := os.Getenv("TEST_POSTGRES_DSN")
	redisURL := os.Getenv("TEST_REDIS_URL")
	if pgURL == "" || redisURL == "" {
		t.Skip("set TEST_POSTGRES_DSN and TEST_REDIS_URL to run httpapi integration tests")
	}

	log := testLogger(t)
	an, err := analyticalstore.Open(t.Context(), pgURL, log)
	if err != nil {
		t.Fatalf("open analytical store: %v", err)
	}
	if err := an.Migrate(t.Context()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(an.Close)

	idem, err := idempotency.New(log, redisURL, time.Minute)
	if err != nil {
		t.Fatalf("init idempotency cache: %v", err)
	}
	return an, idem
}

func TestTrigger_IsIdempotentByHeaderAndByBusinessKey(t *testing.T) {
	gin.SetMode(gin.TestMode)
	an, idem := newIntegrationEnv(t)
	transcripts := analyticalstore.NewTranscriptRepo(an)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)
	dispatcher := dispatch.New(testLogger(t), srv.URL, 2*time.Second)

	handler := NewTriggerHandler(testLogger(t), transcripts, dispatcher, idem)
	router := gin.New()
	router.POST("/v1/trigger", handler.Trigger)

	body := `{"user_id":"u-1","teacher_id":"t-1","class_id":"c-http-1","date":"2026-08-03","start_time":"17:00","end_time":"17:30"}`

	req1 := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewBufferString(body))
	req1.Header.Set("Content-Type", "application/json")
	req1.Header.Set("Idempotency-Key", "key-abc")
	w1 := httptest.NewRecorder()
	router.ServeHTTP(w1, req1)
	if w1.Code != http.StatusCreated {
		t.Fatalf("first trigger: want=201 got=%d body=%s", w1.Code, w1.Body.String())
	}
	var first triggerResponse
	if err := json.Unmarshal(w1.Body.Bytes(), &first); err != nil {
		t.Fatalf("decode first response: %v", err)
	}

	req2 := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewBufferString(body))
	req2.Header.Set("Content-Type", "application/json")
	req2.Header.Set("Idempotency-Key", "key-abc")
	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req2)
	if w2.Code != http.StatusCreated {
		t.Fatalf("replayed trigger: want=201 got=%d body=%s", w2.Code, w2.Body.String())
	}
	var second triggerResponse
	if err := json.Unmarshal(w2.Body.Bytes(), &second); err != nil {
		t.Fatalf("decode replayed response: %v", err)
	}
	if second.SummaryID != first.SummaryID {
		t.Fatalf("expected the idempotency-key replay to return the same summary_id: first=%d second=%d", first.SummaryID, second.SummaryID)
	}

	req3 := httptest.NewRequest(http.MethodPost, "/v1/trigger", bytes.NewBufferString(body))
	req3.Header.Set("Content-Type", "application/json")
	w3 := httptest.NewRecorder()
	router.ServeHTTP(w3, req3)
	if w3.Code != http.StatusCreated {
		t.Fatalf("no-header repeat trigger: want=201 got=%d body=%s", w3.Code, w3.Body.String())
	}
	var third triggerResponse
	if err := json.Unmarshal(w3.Body.Bytes(), &third); err != nil {
		t.Fatalf("decode third response: %v", err)
	}
	if third.SummaryID != first.SummaryID {
		t.Fatalf("expected the business-key dedup to return the same summary_id: first=%d third=%d", first.SummaryID, third.SummaryID)
	}
}

func TestLessonStatus_ReturnsNotFoundForUnknownSummary(t *testing.T) {
	gin.SetMode(gin.TestMode)
	an, _ := newIntegrationEnv(t)
	transcripts := analyticalstore.NewTranscriptRepo(an)
	exerciseSets := analyticalstore.NewExerciseSetRepo(an)

	handler := NewStatusHandler(testLogger(t), transcripts, exerciseSets)
	router := gin.New()
	router.GET("/v1/lesson-status/:summary_id", handler.LessonStatus)

	req := httptest.NewRequest(http.MethodGet, "/v1/lesson-status/999999999", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("want=404 got=%d body=%s", w.Code, w.Body.String())
	}
}
