package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type exerciseSetView struct {
	ID          int64           `json:"id"`
	SummaryID   int64           `json:"summary_id"`
	ClassID     string          `json:"class_id"`
	UserID      string          `json:"user_id"`
	TeacherID   string          `json:"teacher_id"`
	Status      string          `json:"status"`
	GeneratedAt string          `json:"generated_at"`
	Exercises   json.RawMessage `json:"exercises"`
}

func toExerciseSetView(set *analyticalstore.ExerciseSet) exerciseSetView {
	return exerciseSetView{
		ID:          set.ID,
		SummaryID:   set.SummaryID,
		ClassID:     set.ClassID,
		UserID:      set.UserID,
		TeacherID:   set.TeacherID,
		Status:      set.Status,
		GeneratedAt: set.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Exercises:   json.RawMessage(set.Exercises),
	}
}

type ExercisesHandler struct {
	log          *logger.Logger
	exerciseSets *analyticalstore.ExerciseSetRepo
}

func NewExercisesHandler(log *logger.Logger, exerciseSets *analyticalstore.ExerciseSetRepo) *ExercisesHandler {
	return &ExercisesHandler{log: log.With("handler", "ExercisesHandler"), exerciseSets: exerciseSets}
}

// GetExercises implements GET /v1/exercises?class_id=...&user_id=... (spec.md
// §4.5): lists the non-rejected exercise sets visible for the class, scoped
// to a user when provided.
func (h *ExercisesHandler) GetExercises(c *gin.Context) {
	classID := c.Query("class_id")
	if classID == "" {
		RespondError(c, http.StatusBadRequest, "invalid_argument", errors.New("class_id is required"))
		return
	}
	userID := c.Query("user_id")

	sets, err := h.exerciseSets.ListByFilter(c.Request.Context(), classID, userID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	views := make([]exerciseSetView, 0, len(sets))
	for i := range sets {
		views = append(views, toExerciseSetView(&sets[i]))
	}
	RespondOK(c, gin.H{"count": len(views), "exercises": views})
}

// GetExerciseBySummary implements GET /v1/exercises/:summary_id, returning
// the newest non-rejected exercise set for one summary. The exercises poll
// URL returned from POST /v1/trigger points at GetExercises instead.
func (h *ExercisesHandler) GetExerciseBySummary(c *gin.Context, summaryID int64) {
	set, err := h.exerciseSets.GetBySummaryID(c.Request.Context(), summaryID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}
	RespondOK(c, toExerciseSetView(set))
}
