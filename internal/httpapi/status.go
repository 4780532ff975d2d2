package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/apperr"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type lessonStatusResponse struct {
	SummaryID           int64  `json:"summary_id"`
	ClassID             string `json:"class_id"`
	Status              string `json:"status"`
	ProcessingAttempts  int    `json:"processing_attempts"`
	LastError           string `json:"last_error,omitempty"`
	TranscriptAvailable bool   `json:"transcript_available"`
	TranscriptLength    int    `json:"transcript_length"`
	ExercisesGenerated  bool   `json:"exercises_generated"`
	ExercisesID         int64  `json:"exercises_id,omitempty"`
	ProcessedAt         string `json:"processed_at,omitempty"`
}

type StatusHandler struct {
	log          *logger.Logger
	transcripts  *analyticalstore.TranscriptRepo
	exerciseSets *analyticalstore.ExerciseSetRepo
}

func NewStatusHandler(log *logger.Logger, transcripts *analyticalstore.TranscriptRepo, exerciseSets *analyticalstore.ExerciseSetRepo) *StatusHandler {
	return &StatusHandler{log: log.With("handler", "StatusHandler"), transcripts: transcripts, exerciseSets: exerciseSets}
}

// LessonStatus implements GET /v1/lesson-status/:summary_id (spec.md §4.5).
func (h *StatusHandler) LessonStatus(c *gin.Context) {
	summaryID, err := strconv.ParseInt(c.Param("summary_id"), 10, 64)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", errors.New("summary_id must be an integer"))
		return
	}

	artifact, err := h.transcripts.GetByID(c.Request.Context(), summaryID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			RespondError(c, http.StatusNotFound, "not_found", err)
			return
		}
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	resp := lessonStatusResponse{
		SummaryID:           artifact.ID,
		ClassID:             artifact.ClassID,
		Status:              artifact.Status,
		ProcessingAttempts:  artifact.ProcessingAttempts,
		LastError:           artifact.LastError,
		TranscriptAvailable: artifact.Transcript != "",
		TranscriptLength:    artifact.TranscriptLength,
	}
	if artifact.ProcessedAt != nil {
		resp.ProcessedAt = artifact.ProcessedAt.Format(time.RFC3339)
	}

	set, err := h.exerciseSets.GetBySummaryID(c.Request.Context(), summaryID)
	switch {
	case err == nil:
		resp.ExercisesGenerated = true
		resp.ExercisesID = set.ID
	case errors.Is(err, apperr.ErrNotFound):
		// no exercise set yet; leave the zero values.
	default:
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	RespondOK(c, resp)
}
