package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/lesson-pipeline/internal/analyticalstore"
	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/idempotency"
	"github.com/yungbote/lesson-pipeline/internal/logger"
)

type triggerRequest struct {
	UserID       string `json:"user_id" binding:"required"`
	TeacherID    string `json:"teacher_id" binding:"required"`
	ClassID      string `json:"class_id" binding:"required"`
	Date         string `json:"date" binding:"required"`
	StartTime    string `json:"start_time" binding:"required"`
	EndTime      string `json:"end_time" binding:"required"`
	TeacherEmail string `json:"teacher_email"`
}

type pollURLs struct {
	Status    string `json:"status"`
	Exercises string `json:"exercises"`
}

type triggerResponse struct {
	SummaryID int64    `json:"summary_id"`
	Status    string   `json:"status"`
	ClassID   string   `json:"class_id"`
	Date      string   `json:"date"`
	PollURLs  pollURLs `json:"poll_urls"`
}

type TriggerHandler struct {
	log         *logger.Logger
	transcripts *analyticalstore.TranscriptRepo
	dispatcher  *dispatch.Client
	idem        *idempotency.Cache
}

func NewTriggerHandler(log *logger.Logger, transcripts *analyticalstore.TranscriptRepo, dispatcher *dispatch.Client, idem *idempotency.Cache) *TriggerHandler {
	return &TriggerHandler{log: log.With("handler", "TriggerHandler"), transcripts: transcripts, dispatcher: dispatcher, idem: idem}
}

// Trigger implements POST /v1/trigger (spec.md §4.5, §6.2).
func (h *TriggerHandler) Trigger(c *gin.Context) {
	idempotencyKey := c.GetHeader("Idempotency-Key")
	if idempotencyKey != "" {
		var cached cachedTriggerResponse
		if h.idem.Get(c.Request.Context(), idempotencyKey, &cached) {
			c.JSON(cached.Status, cached.Body)
			return
		}
	}

	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_argument", err)
		return
	}

	artifact, created, err := h.transcripts.InsertPending(c.Request.Context(), analyticalstore.NewInput{
		UserID:       req.UserID,
		TeacherID:    req.TeacherID,
		ClassID:      req.ClassID,
		TeacherEmail: req.TeacherEmail,
		MeetingDate:  req.Date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "internal", err)
		return
	}

	if !created {
		if req.TeacherEmail != "" && artifact.TeacherEmail != "" && req.TeacherEmail != artifact.TeacherEmail {
			RespondError(c, http.StatusConflict, "idempotency_conflict", fmt.Errorf(
				"an artifact for class_id=%s date=%s start_time=%s already exists with a different teacher_email",
				req.ClassID, req.Date, req.StartTime))
			return
		}
	}

	if created {
		h.dispatchAsync(req, artifact.ID)
	}

	body := triggerResponse{
		SummaryID: artifact.ID,
		Status:    artifact.Status,
		ClassID:   artifact.ClassID,
		Date:      artifact.MeetingDate,
		PollURLs: pollURLs{
			Status:    fmt.Sprintf("/v1/lesson-status/%d", artifact.ID),
			Exercises: fmt.Sprintf("/v1/exercises?class_id=%s&user_id=%s", artifact.ClassID, artifact.UserID),
		},
	}

	if idempotencyKey != "" {
		h.idem.Put(c.Request.Context(), idempotencyKey, cachedTriggerResponse{Status: http.StatusCreated, Body: body})
	}
	RespondCreated(c, body)
}

type cachedTriggerResponse struct {
	Status int             `json:"status"`
	Body   triggerResponse `json:"body"`
}

// dispatchAsync forwards the trigger payload to the external workflow
// outside the request/response cycle: spec.md §4.5 only requires the
// artifact row and a 201 response; the dispatch outcome itself is not part
// of the HTTP contract, so a slow or failing webhook must not hold the
// caller's connection open past the dispatch timeout.
func (h *TriggerHandler) dispatchAsync(req triggerRequest, summaryID int64) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		payload := dispatch.Payload{
			UserID:       req.UserID,
			TeacherID:    req.TeacherID,
			ClassID:      req.ClassID,
			Date:         req.Date,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			TeacherEmail: req.TeacherEmail,
		}
		idempotencyKey := fmt.Sprintf("trigger:%d", summaryID)
		outcome, err := h.dispatcher.Dispatch(ctx, payload, idempotencyKey)
		if outcome != dispatch.Success {
			h.log.Warn("trigger dispatch did not succeed", "summary_id", summaryID, "outcome", outcome.String(), "error", err)
		}
	}()
}
