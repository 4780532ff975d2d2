// Package monitor implements the Class Monitor of spec.md §4.1: it polls the
// operational store for ended, undispatched classes and dispatches each
// exactly once to the external workflow webhook. Its loop shape follows the
// teacher's internal/jobs/worker/worker.go ticker-driven runLoop.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/lesson-pipeline/internal/dispatch"
	"github.com/yungbote/lesson-pipeline/internal/httpx"
	"github.com/yungbote/lesson-pipeline/internal/logger"
	"github.com/yungbote/lesson-pipeline/internal/opstore"
)

// ClassRepo is the narrow surface Monitor needs from internal/opstore.
type ClassRepo interface {
	SelectEndedUntriggered(ctx context.Context, limit int) ([]opstore.Class, error)
	MarkTriggered(ctx context.Context, classID string) (bool, error)
}

// UserRepo resolves a teacher's email for the dispatch payload.
type UserRepo interface {
	EmailByID(ctx context.Context, userID string) (string, error)
}

type Monitor struct {
	log        *logger.Logger
	classes    ClassRepo
	users      UserRepo
	dispatcher *dispatch.Client
	pollEvery  time.Duration
	batchSize  int
}

func New(log *logger.Logger, classes ClassRepo, users UserRepo, dispatcher *dispatch.Client, pollEvery time.Duration, batchSize int) *Monitor {
	return &Monitor{
		log:        log.With("component", "ClassMonitor"),
		classes:    classes,
		users:      users,
		dispatcher: dispatcher,
		pollEvery:  pollEvery,
		batchSize:  batchSize,
	}
}

// Run ticks every pollEvery until ctx is canceled, matching the teacher's
// runLoop shape (internal/jobs/worker/worker.go): one ticker per process,
// recovering panics per tick so a single bad class never halts the monitor
// (spec.md §5/§7).
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.pollEvery)
	defer ticker.Stop()

	m.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("panic recovered in monitor tick", "panic", r)
		}
	}()

	classes, err := m.classes.SelectEndedUntriggered(ctx, m.batchSize)
	if err != nil {
		m.log.Error("failed to select ended classes", "error", err)
		return
	}
	if len(classes) == 0 {
		return
	}
	m.log.Debug("monitor tick found ended classes", "count", len(classes))

	for _, c := range classes {
		m.processClass(ctx, c)
	}
}

func (m *Monitor) processClass(ctx context.Context, c opstore.Class) {
	log := m.log.With("class_id", c.ID)

	email, err := m.users.EmailByID(ctx, c.TeacherID)
	if err != nil {
		log.Warn("failed to resolve teacher email, dispatching without it", "error", err)
	}
	if email == "" && c.TeacherEmail != "" {
		email = c.TeacherEmail
	}
	if email == "" {
		log.Warn("no teacher email on file, dispatching without teacher_email field")
	}

	payload := dispatch.Payload{
		UserID:       c.UserID,
		TeacherID:    c.TeacherID,
		ClassID:      c.ID,
		Date:         c.MeetingDate,
		StartTime:    c.StartTime,
		EndTime:      c.EndTime,
		TeacherEmail: email,
	}

	// The idempotency key is derived from the class id so retried ticks
	// (e.g. after a crash between dispatch and MarkTriggered) reuse the
	// same key, letting the external side de-duplicate (spec.md §9's
	// "Dual-store consistency").
	idempotencyKey := fmt.Sprintf("class-monitor:%s", c.ID)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	outcome, dispatchErr := m.dispatcher.Dispatch(ctx, payload, idempotencyKey)
	switch outcome {
	case dispatch.Success:
		won, err := m.classes.MarkTriggered(ctx, c.ID)
		if err != nil {
			log.Error("dispatch succeeded but ai_triggered update failed; class will be redispatched next tick", "error", err)
			return
		}
		if !won {
			log.Debug("class already marked triggered by a concurrent monitor instance")
			return
		}
		log.Info("dispatched class to external workflow", "idempotency_key", idempotencyKey)
	case dispatch.Retryable:
		log.Warn("dispatch failed with a retryable error, will retry next tick", "error", dispatchErr)
	case dispatch.Permanent:
		log.Error("dispatch failed permanently; class remains untriggered and will be retried (spec.md accepts repeated permanent failures)", "error", dispatchErr)
	}
}

// JitterSleep re-exports httpx.JitterSleep for callers that want to offset
// the start of several monitor instances; Run itself starts without jitter.
func JitterSleep(base time.Duration) time.Duration { return httpx.JitterSleep(base) }
