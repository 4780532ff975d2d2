package opstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/lesson-pipeline/internal/apperr"
)

// Class mirrors the operational store's classes table. Only the columns the
// pipeline reads or writes are modeled; upstream owns the rest of the row.
type Class struct {
	ID           string `gorm:"column:id;primaryKey"`
	UserID       string `gorm:"column:user_id"`
	TeacherID    string `gorm:"column:teacher_id"`
	Status       string `gorm:"column:status"`
	MeetingDate  string `gorm:"column:meeting_date"`
	StartTime    string `gorm:"column:start_time"`
	EndTime      string `gorm:"column:end_time"`
	MeetingEnd   *time.Time `gorm:"column:meeting_end"`
	AITriggered  bool   `gorm:"column:ai_triggered"`
	TeacherEmail string `gorm:"column:teacher_email"`
	UpdatedAt    time.Time `gorm:"column:updated_at"`
}

func (Class) TableName() string { return "classes" }

// ClassRepo is the Class Monitor's read/write surface onto the operational
// store (spec.md §4.1).
type ClassRepo struct {
	db *gorm.DB
}

func NewClassRepo(s *Store) *ClassRepo {
	return &ClassRepo{db: s.db}
}

// SelectEndedUntriggered returns up to limit classes with status "ended",
// a non-null meeting_end, and ai_triggered false, oldest meeting_end first —
// grounded on original_source/src/workers/class_monitor.py's get_ended_classes
// query.
func (r *ClassRepo) SelectEndedUntriggered(ctx context.Context, limit int) ([]Class, error) {
	var classes []Class
	err := r.db.WithContext(ctx).
		Where("status = ? AND meeting_end IS NOT NULL AND ai_triggered = ?", "ended", false).
		Order("meeting_end ASC").
		Limit(limit).
		Find(&classes).Error
	if err != nil {
		return nil, fmt.Errorf("select ended untriggered classes: %w", err)
	}
	return classes, nil
}

// MarkTriggered flips ai_triggered to true, conditioned on it still being
// false — the compare-and-set that gives the monitor its exactly-once
// dispatch guarantee (spec.md §4.1, invariant: "a class is dispatched at
// most once"). rowsAffected == 0 means another monitor instance won the
// race; the caller must treat that as "already handled", not an error.
func (r *ClassRepo) MarkTriggered(ctx context.Context, classID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&Class{}).
		Where("id = ? AND ai_triggered = ?", classID, false).
		Updates(map[string]any{
			"ai_triggered": true,
			"updated_at":   time.Now().UTC(),
		})
	if res.Error != nil {
		return false, fmt.Errorf("mark class triggered: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

// GetByID fetches a single class, wrapping apperr.ErrNotFound when no row
// has that id.
func (r *ClassRepo) GetByID(ctx context.Context, classID string) (*Class, error) {
	var c Class
	err := r.db.WithContext(ctx).Where("id = ?", classID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("class %s: %w", classID, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("get class by id: %w", err)
	}
	return &c, nil
}
