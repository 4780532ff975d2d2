package opstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// User mirrors the columns of the operational store's users table the
// dispatch payload needs (spec.md §4.1's teacher_email fallback).
type User struct {
	ID    string `gorm:"column:id;primaryKey"`
	Email string `gorm:"column:email"`
}

func (User) TableName() string { return "users" }

type UserRepo struct {
	db *gorm.DB
}

func NewUserRepo(s *Store) *UserRepo {
	return &UserRepo{db: s.db}
}

// EmailByID looks up a user's email, returning "" (not an error) when the
// row does not exist; the Class Monitor then falls back to the class row's
// teacher_email or omits the field from the dispatch payload.
func (r *UserRepo) EmailByID(ctx context.Context, userID string) (string, error) {
	if userID == "" {
		return "", nil
	}
	var u User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("lookup user email: %w", err)
	}
	return u.Email, nil
}
