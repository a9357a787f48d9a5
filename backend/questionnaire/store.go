// Package questionnaire persists questionnaire responses and aggregates them
// for admins.
package questionnaire

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/authz"
	"questionnaire-app/backend/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// UpdateParams is a partial update. Data holds answer fields keyed by their
// JSON names; nil pointers leave the value unchanged.
type UpdateParams struct {
	Data        json.RawMessage `json:"data,omitempty"`
	CurrentStep *int            `json:"currentStep,omitempty"`
	IsCompleted *bool           `json:"isCompleted,omitempty"`
}

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock replaces the time source, for tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// GetOrCreate returns the user's response, creating an empty one on first
// access. Returns nil, nil when no database is configured.
func (s *Store) GetOrCreate(ctx context.Context, userID string) (*models.QuestionnaireResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required: %w", apperr.ErrInvalidInput)
	}
	if s.db == nil {
		slog.WarnContext(ctx, "cannot get questionnaire: database not available", "source", "questionnaire", "user_id", userID)
		return nil, nil
	}

	existing, err := s.findByUser(ctx, userID)
	if err != nil || existing != nil {
		return existing, err
	}

	now := s.now()
	rec := models.QuestionnaireResponse{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		// A concurrent first request won the unique user_id index.
		winner, findErr := s.findByUser(ctx, userID)
		if findErr == nil && winner != nil {
			slog.InfoContext(ctx, "questionnaire created concurrently, using existing", "source", "questionnaire", "user_id", userID, "questionnaire_id", winner.ID)
			return winner, nil
		}
		return nil, fmt.Errorf("create questionnaire: %w", err)
	}

	slog.InfoContext(ctx, "questionnaire created", "source", "questionnaire", "user_id", userID, "questionnaire_id", rec.ID)
	return &rec, nil
}

// Get returns the response with id if requester owns it or is an admin.
func (s *Store) Get(ctx context.Context, id string, requester *authz.Principal) (*models.QuestionnaireResponse, error) {
	if requester == nil {
		return nil, apperr.ErrUnauthorized
	}
	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAccess(requester, rec.UserID); err != nil {
		slog.WarnContext(ctx, "questionnaire access denied", "source", "questionnaire", "user_id", requester.ID, "questionnaire_id", id)
		return nil, err
	}
	return rec, nil
}

// Update merges p into the response and returns the stored result. With no
// database it returns nil, nil.
func (s *Store) Update(ctx context.Context, id string, p UpdateParams, requester *authz.Principal) (*models.QuestionnaireResponse, error) {
	if requester == nil {
		return nil, apperr.ErrUnauthorized
	}
	if s.db == nil {
		slog.WarnContext(ctx, "cannot update questionnaire: database not available", "source", "questionnaire", "user_id", requester.ID, "questionnaire_id", id)
		return nil, nil
	}

	rec, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authz.CanAccess(requester, rec.UserID); err != nil {
		slog.WarnContext(ctx, "questionnaire update denied", "source", "questionnaire", "user_id", requester.ID, "questionnaire_id", id)
		return nil, err
	}

	if p.CurrentStep != nil && (*p.CurrentStep < 0 || *p.CurrentStep > models.LastStep) {
		return nil, fmt.Errorf("current step %d outside 0..%d: %w", *p.CurrentStep, models.LastStep, apperr.ErrInvalidInput)
	}
	if err := rec.Answers.Merge(p.Data); err != nil {
		return nil, fmt.Errorf("questionnaire data: %v: %w", err, apperr.ErrInvalidInput)
	}
	now := s.now()
	if p.CurrentStep != nil {
		rec.CurrentStep = *p.CurrentStep
	}
	if p.IsCompleted != nil {
		rec.IsCompleted = *p.IsCompleted
		if *p.IsCompleted {
			rec.CompletedAt = &now
		}
	}
	rec.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("save questionnaire: %w", err)
	}

	slog.InfoContext(ctx, "questionnaire updated", "source", "questionnaire", "user_id", requester.ID,
		"questionnaire_id", id, "current_step", rec.CurrentStep, "is_completed", rec.IsCompleted)
	return rec, nil
}

func (s *Store) load(ctx context.Context, id string) (*models.QuestionnaireResponse, error) {
	if s.db == nil {
		slog.WarnContext(ctx, "cannot get questionnaire: database not available", "source", "questionnaire", "questionnaire_id", id)
		return nil, fmt.Errorf("questionnaire %s: %w", id, apperr.ErrNotFound)
	}
	var rec models.QuestionnaireResponse
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("questionnaire %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get questionnaire: %w", err)
	}
	return &rec, nil
}

func (s *Store) findByUser(ctx context.Context, userID string) (*models.QuestionnaireResponse, error) {
	var rec models.QuestionnaireResponse
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get questionnaire by user: %w", err)
	}
	return &rec, nil
}
