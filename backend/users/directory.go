// Package users is the user directory: identity rows keyed by an opaque id.
package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/opt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UpsertParams stages the fields to write. Omitted fields are left as they
// are on an existing row; null fields are cleared.
type UpsertParams struct {
	ID           string
	Name         opt.Field[string]
	Email        opt.Field[string]
	Phone        opt.Field[string]
	LoginMethod  opt.Field[string]
	Role         opt.Field[models.Role]
	LastSignedIn opt.Field[time.Time]
}

type Directory struct {
	db      *gorm.DB
	ownerID string
	now     func() time.Time
}

// New returns a directory. Users whose id equals ownerID are made admins
// unless a role is given explicitly.
func New(db *gorm.DB, ownerID string) *Directory {
	return &Directory{
		db:      db,
		ownerID: ownerID,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithClock replaces the time source, for tests.
func (d *Directory) WithClock(now func() time.Time) *Directory {
	d.now = now
	return d
}

func (d *Directory) Upsert(ctx context.Context, p UpsertParams) error {
	if p.ID == "" {
		return fmt.Errorf("user id is required for upsert: %w", apperr.ErrInvalidInput)
	}
	if d.db == nil {
		slog.WarnContext(ctx, "cannot upsert user: database not available", "source", "users", "user_id", p.ID)
		return nil
	}

	now := d.now()
	rec := models.User{
		ID:           p.ID,
		Role:         models.RoleUser,
		CreatedAt:    now,
		LastSignedIn: now,
	}
	updates := map[string]any{}

	stage := func(column string, f opt.Field[string], dst **string) {
		if !f.Provided() {
			return
		}
		*dst = f.Ptr()
		updates[column] = f.Ptr()
	}
	stage("name", p.Name, &rec.Name)
	stage("email", p.Email, &rec.Email)
	stage("phone", p.Phone, &rec.Phone)
	stage("login_method", p.LoginMethod, &rec.LoginMethod)

	if v, ok := p.LastSignedIn.Get(); ok {
		rec.LastSignedIn = v
		updates["last_signed_in"] = v
	}

	role, hasRole := p.Role.Get()
	if !hasRole && d.ownerID != "" && p.ID == d.ownerID {
		role, hasRole = models.RoleAdmin, true
	}
	if hasRole {
		rec.Role = role
		updates["role"] = role
	}

	if len(updates) == 0 {
		updates["last_signed_in"] = now
	}

	err := d.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(updates),
	}).Create(&rec).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to upsert user", "source", "users", "user_id", p.ID, "error", err.Error())
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (d *Directory) FindByID(ctx context.Context, id string) (*models.User, error) {
	return d.findOne(ctx, "id = ?", id)
}

func (d *Directory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return d.findOne(ctx, "email = ?", email)
}

func (d *Directory) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return d.findOne(ctx, "phone = ?", phone)
}

// findOne returns nil, nil when nothing matches.
func (d *Directory) findOne(ctx context.Context, query string, arg string) (*models.User, error) {
	if d.db == nil {
		slog.WarnContext(ctx, "cannot get user: database not available", "source", "users")
		return nil, nil
	}
	var u models.User
	err := d.db.WithContext(ctx).Where(query, arg).Order("created_at").Take(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
