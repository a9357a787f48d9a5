// Package authz decides who may see which questionnaire.
package authz

import (
	"fmt"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/models"
)

// Principal is the authenticated caller.
type Principal struct {
	ID   string
	Role models.Role
}

// FromUser returns nil for a nil user.
func FromUser(u *models.User) *Principal {
	if u == nil {
		return nil
	}
	return &Principal{ID: u.ID, Role: u.Role}
}

func (p *Principal) IsAdmin() bool {
	return p != nil && p.Role == models.RoleAdmin
}

// CanAccess allows the owner of a record and admins.
func CanAccess(p *Principal, ownerID string) error {
	if p == nil {
		return apperr.ErrUnauthorized
	}
	if p.ID == ownerID || p.IsAdmin() {
		return nil
	}
	return fmt.Errorf("user %s may not access a record owned by another user: %w", p.ID, apperr.ErrForbidden)
}

func RequireAdmin(p *Principal) error {
	if p == nil {
		return apperr.ErrUnauthorized
	}
	if !p.IsAdmin() {
		return fmt.Errorf("admin role required: %w", apperr.ErrForbidden)
	}
	return nil
}
