// Package otp issues and checks one-time phone codes.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"questionnaire-app/backend/models"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	DefaultTTL = 10 * time.Minute
	codeDigits = 6
)

// Issued is what Request hands back to the caller. Code is the only place the
// plaintext digits exist.
type Issued struct {
	Code      string
	ExpiresAt time.Time
}

type Store struct {
	db       *gorm.DB
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
	cost     int
	throttle Throttle
}

type Option func(*Store)

func WithTTL(ttl time.Duration) Option {
	return func(s *Store) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithCodeGenerator replaces the random generator, for fixtures and tests.
func WithCodeGenerator(gen func() (string, error)) Option {
	return func(s *Store) { s.generate = gen }
}

// WithHashCost sets the bcrypt cost used for stored codes.
func WithHashCost(cost int) Option {
	return func(s *Store) { s.cost = cost }
}

// WithThrottle enforces a resend cooldown per phone.
func WithThrottle(t Throttle) Option {
	return func(s *Store) { s.throttle = t }
}

func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		ttl:      DefaultTTL,
		now:      func() time.Time { return time.Now().UTC() },
		generate: RandomCode,
		cost:     bcrypt.DefaultCost,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// TTL is how long a fresh code stays valid.
func (s *Store) TTL() time.Duration { return s.ttl }

// RandomCode returns a uniformly random 6-digit decimal string, leading zeros kept.
func RandomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("random code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

// Request creates a fresh code for phone. Earlier codes are left alone; only
// the newest one can be verified.
func (s *Store) Request(ctx context.Context, phone string) (Issued, error) {
	if s.throttle != nil {
		if err := s.throttle.Allow(ctx, phone); err != nil {
			return Issued{}, err
		}
	}

	code, err := s.generate()
	if err != nil {
		return Issued{}, err
	}
	now := s.now()
	issued := Issued{Code: code, ExpiresAt: now.Add(s.ttl)}

	if s.db == nil {
		slog.WarnContext(ctx, "cannot create OTP: database not available", "source", "otp", "phone", phone)
		return issued, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), s.cost)
	if err != nil {
		return Issued{}, fmt.Errorf("hash code: %w", err)
	}

	// Version 7 ids sort by creation, so they order codes issued within the
	// same clock tick.
	id, err := uuid.NewV7()
	if err != nil {
		return Issued{}, fmt.Errorf("otp id: %w", err)
	}
	rec := models.OtpVerification{
		ID:        id.String(),
		Phone:     phone,
		Code:      string(hash),
		ExpiresAt: issued.ExpiresAt,
		CreatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return Issued{}, fmt.Errorf("create otp: %w", err)
	}

	slog.InfoContext(ctx, "otp issued", "source", "otp", "phone", phone, "otp_id", rec.ID, "expires_at", rec.ExpiresAt)
	return issued, nil
}

// Verify checks code against the newest record for phone. A wrong code counts
// one attempt; a right one is consumed and cannot verify again.
func (s *Store) Verify(ctx context.Context, phone, code string) (bool, error) {
	if s.db == nil {
		slog.WarnContext(ctx, "cannot verify OTP: database not available", "source", "otp", "phone", phone)
		return false, nil
	}

	var rec models.OtpVerification
	err := s.db.WithContext(ctx).
		Where("phone = ?", phone).
		Order("created_at DESC").
		Order("id DESC").
		Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		slog.WarnContext(ctx, "otp verification failed: no code issued", "source", "otp", "phone", phone)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load otp: %w", err)
	}

	if rec.IsVerified {
		slog.WarnContext(ctx, "otp verification failed: already used", "source", "otp", "phone", phone, "otp_id", rec.ID)
		return false, nil
	}
	if s.now().After(rec.ExpiresAt) {
		slog.WarnContext(ctx, "otp verification failed: expired", "source", "otp", "phone", phone, "otp_id", rec.ID)
		return false, nil
	}

	if bcrypt.CompareHashAndPassword([]byte(rec.Code), []byte(code)) != nil {
		if err := s.db.WithContext(ctx).Model(&models.OtpVerification{}).
			Where("id = ?", rec.ID).
			UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return false, fmt.Errorf("count otp attempt: %w", err)
		}
		slog.WarnContext(ctx, "otp verification failed: wrong code", "source", "otp", "phone", phone, "otp_id", rec.ID, "attempts", rec.Attempts+1)
		return false, nil
	}

	// The is_verified guard keeps two concurrent verifies from both succeeding.
	res := s.db.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("id = ? AND is_verified = ?", rec.ID, false).
		UpdateColumn("is_verified", true)
	if res.Error != nil {
		return false, fmt.Errorf("mark otp verified: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	slog.InfoContext(ctx, "otp verified", "source", "otp", "phone", phone, "otp_id", rec.ID)
	return true, nil
}

// Cleanup deletes unverified codes created before cutoff.
func (s *Store) Cleanup(ctx context.Context, cutoff time.Time) (int64, error) {
	if s.db == nil {
		slog.WarnContext(ctx, "cannot delete OTPs: database not available", "source", "otp")
		return 0, nil
	}
	res := s.db.WithContext(ctx).
		Where("is_verified = ? AND created_at < ?", false, cutoff).
		Delete(&models.OtpVerification{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete stale otps: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// RunCleanup calls Cleanup every interval for codes older than maxAge until
// ctx is done.
func (s *Store) RunCleanup(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Cleanup(ctx, s.now().Add(-maxAge))
			if err != nil {
				slog.Error("otp cleanup failed", "source", "otp", "error", err.Error())
				continue
			}
			if n > 0 {
				slog.Info("stale otps deleted", "source", "otp", "count", n)
			}
		}
	}
}
