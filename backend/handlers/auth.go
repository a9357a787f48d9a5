package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/middleware"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/opt"
	"questionnaire-app/backend/respond"
	"questionnaire-app/backend/sms"
	"questionnaire-app/backend/users"

	"github.com/google/uuid"
)

const (
	minPhoneLength = 10
	codeLength     = 6
	loginMethodOTP = "otp"
)

type RequestOTPRequest struct {
	Phone string            `json:"phone"`
	Email opt.Field[string] `json:"email,omitzero"`
	Name  opt.Field[string] `json:"name,omitzero"`
}

type RequestOTPResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int    `json:"expiresIn"`
}

type VerifyOTPRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// SessionUser is the public part of a user returned on sign-in.
type SessionUser struct {
	ID    string      `json:"id"`
	Name  *string     `json:"name"`
	Email *string     `json:"email"`
	Phone *string     `json:"phone"`
	Role  models.Role `json:"role"`
}

type VerifyOTPResponse struct {
	Success bool        `json:"success"`
	User    SessionUser `json:"user"`
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

func (req RequestOTPRequest) validate() error {
	if len(req.Phone) < minPhoneLength {
		return fmt.Errorf("phone number must be at least %d digits: %w", minPhoneLength, apperr.ErrInvalidInput)
	}
	if email, ok := req.Email.Get(); ok {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return fmt.Errorf("invalid email: %w", apperr.ErrInvalidInput)
		}
	}
	return nil
}

func (req VerifyOTPRequest) validate() error {
	if len(req.Phone) < minPhoneLength {
		return fmt.Errorf("phone number must be at least %d digits: %w", minPhoneLength, apperr.ErrInvalidInput)
	}
	if len(req.Code) != codeLength {
		return fmt.Errorf("code must be %d digits: %w", codeLength, apperr.ErrInvalidInput)
	}
	return nil
}

// RequestOTP makes sure a user exists for the phone, issues a code and sends it.
func (h *Handler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req RequestOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		slog.WarnContext(r.Context(), "otp request rejected", "source", "auth", "phone", req.Phone, "error", err.Error())
		respond.Error(w, r, err, "")
		return
	}
	ctx := r.Context()

	user, err := h.Users.FindByPhone(ctx, req.Phone)
	if err != nil {
		respond.Error(w, r, err, "Failed to request OTP")
		return
	}
	if user == nil {
		id := uuid.NewString()
		if err := h.Users.Upsert(ctx, users.UpsertParams{
			ID:          id,
			Phone:       opt.Of(req.Phone),
			Email:       req.Email,
			Name:        req.Name,
			LoginMethod: opt.Of(loginMethodOTP),
		}); err != nil {
			respond.Error(w, r, err, "Failed to request OTP")
			return
		}
		slog.InfoContext(ctx, "user created", "source", "auth", "user_id", id, "phone", req.Phone)
	}

	issued, err := h.OTP.Request(ctx, req.Phone)
	if errors.Is(err, apperr.ErrRateLimited) {
		slog.WarnContext(ctx, "otp request throttled", "source", "auth", "phone", req.Phone)
		respond.Error(w, r, err, "")
		return
	}
	if err != nil {
		respond.Error(w, r, err, "Failed to request OTP")
		return
	}

	if err := h.SMS.Send(ctx, req.Phone, sms.CodeMessage(issued.Code, h.OTP.TTL())); err != nil {
		respond.Error(w, r, fmt.Errorf("send otp: %v: %w", err, apperr.ErrInternal), "Failed to request OTP")
		return
	}

	respond.OK(w, RequestOTPResponse{
		Success:   true,
		Message:   "OTP sent successfully",
		ExpiresIn: int(h.OTP.TTL().Seconds()),
	})
}

// VerifyOTP checks the code, makes sure the user row exists, refreshes its
// sign-in time and issues the session cookie.
func (h *Handler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req VerifyOTPRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if err := req.validate(); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	ctx := r.Context()

	ok, err := h.OTP.Verify(ctx, req.Phone, req.Code)
	if err != nil {
		respond.Error(w, r, err, "Failed to verify OTP")
		return
	}
	if !ok {
		slog.WarnContext(ctx, "login failed: invalid otp", "source", "auth", "phone", req.Phone)
		respond.Error(w, r, apperr.ErrUnauthorized, "Invalid or expired OTP")
		return
	}

	user, err := h.Users.FindByPhone(ctx, req.Phone)
	if err != nil {
		respond.Error(w, r, err, "Failed to verify OTP")
		return
	}
	params := users.UpsertParams{LastSignedIn: opt.Of(time.Now().UTC())}
	if user == nil {
		params.ID = uuid.NewString()
		params.Phone = opt.Of(req.Phone)
		params.LoginMethod = opt.Of(loginMethodOTP)
	} else {
		params.ID = user.ID
	}
	if err := h.Users.Upsert(ctx, params); err != nil {
		respond.Error(w, r, err, "Failed to verify OTP")
		return
	}

	user, err = h.Users.FindByID(ctx, params.ID)
	if err != nil || user == nil {
		respond.Error(w, r, fmt.Errorf("user %s missing after upsert: %w", params.ID, apperr.ErrInternal), "Failed to create user session")
		return
	}

	if err := h.Sessions.Issue(w, r, user.ID); err != nil {
		respond.Error(w, r, err, "Failed to create user session")
		return
	}

	slog.InfoContext(ctx, "user logged in", "source", "auth", "user_id", user.ID, "phone", req.Phone)
	respond.OK(w, VerifyOTPResponse{
		Success: true,
		User: SessionUser{
			ID:    user.ID,
			Name:  user.Name,
			Email: user.Email,
			Phone: user.Phone,
			Role:  user.Role,
		},
	})
}

// Me returns the signed-in user or null.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	respond.OK(w, middleware.UserFromContext(r.Context()))
}

// Logout clears the session cookie whether or not one was sent.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if u := middleware.UserFromContext(r.Context()); u != nil {
		slog.InfoContext(r.Context(), "user logged out", "source", "auth", "user_id", u.ID)
	}
	h.Sessions.Clear(w, r)
	respond.OK(w, SuccessResponse{Success: true})
}
