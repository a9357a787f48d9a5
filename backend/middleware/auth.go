package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/respond"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

// SessionReader resolves the user id carried by a request.
type SessionReader interface {
	UserID(r *http.Request) (string, bool)
}

// UserFinder loads a user by id; absence is nil, nil.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// Authenticate puts the session's user in the request context when there is
// one. It never rejects a request.
func Authenticate(sessions SessionReader, users UserFinder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := sessions.UserID(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			user, err := users.FindByID(r.Context(), id)
			if err != nil {
				slog.WarnContext(r.Context(), "failed to load session user", "source", "auth", "user_id", id, "error", err.Error())
			}
			if user == nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKeyUser, u)
}

// UserFromContext returns nil for anonymous requests.
func UserFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(ctxKeyUser).(*models.User)
	return u
}

// RequireUser answers 401 to anonymous requests.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			respond.Error(w, r, apperr.ErrUnauthorized, "Please login")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 to anonymous and 403 to non-admin requests.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			respond.Error(w, r, apperr.ErrUnauthorized, "Please login")
			return
		}
		if !user.IsAdmin() {
			slog.WarnContext(r.Context(), "admin route denied", "source", "auth", "user_id", user.ID, "path", r.URL.Path)
			respond.Error(w, r, apperr.ErrForbidden, "You do not have required permission")
			return
		}
		next.ServeHTTP(w, r)
	})
}
