// Package session issues the signed cookie that identifies a signed-in user.
package session

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	DefaultCookieName = "app_session"
	DefaultMaxAge     = 30 * 24 * time.Hour
	MinSecretLength   = 32

	userIDKey = "user_id"
)

var ErrWeakSecret = errors.New("session secret must be at least 32 bytes")

type Options struct {
	Secret     string
	CookieName string
	MaxAge     time.Duration
	Secure     bool
}

// Issuer reads and writes the session cookie.
type Issuer struct {
	store *sessions.CookieStore
	name  string
}

func New(o Options) (*Issuer, error) {
	if len(o.Secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if o.CookieName == "" {
		o.CookieName = DefaultCookieName
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}

	store := sessions.NewCookieStore([]byte(o.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(o.MaxAge.Seconds()),
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	store.MaxAge(store.Options.MaxAge)
	return &Issuer{store: store, name: o.CookieName}, nil
}

func (i *Issuer) CookieName() string { return i.name }

// Issue starts a session for userID, replacing any previous one.
func (i *Issuer) Issue(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := i.store.Get(r, i.name)
	sess.Values = map[interface{}]interface{}{userIDKey: userID}
	if err := sess.Save(r, w); err != nil {
		slog.ErrorContext(r.Context(), "failed to save session", "source", "session", "user_id", userID, "error", err.Error())
		return err
	}
	return nil
}

// UserID returns the user id carried by the request's cookie. A missing,
// tampered or expired cookie yields false.
func (i *Issuer) UserID(r *http.Request) (string, bool) {
	sess, err := i.store.Get(r, i.name)
	if err != nil {
		return "", false
	}
	id, ok := sess.Values[userIDKey].(string)
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Clear expires the cookie whether or not a session exists.
func (i *Issuer) Clear(w http.ResponseWriter, r *http.Request) {
	sess, _ := i.store.Get(r, i.name)
	sess.Values = make(map[interface{}]interface{})
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		slog.WarnContext(r.Context(), "failed to clear session", "source", "session", "error", err.Error())
	}
}
