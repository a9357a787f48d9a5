package middleware

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"net/http"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/respond"
)

const (
	CSRFCookieName = "_csrf"
	CSRFHeaderName = "X-CSRF-Token"
)

// CSRFProtection is a double-submit check: state-changing requests must echo
// the signed _csrf cookie in the X-CSRF-Token header.
type CSRFProtection struct {
	secret []byte
	secure bool
}

// NewCSRFProtection creates a new CSRF protection middleware. secure marks the
// token cookie Secure; turn it off only for plain-HTTP development.
func NewCSRFProtection(secret string, secure bool) *CSRFProtection {
	return &CSRFProtection{secret: []byte(secret), secure: secure}
}

func (c *CSRFProtection) generateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("csrf token: %w", err)
	}

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(randomBytes)
	signature := mac.Sum(nil)

	token := append(randomBytes, signature...)
	return base64.URLEncoding.EncodeToString(token), nil
}

func (c *CSRFProtection) validateToken(token string) bool {
	if token == "" {
		return false
	}

	decoded, err := base64.URLEncoding.DecodeString(token)
	if err != nil || len(decoded) < 64 {
		return false
	}

	randomBytes := decoded[:32]
	providedSig := decoded[32:]

	mac := hmac.New(sha256.New, c.secret)
	mac.Write(randomBytes)
	expectedSig := mac.Sum(nil)

	return hmac.Equal(providedSig, expectedSig)
}

// Protect wraps a handler with CSRF protection
func (c *CSRFProtection) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			if existing, err := r.Cookie(CSRFCookieName); err != nil || !c.validateToken(existing.Value) {
				token, err := c.generateToken()
				if err != nil {
					respond.Error(w, r, err, "Failed to issue CSRF token")
					return
				}
				http.SetCookie(w, &http.Cookie{
					Name:     CSRFCookieName,
					Value:    token,
					Path:     "/",
					HttpOnly: false, // JavaScript needs to read this
					SameSite: http.SameSiteStrictMode,
					Secure:   c.secure,
				})
			}
			next.ServeHTTP(w, r)
			return
		}

		cookieToken, err := r.Cookie(CSRFCookieName)
		if err != nil {
			respond.Error(w, r, fmt.Errorf("CSRF token missing: %w", apperr.ErrForbidden), "")
			return
		}

		headerToken := r.Header.Get(CSRFHeaderName)
		if headerToken == "" {
			headerToken = r.FormValue(CSRFCookieName)
		}

		if !hmac.Equal([]byte(headerToken), []byte(cookieToken.Value)) || !c.validateToken(headerToken) {
			respond.Error(w, r, fmt.Errorf("CSRF token invalid: %w", apperr.ErrForbidden), "")
			return
		}

		next.ServeHTTP(w, r)
	})
}
