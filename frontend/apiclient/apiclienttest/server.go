// Package apiclienttest runs the full API on an httptest server backed by an
// in-memory sqlite database.
package apiclienttest

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"questionnaire-app/backend/database"
	"questionnaire-app/backend/handlers"
	"questionnaire-app/backend/middleware"
	"questionnaire-app/backend/opt"
	"questionnaire-app/backend/otp"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/session"
	"questionnaire-app/backend/users"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// Code is the OTP every request issues.
	Code       = "424242"
	OwnerID    = "owner-1"
	OwnerPhone = "11888880000"
)

type Server struct {
	*httptest.Server
	DB      *gorm.DB
	Handler *handlers.Handler
	Outbox  *Outbox
}

// Outbox records the last message sent to each phone.
type Outbox struct {
	mu   sync.Mutex
	last map[string]string
}

func (o *Outbox) Send(_ context.Context, phone, message string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.last[phone] = message
	return nil
}

func (o *Outbox) Last(phone string) string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last[phone]
}

// New starts a server with CSRF protection on, so clients exercise the token
// round trip.
func New(t *testing.T) *Server {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	issuer, err := session.New(session.Options{Secret: "apiclienttest-secret-0123456789ab"})
	require.NoError(t, err)

	outbox := &Outbox{last: map[string]string{}}
	h := &handlers.Handler{
		Users: users.New(db, OwnerID),
		OTP: otp.New(db,
			otp.WithHashCost(bcrypt.MinCost),
			otp.WithCodeGenerator(func() (string, error) { return Code, nil })),
		Questionnaires: questionnaire.New(db),
		Sessions:       issuer,
		SMS:            outbox,
		DB:             db,
	}
	srv := httptest.NewServer(handlers.NewRouter(h, handlers.RouterOptions{
		CSRF:        middleware.NewCSRFProtection("apiclienttest-csrf-secret", false),
		MaxBodySize: 1 << 20,
	}))
	t.Cleanup(srv.Close)
	return &Server{Server: srv, DB: db, Handler: h, Outbox: outbox}
}

// SeedOwner creates the owner account so logging in with OwnerPhone yields an admin.
func (s *Server) SeedOwner(t *testing.T) {
	t.Helper()
	require.NoError(t, s.Handler.Users.Upsert(context.Background(), users.UpsertParams{
		ID:    OwnerID,
		Phone: opt.Of(OwnerPhone),
	}))
}
