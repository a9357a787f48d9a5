package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync"
	"testing"

	"questionnaire-app/backend/database"
	"questionnaire-app/backend/opt"
	"questionnaire-app/backend/otp"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/respond"
	"questionnaire-app/backend/session"
	"questionnaire-app/backend/users"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testOwnerID    = "owner-1"
	testOwnerPhone = "11888880000"
	testCode       = "123456"
)

type recordingSender struct {
	mu   sync.Mutex
	sent map[string]string
	fail bool
}

func (s *recordingSender) Send(_ context.Context, phone, message string) error {
	if s.fail {
		return errors.New("gateway down")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent[phone] = message
	return nil
}

type testEnv struct {
	srv *httptest.Server
	db  *gorm.DB
	h   *Handler
	sms *recordingSender
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Open(context.Background(), ":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	issuer, err := session.New(session.Options{Secret: "test-secret-key-32-chars-long!!!"})
	require.NoError(t, err)

	sender := &recordingSender{sent: map[string]string{}}
	h := &Handler{
		Users: users.New(db, testOwnerID),
		OTP: otp.New(db,
			otp.WithHashCost(bcrypt.MinCost),
			otp.WithCodeGenerator(func() (string, error) { return testCode, nil })),
		Questionnaires: questionnaire.New(db),
		Sessions:       issuer,
		SMS:            sender,
		DB:             db,
	}
	srv := httptest.NewServer(NewRouter(h, RouterOptions{MaxBodySize: 1 << 20}))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, db: db, h: h, sms: sender}
}

func newClient(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar}
}

// call sends body as JSON and decodes the response into out when non-nil.
func (e *testEnv) call(t *testing.T, c *http.Client, method, path string, body any, out any) int {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rdr = bytes.NewBufferString(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (e *testEnv) login(t *testing.T, phone string) (*http.Client, VerifyOTPResponse) {
	t.Helper()
	c := newClient(t)
	require.Equal(t, http.StatusOK, e.call(t, c, "POST", "/api/auth/request-otp", map[string]string{"phone": phone}, nil))
	var resp VerifyOTPResponse
	require.Equal(t, http.StatusOK, e.call(t, c, "POST", "/api/auth/verify-otp", VerifyOTPRequest{Phone: phone, Code: testCode}, &resp))
	return c, resp
}

func (e *testEnv) seedOwner(t *testing.T) {
	t.Helper()
	require.NoError(t, e.h.Users.Upsert(context.Background(), users.UpsertParams{
		ID:    testOwnerID,
		Phone: opt.Of(testOwnerPhone),
	}))
}

func errorCode(t *testing.T, e *testEnv, c *http.Client, method, path string, body any) (int, string) {
	t.Helper()
	var env respond.ErrorBody
	status := e.call(t, c, method, path, body, &env)
	return status, env.Code
}
