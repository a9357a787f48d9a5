package respond

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"questionnaire-app/backend/apperr"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	return body
}

func TestError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest("GET", "/", nil), fmt.Errorf("not yours: %w", apperr.ErrForbidden), "")

	if rec.Code != http.StatusForbidden {
		t.Errorf("Expected 403, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %s", ct)
	}
	body := decode(t, rec)
	if body.Status != "error" || body.Code != "FORBIDDEN" || body.Message != "not yours: forbidden" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func TestError_InternalHidesCause(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest("POST", "/", nil), errors.New("dial tcp 10.0.0.1:5432: refused"), "Failed to request OTP")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", rec.Code)
	}
	body := decode(t, rec)
	if body.Code != "INTERNAL_SERVER_ERROR" || body.Message != "Failed to request OTP" {
		t.Errorf("Unexpected body: %+v", body)
	}
}

func TestError_MessageOverride(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest("POST", "/", nil), apperr.ErrUnauthorized, "Invalid or expired OTP")

	body := decode(t, rec)
	if rec.Code != http.StatusUnauthorized || body.Message != "Invalid or expired OTP" {
		t.Errorf("Unexpected response %d %+v", rec.Code, body)
	}
}
