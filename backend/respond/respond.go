// Package respond writes JSON bodies and the error envelope shared by every
// API route.
package respond

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"questionnaire-app/backend/apperr"
)

// ErrorBody is the envelope for failed requests.
type ErrorBody struct {
	Status  string `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func JSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// Error maps err to its status and code. Internal errors are logged and
// answered with message instead of their cause.
func Error(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError && !errors.Is(err, apperr.ErrNotImplemented) {
		slog.ErrorContext(r.Context(), message, "source", "http", "method", r.Method, "path", r.URL.Path, "error", err.Error())
	} else if message == "" {
		message = err.Error()
	}
	if message == "" {
		message = http.StatusText(status)
	}
	JSON(w, status, ErrorBody{
		Status:  "error",
		Code:    apperr.Code(err),
		Message: message,
	})
}
