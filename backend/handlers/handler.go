package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/otp"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/session"
	"questionnaire-app/backend/sms"
	"questionnaire-app/backend/users"

	"gorm.io/gorm"
)

// Handler serves the JSON API. DB backs the admin log viewer and may be nil.
type Handler struct {
	Users          *users.Directory
	OTP            *otp.Store
	Questionnaires *questionnaire.Store
	Sessions       *session.Issuer
	SMS            sms.Sender
	DB             *gorm.DB
}

// decodeJSON reads the request body into dst. Malformed or oversized bodies
// are invalid input.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			return fmt.Errorf("request body larger than %d bytes: %w", tooBig.Limit, apperr.ErrInvalidInput)
		}
		return fmt.Errorf("malformed JSON body: %w", apperr.ErrInvalidInput)
	}
	return nil
}
