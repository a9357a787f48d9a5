package handlers

import (
	"errors"
	"net/http"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/authz"
	"questionnaire-app/backend/middleware"
	"questionnaire-app/backend/questionnaire"
	"questionnaire-app/backend/respond"

	"github.com/go-chi/chi/v5"
)

func principal(r *http.Request) *authz.Principal {
	return authz.FromUser(middleware.UserFromContext(r.Context()))
}

// questionnaireError picks the client message for a store error. verb names
// the attempted action, e.g. "view".
func questionnaireError(w http.ResponseWriter, r *http.Request, err error, verb string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		respond.Error(w, r, err, "Questionnaire not found")
	case errors.Is(err, apperr.ErrForbidden):
		respond.Error(w, r, err, "Not authorized to "+verb+" this questionnaire")
	case errors.Is(err, apperr.ErrInvalidInput), errors.Is(err, apperr.ErrUnauthorized):
		respond.Error(w, r, err, "")
	default:
		respond.Error(w, r, err, "Failed to "+verb+" questionnaire")
	}
}

// GetOrCreateQuestionnaire returns the caller's response, creating it on first use.
func (h *Handler) GetOrCreateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	p := principal(r)
	rec, err := h.Questionnaires.GetOrCreate(r.Context(), p.ID)
	if err != nil {
		respond.Error(w, r, err, "Failed to get questionnaire")
		return
	}
	respond.OK(w, rec)
}

func (h *Handler) GetQuestionnaire(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Questionnaires.Get(r.Context(), chi.URLParam(r, "id"), principal(r))
	if err != nil {
		questionnaireError(w, r, err, "view")
		return
	}
	respond.OK(w, rec)
}

// UpdateQuestionnaire applies {data, currentStep?, isCompleted?}.
func (h *Handler) UpdateQuestionnaire(w http.ResponseWriter, r *http.Request) {
	var req questionnaire.UpdateParams
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	rec, err := h.Questionnaires.Update(r.Context(), chi.URLParam(r, "id"), req, principal(r))
	if err != nil {
		questionnaireError(w, r, err, "update")
		return
	}
	respond.OK(w, rec)
}

func (h *Handler) ListQuestionnaires(w http.ResponseWriter, r *http.Request) {
	list, err := h.Questionnaires.ListAll(r.Context(), principal(r))
	if err != nil {
		questionnaireError(w, r, err, "list")
		return
	}
	respond.OK(w, list)
}

// QuestionnaireSummary counts total, completed and in-progress responses.
func (h *Handler) QuestionnaireSummary(w http.ResponseWriter, r *http.Request) {
	list, err := h.Questionnaires.ListAll(r.Context(), principal(r))
	if err != nil {
		questionnaireError(w, r, err, "list")
		return
	}
	respond.OK(w, questionnaire.Summarize(list))
}
