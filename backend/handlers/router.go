package handlers

import (
	"net/http"

	"questionnaire-app/backend/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// RouterOptions holds the optional protections. Nil fields are skipped.
type RouterOptions struct {
	AuthLimiter *middleware.RateLimiter
	CSRF        *middleware.CSRFProtection
	MaxBodySize int64
}

// NewRouter registers every route with its middleware stack.
func NewRouter(h *Handler, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBody(opts.MaxBodySize))
	r.Use(middleware.Authenticate(h.Sessions, h.Users))
	r.Use(middleware.RequestLogger)

	// Health check (unauthenticated, for load balancers)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	limit := func(next http.HandlerFunc) http.Handler {
		if opts.AuthLimiter == nil {
			return next
		}
		return opts.AuthLimiter.Limit(next)
	}

	r.Route("/api", func(r chi.Router) {
		if opts.CSRF != nil {
			r.Use(opts.CSRF.Protect)
		}

		r.Route("/auth", func(r chi.Router) {
			r.Method(http.MethodPost, "/request-otp", limit(h.RequestOTP))
			r.Method(http.MethodPost, "/verify-otp", limit(h.VerifyOTP))
			r.Get("/me", h.Me)
			r.Post("/logout", h.Logout)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)
			r.Get("/questionnaire", h.GetOrCreateQuestionnaire)
			r.Get("/questionnaire/{id}", h.GetQuestionnaire)
			r.Patch("/questionnaire/{id}", h.UpdateQuestionnaire)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Get("/questionnaires", h.ListQuestionnaires)
			r.Get("/summary", h.QuestionnaireSummary)
			r.Get("/logs", h.GetLogs)
			r.Get("/logs/sources", h.GetLogSources)
			r.Get("/logs/timeline", h.GetLogTimeline)
			r.Delete("/logs", h.DeleteLogs)
		})
	})

	return r
}
