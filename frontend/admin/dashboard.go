// Package admin builds the admin dashboard view: completion counts and one
// row per response.
package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/questionnaire"
)

const (
	// TimeLayout is day/month/year with a 24h clock.
	TimeLayout = "02/01/2006 15:04"

	StatusCompleted  = "Completed"
	StatusInProgress = "In progress"
)

// Source lists every response. apiclient.Client implements it.
type Source interface {
	ListAll(ctx context.Context) ([]models.QuestionnaireResponse, error)
}

type Row struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	Status      string `json:"status"`
	Progress    string `json:"progress"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
	CompletedAt string `json:"completedAt"`
}

type Dashboard struct {
	Summary questionnaire.Summary `json:"summary"`
	Rows    []Row                 `json:"rows"`
}

// Load fetches every response and renders timestamps in loc (UTC when nil).
func Load(ctx context.Context, src Source, loc *time.Location) (*Dashboard, error) {
	list, err := src.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	return Build(list, loc), nil
}

func Build(list []models.QuestionnaireResponse, loc *time.Location) *Dashboard {
	if loc == nil {
		loc = time.UTC
	}
	d := &Dashboard{
		Summary: questionnaire.Summarize(list),
		Rows:    make([]Row, 0, len(list)),
	}
	for _, r := range list {
		d.Rows = append(d.Rows, NewRow(r, loc))
	}
	return d
}

func NewRow(r models.QuestionnaireResponse, loc *time.Location) Row {
	status := StatusInProgress
	if r.IsCompleted {
		status = StatusCompleted
	}
	return Row{
		ID:          r.ID,
		UserID:      r.UserID,
		Status:      status,
		Progress:    fmt.Sprintf("%d/%d", r.CurrentStep+1, models.SectionCount),
		CreatedAt:   FormatTime(&r.CreatedAt, loc),
		UpdatedAt:   FormatTime(&r.UpdatedAt, loc),
		CompletedAt: FormatTime(r.CompletedAt, loc),
	}
}

// FormatTime renders "-" for a missing or zero time.
func FormatTime(t *time.Time, loc *time.Location) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(TimeLayout)
}

// Export writes the dashboard in a downloadable format. Not available yet.
func Export(ctx context.Context, d *Dashboard, w io.Writer) error {
	rows := 0
	if d != nil {
		rows = len(d.Rows)
	}
	slog.InfoContext(ctx, "dashboard export requested", "source", "admin", "rows", rows)
	return fmt.Errorf("export dashboard: %w", apperr.ErrNotImplemented)
}
