// Package wizard drives the questionnaire one section at a time. It holds the
// accumulated answers locally and persists them through an API on Save, Next
// and Complete.
package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"questionnaire-app/backend/models"
	"questionnaire-app/backend/questionnaire"
)

// API is the part of the questionnaire API the wizard needs.
// apiclient.Client implements it.
type API interface {
	GetOrCreate(ctx context.Context) (*models.QuestionnaireResponse, error)
	Update(ctx context.Context, id string, p questionnaire.UpdateParams) (*models.QuestionnaireResponse, error)
}

var (
	ErrNotLoaded   = errors.New("wizard: questionnaire not loaded")
	ErrNotLastStep = errors.New("wizard: complete is only allowed on the last section")
)

var sectionTitles = [models.SectionCount]string{
	"Business Context",
	"Organization and Team",
	"Scope and Cycle",
	"Technology",
	"DevOps and Delivery",
	"Support and Sustainment",
	"Governance",
	"Commercial Expectations",
	"Risks and Lessons Learned",
	"Next Steps",
	"Synthesis",
}

type Section struct {
	Index int
	Title string
}

// Sections lists every section in order.
func Sections() []Section {
	out := make([]Section, len(sectionTitles))
	for i, title := range sectionTitles {
		out[i] = Section{Index: i, Title: title}
	}
	return out
}

type Wizard struct {
	api API

	mu        sync.Mutex
	id        string
	answers   models.Answers
	step      int
	completed bool
	loaded    bool
}

func New(api API) *Wizard {
	return &Wizard{api: api}
}

// Load fetches (or creates) the caller's response and resumes at its stored
// step. Calling it again after a successful load does nothing.
func (w *Wizard) Load(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded {
		return nil
	}
	rec, err := w.api.GetOrCreate(ctx)
	if err != nil {
		return fmt.Errorf("load questionnaire: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("load questionnaire: %w", ErrNotLoaded)
	}
	w.id = rec.ID
	w.answers = rec.Answers.Clone()
	w.step = min(max(rec.CurrentStep, 0), models.LastStep)
	w.completed = rec.IsCompleted
	w.loaded = true
	return nil
}

func (w *Wizard) ID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.id
}

func (w *Wizard) Step() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.step
}

func (w *Wizard) Section() Section {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Section{Index: w.step, Title: sectionTitles[w.step]}
}

func (w *Wizard) IsLastStep() bool {
	return w.Step() == models.LastStep
}

func (w *Wizard) Completed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.completed
}

// Answers returns a copy of the local answers.
func (w *Wizard) Answers() models.Answers {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.answers.Clone()
}

// Progress is the rounded percentage of sections reached, counting the current one.
func (w *Wizard) Progress() int {
	step := w.Step()
	return int(math.Round(float64(step+1) / float64(models.SectionCount) * 100))
}

// Edit applies a section's change to the local answers. Nothing is sent.
func (w *Wizard) Edit(change func(*models.Answers)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	change(&w.answers)
}

// Save sends every answer together with the current step.
func (w *Wizard) Save(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.persist(ctx, false)
}

// Next saves and then moves forward one section. The step only changes when
// the save succeeds, and never moves past the last section.
func (w *Wizard) Next(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.persist(ctx, false); err != nil {
		return err
	}
	if w.step < models.LastStep {
		w.step++
	}
	return nil
}

// Back moves to the previous section without saving.
func (w *Wizard) Back() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.step > 0 {
		w.step--
	}
}

// Complete marks the questionnaire finished. Only allowed on the last section.
func (w *Wizard) Complete(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.loaded && w.step != models.LastStep {
		return ErrNotLastStep
	}
	if err := w.persist(ctx, true); err != nil {
		return err
	}
	w.completed = true
	return nil
}

// persist must be called with mu held. On error no local state changes.
func (w *Wizard) persist(ctx context.Context, complete bool) error {
	if !w.loaded {
		return ErrNotLoaded
	}
	data, err := json.Marshal(w.answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	step := w.step
	p := questionnaire.UpdateParams{Data: data, CurrentStep: &step}
	if complete {
		p.IsCompleted = &complete
	}

	rec, err := w.api.Update(ctx, w.id, p)
	if err != nil {
		slog.WarnContext(ctx, "questionnaire save failed", "source", "wizard", "questionnaire_id", w.id, "step", step, "error", err.Error())
		return fmt.Errorf("save questionnaire: %w", err)
	}
	if rec == nil {
		// The server had no database; there is nothing to confirm against.
		slog.WarnContext(ctx, "questionnaire save not confirmed", "source", "wizard", "questionnaire_id", w.id)
	}
	return nil
}
