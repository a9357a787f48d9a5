package questionnaire

import (
	"context"
	"fmt"
	"log/slog"

	"questionnaire-app/backend/authz"
	"questionnaire-app/backend/models"
)

// Summary counts responses by completion.
type Summary struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
}

// ListAll returns every response, oldest update first. Admins only.
func (s *Store) ListAll(ctx context.Context, requester *authz.Principal) ([]models.QuestionnaireResponse, error) {
	if err := authz.RequireAdmin(requester); err != nil {
		if requester != nil {
			slog.WarnContext(ctx, "questionnaire listing denied", "source", "questionnaire", "user_id", requester.ID)
		}
		return nil, err
	}
	if s.db == nil {
		slog.WarnContext(ctx, "cannot list questionnaires: database not available", "source", "questionnaire")
		return []models.QuestionnaireResponse{}, nil
	}

	var list []models.QuestionnaireResponse
	if err := s.db.WithContext(ctx).Order("updated_at ASC").Order("id").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("list questionnaires: %w", err)
	}
	return list, nil
}

func Summarize(list []models.QuestionnaireResponse) Summary {
	sum := Summary{Total: len(list)}
	for _, r := range list {
		if r.IsCompleted {
			sum.Completed++
		}
	}
	sum.InProgress = sum.Total - sum.Completed
	return sum
}
