package handlers

import (
	"net/http"
	"strconv"
	"time"

	"questionnaire-app/backend/apperr"
	"questionnaire-app/backend/models"
	"questionnaire-app/backend/respond"
)

type LogsResponse struct {
	Logs    []models.LogEntry `json:"logs"`
	Total   int64             `json:"total"`
	Page    int               `json:"page"`
	PerPage int               `json:"per_page"`
}

// GetLogs lists log entries newest first, filtered by level, source and a
// free-text search over message and data.
func (h *Handler) GetLogs(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}
	resp := LogsResponse{Logs: []models.LogEntry{}, Page: page, PerPage: perPage}
	if h.DB == nil {
		respond.OK(w, resp)
		return
	}

	q := h.DB.WithContext(r.Context()).Model(&models.LogEntry{})
	if level := r.URL.Query().Get("level"); level != "" {
		q = q.Where("level = ?", level)
	}
	if source := r.URL.Query().Get("source"); source != "" {
		q = q.Where("source = ?", source)
	}
	if userID := r.URL.Query().Get("user_id"); userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	if search := r.URL.Query().Get("search"); search != "" {
		q = q.Where("message LIKE ? OR data LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := q.Count(&resp.Total).Error; err != nil {
		respond.Error(w, r, err, "Failed to load logs")
		return
	}
	offset := (page - 1) * perPage
	if err := q.Order("created_at DESC").Order("id DESC").Offset(offset).Limit(perPage).Find(&resp.Logs).Error; err != nil {
		respond.Error(w, r, err, "Failed to load logs")
		return
	}
	respond.OK(w, resp)
}

func (h *Handler) GetLogSources(w http.ResponseWriter, r *http.Request) {
	sources := []string{}
	if h.DB != nil {
		if err := h.DB.WithContext(r.Context()).Model(&models.LogEntry{}).
			Distinct("source").Where("source != ''").Order("source").Pluck("source", &sources).Error; err != nil {
			respond.Error(w, r, err, "Failed to load log sources")
			return
		}
	}
	respond.OK(w, sources)
}

type TimelinePoint struct {
	Time  string `json:"time"`
	Count int    `json:"count"`
}

// timelineFormats maps the accepted intervals to sqlite and Postgres bucket
// formats. Anything else falls back to hour, so user input never reaches SQL.
var timelineFormats = map[string][2]string{
	"minute": {"%Y-%m-%d %H:%M", "YYYY-MM-DD HH24:MI"},
	"hour":   {"%Y-%m-%d %H:00", "YYYY-MM-DD HH24:00"},
	"day":    {"%Y-%m-%d", "YYYY-MM-DD"},
}

// GetLogTimeline counts entries per interval bucket over the last range
// (a duration such as 24h, default 24h).
func (h *Handler) GetLogTimeline(w http.ResponseWriter, r *http.Request) {
	formats, ok := timelineFormats[r.URL.Query().Get("interval")]
	if !ok {
		formats = timelineFormats["hour"]
	}
	window := 24 * time.Hour
	if v := r.URL.Query().Get("range"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			window = d
		}
	}

	results := []TimelinePoint{}
	if h.DB == nil {
		respond.OK(w, results)
		return
	}

	bucket := "strftime(?, created_at)"
	format := formats[0]
	if h.DB.Dialector.Name() == "postgres" {
		bucket = "to_char(created_at, ?)"
		format = formats[1]
	}

	err := h.DB.WithContext(r.Context()).Model(&models.LogEntry{}).
		Select(bucket+" as time, count(*) as count", format).
		Where("created_at >= ?", time.Now().UTC().Add(-window)).
		Group("time").
		Order("time ASC").
		Limit(1000).
		Scan(&results).Error
	if err != nil {
		respond.Error(w, r, err, "Failed to load log timeline")
		return
	}
	respond.OK(w, results)
}

type BulkDeleteRequest struct {
	IDs []uint `json:"ids"`
}

func (h *Handler) DeleteLogs(w http.ResponseWriter, r *http.Request) {
	var req BulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil {
		respond.Error(w, r, err, "")
		return
	}
	if len(req.IDs) == 0 {
		respond.Error(w, r, apperr.ErrInvalidInput, "No IDs provided")
		return
	}
	if h.DB == nil {
		respond.OK(w, map[string]int64{"deleted": 0})
		return
	}

	result := h.DB.WithContext(r.Context()).Delete(&models.LogEntry{}, req.IDs)
	if result.Error != nil {
		respond.Error(w, r, result.Error, "Failed to delete logs")
		return
	}
	respond.OK(w, map[string]int64{"deleted": result.RowsAffected})
}
