package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"questionnaire-app/backend/models"

	"gorm.io/gorm"
)

// DBHandler writes every record as JSON to stdout and as a row in
// log_entries. The "source" and "user_id" attributes get their own columns.
type DBHandler struct {
	db          *gorm.DB
	jsonHandler slog.Handler
	attrs       []slog.Attr
}

// NewDBHandler logs to stdout only when db is nil.
func NewDBHandler(db *gorm.DB) *DBHandler {
	return NewDBHandlerWriter(db, os.Stdout)
}

func NewDBHandlerWriter(db *gorm.DB, out io.Writer) *DBHandler {
	return &DBHandler{
		db:          db,
		jsonHandler: slog.NewJSONHandler(out, nil),
		attrs:       []slog.Attr{},
	}
}

func extractUserID(v slog.Value) *string {
	var id string
	switch v.Kind() {
	case slog.KindString:
		id = v.String()
	case slog.KindInt64:
		id = fmt.Sprint(v.Int64())
	case slog.KindUint64:
		id = fmt.Sprint(v.Uint64())
	}
	if id == "" {
		return nil
	}
	return &id
}

func (h *DBHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return true
}

func (h *DBHandler) Handle(ctx context.Context, r slog.Record) error {
	_ = h.jsonHandler.Handle(ctx, r)
	if h.db == nil {
		return nil
	}

	attrs := make(map[string]any)
	var source string
	var userID *string

	collect := func(a slog.Attr) {
		switch a.Key {
		case "source":
			source = a.Value.String()
		case "user_id":
			if id := extractUserID(a.Value); id != nil {
				userID = id
			}
		default:
			attrs[a.Key] = a.Value.Resolve().Any()
		}
	}
	for _, a := range h.attrs {
		collect(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})

	var data string
	if len(attrs) > 0 {
		b, _ := json.Marshal(attrs)
		data = string(b)
	}

	created := r.Time
	if created.IsZero() {
		created = time.Now()
	}
	entry := models.LogEntry{
		CreatedAt: created.UTC(),
		Level:     r.Level.String(),
		Message:   r.Message,
		Source:    source,
		UserID:    userID,
		Data:      data,
	}

	// Use a fresh context: a cancelled request must not drop its own log line.
	return h.db.WithContext(context.Background()).Create(&entry).Error
}

func (h *DBHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newAttrs := make([]slog.Attr, len(h.attrs)+len(attrs))
	copy(newAttrs, h.attrs)
	copy(newAttrs[len(h.attrs):], attrs)
	return &DBHandler{
		db:          h.db,
		jsonHandler: h.jsonHandler.WithAttrs(attrs),
		attrs:       newAttrs,
	}
}

func (h *DBHandler) WithGroup(name string) slog.Handler {
	return h
}

// DeleteOlderThan removes log entries created before cutoff.
func DeleteOlderThan(db *gorm.DB, cutoff time.Time) (int64, error) {
	if db == nil {
		return 0, nil
	}
	res := db.Where("created_at < ?", cutoff.UTC()).Delete(&models.LogEntry{})
	return res.RowsAffected, res.Error
}

// CleanupOldLogs removes logs older than maxAge every hour until ctx is done.
func CleanupOldLogs(ctx context.Context, db *gorm.DB, maxAge time.Duration) {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := DeleteOlderThan(db, time.Now().Add(-maxAge)); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			}
		}
	}
}
