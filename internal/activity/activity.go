// Package activity records admin actions into the activity_logs table.
package activity

import (
	"context"
	"log"
	"time"

	"github.com/axelsjewelry/storefront/internal/backend"
)

const table = "activity_logs"

// Entry describes a single recorded admin action.
type Entry struct {
	ID         string         `json:"id"`
	AdminID    string         `json:"admin_id"`
	AdminEmail string         `json:"admin_email"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Recorder writes activity entries. Recording is best effort: storage
// failures are logged and never bubble up to the action that triggered them.
type Recorder struct {
	records backend.RecordStore
	logger  *log.Logger
}

func NewRecorder(records backend.RecordStore, logger *log.Logger) *Recorder {
	if logger == nil {
		logger = log.New(log.Writer(), "[activity] ", log.LstdFlags)
	}
	return &Recorder{records: records, logger: logger}
}

// Record persists one entry. The admin identity may be empty when the
// action happened outside an authenticated admin session.
func (r *Recorder) Record(ctx context.Context, adminID, adminEmail, action, entityType, entityID string, details map[string]any) {
	values := backend.Record{
		"action":      action,
		"entity_type": entityType,
		"entity_id":   entityID,
	}
	if adminID != "" {
		values["admin_id"] = adminID
	}
	if adminEmail != "" {
		values["admin_email"] = adminEmail
	}
	if len(details) > 0 {
		values["details"] = details
	}
	if _, err := r.records.Insert(ctx, table, values); err != nil {
		r.logger.Printf("record %s %s/%s: %v", action, entityType, entityID, err)
	}
}

// Recent returns the newest entries, most recent first.
func (r *Recorder) Recent(ctx context.Context, limit int) ([]Entry, error) {
	q := backend.Query{}.OrderBy("created_at", true)
	if limit > 0 {
		q = q.Limit(limit)
	}
	rows, err := r.records.Select(ctx, table, q)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(rows))
	for _, row := range rows {
		var e Entry
		if err := backend.Decode(row, &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
