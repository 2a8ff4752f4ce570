package models

import "time"

// AuditLog is the database shape of one audit record.
type AuditLog struct {
	AuditID    string    `db:"audit_id"`
	EntityName string    `db:"entity_name"`
	EntityID   string    `db:"entity_id"`
	Action     string    `db:"action"`
	Actor      string    `db:"actor"`
	OldValue   string    `db:"old_value"`
	NewValue   string    `db:"new_value"`
	RecordedAt time.Time `db:"recorded_at"`
}
