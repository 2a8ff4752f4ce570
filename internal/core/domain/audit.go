package domain

import "time"

// AuditLog records who did what to which entity. Writes are fire-and-forget:
// a failed audit write never fails the operation it describes.
type AuditLog struct {
	AuditID    string    `json:"auditID"` // Primary Key (UUID)
	EntityName string    `json:"entityName"`
	EntityID   string    `json:"entityID"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor"` // Employee reference
	OldValue   string    `json:"oldValue,omitempty"`
	NewValue   string    `json:"newValue,omitempty"`
	RecordedAt time.Time `json:"recordedAt"`
}
