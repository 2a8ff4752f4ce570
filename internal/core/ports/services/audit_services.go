package services

import "context"

// AuditSvc records who did what. Record is fire-and-forget: implementations
// log failures and never return them, so an audit outage cannot fail a
// payment operation.
type AuditSvc interface {
	Record(ctx context.Context, entityName, entityID, action, actor, oldValue, newValue string)
}
