package repositories

import (
	"context"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// AuditWriter persists audit records.
type AuditWriter interface {
	SaveAuditLog(ctx context.Context, entry domain.AuditLog) error
}
