package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/openretail/pos_backoffice/internal/core/domain"
	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
	portssvc "github.com/openretail/pos_backoffice/internal/core/ports/services"
	"github.com/openretail/pos_backoffice/internal/middleware"
)

// auditService writes the immutable audit trail. Recording is best-effort:
// an audit write failure is logged but never fails the business operation.
type auditService struct {
	auditRepo portsrepo.AuditWriter
}

// NewAuditService creates a new AuditService.
func NewAuditService(auditRepo portsrepo.AuditWriter) portssvc.AuditSvc {
	return &auditService{auditRepo: auditRepo}
}

var _ portssvc.AuditSvc = (*auditService)(nil)

func (s *auditService) Record(ctx context.Context, entityName string, entityID string, action string, actor string, oldValue string, newValue string) {
	logger := middleware.GetLoggerFromCtx(ctx)

	entry := domain.AuditLog{
		AuditID:    uuid.NewString(),
		EntityName: entityName,
		EntityID:   entityID,
		Action:     action,
		Actor:      actor,
		OldValue:   oldValue,
		NewValue:   newValue,
		RecordedAt: time.Now().UTC(),
	}

	if err := s.auditRepo.SaveAuditLog(ctx, entry); err != nil {
		logger.Error("Failed to record audit entry",
			slog.String("entity_name", entityName),
			slog.String("entity_id", entityID),
			slog.String("action", action),
			slog.String("error", err.Error()))
	}
}
