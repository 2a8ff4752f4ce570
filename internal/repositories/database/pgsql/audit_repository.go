package pgsql

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
	"github.com/openretail/pos_backoffice/internal/utils/mapping"
)

type PgxAuditRepository struct {
	BaseRepository
}

// newPgxAuditRepository creates a new repository for audit records.
func newPgxAuditRepository(pool *pgxpool.Pool) portsrepo.AuditWriter {
	return &PgxAuditRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.AuditWriter = (*PgxAuditRepository)(nil)

// SaveAuditLog appends one audit record. The table has no update or delete
// path.
func (r *PgxAuditRepository) SaveAuditLog(ctx context.Context, entry domain.AuditLog) error {
	m := mapping.ToModelAuditLog(entry)
	query := `
		INSERT INTO audit_logs (audit_id, entity_name, entity_id, action, actor, old_value, new_value, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8);
	`
	_, err := r.Pool.Exec(ctx, query,
		m.AuditID,
		m.EntityName,
		m.EntityID,
		m.Action,
		m.Actor,
		nullIfEmpty(m.OldValue),
		nullIfEmpty(m.NewValue),
		m.RecordedAt,
	)
	if err != nil {
		return apperrors.NewAppError(500, "failed to insert audit record for "+m.EntityID, err)
	}
	return nil
}
