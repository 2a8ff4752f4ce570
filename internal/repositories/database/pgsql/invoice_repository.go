package pgsql

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/openretail/pos_backoffice/internal/apperrors"
	"github.com/openretail/pos_backoffice/internal/core/domain"
	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
	"github.com/openretail/pos_backoffice/internal/models"
	"github.com/openretail/pos_backoffice/internal/utils/mapping"
)

type PgxInvoiceRepository struct {
	BaseRepository
}

// newPgxInvoiceRepository creates a read-only view onto the invoices table.
func newPgxInvoiceRepository(pool *pgxpool.Pool) portsrepo.InvoiceReader {
	return &PgxInvoiceRepository{
		BaseRepository: BaseRepository{Pool: pool},
	}
}

var _ portsrepo.InvoiceReader = (*PgxInvoiceRepository)(nil)

// FindInvoiceByID retrieves the slice of an invoice that payment processing
// needs. Invoices are owned by the invoicing subsystem; this repository
// never writes them.
func (r *PgxInvoiceRepository) FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error) {
	query := `
		SELECT invoice_id, total_owed, currency_code
		FROM invoices
		WHERE invoice_id = $1;
	`
	var m models.Invoice
	err := r.Pool.QueryRow(ctx, query, invoiceID).Scan(
		&m.InvoiceID,
		&m.TotalOwed,
		&m.CurrencyCode,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.NewAppError(500, "failed to find invoice by ID "+invoiceID, err)
	}

	invoice := mapping.ToDomainInvoice(m)
	return &invoice, nil
}
