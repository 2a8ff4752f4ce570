package repositories

import (
	"context"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// InvoiceReader is the fixed contract to the invoicing subsystem. The
// payment core never writes invoices.
type InvoiceReader interface {
	// FindInvoiceByID retrieves an invoice, or apperrors.ErrNotFound.
	FindInvoiceByID(ctx context.Context, invoiceID string) (*domain.Invoice, error)
}
