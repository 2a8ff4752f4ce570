package pgsql

import (
	"github.com/jackc/pgx/v5/pgxpool"

	portsrepo "github.com/openretail/pos_backoffice/internal/core/ports/repositories"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	paymentRepo := newPgxPaymentRepository(dbPool)
	invoiceRepo := newPgxInvoiceRepository(dbPool)
	auditRepo := newPgxAuditRepository(dbPool)

	return portsrepo.RepositoryProvider{
		PaymentRepo: paymentRepo,
		InvoiceRepo: invoiceRepo,
		AuditRepo:   auditRepo,
	}
}
