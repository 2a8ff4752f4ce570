package repositories

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// PaymentReader defines read operations over the payment ledger.
type PaymentReader interface {
	// FindPaymentByID retrieves a ledger row by its internal identifier.
	FindPaymentByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error)

	// FindPaymentByGatewayTransactionID retrieves a ledger row by the
	// backend-assigned correlation id.
	FindPaymentByGatewayTransactionID(ctx context.Context, gatewayTransactionID string) (*domain.PaymentTransaction, error)

	// FindPaymentsByInvoice retrieves every ledger row for an invoice,
	// oldest first.
	FindPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error)

	// FindPaymentsByStatus retrieves ledger rows in a given status.
	FindPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentTransaction, error)

	// ListPaymentsByDateRange retrieves a token-paginated page of ledger rows
	// whose transaction date falls inside [from, to).
	ListPaymentsByDateRange(ctx context.Context, from, to time.Time, limit int, nextToken *string) ([]domain.PaymentTransaction, *string, error)

	// HasActiveCharge reports whether the invoice already has a positive row
	// that is not FAILED or CANCELLED.
	HasActiveCharge(ctx context.Context, invoiceID string) (bool, error)

	// SumSettledAmountByInvoice returns the signed amount total over all
	// non-FAILED, non-CANCELLED rows of an invoice.
	SumSettledAmountByInvoice(ctx context.Context, invoiceID string) (decimal.Decimal, error)
}

// PaymentWriter defines the only mutations the ledger permits. There is no
// update path for financial fields and no delete path at all.
type PaymentWriter interface {
	// SavePayment inserts a new ledger row. A violation of the one-active-
	// charge-per-invoice constraint surfaces as apperrors.ErrDuplicate.
	SavePayment(ctx context.Context, payment domain.PaymentTransaction) error

	// UpdatePaymentStatus changes the status and error message of a row.
	UpdatePaymentStatus(ctx context.Context, transactionID string, status domain.PaymentStatus, errorMessage string, updatedBy string, updatedAt time.Time) error

	// UpdateReconciliation marks a row reconciled.
	UpdateReconciliation(ctx context.Context, transactionID string, reconciliationStatus string, reconciliationDate time.Time, updatedBy string) error
}

// PaymentRepositoryFacade combines the ledger repository interfaces for
// clients that need full access.
type PaymentRepositoryFacade interface {
	PaymentReader
	PaymentWriter
}
