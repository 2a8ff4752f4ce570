package services

import (
	"context"
	"net/url"

	"github.com/openretail/pos_backoffice/internal/core/domain"
	"github.com/openretail/pos_backoffice/internal/dto"
)

// PaymentReaderSvc defines read operations over the payment ledger.
type PaymentReaderSvc interface {
	// GetPaymentByID retrieves a ledger row by internal id.
	GetPaymentByID(ctx context.Context, transactionID string) (*domain.PaymentTransaction, error)

	// GetPaymentsByInvoice retrieves every ledger row for an invoice.
	GetPaymentsByInvoice(ctx context.Context, invoiceID string) ([]domain.PaymentTransaction, error)

	// GetPaymentsByStatus retrieves ledger rows in a given status.
	GetPaymentsByStatus(ctx context.Context, status domain.PaymentStatus) ([]domain.PaymentTransaction, error)

	// ListPaymentsByDateRange retrieves a paginated page of ledger rows.
	ListPaymentsByDateRange(ctx context.Context, params dto.ListPaymentsParams) (*dto.ListPaymentsResponse, error)

	// GetInvoiceSettlement returns the derived net settlement of an invoice.
	GetInvoiceSettlement(ctx context.Context, invoiceID string) (*domain.InvoiceSettlement, error)
}

// PaymentWriterSvc defines the payment lifecycle operations.
type PaymentWriterSvc interface {
	// ProcessPayment charges an invoice through the routed gateway and
	// persists the resulting ledger row.
	ProcessPayment(ctx context.Context, req dto.ProcessPaymentRequest, actorID string) (*dto.ProcessPaymentResponse, error)

	// VerifyPayment re-queries the backend and updates the stored status
	// only when it differs.
	VerifyPayment(ctx context.Context, gatewayTransactionID string, actorID string) (*domain.PaymentTransaction, error)

	// RefundPayment creates a new negative ledger row against a completed
	// charge; the original row is never touched.
	RefundPayment(ctx context.Context, req dto.RefundRequest, actorID string) (*domain.PaymentTransaction, error)

	// ReconcilePayment marks a row reconciled after manual statement matching.
	ReconcilePayment(ctx context.Context, transactionID string, reconciliationStatus string, actorID string) (*domain.PaymentTransaction, error)

	// ConfirmVNPayCallback applies a signed IPN callback to the referenced row.
	ConfirmVNPayCallback(ctx context.Context, params url.Values) (*domain.PaymentTransaction, error)
}

// PaymentSvcFacade combines the payment service interfaces.
type PaymentSvcFacade interface {
	PaymentReaderSvc
	PaymentWriterSvc
}
