package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod identifies the payment backend a transaction is routed to.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodVisa         PaymentMethod = "VISA"
	MethodMastercard   PaymentMethod = "MASTERCARD"
	MethodJCB          PaymentMethod = "JCB"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodVNPay        PaymentMethod = "VNPAY"
)

// AllPaymentMethods lists every method the router must be able to serve.
var AllPaymentMethods = []PaymentMethod{
	MethodCash,
	MethodVisa,
	MethodMastercard,
	MethodJCB,
	MethodBankTransfer,
	MethodVNPay,
}

// PaymentStatus is the lifecycle state of a ledger row.
type PaymentStatus string

const (
	StatusPending               PaymentStatus = "PENDING"
	StatusCompleted             PaymentStatus = "COMPLETED"
	StatusFailed                PaymentStatus = "FAILED"
	StatusCancelled             PaymentStatus = "CANCELLED"
	StatusPendingReconciliation PaymentStatus = "PENDING_RECONCILIATION"
	StatusReconciled            PaymentStatus = "RECONCILED"
)

// IsTerminalFailure reports whether the status excludes the row from
// settlement totals.
func (s PaymentStatus) IsTerminalFailure() bool {
	return s == StatusFailed || s == StatusCancelled
}

// PaymentTransaction is one immutable ledger row recording a charge or refund
// attempt against an invoice. Amount is signed: positive for a charge,
// negative for a refund, never zero. TransactionCode, InvoiceID, Amount and
// TransactionDate are fixed at insert time; only Status and the
// reconciliation fields change afterwards, and only through defined
// operations.
type PaymentTransaction struct {
	TransactionID        string          `json:"transactionID"`        // Primary Key (UUID)
	TransactionCode      string          `json:"transactionCode"`      // Unique, human-legible
	InvoiceID            string          `json:"invoiceID"`            // FK -> Invoice
	Method               PaymentMethod   `json:"method"`               //
	Status               PaymentStatus   `json:"status"`               //
	Amount               decimal.Decimal `json:"amount"`               // Signed; never zero
	CurrencyCode         string          `json:"currencyCode"`         //
	TransactionDate      time.Time       `json:"transactionDate"`      // Creation time, immutable
	GatewayTransactionID string          `json:"gatewayTransactionID"` // Cash reuses the transaction code
	GatewayResponse      string          `json:"gatewayResponse"`      // Opaque backend snapshot for audit
	CardLast4            string          `json:"cardLast4,omitempty"`  // Card methods only
	CardType             string          `json:"cardType,omitempty"`   // Card methods only
	QRCode               string          `json:"qrCode,omitempty"`
	ErrorMessage         string          `json:"errorMessage,omitempty"`
	Notes                string          `json:"notes,omitempty"` // Links refunds to their source charge
	ReconciliationDate   *time.Time      `json:"reconciliationDate,omitempty"`
	ReconciliationStatus string          `json:"reconciliationStatus,omitempty"`
	AuditFields
}

// IsRefund reports whether the row records a refund rather than a charge.
func (t PaymentTransaction) IsRefund() bool {
	return t.Amount.IsNegative()
}

// InvoiceSettlement is the derived net position of an invoice: the sum of
// amounts over all rows that are not FAILED or CANCELLED.
type InvoiceSettlement struct {
	InvoiceID   string          `json:"invoiceID"`
	TotalOwed   decimal.Decimal `json:"totalOwed"`
	NetSettled  decimal.Decimal `json:"netSettled"`
	Outstanding decimal.Decimal `json:"outstanding"`
}
