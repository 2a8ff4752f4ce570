package gateways

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// ErrNoGatewayAvailable means no registered gateway supports the requested
// method. This is a configuration error, not a user error.
var ErrNoGatewayAvailable = errors.New("no payment gateway available for method")

// ErrRefundRejected means the backend refused to execute the reversal.
var ErrRefundRejected = errors.New("refund rejected by payment gateway")

// ChargeRequest carries everything a gateway needs to execute a payment.
type ChargeRequest struct {
	TransactionCode string
	InvoiceID       string
	Method          domain.PaymentMethod
	Amount          decimal.Decimal
	CurrencyCode    string
	OrderInfo       string
	CustomerIP      string
	// Card metadata, present only for card methods.
	CardLast4 string
	CardType  string
	// Bank transfer reference, present only for BANK_TRANSFER.
	BankReference string
}

// Result is a gateway's reply to a charge, verify or refund call. Raw holds
// the serialized backend response verbatim for audit and dispute purposes.
type Result struct {
	Status               domain.PaymentStatus
	GatewayTransactionID string
	PaymentURL           string
	RedirectURL          string
	QRCode               string
	RequiresConfirmation bool
	ErrorMessage         string
	Raw                  string
}

// PaymentGateway is the uniform capability set every payment backend adapter
// implements. Adapters are stateless and safe for concurrent use; the ledger
// never depends on adapter-held state.
type PaymentGateway interface {
	// Supports reports whether this gateway handles the given method. Pure.
	Supports(method domain.PaymentMethod) bool

	// Charge executes the payment. Synchronous methods return a terminal
	// status; redirect-based methods return PENDING with a redirect/QR
	// payload and RequiresConfirmation set.
	Charge(ctx context.Context, req ChargeRequest) (*Result, error)

	// Verify re-queries the backend for the current status of a previously
	// created transaction. Idempotent and side-effect-free on the backend.
	Verify(ctx context.Context, gatewayTransactionID string) (*Result, error)

	// Refund requests a backend-side reversal. Backends without a reversal
	// channel synthesize a local result; a backend refusal surfaces as
	// ErrRefundRejected.
	Refund(ctx context.Context, gatewayTransactionID string, amount decimal.Decimal) (*Result, error)
}
