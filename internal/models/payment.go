package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod mirrors domain.PaymentMethod at the persistence layer.
type PaymentMethod string

// PaymentStatus mirrors domain.PaymentStatus at the persistence layer.
type PaymentStatus string

// PaymentTransaction is the database shape of one ledger row.
// Financial fields (transaction_code, invoice_id, amount, transaction_date)
// have no UPDATE statement anywhere in the repository layer.
type PaymentTransaction struct {
	TransactionID        string          `db:"transaction_id"`
	TransactionCode      string          `db:"transaction_code"`
	InvoiceID            string          `db:"invoice_id"`
	Method               PaymentMethod   `db:"method"`
	Status               PaymentStatus   `db:"status"`
	Amount               decimal.Decimal `db:"amount"`
	CurrencyCode         string          `db:"currency_code"`
	TransactionDate      time.Time       `db:"transaction_date"`
	GatewayTransactionID string          `db:"gateway_transaction_id"` // Nullable
	GatewayResponse      string          `db:"gateway_response"`       // Nullable
	CardLast4            string          `db:"card_last4"`             // Nullable
	CardType             string          `db:"card_type"`              // Nullable
	QRCode               string          `db:"qr_code"`                // Nullable
	ErrorMessage         string          `db:"error_message"`          // Nullable
	Notes                string          `db:"notes"`                  // Nullable
	ReconciliationDate   *time.Time      `db:"reconciliation_date"`    // Nullable
	ReconciliationStatus string          `db:"reconciliation_status"`  // Nullable
	AuditFields
}

// AuditFields holds the standard audit columns shared by all tables.
type AuditFields struct {
	CreatedAt     time.Time `db:"created_at"`
	CreatedBy     string    `db:"created_by"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
	LastUpdatedBy string    `db:"last_updated_by"`
}
