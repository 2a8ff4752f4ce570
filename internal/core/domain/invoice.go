package domain

import "github.com/shopspring/decimal"

// Invoice is the slice of the invoicing subsystem's entity that payment
// processing reads. It is never written through this core.
type Invoice struct {
	InvoiceID    string          `json:"invoiceID"`
	TotalOwed    decimal.Decimal `json:"totalOwed"`
	CurrencyCode string          `json:"currencyCode"`
}
