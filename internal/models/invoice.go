package models

import "github.com/shopspring/decimal"

// Invoice is the read-only database shape of an invoice. The payment core
// only ever SELECTs from this table.
type Invoice struct {
	InvoiceID    string          `db:"invoice_id"`
	TotalOwed    decimal.Decimal `db:"total_owed"`
	CurrencyCode string          `db:"currency_code"`
}
