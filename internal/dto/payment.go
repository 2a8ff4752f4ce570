package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
	"github.com/openretail/pos_backoffice/internal/gateways"
)

// ProcessPaymentRequest is the inbound shape for charging an invoice.
type ProcessPaymentRequest struct {
	InvoiceID string               `json:"invoiceID" binding:"required"`
	Method    domain.PaymentMethod `json:"method" binding:"required,oneof=CASH VISA MASTERCARD JCB BANK_TRANSFER VNPAY"`
	Amount    decimal.Decimal      `json:"amount" binding:"required"`
	OrderInfo string               `json:"orderInfo"`
	// Card methods only.
	CardLast4 string `json:"cardLast4" binding:"omitempty,len=4,numeric"`
	CardType  string `json:"cardType"`
	// BANK_TRANSFER only.
	BankReference string `json:"bankReference"`
	// Filled from the connection by the handler, never from the body.
	CustomerIP string `json:"-"`
}

// RefundRequest is the inbound shape for refunding a completed charge.
type RefundRequest struct {
	GatewayTransactionID string          `json:"gatewayTransactionID" binding:"required"`
	Amount               decimal.Decimal `json:"amount" binding:"required"`
	Reason               string          `json:"reason"`
}

// ReconcileRequest is the inbound shape for manual reconciliation.
type ReconcileRequest struct {
	ReconciliationStatus string `json:"reconciliationStatus" binding:"required"`
}

// ListPaymentsParams holds the date-range listing filters.
type ListPaymentsParams struct {
	From      time.Time
	To        time.Time
	Limit     int
	NextToken *string
}

// PaymentResponse is the externally visible shape of one ledger row.
type PaymentResponse struct {
	TransactionID        string          `json:"transactionID"`
	TransactionCode      string          `json:"transactionCode"`
	InvoiceID            string          `json:"invoiceID"`
	Method               string          `json:"method"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	CurrencyCode         string          `json:"currencyCode"`
	TransactionDate      time.Time       `json:"transactionDate"`
	GatewayTransactionID string          `json:"gatewayTransactionID,omitempty"`
	CardLast4            string          `json:"cardLast4,omitempty"`
	CardType             string          `json:"cardType,omitempty"`
	QRCode               string          `json:"qrCode,omitempty"`
	ErrorMessage         string          `json:"errorMessage,omitempty"`
	Notes                string          `json:"notes,omitempty"`
	ReconciliationDate   *time.Time      `json:"reconciliationDate,omitempty"`
	ReconciliationStatus string          `json:"reconciliationStatus,omitempty"`
}

// ListPaymentsResponse is a page of ledger rows plus the token for the next page.
type ListPaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	NextToken *string           `json:"nextToken,omitempty"`
}

// ProcessPaymentResponse is the composed reply to a charge: the persisted
// row's identity plus whatever redirect/QR payload the gateway supplied.
type ProcessPaymentResponse struct {
	TransactionID        string          `json:"transactionID"`
	TransactionCode      string          `json:"transactionCode"`
	InvoiceID            string          `json:"invoiceID"`
	Method               string          `json:"method"`
	Status               string          `json:"status"`
	Amount               decimal.Decimal `json:"amount"`
	QRCode               string          `json:"qrCode,omitempty"`
	PaymentURL           string          `json:"paymentUrl,omitempty"`
	RedirectURL          string          `json:"redirectUrl,omitempty"`
	RequiresConfirmation bool            `json:"requiresConfirmation"`
	ErrorMessage         string          `json:"errorMessage,omitempty"`
}

// SettlementResponse is the derived net position of an invoice.
type SettlementResponse struct {
	InvoiceID   string          `json:"invoiceID"`
	TotalOwed   decimal.Decimal `json:"totalOwed"`
	NetSettled  decimal.Decimal `json:"netSettled"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ToPaymentResponse converts a domain ledger row to its external shape.
func ToPaymentResponse(t *domain.PaymentTransaction) PaymentResponse {
	return PaymentResponse{
		TransactionID:        t.TransactionID,
		TransactionCode:      t.TransactionCode,
		InvoiceID:            t.InvoiceID,
		Method:               string(t.Method),
		Status:               string(t.Status),
		Amount:               t.Amount,
		CurrencyCode:         t.CurrencyCode,
		TransactionDate:      t.TransactionDate,
		GatewayTransactionID: t.GatewayTransactionID,
		CardLast4:            t.CardLast4,
		CardType:             t.CardType,
		QRCode:               t.QRCode,
		ErrorMessage:         t.ErrorMessage,
		Notes:                t.Notes,
		ReconciliationDate:   t.ReconciliationDate,
		ReconciliationStatus: t.ReconciliationStatus,
	}
}

// ToPaymentResponses converts a slice of domain ledger rows.
func ToPaymentResponses(ts []domain.PaymentTransaction) []PaymentResponse {
	responses := make([]PaymentResponse, len(ts))
	for i, t := range ts {
		responses[i] = ToPaymentResponse(&t)
	}
	return responses
}

// ToProcessPaymentResponse composes the charge reply from the persisted row
// and the live gateway result. Presence-checked field copies only.
func ToProcessPaymentResponse(t *domain.PaymentTransaction, result *gateways.Result) ProcessPaymentResponse {
	resp := ProcessPaymentResponse{
		TransactionID:   t.TransactionID,
		TransactionCode: t.TransactionCode,
		InvoiceID:       t.InvoiceID,
		Method:          string(t.Method),
		Status:          string(t.Status),
		Amount:          t.Amount,
		ErrorMessage:    t.ErrorMessage,
	}
	if result != nil {
		resp.QRCode = result.QRCode
		resp.PaymentURL = result.PaymentURL
		resp.RedirectURL = result.RedirectURL
		resp.RequiresConfirmation = result.RequiresConfirmation
	}
	return resp
}

// ToSettlementResponse converts a domain settlement view.
func ToSettlementResponse(s *domain.InvoiceSettlement) SettlementResponse {
	return SettlementResponse{
		InvoiceID:   s.InvoiceID,
		TotalOwed:   s.TotalOwed,
		NetSettled:  s.NetSettled,
		Outstanding: s.Outstanding,
	}
}
