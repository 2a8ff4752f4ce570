package mapping

import (
	"github.com/openretail/pos_backoffice/internal/core/domain"
	"github.com/openretail/pos_backoffice/internal/models"
)

// ToModelPayment converts a domain ledger row to its database shape.
func ToModelPayment(t domain.PaymentTransaction) models.PaymentTransaction {
	return models.PaymentTransaction{
		TransactionID:        t.TransactionID,
		TransactionCode:      t.TransactionCode,
		InvoiceID:            t.InvoiceID,
		Method:               models.PaymentMethod(t.Method),
		Status:               models.PaymentStatus(t.Status),
		Amount:               t.Amount,
		CurrencyCode:         t.CurrencyCode,
		TransactionDate:      t.TransactionDate,
		GatewayTransactionID: t.GatewayTransactionID,
		GatewayResponse:      t.GatewayResponse,
		CardLast4:            t.CardLast4,
		CardType:             t.CardType,
		QRCode:               t.QRCode,
		ErrorMessage:         t.ErrorMessage,
		Notes:                t.Notes,
		ReconciliationDate:   t.ReconciliationDate,
		ReconciliationStatus: t.ReconciliationStatus,
		AuditFields: models.AuditFields{
			CreatedAt:     t.CreatedAt,
			CreatedBy:     t.CreatedBy,
			LastUpdatedAt: t.LastUpdatedAt,
			LastUpdatedBy: t.LastUpdatedBy,
		},
	}
}

// ToDomainPayment converts a database row to its domain shape.
func ToDomainPayment(m models.PaymentTransaction) domain.PaymentTransaction {
	return domain.PaymentTransaction{
		TransactionID:        m.TransactionID,
		TransactionCode:      m.TransactionCode,
		InvoiceID:            m.InvoiceID,
		Method:               domain.PaymentMethod(m.Method),
		Status:               domain.PaymentStatus(m.Status),
		Amount:               m.Amount,
		CurrencyCode:         m.CurrencyCode,
		TransactionDate:      m.TransactionDate,
		GatewayTransactionID: m.GatewayTransactionID,
		GatewayResponse:      m.GatewayResponse,
		CardLast4:            m.CardLast4,
		CardType:             m.CardType,
		QRCode:               m.QRCode,
		ErrorMessage:         m.ErrorMessage,
		Notes:                m.Notes,
		ReconciliationDate:   m.ReconciliationDate,
		ReconciliationStatus: m.ReconciliationStatus,
		AuditFields: domain.AuditFields{
			CreatedAt:     m.CreatedAt,
			CreatedBy:     m.CreatedBy,
			LastUpdatedAt: m.LastUpdatedAt,
			LastUpdatedBy: m.LastUpdatedBy,
		},
	}
}

// ToDomainPaymentSlice converts a slice of database rows to domain shapes.
func ToDomainPaymentSlice(ms []models.PaymentTransaction) []domain.PaymentTransaction {
	ts := make([]domain.PaymentTransaction, len(ms))
	for i, m := range ms {
		ts[i] = ToDomainPayment(m)
	}
	return ts
}

// ToDomainInvoice converts a database invoice row to its domain shape.
func ToDomainInvoice(m models.Invoice) domain.Invoice {
	return domain.Invoice{
		InvoiceID:    m.InvoiceID,
		TotalOwed:    m.TotalOwed,
		CurrencyCode: m.CurrencyCode,
	}
}

// ToModelAuditLog converts a domain audit record to its database shape.
func ToModelAuditLog(a domain.AuditLog) models.AuditLog {
	return models.AuditLog{
		AuditID:    a.AuditID,
		EntityName: a.EntityName,
		EntityID:   a.EntityID,
		Action:     a.Action,
		Actor:      a.Actor,
		OldValue:   a.OldValue,
		NewValue:   a.NewValue,
		RecordedAt: a.RecordedAt,
	}
}
