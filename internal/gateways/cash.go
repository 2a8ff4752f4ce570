package gateways

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// cashGateway settles immediately at the drawer. There is no backend, so
// every call synthesizes a completed result locally. The transaction code
// doubles as the gateway transaction id so the row stays reachable for
// refund and verify lookups.
type cashGateway struct{}

// NewCashGateway creates the cash drawer gateway.
func NewCashGateway() PaymentGateway {
	return &cashGateway{}
}

var _ PaymentGateway = (*cashGateway)(nil)

func (g *cashGateway) Supports(method domain.PaymentMethod) bool {
	return method == domain.MethodCash
}

func (g *cashGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	raw, _ := json.Marshal(map[string]string{
		"source":          "cash_drawer",
		"transactionCode": req.TransactionCode,
		"amount":          req.Amount.String(),
		"settledAt":       time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status:               domain.StatusCompleted,
		GatewayTransactionID: req.TransactionCode,
		Raw:                  string(raw),
	}, nil
}

func (g *cashGateway) Verify(ctx context.Context, gatewayTransactionID string) (*Result, error) {
	// Nothing to re-query; a cash payment is settled the moment it is taken.
	return &Result{Status: domain.StatusCompleted}, nil
}

func (g *cashGateway) Refund(ctx context.Context, gatewayTransactionID string, amount decimal.Decimal) (*Result, error) {
	raw, _ := json.Marshal(map[string]string{
		"source":     "cash_drawer",
		"amount":     amount.String(),
		"refundedAt": time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status: domain.StatusCompleted,
		Raw:    string(raw),
	}, nil
}
