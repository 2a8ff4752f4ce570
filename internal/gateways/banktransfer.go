package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
	"github.com/openretail/pos_backoffice/internal/utils"
)

// bankTransferGateway records transfers that settle outside the system. The
// row stays PENDING_RECONCILIATION until an operator matches it against a
// bank statement through the reconcile operation.
type bankTransferGateway struct{}

// NewBankTransferGateway creates the bank transfer gateway.
func NewBankTransferGateway() PaymentGateway {
	return &bankTransferGateway{}
}

var _ PaymentGateway = (*bankTransferGateway)(nil)

func (g *bankTransferGateway) Supports(method domain.PaymentMethod) bool {
	return method == domain.MethodBankTransfer
}

func (g *bankTransferGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	reference := req.BankReference
	if reference == "" {
		reference = fmt.Sprintf("BT-%s", utils.RandomHex(8))
	}
	raw, _ := json.Marshal(map[string]string{
		"transferReference": reference,
		"amount":            req.Amount.String(),
		"recordedAt":        time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status:               domain.StatusPendingReconciliation,
		GatewayTransactionID: reference,
		Raw:                  string(raw),
	}, nil
}

func (g *bankTransferGateway) Verify(ctx context.Context, gatewayTransactionID string) (*Result, error) {
	// There is no bank API to query; confirmation comes from manual
	// statement matching via reconciliation.
	return &Result{
		Status:               domain.StatusPendingReconciliation,
		GatewayTransactionID: gatewayTransactionID,
	}, nil
}

func (g *bankTransferGateway) Refund(ctx context.Context, gatewayTransactionID string, amount decimal.Decimal) (*Result, error) {
	// An outbound transfer has to be issued manually; the refund row waits
	// for statement matching like the original transfer did.
	reference := fmt.Sprintf("BTRF-%s", utils.RandomHex(8))
	raw, _ := json.Marshal(map[string]string{
		"originalReference": gatewayTransactionID,
		"refundReference":   reference,
		"amount":            amount.String(),
		"recordedAt":        time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status:               domain.StatusPendingReconciliation,
		GatewayTransactionID: reference,
		Raw:                  string(raw),
	}, nil
}
