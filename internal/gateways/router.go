package gateways

import (
	"fmt"

	"github.com/openretail/pos_backoffice/internal/core/domain"
)

// Router selects the gateway for a payment method. Registration order is
// significant: the first gateway whose Supports returns true wins.
type Router struct {
	gateways []PaymentGateway
}

// NewRouter builds a router over the given gateways and validates that every
// known payment method is covered, so a routing gap is caught at startup
// instead of on the first live charge.
func NewRouter(gateways ...PaymentGateway) (*Router, error) {
	r := &Router{gateways: gateways}
	for _, method := range domain.AllPaymentMethods {
		if _, err := r.Route(method); err != nil {
			return nil, fmt.Errorf("gateway registry incomplete: %w: %s", ErrNoGatewayAvailable, method)
		}
	}
	return r, nil
}

// Route returns the first registered gateway that supports the method.
func (r *Router) Route(method domain.PaymentMethod) (PaymentGateway, error) {
	for _, gw := range r.gateways {
		if gw.Supports(method) {
			return gw, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoGatewayAvailable, method)
}
