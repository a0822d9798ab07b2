// Package gateway abstracts the external card-charge provider. Two
// implementations exist: the real Culqi HTTP client and a simulated
// gateway for demo deployments. The choice is made once at startup.
package gateway

import "context"

// CardDetails carries raw card data for a charge attempt. It is exchanged
// for an opaque token at the gateway and never persisted.
type CardDetails struct {
	Number   string
	CVV      string
	ExpMonth string
	ExpYear  string
}

// ChargeResult is the gateway's authoritative view of a charge.
type ChargeResult struct {
	ChargeID   string
	Success    bool
	Message    string
	CardNumber string // masked
	CardBrand  string
}

// PaymentGateway authorizes and captures card payments. A returned error
// means the outcome is unknown (transport failure, non-2xx); an explicit
// decline comes back as a ChargeResult with Success=false.
type PaymentGateway interface {
	// CreateCharge exchanges the card for a token and charges it.
	// Amount is in minor currency units (cents).
	CreateCharge(ctx context.Context, card CardDetails, amountMinor int64, currency, email, description string, metadata map[string]string) (*ChargeResult, error)

	// GetCharge re-queries an existing charge by its gateway ID.
	GetCharge(ctx context.Context, chargeID string) (*ChargeResult, error)
}

// MaskCard reduces a card number to its last four digits in the form
// "****-****-****-1234".
func MaskCard(number string) string {
	if len(number) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + number[len(number)-4:]
}
