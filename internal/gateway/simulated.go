package gateway

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// SimulatedGateway approves every charge without leaving the process.
// It remembers the charges it issued so GetCharge can answer sweep and
// verify calls consistently.
type SimulatedGateway struct {
	mu      sync.Mutex
	charges map[string]*ChargeResult
}

// NewSimulatedGateway creates the demo gateway.
func NewSimulatedGateway() *SimulatedGateway {
	return &SimulatedGateway{charges: make(map[string]*ChargeResult)}
}

// CreateCharge always succeeds with a synthesized charge ID.
func (g *SimulatedGateway) CreateCharge(ctx context.Context, card CardDetails, amountMinor int64, currency, email, description string, metadata map[string]string) (*ChargeResult, error) {
	result := &ChargeResult{
		ChargeID:   "demo_charge_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		Success:    true,
		Message:    "payment processed successfully (demo mode)",
		CardNumber: MaskCard(card.Number),
		CardBrand:  "VISA",
	}

	g.mu.Lock()
	g.charges[result.ChargeID] = result
	g.mu.Unlock()

	log.Printf("[GATEWAY] demo charge created: id=%s amount=%d %s", result.ChargeID, amountMinor, currency)
	return result, nil
}

// GetCharge returns a previously issued demo charge, or a generic success
// for charge IDs created before a restart.
func (g *SimulatedGateway) GetCharge(ctx context.Context, chargeID string) (*ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if result, ok := g.charges[chargeID]; ok {
		return result, nil
	}
	return &ChargeResult{
		ChargeID: chargeID,
		Success:  true,
		Message:  "payment processed successfully (demo mode)",
	}, nil
}
