package gateway

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulatedCreateCharge_AlwaysSucceeds(t *testing.T) {
	g := NewSimulatedGateway()
	result, err := g.CreateCharge(context.Background(), testCard(), 4990, "PEN", "buyer@example.com", "order #1", nil)

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, strings.HasPrefix(result.ChargeID, "demo_charge_"), "got %s", result.ChargeID)
	assert.Len(t, result.ChargeID, len("demo_charge_")+8)
	assert.Equal(t, "****-****-****-1111", result.CardNumber)
	assert.Equal(t, "VISA", result.CardBrand)
}

func TestSimulatedCreateCharge_UniqueChargeIDs(t *testing.T) {
	g := NewSimulatedGateway()
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		result, err := g.CreateCharge(context.Background(), testCard(), 100, "PEN", "buyer@example.com", "", nil)
		require.NoError(t, err)
		assert.False(t, seen[result.ChargeID], "duplicate charge ID %s", result.ChargeID)
		seen[result.ChargeID] = true
	}
}

func TestSimulatedGetCharge_RemembersIssuedCharges(t *testing.T) {
	g := NewSimulatedGateway()
	created, err := g.CreateCharge(context.Background(), testCard(), 100, "PEN", "buyer@example.com", "", nil)
	require.NoError(t, err)

	fetched, err := g.GetCharge(context.Background(), created.ChargeID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)
}

func TestSimulatedGetCharge_UnknownIDStillSucceeds(t *testing.T) {
	g := NewSimulatedGateway()
	result, err := g.GetCharge(context.Background(), "demo_charge_deadbeef")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "demo_charge_deadbeef", result.ChargeID)
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "****-****-****-1111", MaskCard("4111111111111111"))
	assert.Equal(t, "****-****-****-0004", MaskCard("340000000000004"))
	assert.Equal(t, "****-****-****-****", MaskCard("123"))
	assert.Equal(t, "****-****-****-****", MaskCard(""))
}
