package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCard() CardDetails {
	return CardDetails{
		Number:   "4111111111111111",
		CVV:      "123",
		ExpMonth: "09",
		ExpYear:  "2027",
	}
}

func TestCulqiCreateCharge_TokenThenCharge(t *testing.T) {
	var tokenAuth, chargeAuth string
	var chargeBody map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens":
			tokenAuth = r.Header.Get("Authorization")
			json.NewEncoder(w).Encode(map[string]any{"id": "tkn_test_123"})
		case "/charges":
			chargeAuth = r.Header.Get("Authorization")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&chargeBody))
			json.NewEncoder(w).Encode(map[string]any{
				"id":      "chr_test_456",
				"success": true,
				"source": map[string]any{
					"card_number": "****-****-****-1111",
					"card_brand":  "VISA",
				},
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	g := NewCulqiGateway(server.URL, "pk_test", "sk_test", nil)
	result, err := g.CreateCharge(context.Background(), testCard(), 4990, "PEN", "buyer@example.com", "order #1", map[string]string{"order_id": "1"})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "chr_test_456", result.ChargeID)
	assert.Equal(t, "****-****-****-1111", result.CardNumber)
	assert.Equal(t, "VISA", result.CardBrand)

	// Tokens use the public key, charges the secret key.
	assert.Equal(t, "Bearer pk_test", tokenAuth)
	assert.Equal(t, "Bearer sk_test", chargeAuth)

	// Amount travels in minor units, already tokenized.
	assert.Equal(t, float64(4990), chargeBody["amount"])
	assert.Equal(t, "tkn_test_123", chargeBody["source_id"])
	assert.Equal(t, "PEN", chargeBody["currency_code"])
}

func TestCulqiCreateCharge_DeclinedCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens":
			json.NewEncoder(w).Encode(map[string]any{"id": "tkn_test_123"})
		case "/charges":
			json.NewEncoder(w).Encode(map[string]any{
				"id":              "chr_test_789",
				"success":         false,
				"failure_message": "insufficient funds",
			})
		}
	}))
	defer server.Close()

	g := NewCulqiGateway(server.URL, "pk_test", "sk_test", nil)
	result, err := g.CreateCharge(context.Background(), testCard(), 1000, "PEN", "buyer@example.com", "", nil)

	// A decline is a verdict, not a transport error.
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, "insufficient funds", result.Message)
	assert.Equal(t, "chr_test_789", result.ChargeID)
}

func TestCulqiCreateCharge_GatewayErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"merchant_message":"invalid api key"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	g := NewCulqiGateway(server.URL, "pk_bad", "sk_bad", nil)
	_, err := g.CreateCharge(context.Background(), testCard(), 1000, "PEN", "buyer@example.com", "", nil)

	require.Error(t, err)
	// The upstream body must not leak into the error.
	assert.NotContains(t, err.Error(), "invalid api key")
}

func TestCulqiCreateCharge_MissingTokenID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{})
	}))
	defer server.Close()

	g := NewCulqiGateway(server.URL, "pk_test", "sk_test", nil)
	_, err := g.CreateCharge(context.Background(), testCard(), 1000, "PEN", "buyer@example.com", "", nil)
	assert.Error(t, err)
}

func TestCulqiGetCharge(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/charges/chr_test_456", r.URL.Path)
		assert.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"id": "chr_test_456", "success": true})
	}))
	defer server.Close()

	g := NewCulqiGateway(server.URL, "pk_test", "sk_test", nil)
	result, err := g.GetCharge(context.Background(), "chr_test_456")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, "chr_test_456", result.ChargeID)
}

func TestCulqiGetCharge_TransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused

	g := NewCulqiGateway(server.URL, "pk_test", "sk_test", nil)
	_, err := g.GetCharge(context.Background(), "chr_test_456")
	assert.Error(t, err)
}
