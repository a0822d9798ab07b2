package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/yorusito/shop-backend/internal/metrics"
)

// CulqiGateway talks to the Culqi REST API. Tokens are created with the
// public key, charges with the secret key.
type CulqiGateway struct {
	baseURL   string
	publicKey string
	secretKey string
	client    *http.Client
	metrics   *metrics.AppMetrics
}

// NewCulqiGateway creates a Culqi client with a bounded request timeout.
// The caller must treat a timeout as "unknown outcome", not "declined".
func NewCulqiGateway(baseURL, publicKey, secretKey string, m *metrics.AppMetrics) *CulqiGateway {
	return &CulqiGateway{
		baseURL:   baseURL,
		publicKey: publicKey,
		secretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
		metrics:   m,
	}
}

type culqiTokenRequest struct {
	CardNumber      string `json:"card_number"`
	CVV             string `json:"cvv"`
	ExpirationMonth string `json:"expiration_month"`
	ExpirationYear  string `json:"expiration_year"`
	Email           string `json:"email"`
}

type culqiChargeRequest struct {
	Amount       int64             `json:"amount"`
	CurrencyCode string            `json:"currency_code"`
	Email        string            `json:"email"`
	SourceID     string            `json:"source_id"`
	Description  string            `json:"description"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

type culqiResponse struct {
	ID             string         `json:"id"`
	Success        *bool          `json:"success"`
	FailureMessage string         `json:"failure_message"`
	Source         map[string]any `json:"source"`
}

// CreateCharge exchanges the raw card data for a token, then charges it.
func (g *CulqiGateway) CreateCharge(ctx context.Context, card CardDetails, amountMinor int64, currency, email, description string, metadata map[string]string) (*ChargeResult, error) {
	tokenResp, err := g.createToken(ctx, card, email)
	if err != nil {
		return nil, err
	}
	if tokenResp.ID == "" {
		return nil, fmt.Errorf("gateway returned no token id")
	}

	chargeReq := culqiChargeRequest{
		Amount:       amountMinor,
		CurrencyCode: currency,
		Email:        email,
		SourceID:     tokenResp.ID,
		Description:  description,
		Metadata:     metadata,
	}

	var chargeResp culqiResponse
	if err := g.post(ctx, "/charges", g.secretKey, chargeReq, &chargeResp, "create_charge"); err != nil {
		return nil, err
	}
	return toChargeResult(&chargeResp), nil
}

// GetCharge re-queries a charge by its Culqi ID.
func (g *CulqiGateway) GetCharge(ctx context.Context, chargeID string) (*ChargeResult, error) {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"/charges/"+chargeID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)

	var culqiResp culqiResponse
	err = g.do(req, &culqiResp)
	if g.metrics != nil {
		g.metrics.RecordGatewayCall(ctx, "get_charge", start, err == nil)
	}
	if err != nil {
		return nil, err
	}
	return toChargeResult(&culqiResp), nil
}

func (g *CulqiGateway) createToken(ctx context.Context, card CardDetails, email string) (*culqiResponse, error) {
	tokenReq := culqiTokenRequest{
		CardNumber:      card.Number,
		CVV:             card.CVV,
		ExpirationMonth: card.ExpMonth,
		ExpirationYear:  card.ExpYear,
		Email:           email,
	}

	var tokenResp culqiResponse
	if err := g.post(ctx, "/tokens", g.publicKey, tokenReq, &tokenResp, "create_token"); err != nil {
		return nil, err
	}
	return &tokenResp, nil
}

func (g *CulqiGateway) post(ctx context.Context, path, apiKey string, body, out any, operation string) error {
	start := time.Now()

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode gateway request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build gateway request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("Content-Type", "application/json")

	err = g.do(req, out)
	if g.metrics != nil {
		g.metrics.RecordGatewayCall(ctx, operation, start, err == nil)
	}
	return err
}

func (g *CulqiGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Do not echo the raw payload to callers.
		log.Printf("[GATEWAY] Culqi error: status=%d body=%s", resp.StatusCode, respBody)
		return fmt.Errorf("gateway returned status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}
	return nil
}

func toChargeResult(resp *culqiResponse) *ChargeResult {
	result := &ChargeResult{
		ChargeID: resp.ID,
		Success:  resp.Success != nil && *resp.Success,
	}
	if result.Success {
		result.Message = "payment processed successfully"
	} else if resp.FailureMessage != "" {
		result.Message = resp.FailureMessage
	} else {
		result.Message = "payment rejected"
	}
	if resp.Source != nil {
		if v, ok := resp.Source["card_number"].(string); ok {
			result.CardNumber = v
		}
		if v, ok := resp.Source["card_brand"].(string); ok {
			result.CardBrand = v
		}
	}
	return result
}
