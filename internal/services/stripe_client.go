package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const stripeAPIBaseURL = "https://api.stripe.com"

// ChargeCreator is the payment-processing collaborator used by the payment
// handlers.
type ChargeCreator interface {
	CreateCharge(ctx context.Context, amountCents int64, currency, description, source string) (string, error)
}

// StripeClient creates charges against the Stripe HTTP API.
type StripeClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewStripeClient(secretKey string) *StripeClient {
	return &StripeClient{
		baseURL:    stripeAPIBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *StripeClient) SetHTTPClient(hc *http.Client) {
	if hc != nil {
		c.httpClient = hc
	}
}

func (c *StripeClient) SetBaseURL(baseURL string) {
	c.baseURL = strings.TrimRight(baseURL, "/")
}

type stripeCharge struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Paid   bool   `json:"paid"`
}

type stripeErrorBody struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateCharge posts a charge and returns the Stripe charge ID. Amount is in
// the currency's smallest unit, per the Stripe API.
func (c *StripeClient) CreateCharge(ctx context.Context, amountCents int64, currency, description, source string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountCents, 10))
	form.Set("currency", currency)
	form.Set("description", description)
	form.Set("source", source)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/charges", strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("stripe response read failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var stripeErr stripeErrorBody
		if err := json.Unmarshal(body, &stripeErr); err == nil && stripeErr.Error.Message != "" {
			return "", fmt.Errorf("stripe charge rejected: %s", stripeErr.Error.Message)
		}
		return "", fmt.Errorf("stripe charge failed with status %d", resp.StatusCode)
	}

	var charge stripeCharge
	if err := json.Unmarshal(body, &charge); err != nil {
		return "", fmt.Errorf("stripe response decode failed: %w", err)
	}
	if charge.ID == "" {
		return "", fmt.Errorf("stripe response missing charge id")
	}

	return charge.ID, nil
}
