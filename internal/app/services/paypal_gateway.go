package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
)

// PaypalGateway creates and captures PayPal orders.
type PaypalGateway interface {
	CreateOrder(ctx context.Context, amount decimal.Decimal) (*models.PaypalOrder, error)
	CaptureOrder(ctx context.Context, orderID string) (*models.PaypalOrder, error)
}

type PaypalAPI struct {
	client *infrastructures.PaypalClient
}

func NewPaypalAPI(client *infrastructures.PaypalClient) *PaypalAPI {
	return &PaypalAPI{client: client}
}

// CreateOrder opens a CAPTURE intent order for amount in the configured currency.
func (g *PaypalAPI) CreateOrder(ctx context.Context, amount decimal.Decimal) (*models.PaypalOrder, error) {
	body := models.PaypalCreateOrderBody{
		Intent: "CAPTURE",
		PurchaseUnits: []models.PaypalPurchaseUnit{{
			Amount: models.PaypalAmount{
				CurrencyCode: g.client.Config.Currency,
				Value:        amount.StringFixed(2),
			},
		}},
	}

	var order models.PaypalOrder
	if err := g.makePaypalRequest(ctx, http.MethodPost, "/v2/checkout/orders", body, &order); err != nil {
		return nil, err
	}
	if order.ID == "" {
		return nil, errors.NewGatewayError(nil, "PayPal did not return an order ID")
	}
	return &order, nil
}

func (g *PaypalAPI) CaptureOrder(ctx context.Context, orderID string) (*models.PaypalOrder, error) {
	var order models.PaypalOrder
	endpoint := fmt.Sprintf("/v2/checkout/orders/%s/capture", url.PathEscape(orderID))
	if err := g.makePaypalRequest(ctx, http.MethodPost, endpoint, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (g *PaypalAPI) accessToken(ctx context.Context) (string, error) {
	if !g.client.Configured() {
		return "", errors.NewAppError(http.StatusServiceUnavailable, "PayPal is not configured")
	}

	form := strings.NewReader("grant_type=client_credentials")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.client.Config.BaseURL+"/v1/oauth2/token", form)
	if err != nil {
		return "", errors.NewInternalServerError(err, "Failed to create HTTP request")
	}
	req.SetBasicAuth(g.client.Config.ClientID, g.client.Config.Secret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.HTTPClient.Do(req)
	if err != nil {
		return "", errors.NewGatewayError(err, "Failed to reach PayPal")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", errors.NewGatewayError(fmt.Errorf("paypal oauth error: %s", string(respBody)), "PayPal authentication failed")
	}

	var token models.PaypalTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", errors.NewGatewayError(err, "Failed to parse PayPal token")
	}
	return token.AccessToken, nil
}

func (g *PaypalAPI) makePaypalRequest(ctx context.Context, method, endpoint string, body, out interface{}) error {
	token, err := g.accessToken(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return errors.NewInternalServerError(err, "Failed to marshal request body")
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.client.Config.BaseURL+endpoint, reqBody)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := g.client.HTTPClient.Do(req)
	if err != nil {
		return errors.NewGatewayError(err, "Failed to reach PayPal")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewGatewayError(err, "Failed to read PayPal response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewGatewayError(fmt.Errorf("paypal API error: %s", string(respBody)), "PayPal request failed")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewGatewayError(err, "Failed to parse PayPal response")
	}
	return nil
}
