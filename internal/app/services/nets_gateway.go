package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
)

// NetsGateway requests NETS QR challenges and queries their status.
type NetsGateway interface {
	RequestQR(ctx context.Context, amount decimal.Decimal) (*models.NetsQRData, error)
	QueryStatus(ctx context.Context, reference string, timedOut bool) (*models.NetsStatus, error)
}

type NetsAPI struct {
	client *infrastructures.NetsClient
}

func NewNetsAPI(client *infrastructures.NetsClient) *NetsAPI {
	return &NetsAPI{client: client}
}

func (g *NetsAPI) RequestQR(ctx context.Context, amount decimal.Decimal) (*models.NetsQRData, error) {
	body := models.NetsQRRequestBody{
		TxnID:         fmt.Sprintf("sandbox_nets|m|%s", uuid.NewString()),
		AmountDollars: amount.StringFixed(2),
		NotifyMobile:  0,
	}

	var resp models.NetsQRResponse
	if err := g.makeNetsRequest(ctx, "/request", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Result.Data, nil
}

// QueryStatus asks for the transaction state. timedOut tells NETS the client gave up waiting.
func (g *NetsAPI) QueryStatus(ctx context.Context, reference string, timedOut bool) (*models.NetsStatus, error) {
	body := models.NetsQueryBody{TxnRetrievalRef: reference}
	if timedOut {
		body.FrontendTimeoutStatus = 1
	}

	var resp models.NetsQueryResponse
	if err := g.makeNetsRequest(ctx, "/query", body, &resp); err != nil {
		return nil, err
	}
	return &resp.Result.Data, nil
}

func (g *NetsAPI) makeNetsRequest(ctx context.Context, endpoint string, body, out interface{}) error {
	if !g.client.Configured() {
		return errors.NewAppError(http.StatusServiceUnavailable, "NETS is not configured")
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to marshal request body")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.client.GetFullURL(endpoint), bytes.NewBuffer(jsonBody))
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to create HTTP request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", g.client.Config.APIKey)
	req.Header.Set("project-id", g.client.Config.ProjectID)

	resp, err := g.client.HTTPClient.Do(req)
	if err != nil {
		return errors.NewGatewayError(err, "Failed to reach NETS")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewGatewayError(err, "Failed to read NETS response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.NewGatewayError(fmt.Errorf("nets API error: %s", string(respBody)), "NETS request failed")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.NewGatewayError(err, "Failed to parse NETS response")
	}
	return nil
}
