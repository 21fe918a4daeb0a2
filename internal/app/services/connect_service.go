package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
)

// ConnectService resolves bearer tokens against the Connect identity service.
type ConnectService struct {
	baseURL    string
	httpClient *http.Client
}

func NewConnectService() *ConnectService {
	return NewConnectServiceWithURL(infrastructures.Config.CONNECT_BASE_URL)
}

func NewConnectServiceWithURL(baseURL string) *ConnectService {
	return &ConnectService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *ConnectService) GetCurrentUser(ctx context.Context, accessToken string) (*models.ConnectUser, error) {
	if accessToken == "" {
		return nil, errors.NewUnauthorizedError("Access token is required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/users/me", nil)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to create HTTP request")
	}

	// Check if accessToken is Bearer token
	if strings.HasPrefix(accessToken, "Bearer ") {
		req.Header.Set("Authorization", accessToken)
	} else {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	return s.fetchUser(req)
}

func (s *ConnectService) fetchUser(req *http.Request) (*models.ConnectUser, error) {
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewGatewayError(err, "Failed to reach Connect")
	}
	defer resp.Body.Close()

	var webResponse models.WebResponse[models.ConnectUser]
	err = json.NewDecoder(resp.Body).Decode(&webResponse)
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to decode response body")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewAppError(resp.StatusCode, webResponse.Message)
	}

	return &webResponse.Data, nil
}
