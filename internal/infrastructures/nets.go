package infrastructures

import (
	"fmt"
	"net/http"
	"time"
)

type NetsConfig struct {
	APIKey    string
	ProjectID string
	BaseURL   string
}

type NetsClient struct {
	HTTPClient *http.Client
	Config     NetsConfig
}

func NewNetsConfig() NetsConfig {
	return NetsConfig{
		APIKey:    getEnv("NETS_API_KEY", ""),
		ProjectID: getEnv("NETS_PROJECT_ID", ""),
		BaseURL:   getEnv("NETS_BASE_URL", "https://sandbox.nets.openapipaas.com/api/v1/common/payments/nets-qr"),
	}
}

func ProvideNetsConfig() NetsConfig {
	return Config.Nets
}

// NewNetsClient creates a new NETS QR HTTP client with configuration
func NewNetsClient(config NetsConfig) *NetsClient {
	return &NetsClient{
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Config: config,
	}
}

// GetFullURL constructs the full URL for an endpoint
func (c *NetsClient) GetFullURL(endpoint string) string {
	return fmt.Sprintf("%s%s", c.Config.BaseURL, endpoint)
}

// Configured reports whether NETS credentials are present.
func (c *NetsClient) Configured() bool {
	return c.Config.APIKey != "" && c.Config.ProjectID != ""
}
