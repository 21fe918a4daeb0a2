package infrastructures

import (
	"net/http"
	"time"
)

type PaypalConfig struct {
	ClientID string
	Secret   string
	Currency string
	BaseURL  string // PayPal REST base URL
}

type PaypalClient struct {
	HTTPClient *http.Client
	Config     PaypalConfig
}

// NewPaypalConfig creates PaypalConfig from environment variables
func NewPaypalConfig() PaypalConfig {
	return PaypalConfig{
		ClientID: getEnv("PAYPAL_CLIENT_ID", ""),
		Secret:   getEnv("PAYPAL_SECRET", ""),
		Currency: getEnv("PAYPAL_CURRENCY", "SGD"),
		BaseURL:  getEnv("PAYPAL_BASE_URL", "https://api-m.sandbox.paypal.com"),
	}
}

func ProvidePaypalConfig() PaypalConfig {
	return Config.Paypal
}

// NewPaypalClient creates a new PayPal HTTP client with configuration
func NewPaypalClient(config PaypalConfig) *PaypalClient {
	return &PaypalClient{
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Config: config,
	}
}

func (c *PaypalClient) Configured() bool {
	return c.Config.ClientID != "" && c.Config.Secret != ""
}
