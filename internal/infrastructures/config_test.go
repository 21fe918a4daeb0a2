package infrastructures

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestCheckoutConfigDefaults(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "")
	t.Setenv("SUBSCRIPTION_FREE_DELIVERY_THRESHOLD", "")
	t.Setenv("LOYALTY_POINT_VALUE", "")

	cfg := NewCheckoutConfig()

	assert.True(t, cfg.DeliveryFee.Equal(decimal.NewFromInt(8)))
	assert.True(t, cfg.FreeDeliveryThreshold.Equal(decimal.NewFromInt(150)))
	assert.True(t, cfg.SubscriptionPrice.Equal(decimal.NewFromInt(40)))
	assert.True(t, cfg.LoyaltyPointValue.Equal(decimal.RequireFromString("0.01")))
	assert.False(t, cfg.AllowPublicVouchers)
}

func TestCheckoutConfigOverrides(t *testing.T) {
	t.Setenv("DELIVERY_FEE", "5.555")
	t.Setenv("ALLOW_PUBLIC_VOUCHERS", "true")
	t.Setenv("LOYALTY_POINT_VALUE", "-1")

	cfg := NewCheckoutConfig()

	assert.True(t, cfg.DeliveryFee.Equal(decimal.RequireFromString("5.56")))
	assert.True(t, cfg.AllowPublicVouchers)
	assert.True(t, cfg.LoyaltyPointValue.Equal(decimal.RequireFromString("0.01")))
}

func TestPaymentAndKafkaConfig(t *testing.T) {
	t.Setenv("NETS_POLL_INTERVAL", "2s")
	t.Setenv("NETS_MAX_POLLS", "")
	t.Setenv("KAFKA_BROKERS", " kafka-1:9092, ,kafka-2:9092")

	payment := NewPaymentConfig()
	kafka := NewKafkaConfig()

	assert.Equal(t, 2*time.Second, payment.PollInterval)
	assert.Equal(t, 60, payment.MaxPolls)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, kafka.Brokers)
	assert.Equal(t, "checkout-events", kafka.Topic)
}

func TestConfigureLogger(t *testing.T) {
	level, formatter := logrus.GetLevel(), logrus.StandardLogger().Formatter
	t.Cleanup(func() {
		logrus.SetLevel(level)
		logrus.SetFormatter(formatter)
	})

	ConfigureLogger("debug", "text")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogger("loud", "yaml")
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)

	ConfigureLogger("", "json")
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)
}
