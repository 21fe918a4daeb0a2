package infrastructures

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/shopspring/decimal"
)

type AppConfig struct {
	APP_PORT         string
	DATABASE_URL     string
	CONNECT_BASE_URL string
	WEBHOOK_TOKEN    string

	Redis    RedisConfig
	Checkout CheckoutConfig
	Payment  PaymentConfig
	Paypal   PaypalConfig
	Nets     NetsConfig
	Kafka    KafkaConfig
}

// CheckoutConfig holds pricing and benefit policy.
type CheckoutConfig struct {
	DeliveryFee           decimal.Decimal
	FreeDeliveryThreshold decimal.Decimal
	SubscriptionPrice     decimal.Decimal
	SubscriptionPeriod    time.Duration
	LoyaltyPointValue     decimal.Decimal
	AllowPublicVouchers   bool
}

// PaymentConfig holds reconciliation timing for external payments.
type PaymentConfig struct {
	PollInterval      time.Duration
	MaxPolls          int
	PendingPaymentTTL time.Duration
	CheckoutLockTTL   time.Duration
}

type KafkaConfig struct {
	Brokers       []string
	Topic         string
	RelayInterval time.Duration
	BatchSize     int
	MaxRetry      int
}

var Config *AppConfig

func LoadConfig() *AppConfig {
	godotenv.Load()
	ConfigureLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))

	Config = &AppConfig{
		APP_PORT:         getEnv("APP_PORT", "8080"),
		DATABASE_URL:     os.Getenv("DATABASE_URL"),
		CONNECT_BASE_URL: os.Getenv("CONNECT_BASE_URL"),
		WEBHOOK_TOKEN:    os.Getenv("WEBHOOK_TOKEN"),
		Redis:            NewRedisConfig(),
		Checkout:         NewCheckoutConfig(),
		Payment:          NewPaymentConfig(),
		Paypal:           NewPaypalConfig(),
		Nets:             NewNetsConfig(),
		Kafka:            NewKafkaConfig(),
	}

	return Config
}

func NewCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		DeliveryFee:           pkg.ParseMoney(os.Getenv("DELIVERY_FEE"), decimal.NewFromInt(8)),
		FreeDeliveryThreshold: pkg.ParseMoney(os.Getenv("SUBSCRIPTION_FREE_DELIVERY_THRESHOLD"), decimal.NewFromInt(150)),
		SubscriptionPrice:     pkg.ParseMoney(os.Getenv("SUBSCRIPTION_PRICE"), decimal.NewFromInt(40)),
		SubscriptionPeriod:    time.Duration(getEnvInt("SUBSCRIPTION_PERIOD_DAYS", 30)) * 24 * time.Hour,
		LoyaltyPointValue:     getEnvDecimal("LOYALTY_POINT_VALUE", decimal.RequireFromString("0.01")),
		AllowPublicVouchers:   getEnvBool("ALLOW_PUBLIC_VOUCHERS", false),
	}
}

func NewPaymentConfig() PaymentConfig {
	return PaymentConfig{
		PollInterval:      getEnvDuration("NETS_POLL_INTERVAL", 5*time.Second),
		MaxPolls:          getEnvInt("NETS_MAX_POLLS", 60),
		PendingPaymentTTL: getEnvDuration("PENDING_PAYMENT_TTL", 30*time.Minute),
		CheckoutLockTTL:   getEnvDuration("CHECKOUT_LOCK_TTL", 30*time.Second),
	}
}

func NewKafkaConfig() KafkaConfig {
	var brokers []string
	for _, broker := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			brokers = append(brokers, broker)
		}
	}

	return KafkaConfig{
		Brokers:       brokers,
		Topic:         getEnv("KAFKA_TOPIC", "checkout-events"),
		RelayInterval: getEnvDuration("OUTBOX_INTERVAL", time.Second),
		BatchSize:     getEnvInt("OUTBOX_BATCH_SIZE", 100),
		MaxRetry:      getEnvInt("OUTBOX_MAX_RETRY", 5),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) decimal.Decimal {
	value, err := decimal.NewFromString(os.Getenv(key))
	if err != nil || !value.IsPositive() {
		return defaultValue
	}
	return value
}

func ProvideCheckoutConfig() CheckoutConfig {
	return Config.Checkout
}

func ProvidePaymentConfig() PaymentConfig {
	return Config.Payment
}
