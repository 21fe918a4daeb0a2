package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/app/pkg"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv wires the services against in-memory sqlite and miniredis.
type testEnv struct {
	db      *gorm.DB
	mini    *miniredis.Miniredis
	redis   *redis.Client
	now     time.Time
	cfg     infrastructures.CheckoutConfig
	payCfg  infrastructures.PaymentConfig
	metrics *infrastructures.Metrics

	audit        *AuditService
	outbox       *OutboxService
	catalog      *CatalogService
	cart         *CartService
	voucher      *VoucherService
	discount     *DiscountService
	pricing      *PricingService
	wallet       *WalletService
	subscription *SubscriptionService
	loyalty      *LoyaltyService
	references   *PaymentReferenceService
	lock         *CheckoutLock
	pending      *PendingPaymentStore
	checkout     *CheckoutService
	topUp        *TopUpService
	receipt      *ReceiptService

	paypalGateway *fakePaypalGateway
	netsGateway   *fakeNetsGateway
	paypal        *PaypalService
	nets          *NetsService
	reconciler    *ReconcilerService
}

type envOption func(*testEnv)

func withPublicVouchers() envOption {
	return func(e *testEnv) { e.cfg.AllowPublicVouchers = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, infrastructures.Migrate(db))
	t.Cleanup(func() { sqlDB.Close() })

	mini := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	env := &testEnv{
		db:    db,
		mini:  mini,
		redis: redisClient,
		now:   time.Now().UTC().Truncate(time.Second),
		cfg: infrastructures.CheckoutConfig{
			DeliveryFee:           decimal.NewFromInt(8),
			FreeDeliveryThreshold: decimal.NewFromInt(150),
			SubscriptionPrice:     decimal.NewFromInt(40),
			SubscriptionPeriod:    30 * 24 * time.Hour,
			LoyaltyPointValue:     decimal.RequireFromString("0.01"),
		},
		payCfg: infrastructures.PaymentConfig{
			PollInterval:      5 * time.Millisecond,
			MaxPolls:          3,
			PendingPaymentTTL: 30 * time.Minute,
			CheckoutLockTTL:   30 * time.Second,
		},
		metrics:       infrastructures.NewMetrics(),
		paypalGateway: newFakePaypalGateway(),
		netsGateway:   &fakeNetsGateway{},
	}
	for _, opt := range opts {
		opt(env)
	}

	clock := pkg.FixedClock(env.now)
	validator := infrastructures.NewValidator()
	kafkaCfg := infrastructures.KafkaConfig{Topic: "checkout-events", BatchSize: 10, MaxRetry: 2}

	env.audit = NewAuditService(db)
	env.outbox = NewOutboxService(db, kafkaCfg)
	env.catalog = NewCatalogService(db, validator)
	env.cart = NewCartService(db, validator)
	env.voucher = NewVoucherService(db, validator, env.audit)
	env.discount = NewDiscountService(env.voucher, env.cfg, clock)
	env.wallet = NewWalletService(db, env.outbox)
	env.subscription = NewSubscriptionService(db, env.wallet, env.voucher, env.audit, env.cfg, clock)
	env.pricing = NewPricingService(env.subscription, env.cfg)
	env.loyalty = NewLoyaltyService(db, env.voucher, env.cfg)
	env.references = NewPaymentReferenceService(db)
	env.lock = NewCheckoutLock(redisClient, env.payCfg)
	env.pending = NewPendingPaymentStore(redisClient, env.payCfg)
	env.checkout = NewCheckoutService(db, env.cart, env.catalog, env.voucher, env.discount, env.pricing,
		env.wallet, env.subscription, env.loyalty, env.references, env.outbox, env.audit, env.lock, env.metrics)
	env.topUp = NewTopUpService(db, env.wallet, env.references, env.metrics)
	env.receipt = NewReceiptService(db, validator, env.wallet, env.outbox, env.audit, clock)
	env.paypal = NewPaypalService(env.paypalGateway, env.pending, env.references, env.checkout, env.topUp, env.lock, clock)
	env.reconciler = NewReconcilerService(db, env.netsGateway, env.pending, env.references, env.checkout, env.topUp, env.metrics, env.payCfg)
	env.nets = NewNetsService(env.netsGateway, env.reconciler, env.checkout, clock)

	return env
}

func money(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func intPtr(v int) *int {
	return &v
}

func (e *testEnv) seedProduct(t *testing.T, price string, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: fmt.Sprintf("Product %s", price), Price: money(price), Stock: stock}
	require.NoError(t, e.db.Create(product).Error)
	return product
}

func (e *testEnv) addToCart(t *testing.T, userID uuid.UUID, product *models.Product, quantity int) {
	t.Helper()
	_, err := e.cart.AddItem(context.Background(), userID, &models.CartItemRequest{ProductID: product.ID, Quantity: quantity})
	require.NoError(t, err)
}

// seedVoucher stores an active voucher; callers override terms through mutate.
func (e *testEnv) seedVoucher(t *testing.T, code string, mutate func(v *models.Voucher)) *models.Voucher {
	t.Helper()
	voucher := &models.Voucher{
		Code:          code,
		DiscountType:  models.DiscountTypeFixed,
		DiscountValue: money("5"),
		Stackable:     true,
		IsActive:      true,
	}
	if mutate != nil {
		mutate(voucher)
	}
	active := voucher.IsActive
	require.NoError(t, e.db.Create(voucher).Error)
	// is_active defaults to true, so an inactive voucher needs an explicit update
	if !active {
		require.NoError(t, e.db.Model(voucher).Update("is_active", false).Error)
		voucher.IsActive = false
	}
	return voucher
}

func (e *testEnv) fund(t *testing.T, userID uuid.UUID, amount string) {
	t.Helper()
	_, err := e.wallet.Credit(context.Background(), userID, money(amount), models.LedgerMeta{Type: models.LedgerEntryTopUp, Note: "seed"})
	require.NoError(t, err)
}

func (e *testEnv) subscribe(t *testing.T, userID uuid.UUID, firstDeliveryUsed bool) {
	t.Helper()
	expiresAt := e.now.Add(e.cfg.SubscriptionPeriod)
	require.NoError(t, e.db.Create(&models.Subscription{
		UserID:            userID,
		IsActive:          true,
		FirstDeliveryUsed: firstDeliveryUsed,
		StartedAt:         &e.now,
		ExpiresAt:         &expiresAt,
	}).Error)
}

func (e *testEnv) balance(t *testing.T, userID uuid.UUID) decimal.Decimal {
	t.Helper()
	balance, err := e.wallet.GetBalance(context.Background(), userID)
	require.NoError(t, err)
	return balance
}

func (e *testEnv) count(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

type fakePaypalGateway struct {
	mu            sync.Mutex
	next          int
	captureStatus string
	createErr     error
	captures      int
	captured      map[string]bool
}

func newFakePaypalGateway() *fakePaypalGateway {
	return &fakePaypalGateway{captureStatus: models.PaypalStatusCompleted, captured: map[string]bool{}}
}

func (g *fakePaypalGateway) CreateOrder(ctx context.Context, amount decimal.Decimal) (*models.PaypalOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.next++
	return &models.PaypalOrder{ID: fmt.Sprintf("ORDER-%d", g.next), Status: "CREATED"}, nil
}

func (g *fakePaypalGateway) CaptureOrder(ctx context.Context, orderID string) (*models.PaypalOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.captures++
	// like PayPal, a completed order cannot be captured twice
	if g.captured[orderID] {
		return nil, errors.NewGatewayError(fmt.Errorf("ORDER_ALREADY_CAPTURED"), "PayPal request failed")
	}
	if g.captureStatus == models.PaypalStatusCompleted {
		g.captured[orderID] = true
	}
	return &models.PaypalOrder{ID: orderID, Status: g.captureStatus}, nil
}

// fakeNetsGateway answers status queries from a script; the last entry repeats.
type fakeNetsGateway struct {
	mu       sync.Mutex
	qr       *models.NetsQRData
	statuses []netsReply
	queries  int
	timedOut []bool
}

type netsReply struct {
	status models.NetsStatus
	err    error
}

func pendingReply() netsReply {
	return netsReply{status: models.NetsStatus{ResponseCode: "09", TxnStatus: 0}}
}

func paidReply() netsReply {
	return netsReply{status: models.NetsStatus{ResponseCode: models.NetsResponseSuccess, TxnStatus: models.NetsTxnStatusSuccess}}
}

func (g *fakeNetsGateway) script(replies ...netsReply) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statuses = replies
}

func (g *fakeNetsGateway) RequestQR(ctx context.Context, amount decimal.Decimal) (*models.NetsQRData, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.qr != nil {
		qr := *g.qr
		return &qr, nil
	}
	return &models.NetsQRData{
		ResponseCode:    models.NetsResponseSuccess,
		TxnStatus:       models.NetsTxnStatusSuccess,
		QRCode:          "BASE64QR",
		TxnRetrievalRef: "NETS-" + uuid.NewString(),
	}, nil
}

func (g *fakeNetsGateway) QueryStatus(ctx context.Context, reference string, timedOut bool) (*models.NetsStatus, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.timedOut = append(g.timedOut, timedOut)
	reply := pendingReply()
	if len(g.statuses) > 0 {
		idx := g.queries
		if idx >= len(g.statuses) {
			idx = len(g.statuses) - 1
		}
		reply = g.statuses[idx]
	}
	g.queries++
	if reply.err != nil {
		return nil, reply.err
	}
	status := reply.status
	return &status, nil
}
