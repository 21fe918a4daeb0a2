package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CheckoutLock serializes checkouts of one user, and captures of one gateway order,
// across instances.
type CheckoutLock struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCheckoutLock(redisClient *redis.Client, cfg infrastructures.PaymentConfig) *CheckoutLock {
	return &CheckoutLock{
		redis: redisClient,
		ttl:   cfg.CheckoutLockTTL,
	}
}

func checkoutLockKey(userID uuid.UUID) string {
	return fmt.Sprintf("checkout:lock:user:%s", userID)
}

func captureLockKey(orderID string) string {
	return "payment:capture:" + orderID
}

// Acquire takes the user's lock or fails with CHECKOUT_IN_PROGRESS. The returned
// release func is safe to call after the lock expired.
func (l *CheckoutLock) Acquire(ctx context.Context, userID uuid.UUID) (func(), error) {
	return l.acquire(ctx, checkoutLockKey(userID))
}

// AcquireWait retries Acquire until it succeeds, ctx ends, or maxRetries is spent.
// Settlements of money that was already captured use it instead of failing fast.
func (l *CheckoutLock) AcquireWait(ctx context.Context, userID uuid.UUID, retryInterval time.Duration, maxRetries int) (func(), error) {
	return l.wait(ctx, checkoutLockKey(userID), retryInterval, maxRetries)
}

// AcquireCaptureWait serializes capture and settlement of one gateway order.
func (l *CheckoutLock) AcquireCaptureWait(ctx context.Context, orderID string, retryInterval time.Duration, maxRetries int) (func(), error) {
	return l.wait(ctx, captureLockKey(orderID), retryInterval, maxRetries)
}

func (l *CheckoutLock) acquire(ctx context.Context, key string) (func(), error) {
	token := uuid.NewString()

	ok, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to acquire checkout lock")
	}
	if !ok {
		return nil, errors.NewConflictError(errors.CodeCheckoutInProgress, "Another checkout is in progress")
	}

	return func() {
		if err := releaseScript.Run(context.Background(), l.redis, []string{key}, token).Err(); err != nil {
			logrus.WithError(err).WithField("key", key).Warn("failed to release checkout lock")
		}
	}, nil
}

func (l *CheckoutLock) wait(ctx context.Context, key string, retryInterval time.Duration, maxRetries int) (func(), error) {
	for i := 0; ; i++ {
		release, err := l.acquire(ctx, key)
		if err == nil || !errors.IsCode(err, errors.CodeCheckoutInProgress) || i >= maxRetries {
			return release, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryInterval):
		}
	}
}
