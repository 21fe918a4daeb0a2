package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
)

// PendingPaymentStore keeps initiated external payments in redis until they resolve.
type PendingPaymentStore struct {
	redis *redis.Client
	cfg   infrastructures.PaymentConfig
}

func NewPendingPaymentStore(redisClient *redis.Client, cfg infrastructures.PaymentConfig) *PendingPaymentStore {
	return &PendingPaymentStore{
		redis: redisClient,
		cfg:   cfg,
	}
}

func pendingPaymentKey(reference string) string {
	return "payment:pending:" + reference
}

func (s *PendingPaymentStore) Save(ctx context.Context, payment *models.PendingPayment) error {
	data, err := json.Marshal(payment)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to encode pending payment")
	}

	if err := s.redis.Set(ctx, pendingPaymentKey(payment.Reference), data, s.cfg.PendingPaymentTTL).Err(); err != nil {
		return errors.NewInternalServerError(err, "Failed to store pending payment")
	}
	return nil
}

// Get returns a not found error once the record expired or was removed.
func (s *PendingPaymentStore) Get(ctx context.Context, reference string) (*models.PendingPayment, error) {
	data, err := s.redis.Get(ctx, pendingPaymentKey(reference)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFoundError("Payment session expired or not found")
		}
		return nil, errors.NewInternalServerError(err, "Failed to load pending payment")
	}

	var payment models.PendingPayment
	if err := json.Unmarshal(data, &payment); err != nil {
		return nil, errors.NewInternalServerError(err, "Failed to decode pending payment")
	}
	return &payment, nil
}

// MarkCaptured records that the gateway already took the money, keeping the
// remaining TTL. A retry then settles without capturing again.
func (s *PendingPaymentStore) MarkCaptured(ctx context.Context, payment *models.PendingPayment) error {
	payment.Captured = true
	data, err := json.Marshal(payment)
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to encode pending payment")
	}

	err = s.redis.SetArgs(ctx, pendingPaymentKey(payment.Reference), data, redis.SetArgs{Mode: "XX", KeepTTL: true}).Err()
	if err == redis.Nil {
		return errors.NewNotFoundError("Payment session expired or not found")
	}
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to update pending payment")
	}
	return nil
}

func (s *PendingPaymentStore) Delete(ctx context.Context, reference string) error {
	if err := s.redis.Del(ctx, pendingPaymentKey(reference)).Err(); err != nil {
		return errors.NewInternalServerError(err, "Failed to remove pending payment")
	}
	return nil
}
