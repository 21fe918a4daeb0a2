package services

import (
	"context"
	"encoding/json"

	"github.com/safatanc/gsalt-checkout/internal/app/errors"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"gorm.io/gorm"
)

// OutboxService stores integration events in the same transaction as the change they describe.
type OutboxService struct {
	db    *gorm.DB
	topic string
}

func NewOutboxService(db *gorm.DB, cfg infrastructures.KafkaConfig) *OutboxService {
	return &OutboxService{
		db:    db,
		topic: cfg.Topic,
	}
}

type outboxEnvelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (s *OutboxService) EnqueueTx(tx *gorm.DB, eventType, key string, data interface{}) error {
	payload, err := json.Marshal(outboxEnvelope{Type: eventType, Data: data})
	if err != nil {
		return errors.NewInternalServerError(err, "Failed to encode outbox event")
	}

	message := &models.OutboxMessage{
		MessageKey: key,
		Topic:      s.topic,
		EventType:  eventType,
		Payload:    string(payload),
		Status:     models.OutboxStatusPending,
	}
	if err := tx.Create(message).Error; err != nil {
		return errors.NewInternalServerError(err, "Failed to enqueue outbox event")
	}

	return nil
}

func (s *OutboxService) PendingBatch(ctx context.Context, limit int) ([]models.OutboxMessage, error) {
	var messages []models.OutboxMessage
	err := s.db.WithContext(ctx).
		Where("status = ?", models.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (s *OutboxService) MarkSent(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", id).
		Update("status", models.OutboxStatusSent).Error
}

// MarkRetry bumps the retry count and fails the message once it reaches maxRetry.
func (s *OutboxService) MarkRetry(ctx context.Context, message *models.OutboxMessage, maxRetry int) (bool, error) {
	updates := map[string]interface{}{
		"retry_count": gorm.Expr("retry_count + 1"),
	}
	failed := message.RetryCount+1 >= maxRetry
	if failed {
		updates["status"] = models.OutboxStatusFailed
	}

	err := s.db.WithContext(ctx).Model(&models.OutboxMessage{}).
		Where("id = ?", message.ID).
		Updates(updates).Error
	return failed, err
}
