package services

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/safatanc/gsalt-checkout/internal/app/models"
	"github.com/safatanc/gsalt-checkout/internal/infrastructures"
	"github.com/sirupsen/logrus"
)

// OutboxRelay publishes pending outbox rows to Kafka on a ticker.
type OutboxRelay struct {
	outbox    *OutboxService
	producer  sarama.SyncProducer
	metrics   *infrastructures.Metrics
	interval  time.Duration
	batchSize int
	maxRetry  int
}

func NewOutboxRelay(outbox *OutboxService, producer sarama.SyncProducer, metrics *infrastructures.Metrics, cfg infrastructures.KafkaConfig) *OutboxRelay {
	return &OutboxRelay{
		outbox:    outbox,
		producer:  producer,
		metrics:   metrics,
		interval:  cfg.RelayInterval,
		batchSize: cfg.BatchSize,
		maxRetry:  cfg.MaxRetry,
	}
}

func (r *OutboxRelay) Enabled() bool {
	return r.producer != nil
}

// Run blocks until ctx is cancelled.
func (r *OutboxRelay) Run(ctx context.Context) {
	if !r.Enabled() {
		return
	}
	logrus.WithField("interval", r.interval.String()).Info("outbox relay started")

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logrus.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				logrus.WithError(err).Warn("outbox relay flush failed")
			}
		}
	}
}

// Flush publishes one batch and returns how many messages were sent.
func (r *OutboxRelay) Flush(ctx context.Context) (int, error) {
	messages, err := r.outbox.PendingBatch(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range messages {
		if r.publish(ctx, &messages[i]) {
			sent++
		}
	}
	return sent, nil
}

func (r *OutboxRelay) publish(ctx context.Context, message *models.OutboxMessage) bool {
	log := logrus.WithFields(logrus.Fields{
		"outbox_id":  message.ID,
		"event_type": message.EventType,
		"key":        message.MessageKey,
	})

	_, _, err := r.producer.SendMessage(&sarama.ProducerMessage{
		Topic: message.Topic,
		Key:   sarama.StringEncoder(message.MessageKey),
		Value: sarama.StringEncoder(message.Payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(message.EventType)},
		},
	})
	if err == nil {
		if err := r.outbox.MarkSent(ctx, message.ID); err != nil {
			log.WithError(err).Error("failed to mark outbox message sent")
		}
		r.metrics.OutboxPublished.WithLabelValues("sent").Inc()
		return true
	}

	log.WithError(err).Warn("failed to publish outbox message")
	failed, markErr := r.outbox.MarkRetry(ctx, message, r.maxRetry)
	if markErr != nil {
		log.WithError(markErr).Error("failed to record outbox retry")
	}
	if failed {
		log.Error("outbox message exceeded max retries")
		r.metrics.OutboxPublished.WithLabelValues("failed").Inc()
	} else {
		r.metrics.OutboxPublished.WithLabelValues("retry").Inc()
	}
	return false
}

// Close releases the Kafka producer.
func (r *OutboxRelay) Close() error {
	if !r.Enabled() {
		return nil
	}
	return r.producer.Close()
}
