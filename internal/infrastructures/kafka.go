package infrastructures

import (
	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

func ProvideKafkaConfig() KafkaConfig {
	return Config.Kafka
}

// NewKafkaProducer returns nil when no brokers are configured; the outbox relay then stays idle.
func NewKafkaProducer(cfg KafkaConfig) sarama.SyncProducer {
	if len(cfg.Brokers) == 0 {
		logrus.Warn("KAFKA_BROKERS is empty, outbox relay disabled")
		return nil
	}

	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		logrus.Fatalf("failed to create kafka producer: %v", err)
	}

	return producer
}
