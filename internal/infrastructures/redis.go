package infrastructures

import (
	"context"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisConfig backs the checkout locks, pending payments and rate limits.
type RedisConfig struct {
	Address     string
	Password    string
	DB          int
	DialTimeout time.Duration
}

func NewRedisConfig() RedisConfig {
	return RedisConfig{
		Address:     getEnv("REDIS_ADDRESS", "localhost:6379"),
		Password:    os.Getenv("REDIS_PASSWORD"),
		DB:          getEnvInt("REDIS_DB", 0),
		DialTimeout: getEnvDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
	}
}

func NewRedisClient() *redis.Client {
	client, err := OpenRedis(Config.Redis)
	if err != nil {
		logrus.Fatalf("failed to connect redis: %v", err)
	}
	return client
}

// OpenRedis dials and pings within cfg.DialTimeout.
func OpenRedis(cfg RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Address,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: cfg.DialTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), cfg.DialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"address": cfg.Address, "db": cfg.DB}).Info("redis connected")
	return client, nil
}
