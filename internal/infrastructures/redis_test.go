package infrastructures

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRedis(t *testing.T) {
	mini := miniredis.RunT(t)

	client, err := OpenRedis(RedisConfig{Address: mini.Addr(), DialTimeout: time.Second})
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	mini.CheckGet(t, "k", "v")
}

func TestOpenRedisUnreachable(t *testing.T) {
	mini := miniredis.RunT(t)
	addr := mini.Addr()
	mini.Close()

	client, err := OpenRedis(RedisConfig{Address: addr, DialTimeout: 200 * time.Millisecond})

	assert.Error(t, err)
	assert.Nil(t, client)
}
