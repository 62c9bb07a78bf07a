package repositories

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestParseCounter(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    int
		wantErr bool
	}{
		{name: "missing key", value: nil, want: 0},
		{name: "number", value: "42", want: 42},
		{name: "garbage", value: "x", wantErr: true},
		{name: "unexpected type", value: 3.5, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseCounter(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRateLimitCounterRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7.0-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp"),
	}
	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer redisC.Terminate(ctx)

	host, err := redisC.Host(ctx)
	require.NoError(t, err)
	port, err := redisC.MappedPort(ctx, "6379")
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{
		Addr: fmt.Sprintf("%s:%s", host, port.Port()),
	})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(ctx).Err())

	repo := NewRateLimitCounterRepository(rdb, time.Second)
	repo.Config(10, time.Minute)

	current := time.Now().UTC().Truncate(time.Minute)
	previous := current.Add(-time.Minute)

	t.Run("empty counters", func(t *testing.T) {
		curr, prev, err := repo.Get("10.0.0.1", current, previous)
		require.NoError(t, err)
		assert.Zero(t, curr)
		assert.Zero(t, prev)
	})

	t.Run("increment current and previous windows", func(t *testing.T) {
		require.NoError(t, repo.Increment("10.0.0.2", current))
		require.NoError(t, repo.IncrementBy("10.0.0.2", current, 4))
		require.NoError(t, repo.Increment("10.0.0.2", previous))

		curr, prev, err := repo.Get("10.0.0.2", current, previous)
		require.NoError(t, err)
		assert.Equal(t, 5, curr)
		assert.Equal(t, 1, prev)
	})

	t.Run("counters expire", func(t *testing.T) {
		require.NoError(t, repo.Increment("10.0.0.3", current))

		ttl, err := rdb.TTL(ctx, repo.counterKey("10.0.0.3", current)).Result()
		require.NoError(t, err)
		assert.Greater(t, ttl, time.Duration(0))
		assert.LessOrEqual(t, ttl, 3*time.Minute)
	})
}
