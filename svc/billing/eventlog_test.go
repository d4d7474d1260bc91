package billing_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/rankpay/svc/billing"
)

func TestMemoryEventLog(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	log := billing.NewMemoryEventLog(time.Hour)

	seen, err := log.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, log.Mark(ctx, "evt_1"))

	seen, err = log.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = log.Seen(ctx, "evt_2")
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryEventLog_Expiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	log := billing.NewMemoryEventLog(time.Millisecond)
	require.NoError(t, log.Mark(ctx, "evt_1"))

	assert.Eventually(t, func() bool {
		seen, err := log.Seen(ctx, "evt_1")
		return err == nil && !seen
	}, time.Second, 5*time.Millisecond)
}

func TestRedisEventLog(t *testing.T) {
	t.Parallel()

	url := os.Getenv("REDIS_TEST_URL")
	if url == "" {
		t.Skip("REDIS_TEST_URL not set")
	}

	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	ctx := context.Background()
	log := billing.NewRedisEventLog(client, time.Minute)
	id := "evt_" + uuid.NewString()

	seen, err := log.Seen(ctx, id)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, log.Mark(ctx, id))
	require.NoError(t, log.Mark(ctx, id))

	seen, err = log.Seen(ctx, id)
	require.NoError(t, err)
	assert.True(t, seen)

	ttl, err := client.TTL(ctx, "billing:event:"+id).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}
