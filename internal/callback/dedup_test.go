//go:build e2e

package callback

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDeduplicator(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	defer rdb.Close()
	require.NoError(t, rdb.Ping(context.Background()).Err())

	ctx := context.Background()
	d := NewRedisDeduplicator(rdb, time.Minute)
	key := fmt.Sprintf("default:%d", time.Now().UnixNano())
	defer d.Forget(ctx, key)

	first, err := d.Mark(ctx, key)
	require.NoError(t, err)
	assert.True(t, first)

	again, err := d.Mark(ctx, key)
	require.NoError(t, err)
	assert.False(t, again)

	require.NoError(t, d.Forget(ctx, key))
	first, err = d.Mark(ctx, key)
	require.NoError(t, err)
	assert.True(t, first)
}
