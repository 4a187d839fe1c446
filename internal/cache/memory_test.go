package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/travelintel/dealengine/internal/cache"
)

func TestMemorySetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()

	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	v, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, c.Delete(ctx, "k"))
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestMemoryTTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := cache.NewMemory()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 20*time.Millisecond))
	_, hit, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, hit)

	time.Sleep(40 * time.Millisecond)
	_, hit, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, hit)
}
