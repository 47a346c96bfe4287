package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCacheMarkAndCheck(t *testing.T) {
	c := NewMemoryCache(time.Hour)
	ctx := context.Background()

	ok, err := c.IsProcessed(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.MarkProcessed(ctx, "https://example.com/a"))

	ok, err = c.IsProcessed(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, ok)

	// A different URL is unaffected.
	ok, err = c.IsProcessed(ctx, "https://example.com/b")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(10 * time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.MarkProcessed(ctx, "https://example.com/a"))
	time.Sleep(25 * time.Millisecond)

	ok, err := c.IsProcessed(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	c := NewMemoryCache(0)
	ctx := context.Background()

	require.NoError(t, c.MarkProcessed(ctx, "https://example.com/a"))
	ok, err := c.IsProcessed(ctx, "https://example.com/a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHashURLStable(t *testing.T) {
	a := hashURL("https://example.com/a")
	assert.Equal(t, a, hashURL("https://example.com/a"))
	assert.NotEqual(t, a, hashURL("https://example.com/b"))
	assert.Len(t, a, 64)
}
