package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/faskesq-clinical-assist/internal/domain"
)

func TestNewMemoryCache_RejectsZeroSize(t *testing.T) {
	_, err := NewMemoryCache(0, time.Minute)
	assert.Error(t, err)
}

func TestMemoryCache_SetGet(t *testing.T) {
	c, err := NewMemoryCache(10, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	_, found, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, c.Set(ctx, "k", &domain.ModelResponse{Text: `{"recommendations":[]}`, Model: "m"}, 0))

	got, found, err := c.Get(ctx, "k")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"recommendations":[]}`, got.Text)

	// Callers may mutate what they receive without affecting the cache.
	got.Text = "changed"
	again, _, _ := c.Get(ctx, "k")
	assert.Equal(t, `{"recommendations":[]}`, again.Text)
}

func TestMemoryCache_EvictsOldest(t *testing.T) {
	c, err := NewMemoryCache(2, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", &domain.ModelResponse{Text: "a"}, 0))
	require.NoError(t, c.Set(ctx, "b", &domain.ModelResponse{Text: "b"}, 0))
	require.NoError(t, c.Set(ctx, "c", &domain.ModelResponse{Text: "c"}, 0))

	assert.Equal(t, 2, c.Len())
	_, found, _ := c.Get(ctx, "a")
	assert.False(t, found)
}

func TestMemoryCache_Expires(t *testing.T) {
	c, err := NewMemoryCache(5, 20*time.Millisecond)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", &domain.ModelResponse{Text: "v"}, 0))
	time.Sleep(60 * time.Millisecond)

	_, found, _ := c.Get(ctx, "k")
	assert.False(t, found)
}

func TestMemoryCache_RemoveAndPurge(t *testing.T) {
	c, err := NewMemoryCache(5, time.Minute)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", &domain.ModelResponse{Text: "a"}, 0))
	require.NoError(t, c.Set(ctx, "b", &domain.ModelResponse{Text: "b"}, 0))

	c.Remove("a")
	assert.Equal(t, 1, c.Len())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}
