package cache

import (
	"context"
	"testing"
	"time"

	"github.com/pokebim/pricewatch/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quote(price float64) *models.Quote {
	return &models.Quote{Price: price, Currency: models.Currency, Strategy: "direct"}
}

func TestKey(t *testing.T) {
	a := Key("direct", "https://www.cardmarket.com/a")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Key("direct", "https://www.cardmarket.com/a"))
	assert.NotEqual(t, a, Key("browser", "https://www.cardmarket.com/a"))
	assert.NotEqual(t, a, Key("direct", "https://www.cardmarket.com/b"))
}

func TestMemory_GetSet(t *testing.T) {
	c := NewMemory(10, time.Hour)
	defer c.Close()
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	c.Set(ctx, "k", quote(3.5))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, 3.5, got.Price)

	c.Set(ctx, "nil", nil)
	_, ok = c.Get(ctx, "nil")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	c := NewMemory(10, 20*time.Millisecond)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "k", quote(1))
	time.Sleep(30 * time.Millisecond)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)

	c.evictExpired()
	assert.Zero(t, c.Len())
}

func TestMemory_Capacity(t *testing.T) {
	c := NewMemory(2, time.Hour)
	defer c.Close()
	ctx := context.Background()

	c.Set(ctx, "a", quote(1))
	c.Set(ctx, "b", quote(2))
	c.Set(ctx, "b", quote(3)) // overwrite does not evict
	assert.Equal(t, 2, c.Len())

	c.Set(ctx, "c", quote(4))
	assert.Equal(t, 2, c.Len())
	_, ok := c.Get(ctx, "c")
	assert.True(t, ok)
}

func TestNop(t *testing.T) {
	var s Store = Nop{}
	s.Set(context.Background(), "k", quote(1))
	_, ok := s.Get(context.Background(), "k")
	assert.False(t, ok)
	assert.NoError(t, s.Close())
}
