package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/elevated-systems/kinneret-phyto/pkg/phyto/clock"
)

func TestNew(t *testing.T) {
	c := New[int](5*time.Minute, time.Hour, nil)
	defer c.Close()
	assert.Equal(t, 5*time.Minute, c.ttl)
	assert.Equal(t, time.Hour, c.maxAge)

	d := New[int](0, 0, nil)
	defer d.Close()
	assert.Equal(t, time.Minute, d.ttl)
	assert.Equal(t, time.Hour, d.maxAge)
}

func TestSetGet(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	c := New[[]float64](5*time.Minute, time.Hour, clk)
	defer c.Close()

	assert.Equal(t, 0, c.Size())
	v, found := c.Get("heatmap/diatoms")
	assert.False(t, found)
	assert.Nil(t, v)

	c.Set("heatmap/diatoms", []float64{0.4, 0.6})
	assert.Equal(t, 1, c.Size())

	v, found = c.Get("heatmap/diatoms")
	assert.True(t, found)
	assert.Equal(t, []float64{0.4, 0.6}, v)

	hits, misses := c.GetMetrics()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestExpiry(t *testing.T) {
	clk := clock.NewMockClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))
	c := New[string](time.Minute, 10*time.Minute, clk)
	defer c.Close()

	c.Set("a", "fresh")
	clk.Advance(2 * time.Minute)

	_, found := c.Get("a")
	assert.False(t, found, "entry past TTL must not be served")
	assert.Equal(t, 1, c.Size(), "stale entry stays until swept")

	clk.Advance(10 * time.Minute)
	c.removeExpired()
	assert.Equal(t, 0, c.Size())
}

func TestClearAndKeys(t *testing.T) {
	c := New[int](time.Minute, time.Hour, nil)
	defer c.Close()

	c.Set("b", 2)
	c.Set("a", 1)
	assert.Equal(t, []string{"a", "b"}, c.Keys())

	c.Clear()
	assert.Equal(t, 0, c.Size())
	assert.Empty(t, c.Keys())

	c.Close()
}
