package credcache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	clk := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New(Config{Now: clk.Now})

	c.Set("api-key", "s3cret", 5*time.Minute)
	v, ok := c.Get("api-key")
	assert.True(t, ok)
	assert.Equal(t, "s3cret", v)

	clk.Advance(5 * time.Minute)
	_, ok = c.Get("api-key")
	assert.False(t, ok)

	st := c.Stats()
	assert.Equal(t, uint64(1), st.Hits)
	assert.Equal(t, uint64(1), st.Misses)
	assert.Equal(t, 0, st.Size)
}

func TestCache_Invalidate(t *testing.T) {
	c := New(Config{})
	c.Set("api-key", "old", time.Hour)
	c.Invalidate("api-key")

	_, ok := c.Get("api-key")
	assert.False(t, ok)

	c.Invalidate("never-set")
}

func TestCache_SetOverwrites(t *testing.T) {
	c := New(Config{})
	c.Set("k", "v1", time.Hour)
	c.Set("k", "v2", time.Hour)

	v, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v2", v)
	assert.Equal(t, 1, c.Stats().Size)
}

func TestCache_NonPositiveTTLStoresNothing(t *testing.T) {
	c := New(Config{})
	c.Set("k", "v", time.Hour)
	c.Set("k", "v2", 0)

	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := New(Config{Capacity: 2})
	c.Set("a", "1", time.Hour)
	c.Set("b", "2", time.Hour)
	_, _ = c.Get("a")
	c.Set("c", "3", time.Hour)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
}

func TestCache_Concurrent(t *testing.T) {
	c := New(Config{Capacity: 8})
	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("k%d", i%4)
			c.Set(name, "v", time.Minute)
			c.Get(name)
			if i%5 == 0 {
				c.Invalidate(name)
			}
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Size, 4)
}
