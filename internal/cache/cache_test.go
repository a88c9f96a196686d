package cache

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, opts Options) (*Cache[string], *quartz.Mock) {
	t.Helper()
	clock := quartz.NewMock(t)
	c := New[string](clock, log.New(io.Discard), opts)
	t.Cleanup(c.Stop)
	return c, clock
}

func TestSetGet(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	c.Set("k", "v")

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c, clock := newTestCache(t, Options{})

	c.SetTTL("k", "v", 30*time.Second)

	clock.Advance(29 * time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok)

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok)

	// The expired entry was dropped on read
	assert.Zero(t, c.Len())
}

func TestOverwriteRefreshesTTL(t *testing.T) {
	c, clock := newTestCache(t, Options{DefaultTTL: 10 * time.Second})

	c.Set("k", "v1")
	clock.Advance(8 * time.Second)
	c.Set("k", "v2")
	clock.Advance(8 * time.Second)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v2", got)
}

func TestCapacityEvictsOldest(t *testing.T) {
	c, _ := newTestCache(t, Options{MaxEntries: 3})

	c.Set("a", "1")
	c.Set("b", "2")
	c.Set("c", "3")
	c.Set("d", "4")

	_, ok := c.Get("a")
	assert.False(t, ok, "oldest entry should have been evicted")
	for _, k := range []string{"b", "c", "d"} {
		_, ok := c.Get(k)
		assert.True(t, ok, "entry %s should survive", k)
	}
	assert.Equal(t, 3, c.Len())
}

func TestDelete(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	c.Set("k", "v")
	c.Delete("k")

	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Zero(t, c.Len())

	// Deleting a missing key is a no-op
	c.Delete("k")
}

func TestSweepPurgesExpired(t *testing.T) {
	c, clock := newTestCache(t, Options{})

	c.SetTTL("short", "v", time.Second)
	c.SetTTL("long", "v", time.Hour)

	clock.Advance(2 * time.Second)
	c.sweep()

	assert.Equal(t, 1, c.Len())
	_, ok := c.Get("long")
	assert.True(t, ok)
}

func TestBackgroundSweep(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{})

	c.SetTTL("k", "v", 30*time.Second)
	c.StartSweep(time.Minute)

	clock.Advance(time.Minute).MustWait(ctx)

	// The sweep runs on its own goroutine after the tick is delivered
	assert.Eventually(t, func() bool { return c.Len() == 0 },
		time.Second, 10*time.Millisecond)
}

func TestStopIsIdempotent(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	c.StartSweep(time.Minute)

	c.Stop()
	c.Stop()
}

func TestManyKeys(t *testing.T) {
	c, _ := newTestCache(t, Options{MaxEntries: 100})

	for i := 0; i < 250; i++ {
		c.Set(fmt.Sprintf("k%d", i), "v")
	}

	assert.Equal(t, 100, c.Len())

	// The newest keys are the survivors
	_, ok := c.Get("k249")
	assert.True(t, ok)
	_, ok = c.Get("k0")
	assert.False(t, ok)
}
