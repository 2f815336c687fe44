package cache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_SetGet(t *testing.T) {
	c := New(DefaultTTL, clockwork.NewFakeClock())

	c.Set("metar_ids=KJFK", []byte(`[{"icaoId":"KJFK"}]`), 0)

	v, ok := c.Get("metar_ids=KJFK")
	require.True(t, ok)
	assert.Equal(t, []byte(`[{"icaoId":"KJFK"}]`), v)
}

func TestCache_MissOnUnknownKey(t *testing.T) {
	c := New(DefaultTTL, clockwork.NewFakeClock())

	_, ok := c.Get("nope")
	assert.False(t, ok)
	assert.Equal(t, Stats{Hits: 0, Misses: 1, Keys: 0}, c.Stats())
}

func TestCache_ExpiryNeverReturnsStaleEntry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(5*time.Minute, clock)

	c.Set("k", "v", 0)

	clock.Advance(5*time.Minute - time.Second)
	_, ok := c.Get("k")
	assert.True(t, ok, "entry should be live just before expiry")

	clock.Advance(time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry must not be returned at or after expiry")

	// The expired entry was evicted on read.
	assert.Equal(t, 0, c.Stats().Keys)
}

func TestCache_PerEntryTTLOverridesDefault(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(5*time.Minute, clock)

	c.Set("short", "v", 10*time.Second)
	clock.Advance(11 * time.Second)

	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestCache_OverwriteResetsExpiry(t *testing.T) {
	clock := clockwork.NewFakeClock()
	c := New(time.Minute, clock)

	c.Set("k", "old", 0)
	clock.Advance(50 * time.Second)
	c.Set("k", "new", 0)
	clock.Advance(30 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "new", v)
}

func TestCache_Stats(t *testing.T) {
	c := New(DefaultTTL, clockwork.NewFakeClock())

	c.Set("a", 1, 0)
	c.Set("b", 2, 0)
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	assert.Equal(t, Stats{Hits: 2, Misses: 1, Keys: 2}, c.Stats())
}

func TestCache_Clear(t *testing.T) {
	c := New(DefaultTTL, clockwork.NewFakeClock())

	c.Set("a", 1, 0)
	c.Get("a")
	c.Clear()

	assert.Equal(t, Stats{}, c.Stats())
	_, ok := c.Get("a")
	assert.False(t, ok)
}
