package sched

import (
	"time"

	cache "github.com/go-pkgz/expirable-cache/v3"
	"github.com/google/uuid"
)

// Cooldowns holds the in-memory per-account gate timers, keyed
// feature:account. Timers are never persisted; Clear drops them in bulk
// on shutdown. Bypass permissions are the caller's concern.
type Cooldowns struct {
	timers cache.Cache[string, time.Time]
}

func NewCooldowns() *Cooldowns {
	return &Cooldowns{
		timers: cache.NewCache[string, time.Time](),
	}
}

func cooldownKey(feature string, id uuid.UUID) string {
	return feature + ":" + id.String()
}

// Try opens the gate: with no unexpired timer it records a new expiry of
// now + duration and returns (0, true); otherwise it returns the
// remaining time and false. Each successful Try overwrites the previous
// timer.
func (c *Cooldowns) Try(feature string, id uuid.UUID, duration time.Duration) (time.Duration, bool) {
	key := cooldownKey(feature, id)
	if expiry, found := c.timers.Get(key); found {
		if remaining := time.Until(expiry); remaining > 0 {
			return remaining, false
		}
	}
	if duration <= 0 {
		return 0, true
	}
	c.timers.Set(key, time.Now().Add(duration), duration)
	return 0, true
}

// Remaining reports how long the gate stays shut, or 0 when it is open.
func (c *Cooldowns) Remaining(feature string, id uuid.UUID) time.Duration {
	if expiry, found := c.timers.Get(cooldownKey(feature, id)); found {
		if remaining := time.Until(expiry); remaining > 0 {
			return remaining
		}
	}
	return 0
}

// Clear drops all timers.
func (c *Cooldowns) Clear() {
	c.timers.Purge()
}
