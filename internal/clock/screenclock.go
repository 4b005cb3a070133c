// Package clock implements the screen-on elapsed accumulator (spec §9,
// "Dual-clock accounting"): a monotonic counter advanced only while the
// default display is on, read live rather than sampled only at scan ticks.
package clock

import "sync"

// ScreenClock tracks elapsed_screen_on (spec §3). It is advanced by display
// on/off transitions and read live: the counter is `accumulated + (on ?
// now-lastOnAt : 0)`, per the design note's accumulator recipe.
type ScreenClock struct {
	mu          sync.Mutex
	on          bool
	accumulated uint64
	lastOnAt    uint64
}

// New creates a ScreenClock seeded with the display's current state at now.
func New(displayOn bool, now uint64) *ScreenClock {
	return &ScreenClock{on: displayOn, lastOnAt: now}
}

// OnDisplayChanged records a display transition at elapsed time now. A
// transition to the state the clock already holds is a no-op (idempotent,
// matching R1's "unchanged clocks yield identical state").
func (c *ScreenClock) OnDisplayChanged(on bool, now uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if on == c.on {
		return
	}
	if c.on && now > c.lastOnAt {
		c.accumulated += now - c.lastOnAt
	}
	c.on = on
	c.lastOnAt = now
}

// Elapsed returns the live screen-on elapsed value at elapsed time now.
func (c *ScreenClock) Elapsed(now uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.on && now > c.lastOnAt {
		return c.accumulated + (now - c.lastOnAt)
	}
	return c.accumulated
}

// IsOn reports the last-known display state.
func (c *ScreenClock) IsOn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.on
}
