// Package parole implements the Parole Controller (C5): tracking charging
// and the global idle-disabled state, deriving the `paroled` flag spec §4.3
// defines as `charging || !app_idle_enabled || boot_phase < BOOT_COMPLETED`.
package parole

import (
	"sync"

	"github.com/99souls/appstandby/models"
)

// Controller is the mutable device-state triple the paroled flag derives
// from. Safe for concurrent reads; mutation is expected to be serialized by
// the owning executor like every other write path (spec §5).
type Controller struct {
	mu             sync.RWMutex
	charging       bool
	appIdleEnabled bool
	bootPhase      models.BootPhase
}

// New creates a Controller. App-idle starts enabled and boot starts
// unknown, so the engine is paroled by default until OnBootPhase advances
// it to BOOT_COMPLETED -- matching spec §3's "parole... during early boot".
func New() *Controller {
	return &Controller{appIdleEnabled: true}
}

// SetCharging updates the charging state and reports whether it changed.
func (c *Controller) SetCharging(charging bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.charging != charging
	c.charging = charging
	return changed
}

// SetAppIdleEnabled updates the master app-idle switch and reports whether
// it changed.
func (c *Controller) SetAppIdleEnabled(enabled bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := c.appIdleEnabled != enabled
	c.appIdleEnabled = enabled
	return changed
}

// OnBootPhase advances the recorded boot phase and reports whether it
// changed. Phases are expected to only move forward; a caller supplying an
// earlier phase is a no-op rather than a regression.
func (c *Controller) OnBootPhase(phase models.BootPhase) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if phase <= c.bootPhase {
		return false
	}
	c.bootPhase = phase
	return true
}

// State returns a snapshot of the device state the policy and the
// paroled-derivation consult.
func (c *Controller) State() models.DeviceState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return models.DeviceState{Charging: c.charging, AppIdleEnabled: c.appIdleEnabled, BootPhase: c.bootPhase}
}

// Paroled reports the derived global parole flag.
func (c *Controller) Paroled() bool {
	return c.State().Paroled()
}
