// Package hostinjector provides Host, a best-effort injector.Injector
// implementation for demo binaries running on an ordinary Linux host rather
// than inside the mobile platform the App Standby design targets. It reads
// real elapsed/wall clocks (host uptime via gopsutil, the same
// library the retrieval pack's monitors.go uses for host introspection
// (cpu/mem/disk/host stats)), and falls back to conservative defaults for the
// signals no desktop host actually has (charging, which always reads false,
// package whitelist, widget binding, network scorer, ephemeral apps).
package hostinjector

import (
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/99souls/appstandby/injector"
	"github.com/99souls/appstandby/models"
)

// Host is a demo-grade Injector backed by the host operating system.
type Host struct {
	mu          sync.Mutex
	bootAt      time.Time
	dataDir     string
	runningUser []int
	listeners   []injector.DisplayListener
	displayOn   bool
}

// New creates a Host rooted at dataDir for GetDataSystemDirectory, tracking
// a single synthetic user (0).
func New(dataDir string) *Host {
	return &Host{bootAt: time.Now(), dataDir: dataDir, runningUser: []int{0}, displayOn: true}
}

// ElapsedRealtime returns the host's uptime in milliseconds, the closest
// desktop analogue to the mobile platform's pause-during-deep-sleep elapsed
// clock (gopsutil's host.Info().Uptime, seconds since boot).
func (h *Host) ElapsedRealtime() uint64 {
	info, err := host.Info()
	if err != nil || info == nil {
		return uint64(time.Since(h.bootAt).Milliseconds())
	}
	return info.Uptime * 1000
}

// CurrentTimeMillis returns the wall clock in milliseconds.
func (h *Host) CurrentTimeMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// IsCharging always reports false: a generic Linux host has no portable
// battery-state API exposed through gopsutil's host package.
func (h *Host) IsCharging() bool { return false }

// IsAppIdleEnabled always reports true for the demo adapter.
func (h *Host) IsAppIdleEnabled() bool { return true }

// IsPowerSaveWhitelistExceptIdle always reports false: no desktop analogue
// to the mobile power-save whitelist exists.
func (h *Host) IsPowerSaveWhitelistExceptIdle(pkg string) bool { return false }

// IsPackageEphemeral always reports false.
func (h *Host) IsPackageEphemeral(user int, pkg string) bool { return false }

// IsDefaultDisplayOn reports the last state set via SetDisplayOn (default
// true); a desktop host has no single addressable "default display" signal
// comparable to the mobile platform's, so this is driven externally rather
// than polled.
func (h *Host) IsDefaultDisplayOn() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.displayOn
}

// SetDisplayOn updates the tracked display state and notifies registered
// listeners if it changed, at the current elapsed time.
func (h *Host) SetDisplayOn(on bool) {
	h.mu.Lock()
	changed := h.displayOn != on
	h.displayOn = on
	listeners := append([]injector.DisplayListener(nil), h.listeners...)
	h.mu.Unlock()
	if !changed {
		return
	}
	elapsed := h.ElapsedRealtime()
	for _, l := range listeners {
		l(on, elapsed)
	}
}

// IsBoundWidgetPackage always reports false.
func (h *Host) IsBoundWidgetPackage(pkg string, user int) bool { return false }

// GetActiveNetworkScorer always reports no active scorer.
func (h *Host) GetActiveNetworkScorer() (string, bool) { return "", false }

// GetRunningUserIDs returns the synthetic single-user list this adapter
// tracks.
func (h *Host) GetRunningUserIDs() []int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]int(nil), h.runningUser...)
}

// GetAppIdleSettings returns an empty string, letting internal/settings
// apply its compiled-in defaults; demo deployments configure thresholds via
// the Controller's SettingsPath file instead.
func (h *Host) GetAppIdleSettings() string { return "" }

// RegisterDisplayListener installs cb to be invoked from SetDisplayOn.
func (h *Host) RegisterDisplayListener(cb injector.DisplayListener) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, cb)
}

// NoteEvent is a no-op observability sink for this adapter.
func (h *Host) NoteEvent(kind models.EventKind, pkg string, user int) {}

// GetDataSystemDirectory returns the directory New was constructed with.
func (h *Host) GetDataSystemDirectory() string { return h.dataDir }

var _ injector.Injector = (*Host)(nil)
