// Package injector defines the Injector contract (C1): the only surface the
// classification core depends on for clocks, device state, and the
// exemption queries (whitelist, widget binding, network scorer). Production
// implementations live outside this module (the host's persistence, package
// catalog, and display/power-management event sources are explicitly out of
// scope per the core's design); this package only names the interface.
package injector

import "github.com/99souls/appstandby/models"

// DisplayListener is invoked by an Injector implementation whenever the
// default display transitions on or off, carrying the elapsed-clock time of
// the transition.
type DisplayListener func(on bool, elapsed uint64)

// Injector is the narrow collaborator contract the Controller depends on.
// Every query must return promptly (§5): it is always called from the
// single-threaded executor and must never block on I/O.
type Injector interface {
	// ElapsedRealtime returns the monotonic elapsed clock, paused during
	// device idle.
	ElapsedRealtime() uint64
	// CurrentTimeMillis returns the wall clock.
	CurrentTimeMillis() uint64
	// IsCharging reports the current charger state.
	IsCharging() bool
	// IsAppIdleEnabled reports the master app-idle switch.
	IsAppIdleEnabled() bool
	// IsPowerSaveWhitelistExceptIdle reports whether pkg is exempted from
	// idle filtering by the power-save whitelist.
	IsPowerSaveWhitelistExceptIdle(pkg string) bool
	// IsPackageEphemeral reports whether pkg is an ephemeral (instant) app
	// for the given user.
	IsPackageEphemeral(user int, pkg string) bool
	// IsDefaultDisplayOn reports the current display state.
	IsDefaultDisplayOn() bool
	// IsBoundWidgetPackage reports whether pkg currently backs a bound
	// home-screen widget for user.
	IsBoundWidgetPackage(pkg string, user int) bool
	// GetActiveNetworkScorer returns the package name of the active network
	// scorer, if any.
	GetActiveNetworkScorer() (pkg string, ok bool)
	// GetRunningUserIDs enumerates the currently running users.
	GetRunningUserIDs() []int
	// GetAppIdleSettings returns the raw threshold configuration string
	// (§4.1) to be parsed by internal/settings.
	GetAppIdleSettings() string
	// RegisterDisplayListener installs cb to be invoked on display
	// transitions. Implementations call cb synchronously from whatever
	// thread observes the transition; the Controller re-marshals onto its
	// own executor.
	RegisterDisplayListener(cb DisplayListener)
	// NoteEvent is an observability sink; failures are never surfaced to
	// the core.
	NoteEvent(kind models.EventKind, pkg string, user int)
	// GetDataSystemDirectory returns the persistence root; the core itself
	// never writes there (§1 scope boundary).
	GetDataSystemDirectory() string
}
