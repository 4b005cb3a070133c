// Package testinjector provides Fake, an in-memory injector.Injector used by
// the domain package's own tests and by consumers writing tests against the
// Controller without a real host.
package testinjector

import (
	"sync"

	"github.com/99souls/appstandby/injector"
	"github.com/99souls/appstandby/models"
)

// Fake is a directly-settable injector.Injector. Every field is guarded by
// mu; callers mutate state through the setter methods rather than touching
// fields directly so concurrent Controller goroutines see consistent
// values.
type Fake struct {
	mu sync.Mutex

	elapsed    uint64
	wallMillis uint64
	charging   bool
	idleOn     bool
	displayOn  bool

	whitelisted map[string]bool
	ephemeral   map[models.AppKey]bool
	widgets     map[models.AppKey]bool
	scorer      string
	hasScorer   bool
	runningUser []int
	settings    string
	dataDir     string

	listeners []injector.DisplayListener
	noted     []notedEvent
}

type notedEvent struct {
	Kind    models.EventKind
	Package string
	User    int
}

// New creates a Fake with app-idle enabled and the display on, at elapsed
// time zero.
func New() *Fake {
	return &Fake{
		idleOn:      true,
		displayOn:   true,
		whitelisted: make(map[string]bool),
		ephemeral:   make(map[models.AppKey]bool),
		widgets:     make(map[models.AppKey]bool),
		runningUser: []int{0},
	}
}

// SetElapsed sets the elapsed-realtime clock returned by ElapsedRealtime.
func (f *Fake) SetElapsed(v uint64) {
	f.mu.Lock()
	f.elapsed = v
	f.mu.Unlock()
}

// SetWallMillis sets the wall clock returned by CurrentTimeMillis.
func (f *Fake) SetWallMillis(v uint64) {
	f.mu.Lock()
	f.wallMillis = v
	f.mu.Unlock()
}

// SetCharging sets the charger state returned by IsCharging.
func (f *Fake) SetCharging(v bool) {
	f.mu.Lock()
	f.charging = v
	f.mu.Unlock()
}

// SetAppIdleEnabled sets the master app-idle switch.
func (f *Fake) SetAppIdleEnabled(v bool) {
	f.mu.Lock()
	f.idleOn = v
	f.mu.Unlock()
}

// SetDisplayOn sets the display state and, if it changed, fires every
// registered DisplayListener at elapsed.
func (f *Fake) SetDisplayOn(on bool, elapsed uint64) {
	f.mu.Lock()
	changed := f.displayOn != on
	f.displayOn = on
	f.elapsed = elapsed
	listeners := append([]injector.DisplayListener(nil), f.listeners...)
	f.mu.Unlock()
	if !changed {
		return
	}
	for _, l := range listeners {
		l(on, elapsed)
	}
}

// SetWhitelisted marks pkg as power-save-whitelist-exempt.
func (f *Fake) SetWhitelisted(pkg string, v bool) {
	f.mu.Lock()
	f.whitelisted[pkg] = v
	f.mu.Unlock()
}

// SetEphemeral marks key as an ephemeral (instant) app.
func (f *Fake) SetEphemeral(key models.AppKey, v bool) {
	f.mu.Lock()
	f.ephemeral[key] = v
	f.mu.Unlock()
}

// SetBoundWidget marks key as backing a bound home-screen widget.
func (f *Fake) SetBoundWidget(key models.AppKey, v bool) {
	f.mu.Lock()
	f.widgets[key] = v
	f.mu.Unlock()
}

// SetActiveNetworkScorer sets (or clears, with ok=false) the active network
// scorer package.
func (f *Fake) SetActiveNetworkScorer(pkg string, ok bool) {
	f.mu.Lock()
	f.scorer = pkg
	f.hasScorer = ok
	f.mu.Unlock()
}

// SetRunningUserIDs sets the users returned by GetRunningUserIDs.
func (f *Fake) SetRunningUserIDs(users []int) {
	f.mu.Lock()
	f.runningUser = append([]int(nil), users...)
	f.mu.Unlock()
}

// SetAppIdleSettingsString sets the raw threshold string GetAppIdleSettings
// returns.
func (f *Fake) SetAppIdleSettingsString(raw string) {
	f.mu.Lock()
	f.settings = raw
	f.mu.Unlock()
}

// SetDataSystemDirectory sets the path GetDataSystemDirectory returns.
func (f *Fake) SetDataSystemDirectory(path string) {
	f.mu.Lock()
	f.dataDir = path
	f.mu.Unlock()
}

// NotedEvents returns every (kind, pkg, user) triple recorded via NoteEvent,
// in call order.
func (f *Fake) NotedEvents() []struct {
	Kind    models.EventKind
	Package string
	User    int
} {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]struct {
		Kind    models.EventKind
		Package string
		User    int
	}, len(f.noted))
	for i, n := range f.noted {
		out[i] = struct {
			Kind    models.EventKind
			Package string
			User    int
		}{n.Kind, n.Package, n.User}
	}
	return out
}

func (f *Fake) ElapsedRealtime() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.elapsed
}

func (f *Fake) CurrentTimeMillis() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wallMillis
}

func (f *Fake) IsCharging() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.charging
}

func (f *Fake) IsAppIdleEnabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.idleOn
}

func (f *Fake) IsPowerSaveWhitelistExceptIdle(pkg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.whitelisted[pkg]
}

func (f *Fake) IsPackageEphemeral(user int, pkg string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ephemeral[models.AppKey{User: user, Package: pkg}]
}

func (f *Fake) IsDefaultDisplayOn() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.displayOn
}

func (f *Fake) IsBoundWidgetPackage(pkg string, user int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.widgets[models.AppKey{User: user, Package: pkg}]
}

func (f *Fake) GetActiveNetworkScorer() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scorer, f.hasScorer
}

func (f *Fake) GetRunningUserIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.runningUser...)
}

func (f *Fake) GetAppIdleSettings() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings
}

func (f *Fake) RegisterDisplayListener(cb injector.DisplayListener) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, cb)
}

func (f *Fake) NoteEvent(kind models.EventKind, pkg string, user int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.noted = append(f.noted, notedEvent{Kind: kind, Package: pkg, User: user})
}

func (f *Fake) GetDataSystemDirectory() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dataDir
}

var _ injector.Injector = (*Fake)(nil)
