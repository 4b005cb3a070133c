// Package engine is the Controller facade: the single owning container
// spec §9 calls for ("hold it behind a single owning container that the
// host system constructs once and passes references to"), composing every
// internal subsystem behind New/Start/Stop/Snapshot, the same shape as the
// teacher's engine.Engine (engine/engine.go).
package engine

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/99souls/appstandby/config"
	"github.com/99souls/appstandby/injector"
	"github.com/99souls/appstandby/internal/clock"
	"github.com/99souls/appstandby/internal/history"
	"github.com/99souls/appstandby/internal/ingress"
	"github.com/99souls/appstandby/internal/parole"
	"github.com/99souls/appstandby/internal/policy"
	"github.com/99souls/appstandby/internal/runtime"
	"github.com/99souls/appstandby/internal/scanner"
	"github.com/99souls/appstandby/internal/settings"
	internalmetrics "github.com/99souls/appstandby/internal/telemetry/metrics"
	internalpolicy "github.com/99souls/appstandby/internal/telemetry/policy"
	"github.com/99souls/appstandby/models"
	"github.com/99souls/appstandby/telemetry/events"
	"github.com/99souls/appstandby/telemetry/health"
	"github.com/99souls/appstandby/telemetry/logging"
)

// Snapshot is a unified, read-only view of Controller state.
type Snapshot struct {
	StartedAt   time.Time     `json:"started_at"`
	Uptime      time.Duration `json:"uptime"`
	HistorySize int           `json:"history_size"`
	Paroled     bool          `json:"paroled"`
}

// EventObserver receives telemetry events published by the Controller.
type EventObserver func(events.Event)

// Controller composes every internal subsystem named in spec §2 (C1-C7)
// behind a single facade. The caller supplies the Injector (C1); everything
// else is built by New.
type Controller struct {
	cfg config.Config
	inj injector.Injector

	store    *history.Store
	screen   *clock.ScreenClock
	parole   *parole.Controller
	settings *settings.Settings
	scanner  *scanner.Scanner
	ingress  *ingress.Ingress
	exec     *runtime.Executor

	settingsWatcher *settings.Watcher

	eventBus        events.Bus
	metricsProvider internalmetrics.Provider
	healthEval      *health.Evaluator
	logger          logging.Logger
	telemetryPolicy atomic.Pointer[internalpolicy.TelemetryPolicy]
	lastScanAt      atomic.Int64

	obsMu     sync.RWMutex
	observers []EventObserver

	started   atomic.Bool
	startedAt time.Time
}

// New constructs a Controller. It does not start any goroutines beyond the
// executor itself; Start wires the injector's display-change callback and
// an optional settings file watcher.
func New(cfg config.Config, inj injector.Injector) (*Controller, error) {
	if inj == nil {
		return nil, fmt.Errorf("engine: injector must not be nil")
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Controller{cfg: cfg, inj: inj}

	c.metricsProvider = selectMetricsProvider(cfg)
	c.eventBus = events.NewBus(c.metricsProvider)
	c.logger = logging.New(nil)

	c.store = history.New(c.eventBus)
	c.screen = clock.New(inj.IsDefaultDisplayOn(), inj.ElapsedRealtime())
	c.parole = parole.New()
	c.parole.SetCharging(inj.IsCharging())
	c.parole.SetAppIdleEnabled(inj.IsAppIdleEnabled())
	c.settings = settings.New(inj.GetAppIdleSettings())
	c.scanner = scanner.New(c.store, c.screen, c.settings)
	c.ingress = ingress.New(c.store, c.screen)
	c.exec = runtime.NewExecutor(cfg.ExecutorBacklog)

	initPolicy := internalpolicy.Default()
	c.telemetryPolicy.Store(&initPolicy)
	if cfg.HealthEnabled {
		c.healthEval = health.NewEvaluator(initPolicy.Health.ProbeTTL, c.healthProbes()...)
	}

	c.exec.Start()
	return c, nil
}

func selectMetricsProvider(cfg config.Config) internalmetrics.Provider {
	if !cfg.MetricsEnabled {
		return internalmetrics.NewNoopProvider()
	}
	switch cfg.MetricsBackend {
	case "otel", "opentelemetry":
		return internalmetrics.NewOTelProvider(internalmetrics.OTelProviderOptions{})
	case "noop":
		return internalmetrics.NewNoopProvider()
	default:
		return internalmetrics.NewPrometheusProvider(internalmetrics.PrometheusProviderOptions{})
	}
}

func (c *Controller) healthProbes() []health.Probe {
	historyProbe := health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		pol := c.Policy()
		size := c.store.Size()
		if size >= pol.Health.HistoryUnhealthySize {
			return health.Unhealthy("history_store", "tracked package count severe")
		}
		if size >= pol.Health.HistoryDegradedSize {
			return health.Degraded("history_store", "tracked package count elevated")
		}
		return health.Healthy("history_store")
	})
	scannerProbe := health.ProbeFunc(func(ctx context.Context) health.ProbeResult {
		last := c.lastScanAt.Load()
		if last == 0 {
			return health.Unknown("scanner", "no tick observed yet")
		}
		return health.Healthy("scanner")
	})
	return []health.Probe{historyProbe, scannerProbe}
}

// Policy returns the current telemetry policy snapshot.
func (c *Controller) Policy() internalpolicy.TelemetryPolicy {
	if p := c.telemetryPolicy.Load(); p != nil {
		return *p
	}
	return internalpolicy.Default()
}

// MetricsHandler returns the HTTP handler exposing the metrics backend's
// scrape endpoint, or nil if the active backend does not provide one.
func (c *Controller) MetricsHandler() http.Handler {
	if c == nil || c.metricsProvider == nil {
		return nil
	}
	if hp, ok := c.metricsProvider.(interface{ MetricsHandler() http.Handler }); ok {
		return hp.MetricsHandler()
	}
	return nil
}

// Events returns the Controller's telemetry event bus, letting a UI or
// exporter subscribe directly instead of registering an EventObserver.
func (c *Controller) Events() events.Bus {
	return c.eventBus
}

// AppStatus is a read-only view of one (user, package)'s tracked state.
type AppStatus struct {
	User    int
	Package string
	Bucket  models.Bucket
	Reason  models.Reason
}

// ListAppStatuses returns the current bucket/reason for every package
// tracked under every running user, in per-user package-sorted order.
func (c *Controller) ListAppStatuses() []AppStatus {
	var out []AppStatus
	_ = c.exec.SubmitSync(func() {
		for _, u := range c.inj.GetRunningUserIDs() {
			c.store.IterUser(u, func(key models.AppKey, h models.History) {
				out = append(out, AppStatus{User: u, Package: key.Package, Bucket: h.CurrentBucket, Reason: h.CurrentReason})
			})
		}
	})
	return out
}

// RegisterEventObserver adds obs to be invoked synchronously for every
// telemetry event the Controller publishes.
func (c *Controller) RegisterEventObserver(obs EventObserver) {
	if obs == nil {
		return
	}
	c.obsMu.Lock()
	c.observers = append(c.observers, obs)
	c.obsMu.Unlock()
}

func (c *Controller) publish(category, typ string, labels map[string]string, fields map[string]interface{}) {
	ev := events.Event{Category: category, Type: typ, Labels: labels, Fields: fields}
	if c.eventBus != nil {
		_ = c.eventBus.Publish(ev)
	}
	c.obsMu.RLock()
	obs := append([]EventObserver(nil), c.observers...)
	c.obsMu.RUnlock()
	for _, o := range obs {
		func(o EventObserver) {
			defer func() { _ = recover() }()
			o(ev)
		}(o)
	}
}

// Start wires the injector's display-change callback onto the executor and,
// if configured, begins watching the on-disk settings file. Idempotent.
func (c *Controller) Start() error {
	if !c.started.CompareAndSwap(false, true) {
		return nil
	}
	c.startedAt = time.Now()
	c.inj.RegisterDisplayListener(func(on bool, elapsed uint64) {
		_ = c.exec.Submit(func() { c.handleDisplayChanged(on, elapsed) })
	})
	if c.cfg.SettingsPath != "" {
		w := settings.NewWatcher(c.cfg.SettingsPath, c.settings, func(raw string) {
			c.publish(events.CategorySettings, "reloaded", nil, map[string]interface{}{"raw": raw})
		})
		if err := w.Start(); err != nil {
			c.logger.ErrorCtx(context.Background(), "settings watcher failed to start", "error", err)
		} else {
			c.settingsWatcher = w
		}
	}
	return nil
}

// Stop tears down the settings watcher (if any) and drains the executor.
// Idempotent.
func (c *Controller) Stop() error {
	if !c.started.CompareAndSwap(true, false) {
		return nil
	}
	if c.settingsWatcher != nil {
		_ = c.settingsWatcher.Stop()
	}
	c.exec.Stop()
	return nil
}

// Snapshot returns a unified state view.
func (c *Controller) Snapshot() Snapshot {
	started := c.startedAt
	if started.IsZero() {
		started = time.Now()
	}
	return Snapshot{
		StartedAt:   started,
		Uptime:      time.Since(started),
		HistorySize: c.store.Size(),
		Paroled:     c.paroled(),
	}
}

// HealthSnapshot evaluates (or returns cached) subsystem health.
func (c *Controller) HealthSnapshot(ctx context.Context) health.Snapshot {
	if c.healthEval == nil {
		return health.Snapshot{}
	}
	return c.healthEval.Evaluate(ctx)
}

func (c *Controller) paroled() bool {
	st := c.parole.State()
	st.AppIdleEnabled = c.inj.IsAppIdleEnabled()
	return st.Paroled()
}

func (c *Controller) handleDisplayChanged(on bool, elapsed uint64) {
	c.screen.OnDisplayChanged(on, elapsed)
	if on {
		// spec §4.4(b): the scanner runs on display-on transitions.
		for _, u := range c.inj.GetRunningUserIDs() {
			c.runScan(u, elapsed)
		}
	}
}

func (c *Controller) runScan(user int, elapsed uint64) int {
	n := c.scanner.Tick(user, elapsed)
	c.lastScanAt.Store(int64(elapsed))
	c.publish(events.CategoryScanner, "tick", map[string]string{"user": strconv.Itoa(user)}, map[string]interface{}{"transitions": n})
	return n
}

// ReportEvent is event ingress (C7): it maps ev's kind onto the history
// store via internal/ingress, serialized on the executor.
func (c *Controller) ReportEvent(kind models.EventKind, key models.AppKey, elapsed uint64) {
	_ = c.exec.Submit(func() {
		c.ingress.Submit(models.Event{Kind: kind, Key: key, Elapsed: elapsed})
		c.publish(events.CategoryIngress, "event_reported", map[string]string{"package": key.Package}, map[string]interface{}{"user": key.User, "kind": kind.String()})
	})
}

// GetAppStandbyBucket returns the currently stored bucket for key. It is a
// pure read (spec §8, I7): only the mutation entry points (ReportEvent,
// SetAppStandbyBucket, ForceIdleState and scanner ticks) change state.
// includeScreenTime is accepted for call
// compatibility with spec §6's signature; screen-on gating is already
// baked into the stored bucket by the scanner (see DESIGN.md).
func (c *Controller) GetAppStandbyBucket(key models.AppKey, elapsed uint64, includeScreenTime bool) models.Bucket {
	var b models.Bucket
	_ = c.exec.SubmitSync(func() {
		b = c.store.ReadOrDefault(key).CurrentBucket
	})
	return b
}

// SetAppStandbyBucket is the source-arbitrated assignment entry point
// (spec §4.2). An invalid bucket value is rejected synchronously with an
// explicit error (spec §7); a precedence violation is a silent no-op.
func (c *Controller) SetAppStandbyBucket(key models.AppKey, bucket models.Bucket, reason models.ReasonTag, elapsed uint64) error {
	if err := policy.Validate(bucket); err != nil {
		return err
	}
	_ = c.exec.Submit(func() {
		c.store.Update(key, func(current models.History, exists bool) models.History {
			out, ok := policy.Assign(current, bucket, reason.Reason, elapsed)
			if !ok {
				return current
			}
			return out
		})
		if reason.Subtag != "" {
			c.publish(events.CategoryBucket, "reason_subtag", map[string]string{"package": key.Package}, map[string]interface{}{"user": key.User, "subtag": reason.Subtag})
		}
	})
	return nil
}

// ForceIdleState implements force_idle_state (spec §4.2).
func (c *Controller) ForceIdleState(key models.AppKey, idle bool, elapsed uint64) {
	_ = c.exec.Submit(func() {
		c.store.Update(key, func(current models.History, exists bool) models.History {
			return policy.ForceIdleState(current, idle, elapsed)
		})
	})
}

func (c *Controller) isAppIdleFilteredLocked(key models.AppKey) bool {
	h := c.store.ReadOrDefault(key)
	if h.CurrentBucket < models.BucketRare {
		return false
	}
	if c.inj.IsPowerSaveWhitelistExceptIdle(key.Package) {
		return false
	}
	if c.inj.IsBoundWidgetPackage(key.Package, key.User) {
		return false
	}
	if scorer, ok := c.inj.GetActiveNetworkScorer(); ok && scorer == key.Package {
		return false
	}
	if c.inj.IsPackageEphemeral(key.User, key.Package) {
		return false
	}
	return true
}

// IsAppIdleFiltered implements is_app_idle_filtered (spec §6).
func (c *Controller) IsAppIdleFiltered(key models.AppKey, elapsed uint64) bool {
	var out bool
	_ = c.exec.SubmitSync(func() {
		out = c.isAppIdleFilteredLocked(key)
	})
	return out
}

// IsAppIdleFilteredOrParoled implements is_app_idle_filtered_or_paroled
// (spec §6): always false while the engine is paroled.
func (c *Controller) IsAppIdleFilteredOrParoled(key models.AppKey, elapsed uint64) bool {
	var out bool
	_ = c.exec.SubmitSync(func() {
		if c.paroled() {
			out = false
			return
		}
		out = c.isAppIdleFilteredLocked(key)
	})
	return out
}

// CheckIdleStates forces a scanner tick for user at the injector's current
// elapsed time (spec §6).
func (c *Controller) CheckIdleStates(user int) {
	_ = c.exec.Submit(func() {
		c.runScan(user, c.inj.ElapsedRealtime())
	})
}

// SetChargingState updates the charging signal feeding the parole
// controller. A transition to not-charging re-runs the scanner for every
// running user (spec §4.4(c)), letting state progress smoothly once
// un-paroled.
func (c *Controller) SetChargingState(charging bool) {
	_ = c.exec.Submit(func() {
		if !c.parole.SetCharging(charging) {
			return
		}
		c.publish(events.CategoryParole, "charging_changed", nil, map[string]interface{}{"charging": charging})
		if !charging {
			elapsed := c.inj.ElapsedRealtime()
			for _, u := range c.inj.GetRunningUserIDs() {
				c.runScan(u, elapsed)
			}
		}
	})
}

// OnBootPhase advances the boot phase tracked by the parole controller.
func (c *Controller) OnBootPhase(phase models.BootPhase) {
	_ = c.exec.Submit(func() {
		if c.parole.OnBootPhase(phase) {
			c.publish(events.CategoryParole, "boot_phase_changed", nil, map[string]interface{}{"phase": int(phase)})
		}
	})
}

// OnDisplayChanged records a display transition. Real injector
// implementations drive this via RegisterDisplayListener once Start has run;
// it is exported so tests and demo adapters can drive it directly.
func (c *Controller) OnDisplayChanged(on bool, elapsed uint64) {
	_ = c.exec.Submit(func() {
		c.handleDisplayChanged(on, elapsed)
	})
}
