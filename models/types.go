// Package models holds the domain types shared between the root engine
// facade and the internal subsystems, mirroring the teacher's separation of
// a dependency-free models package from the packages that operate on it.
package models

import "fmt"

// Bucket is the standby classification for a (user, package) pair. Lower
// values are more active; comparisons use plain integer order and the
// numeric gaps below are load-bearing for the policy's precedence rules.
type Bucket int

const (
	BucketActive     Bucket = 10
	BucketWorkingSet Bucket = 20
	BucketFrequent   Bucket = 30
	BucketRare       Bucket = 40
	BucketNever      Bucket = 50
)

func (b Bucket) String() string {
	switch b {
	case BucketActive:
		return "ACTIVE"
	case BucketWorkingSet:
		return "WORKING_SET"
	case BucketFrequent:
		return "FREQUENT"
	case BucketRare:
		return "RARE"
	case BucketNever:
		return "NEVER"
	default:
		return fmt.Sprintf("Bucket(%d)", int(b))
	}
}

// Valid reports whether b is one of the five defined buckets.
func (b Bucket) Valid() bool {
	switch b {
	case BucketActive, BucketWorkingSet, BucketFrequent, BucketRare, BucketNever:
		return true
	default:
		return false
	}
}

// Reason is the source that most recently assigned the current bucket; it
// determines what later writers may overwrite (see the precedence matrix
// in internal/policy).
type Reason int

const (
	ReasonDefault Reason = iota
	ReasonUsage
	ReasonTimeout
	ReasonPredicted
	ReasonForced
)

func (r Reason) String() string {
	switch r {
	case ReasonDefault:
		return "DEFAULT"
	case ReasonUsage:
		return "USAGE"
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonPredicted:
		return "PREDICTED"
	case ReasonForced:
		return "FORCED"
	default:
		return fmt.Sprintf("Reason(%d)", int(r))
	}
}

// ReasonTag pairs a Reason with an opaque diagnostic subtag (e.g.
// "PREDICTED:CTS"). Subtags are never consulted by policy (spec §3,
// "Reason") -- they exist purely so callers and telemetry can tell
// predictors apart without the precedence matrix needing to know about it.
type ReasonTag struct {
	Reason Reason
	Subtag string
}

func (r ReasonTag) String() string {
	if r.Subtag == "" {
		return r.Reason.String()
	}
	return r.Reason.String() + ":" + r.Subtag
}

// EventKind enumerates the app-usage events accepted by ingress (C7).
type EventKind int

const (
	// EventUserInteraction marks direct user-initiated foreground activity.
	EventUserInteraction EventKind = iota
	// EventNotificationSeen marks the user acknowledging a notification.
	EventNotificationSeen
	// EventSystemInteraction marks a system-initiated foreground transition
	// (e.g. an alarm waking the app); treated identically to EventUserInteraction.
	EventSystemInteraction
	// EventSlicePinned marks an active content-slice binding; treated
	// identically to EventNotificationSeen.
	EventSlicePinned
	// EventOther is a catch-all for event kinds with no bucket effect.
	EventOther
)

func (k EventKind) String() string {
	switch k {
	case EventUserInteraction:
		return "USER_INTERACTION"
	case EventNotificationSeen:
		return "NOTIFICATION_SEEN"
	case EventSystemInteraction:
		return "SYSTEM_INTERACTION"
	case EventSlicePinned:
		return "SLICE_PINNED"
	case EventOther:
		return "OTHER"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// BootPhase mirrors the host's boot lifecycle ordering; only the relative
// position of BootPhaseCompleted matters to the parole controller.
type BootPhase int

const (
	BootPhaseUnknown BootPhase = iota
	BootPhaseSystemServicesReady
	BootPhaseCompleted
)

// AppKey identifies a per-user, per-package history record.
type AppKey struct {
	User    int
	Package string
}

func (k AppKey) String() string {
	return fmt.Sprintf("%d:%s", k.User, k.Package)
}

// Event is one app-usage occurrence submitted to ingress (C7).
type Event struct {
	Kind    EventKind
	Key     AppKey
	Elapsed uint64 // elapsed-clock time sampled at submission
}

// History is the per-(user, package) record maintained by the store (C3).
type History struct {
	CurrentBucket Bucket
	CurrentReason Reason

	BucketSetAtElapsed uint64 // elapsed-clock time current bucket was assigned
	LastUsedElapsed    uint64
	LastUsedScreenOn   uint64

	LastPredictedBucket    *Bucket
	LastPredictedAtElapsed *uint64

	ForcedIdle bool
}

// Clone returns a value copy, deep enough that mutating the copy's pointer
// fields never affects the original (used by the store to hand out
// snapshots without leaking internal pointers).
func (h History) Clone() History {
	c := h
	if h.LastPredictedBucket != nil {
		b := *h.LastPredictedBucket
		c.LastPredictedBucket = &b
	}
	if h.LastPredictedAtElapsed != nil {
		e := *h.LastPredictedAtElapsed
		c.LastPredictedAtElapsed = &e
	}
	return c
}

// Thresholds holds the two ordered, four-entry threshold vectors parsed by
// the settings parser (C2), indexed by target bucket rank: 0 -> WORKING_SET,
// 1 -> FREQUENT, 2 -> RARE, 3 -> reserved (equals the RARE entry today).
type Thresholds struct {
	Screen  [4]uint64
	Elapsed [4]uint64
}

// Threshold rank indices into Thresholds.Screen / Thresholds.Elapsed.
const (
	RankWorkingSet = 0
	RankFrequent   = 1
	RankRare       = 2
	RankReserved   = 3
)

// Clocks is the pair of monotonic counters the policy is evaluated against.
type Clocks struct {
	Elapsed         uint64 // device-uptime elapsed clock
	ElapsedScreenOn uint64 // screen-on accumulator
}

// DeviceState captures the device-level signals the policy and parole
// controller consult alongside per-app history.
type DeviceState struct {
	Charging       bool
	AppIdleEnabled bool
	BootPhase      BootPhase
}

// Paroled derives the global parole flag per spec: idling is suspended
// while charging, while the app-idle master switch is off, or before boot
// completes.
func (d DeviceState) Paroled() bool {
	return d.Charging || !d.AppIdleEnabled || d.BootPhase < BootPhaseCompleted
}
