// Package policy implements the bucket-assignment rules (C4): a pure
// function from history, clocks, thresholds, and device state to a bucket,
// plus the reason-precedence matrix arbitrating source-arbitrated writes.
//
// Nothing in this package touches a wall clock, a file, or a channel —
// every function takes its inputs as arguments and returns a value. This
// is deliberate: it is what lets the scanner (C6) drive property tests
// against deterministic clock values.
package policy

import (
	"errors"
	"fmt"

	"github.com/99souls/appstandby/models"
)

// ErrInvalidBucket is returned by Validate (and surfaced by the Controller's
// SetAppStandbyBucket) when a caller supplies a bucket value outside the
// five defined constants.
var ErrInvalidBucket = errors.New("policy: invalid bucket value")

// precedence[new][current] is true when an incoming write with reason `new`
// is accepted over a record currently holding reason `current`. Row/column
// order matches models.Reason's iota order: DEFAULT, USAGE, TIMEOUT,
// PREDICTED, FORCED.
var precedence = [5][5]bool{
	// cur:    DEFAULT USAGE  TIMEOUT PREDICTED FORCED
	/* DEFAULT   */ {true, false, false, false, false},
	/* USAGE     */ {true, true, true, true, false},
	/* TIMEOUT   */ {true, true, true, true, false},
	/* PREDICTED */ {true, true, true, true, false},
	/* FORCED    */ {true, true, true, true, true},
}

// Validate reports ErrInvalidBucket for any value outside the five defined
// buckets.
func Validate(b models.Bucket) error {
	if !b.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidBucket, int(b))
	}
	return nil
}

// Classify computes the timeout-driven candidate bucket for a history
// record given the current clocks and thresholds (spec §4.2, "timeout-driven
// classification"). It never mutates h.
func Classify(h models.History, clocks models.Clocks, th models.Thresholds) models.Bucket {
	elapsedSinceUse := satSub(clocks.Elapsed, h.LastUsedElapsed)
	screenOnSinceUse := satSub(clocks.ElapsedScreenOn, h.LastUsedScreenOn)

	best := models.BucketActive
	for _, r := range []struct {
		rank   int
		bucket models.Bucket
	}{
		{models.RankWorkingSet, models.BucketWorkingSet},
		{models.RankFrequent, models.BucketFrequent},
		{models.RankRare, models.BucketRare},
	} {
		if elapsedSinceUse >= th.Elapsed[r.rank] && screenOnSinceUse >= th.Screen[r.rank] {
			best = r.bucket
		}
	}
	return best
}

// satSub is subtraction saturating at zero; clocks are monotonic but a
// "last used" timestamp recorded before a clock reset must never underflow.
func satSub(a, b uint64) uint64 {
	if b >= a {
		return 0
	}
	return a - b
}

// PredictionExpired reports whether a PREDICTED assignment has aged past
// one "day" (the FREQUENT elapsed threshold, per spec §4.2) and should be
// demoted by the scanner.
func PredictionExpired(h models.History, elapsed uint64, th models.Thresholds) bool {
	if h.CurrentReason != models.ReasonPredicted || h.LastPredictedAtElapsed == nil {
		return false
	}
	return satSub(elapsed, *h.LastPredictedAtElapsed) >= th.Elapsed[models.RankFrequent]
}

// DemoteOneRank returns the bucket one rank more idle than b, clamped at
// NEVER's predecessor RARE (a prediction never demotes all the way to
// NEVER via timeout; see spec §4.2 "progressively... as subsequent
// thresholds are crossed").
func DemoteOneRank(b models.Bucket) models.Bucket {
	switch b {
	case models.BucketActive:
		return models.BucketWorkingSet
	case models.BucketWorkingSet:
		return models.BucketFrequent
	case models.BucketFrequent:
		return models.BucketRare
	default:
		return b
	}
}

// Assign applies the source-arbitrated assignment rule (spec §4.2,
// "source-arbitrated assignment"): a new (bucket, reason) pair is accepted
// or silently rejected based on the precedence matrix and two side
// conditions. It returns the resulting history (a copy; h is never
// mutated) and whether the write was accepted.
func Assign(h models.History, newBucket models.Bucket, newReason models.Reason, now uint64) (models.History, bool) {
	if !precedence[newReason][h.CurrentReason] {
		return h, false
	}
	if newReason == models.ReasonPredicted {
		// Side condition 1: a PREDICTED write must never produce NEVER, and
		// once the current bucket is NEVER with a non-predicted reason,
		// further PREDICTED writes are ignored entirely (invariants 5-6).
		if newBucket == models.BucketNever || h.CurrentBucket == models.BucketNever {
			return h, false
		}
	}
	// Side condition 2 (FORCED-stickiness) is already encoded by
	// precedence[PREDICTED][FORCED] == false above; kept as an explicit
	// comment per the audit trail the matrix is meant to provide.

	out := h.Clone()
	out.CurrentBucket = newBucket
	out.CurrentReason = newReason
	out.BucketSetAtElapsed = now
	if newReason == models.ReasonPredicted {
		b := newBucket
		out.LastPredictedBucket = &b
		at := now
		out.LastPredictedAtElapsed = &at
	}
	return out, true
}

// ApplyUserInteraction implements the USER_INTERACTION event mapping:
// bucket -> ACTIVE with reason USAGE, last-used clocks refreshed, and the
// forced_idle sticky flag cleared. Like ApplyNotificationSeen, this applies
// unconditionally rather than through the precedence matrix, so a user
// interaction also lifts a FORCED record back to ACTIVE.
func ApplyUserInteraction(h models.History, clocks models.Clocks, now uint64) models.History {
	out := h.Clone()
	out.CurrentBucket = models.BucketActive
	out.CurrentReason = models.ReasonUsage
	out.BucketSetAtElapsed = now
	out.LastUsedElapsed = clocks.Elapsed
	out.LastUsedScreenOn = clocks.ElapsedScreenOn
	out.ForcedIdle = false
	return out
}

// ApplyNotificationSeen implements the NOTIFICATION_SEEN (and SLICE_PINNED)
// event mapping: promote to WORKING_SET if the app is currently more idle
// than that, otherwise leave state untouched. Like ForceIdleState, this
// promotion applies unconditionally rather than through the precedence
// matrix: a FORCED+RARE record must still promote to WORKING_SET on a
// notification (spec §8 scenario 4), and precedence[USAGE][FORCED] is
// false, so routing this through Assign would silently drop it.
func ApplyNotificationSeen(h models.History, now uint64) models.History {
	if h.CurrentBucket <= models.BucketWorkingSet {
		return h
	}
	out := h.Clone()
	out.CurrentBucket = models.BucketWorkingSet
	out.CurrentReason = models.ReasonUsage
	out.BucketSetAtElapsed = now
	return out
}

// ForceIdleState implements force_idle_state(pkg, user, idle): setting true
// pins the bucket to RARE with reason FORCED; clearing assigns ACTIVE with
// reason USAGE at the current time. Both directions are explicit
// administrative actions, not source-arbitrated writes -- they apply
// unconditionally rather than going through the precedence matrix (spec
// invariant I5 requires force_idle_state(false) always yields ACTIVE, even
// clearing a record the matrix would otherwise keep pinned at FORCED).
func ForceIdleState(h models.History, idle bool, now uint64) models.History {
	out := h.Clone()
	if idle {
		out.CurrentBucket = models.BucketRare
		out.CurrentReason = models.ReasonForced
		out.BucketSetAtElapsed = now
		out.ForcedIdle = true
		return out
	}
	out.CurrentBucket = models.BucketActive
	out.CurrentReason = models.ReasonUsage
	out.BucketSetAtElapsed = now
	out.ForcedIdle = false
	return out
}

// ScannerTick implements one scanner decision for a single history record
// (spec §4.4, steps 2-6): forced/NEVER records are left untouched; a
// PREDICTED record is governed entirely by PredictionExpired, never by the
// ordinary timeout candidate -- a prediction-only record never had a real
// USER_INTERACTION, so LastUsedElapsed/LastUsedScreenOn are zero or stale,
// and letting Classify run against them would promote or demote the record
// off a clock it was never actually idle against. Any other record's
// timeout candidate is computed and, if more idle than the current bucket,
// applied with reason TIMEOUT.
func ScannerTick(h models.History, clocks models.Clocks, th models.Thresholds, now uint64) models.History {
	if h.CurrentReason == models.ReasonForced {
		return h
	}
	if h.CurrentBucket == models.BucketNever && h.CurrentReason != models.ReasonPredicted {
		return h
	}
	if h.CurrentReason == models.ReasonPredicted {
		if !PredictionExpired(h, clocks.Elapsed, th) {
			return h
		}
		demoted := DemoteOneRank(h.CurrentBucket)
		if demoted == h.CurrentBucket {
			return h
		}
		out, ok := Assign(h, demoted, models.ReasonTimeout, now)
		if !ok {
			return h
		}
		return out
	}
	candidate := Classify(h, clocks, th)
	if candidate <= h.CurrentBucket {
		return h
	}
	out, ok := Assign(h, candidate, models.ReasonTimeout, now)
	if !ok {
		return h
	}
	return out
}
