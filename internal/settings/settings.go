// Package settings implements the Settings Parser (C2): parsing the
// threshold configuration string into the two ordered threshold vectors
// consumed by internal/policy, with an atomically-swapped live value the
// Controller can reload without pausing the executor.
package settings

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/99souls/appstandby/models"
)

const (
	hour = uint64(3600_000)
	day  = 24 * hour
)

// Defaults returns the compiled-in threshold vectors (spec §8 end-to-end
// scenario defaults): WORKING_SET at 12h, FREQUENT at 24h, RARE at 48h
// elapsed; screen thresholds 0/0/0/1h.
func Defaults() models.Thresholds {
	return models.Thresholds{
		Elapsed: [4]uint64{12 * hour, day, 2 * day, 2 * day},
		Screen:  [4]uint64{0, 0, 0, hour},
	}
}

// Parse decodes a string of the form
// "screen_thresholds=A/B/C/D,elapsed_thresholds=E/F/G/H" (spec §4.1). Each
// vector is validated independently: a missing, malformed, wrong-length, or
// non-monotonic vector falls back to the matching default vector alone --
// the parser never fails the engine.
func Parse(raw string) models.Thresholds {
	out := Defaults()
	for _, field := range strings.Split(raw, ",") {
		field = strings.TrimSpace(field)
		switch {
		case strings.HasPrefix(field, "screen_thresholds="):
			if v, ok := parseVector(strings.TrimPrefix(field, "screen_thresholds=")); ok {
				out.Screen = v
			}
		case strings.HasPrefix(field, "elapsed_thresholds="):
			if v, ok := parseVector(strings.TrimPrefix(field, "elapsed_thresholds=")); ok {
				out.Elapsed = v
			}
		}
	}
	return out
}

// Format renders a Thresholds back into the canonical settings string,
// supporting round-trip tests (spec §8, R2).
func Format(th models.Thresholds) string {
	return "screen_thresholds=" + formatVector(th.Screen) + ",elapsed_thresholds=" + formatVector(th.Elapsed)
}

func formatVector(v [4]uint64) string {
	parts := make([]string, 4)
	for i, n := range v {
		parts[i] = strconv.FormatUint(n, 10)
	}
	return strings.Join(parts, "/")
}

func parseVector(s string) ([4]uint64, bool) {
	var out [4]uint64
	parts := strings.Split(s, "/")
	if len(parts) != 4 {
		return out, false
	}
	for i, p := range parts {
		n, err := strconv.ParseUint(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return out, false
		}
		out[i] = n
	}
	for i := 1; i < 4; i++ {
		if out[i] < out[i-1] {
			return out, false
		}
	}
	return out, true
}

// Settings holds the live, atomically-swappable threshold vectors consulted
// by the policy and scanner on every operation.
type Settings struct {
	current atomic.Pointer[models.Thresholds]
}

// New creates a Settings parsed from raw (falling back to defaults for any
// malformed field, per Parse).
func New(raw string) *Settings {
	s := &Settings{}
	th := Parse(raw)
	s.current.Store(&th)
	return s
}

// Load returns the current threshold vectors.
func (s *Settings) Load() models.Thresholds {
	if p := s.current.Load(); p != nil {
		return *p
	}
	return Defaults()
}

// Reload re-parses raw and atomically swaps the live thresholds.
func (s *Settings) Reload(raw string) {
	th := Parse(raw)
	s.current.Store(&th)
}
