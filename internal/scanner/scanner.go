// Package scanner implements the Idle Scanner (C6): a sweep over every
// (user, package) pair that evaluates internal/policy and commits
// transitions through internal/history, per spec §4.4.
package scanner

import (
	"github.com/99souls/appstandby/internal/clock"
	"github.com/99souls/appstandby/internal/history"
	"github.com/99souls/appstandby/internal/policy"
	"github.com/99souls/appstandby/internal/settings"
	"github.com/99souls/appstandby/models"
)

// Scanner drives one sweep at a time; it holds no per-tick state, so
// concurrent calls to Tick for different users are safe, though the
// Controller serializes them on its executor per spec §5 regardless.
type Scanner struct {
	store    *history.Store
	screen   *clock.ScreenClock
	settings *settings.Settings
}

// New creates a Scanner reading thresholds from settings and screen-on time
// from screen, committing transitions into store.
func New(store *history.Store, screen *clock.ScreenClock, settings *settings.Settings) *Scanner {
	return &Scanner{store: store, screen: screen, settings: settings}
}

// Tick runs one deterministic sweep over every (user, package) history
// belonging to user at elapsed time elapsed (spec §4.4, steps 1-6), and
// returns the number of records whose bucket changed.
func (s *Scanner) Tick(user int, elapsed uint64) int {
	th := s.settings.Load()
	clocks := models.Clocks{Elapsed: elapsed, ElapsedScreenOn: s.screen.Elapsed(elapsed)}

	var keys []models.AppKey
	s.store.IterUser(user, func(k models.AppKey, _ models.History) {
		keys = append(keys, k)
	})

	transitions := 0
	for _, k := range keys {
		before, _ := s.store.Read(k)
		after := s.store.Update(k, func(current models.History, exists bool) models.History {
			return policy.ScannerTick(current, clocks, th, elapsed)
		})
		if after.CurrentBucket != before.CurrentBucket {
			transitions++
		}
	}
	return transitions
}
