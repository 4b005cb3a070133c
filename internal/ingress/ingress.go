// Package ingress implements Event Ingress (C7): mapping app-usage events
// to history mutations (spec §4.2, "Event mapping").
package ingress

import (
	"github.com/99souls/appstandby/internal/clock"
	"github.com/99souls/appstandby/internal/history"
	"github.com/99souls/appstandby/internal/policy"
	"github.com/99souls/appstandby/models"
)

// Ingress maps Event values onto history.Store mutations. It holds no
// state of its own beyond the screen clock needed to stamp last-used
// screen-on time on USER_INTERACTION.
type Ingress struct {
	store  *history.Store
	screen *clock.ScreenClock
}

// New creates an Ingress writing into store, reading live screen-on time
// from screen.
func New(store *history.Store, screen *clock.ScreenClock) *Ingress {
	return &Ingress{store: store, screen: screen}
}

// Submit applies ev's bucket effect, if any (spec §4.2, §7 "Unknown package
// on event"). EventOther (and any kind with no defined mapping) never
// touches the store, even for a package with no existing history -- it is
// silently dropped rather than materializing a default record.
func (in *Ingress) Submit(ev models.Event) {
	switch ev.Kind {
	case models.EventUserInteraction, models.EventSystemInteraction:
		screenOn := in.screen.Elapsed(ev.Elapsed)
		in.store.Update(ev.Key, func(current models.History, exists bool) models.History {
			return policy.ApplyUserInteraction(current, models.Clocks{Elapsed: ev.Elapsed, ElapsedScreenOn: screenOn}, ev.Elapsed)
		})
	case models.EventNotificationSeen, models.EventSlicePinned:
		in.store.Update(ev.Key, func(current models.History, exists bool) models.History {
			if !exists {
				// §7: notification-seen on an unknown package creates a
				// WORKING_SET record directly rather than going through
				// ApplyNotificationSeen, whose "more idle than WORKING_SET"
				// guard would otherwise leave a fresh ACTIVE default alone.
				return models.History{CurrentBucket: models.BucketWorkingSet, CurrentReason: models.ReasonUsage, BucketSetAtElapsed: ev.Elapsed}
			}
			return policy.ApplyNotificationSeen(current, ev.Elapsed)
		})
	default:
		// §7: "others are dropped" -- no record is created or touched.
	}
}
