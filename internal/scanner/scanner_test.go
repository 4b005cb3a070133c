package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/appstandby/internal/clock"
	"github.com/99souls/appstandby/internal/history"
	"github.com/99souls/appstandby/internal/settings"
	"github.com/99souls/appstandby/models"
)

func newTestScanner() (*Scanner, *history.Store) {
	store := history.New(nil)
	screen := clock.New(true, 0)
	st := settings.New("elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	return New(store, screen, st), store
}

func TestTickAdvancesIdlePackagesAndCountsTransitions(t *testing.T) {
	s, store := newTestScanner()
	key := models.AppKey{User: 0, Package: "com.example.idle"}
	store.Update(key, func(cur models.History, exists bool) models.History {
		cur.LastUsedElapsed = 0
		return cur
	})

	n := s.Tick(0, 150)
	assert.Equal(t, 1, n)
	rec, ok := store.Read(key)
	require.True(t, ok)
	assert.Equal(t, models.BucketWorkingSet, rec.CurrentBucket)
	assert.Equal(t, models.ReasonTimeout, rec.CurrentReason)
}

func TestTickLeavesFreshPackagesAlone(t *testing.T) {
	s, store := newTestScanner()
	key := models.AppKey{User: 0, Package: "com.example.fresh"}
	store.Update(key, func(cur models.History, exists bool) models.History { return cur })

	n := s.Tick(0, 10)
	assert.Equal(t, 0, n)
	rec, _ := store.Read(key)
	assert.Equal(t, models.BucketActive, rec.CurrentBucket)
}

func TestTickLeavesForcedRecordsAlone(t *testing.T) {
	s, store := newTestScanner()
	key := models.AppKey{User: 0, Package: "com.example.forced"}
	store.Update(key, func(cur models.History, exists bool) models.History {
		cur.CurrentBucket = models.BucketRare
		cur.CurrentReason = models.ReasonForced
		return cur
	})

	n := s.Tick(0, 100000)
	assert.Equal(t, 0, n)
	rec, _ := store.Read(key)
	assert.Equal(t, models.BucketRare, rec.CurrentBucket)
	assert.Equal(t, models.ReasonForced, rec.CurrentReason)
}

func TestTickOnlyTouchesRequestedUser(t *testing.T) {
	s, store := newTestScanner()
	idleKeyUser0 := models.AppKey{User: 0, Package: "com.example.a"}
	idleKeyUser1 := models.AppKey{User: 1, Package: "com.example.a"}
	store.Update(idleKeyUser0, func(cur models.History, exists bool) models.History { return cur })
	store.Update(idleKeyUser1, func(cur models.History, exists bool) models.History { return cur })

	s.Tick(0, 150)

	u0, _ := store.Read(idleKeyUser0)
	u1, _ := store.Read(idleKeyUser1)
	assert.Equal(t, models.BucketWorkingSet, u0.CurrentBucket)
	assert.Equal(t, models.BucketActive, u1.CurrentBucket, "scanning user 0 must not touch user 1's records")
}

func TestTickSweepsMultiplePackagesIndependently(t *testing.T) {
	s, store := newTestScanner()
	active := models.AppKey{User: 0, Package: "com.example.active"}
	idle := models.AppKey{User: 0, Package: "com.example.idle"}
	store.Update(active, func(cur models.History, exists bool) models.History {
		cur.LastUsedElapsed = 100
		return cur
	})
	store.Update(idle, func(cur models.History, exists bool) models.History { return cur })

	n := s.Tick(0, 150)
	assert.Equal(t, 1, n)

	a, _ := store.Read(active)
	i, _ := store.Read(idle)
	assert.Equal(t, models.BucketActive, a.CurrentBucket)
	assert.Equal(t, models.BucketWorkingSet, i.CurrentBucket)
}
