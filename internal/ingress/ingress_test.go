package ingress

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/appstandby/internal/clock"
	"github.com/99souls/appstandby/internal/history"
	"github.com/99souls/appstandby/models"
)

func newTestIngress() (*Ingress, *history.Store) {
	store := history.New(nil)
	screen := clock.New(true, 0)
	return New(store, screen), store
}

func TestSubmitUserInteractionCreatesActiveRecord(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.app"}

	in.Submit(models.Event{Kind: models.EventUserInteraction, Key: key, Elapsed: 100})

	rec, ok := store.Read(key)
	require.True(t, ok)
	assert.Equal(t, models.BucketActive, rec.CurrentBucket)
	assert.Equal(t, models.ReasonUsage, rec.CurrentReason)
	assert.Equal(t, uint64(100), rec.LastUsedElapsed)
	assert.Equal(t, uint64(100), rec.LastUsedScreenOn)
}

func TestSubmitSystemInteractionBehavesLikeUserInteraction(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.app"}

	in.Submit(models.Event{Kind: models.EventSystemInteraction, Key: key, Elapsed: 50})

	rec, ok := store.Read(key)
	require.True(t, ok)
	assert.Equal(t, models.BucketActive, rec.CurrentBucket)
}

func TestSubmitUserInteractionClearsForcedIdle(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.app"}
	store.Update(key, func(cur models.History, exists bool) models.History {
		cur.CurrentBucket = models.BucketRare
		cur.CurrentReason = models.ReasonForced
		cur.ForcedIdle = true
		return cur
	})

	in.Submit(models.Event{Kind: models.EventUserInteraction, Key: key, Elapsed: 10})

	rec, _ := store.Read(key)
	assert.False(t, rec.ForcedIdle)
	assert.Equal(t, models.BucketActive, rec.CurrentBucket)
}

func TestSubmitNotificationSeenOnUnknownPackageCreatesWorkingSet(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.new"}

	in.Submit(models.Event{Kind: models.EventNotificationSeen, Key: key, Elapsed: 5})

	rec, ok := store.Read(key)
	require.True(t, ok)
	assert.Equal(t, models.BucketWorkingSet, rec.CurrentBucket)
	assert.Equal(t, models.ReasonUsage, rec.CurrentReason)
}

func TestSubmitSlicePinnedBehavesLikeNotificationSeen(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.new"}

	in.Submit(models.Event{Kind: models.EventSlicePinned, Key: key, Elapsed: 5})

	rec, ok := store.Read(key)
	require.True(t, ok)
	assert.Equal(t, models.BucketWorkingSet, rec.CurrentBucket)
}

func TestSubmitNotificationSeenOnMoreIdleExistingPackagePromotes(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.rare"}
	store.Update(key, func(cur models.History, exists bool) models.History {
		cur.CurrentBucket = models.BucketRare
		cur.CurrentReason = models.ReasonTimeout
		return cur
	})

	in.Submit(models.Event{Kind: models.EventNotificationSeen, Key: key, Elapsed: 5})

	rec, _ := store.Read(key)
	assert.Equal(t, models.BucketWorkingSet, rec.CurrentBucket)
}

func TestSubmitNotificationSeenLeavesActivePackageAlone(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.active"}
	store.Update(key, func(cur models.History, exists bool) models.History { return cur })

	in.Submit(models.Event{Kind: models.EventNotificationSeen, Key: key, Elapsed: 5})

	rec, _ := store.Read(key)
	assert.Equal(t, models.BucketActive, rec.CurrentBucket)
	assert.Equal(t, models.ReasonDefault, rec.CurrentReason)
}

func TestSubmitOtherEventIsSilentlyDropped(t *testing.T) {
	in, store := newTestIngress()
	key := models.AppKey{User: 0, Package: "com.example.untouched"}

	in.Submit(models.Event{Kind: models.EventOther, Key: key, Elapsed: 5})

	_, ok := store.Read(key)
	assert.False(t, ok, "an event kind with no mapping must never materialize a record")
}
