package history

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/appstandby/models"
)

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	s := New(nil)
	predicted := models.BucketFrequent
	predictedAt := uint64(123)

	s.Update(models.AppKey{User: 0, Package: "a"}, func(cur models.History, exists bool) models.History {
		cur.CurrentBucket = models.BucketRare
		cur.CurrentReason = models.ReasonTimeout
		cur.LastUsedElapsed = 10
		cur.LastUsedScreenOn = 5
		return cur
	})
	s.Update(models.AppKey{User: 1, Package: "b"}, func(cur models.History, exists bool) models.History {
		cur.CurrentBucket = models.BucketFrequent
		cur.CurrentReason = models.ReasonPredicted
		cur.LastPredictedBucket = &predicted
		cur.LastPredictedAtElapsed = &predictedAt
		cur.ForcedIdle = false
		return cur
	})

	snap := s.Snapshot()
	assert.Equal(t, SchemaVersion, snap.SchemaVersion)
	require.Len(t, snap.Records, 2)

	fresh := New(nil)
	fresh.Restore(snap)
	assert.Equal(t, 2, fresh.Size())

	a, ok := fresh.Read(models.AppKey{User: 0, Package: "a"})
	require.True(t, ok)
	assert.Equal(t, models.BucketRare, a.CurrentBucket)
	assert.Equal(t, uint64(10), a.LastUsedElapsed)

	b, ok := fresh.Read(models.AppKey{User: 1, Package: "b"})
	require.True(t, ok)
	require.NotNil(t, b.LastPredictedBucket)
	assert.Equal(t, models.BucketFrequent, *b.LastPredictedBucket)
	require.NotNil(t, b.LastPredictedAtElapsed)
	assert.Equal(t, uint64(123), *b.LastPredictedAtElapsed)
}

func TestRestoreReplacesExistingContents(t *testing.T) {
	s := New(nil)
	s.Update(models.AppKey{User: 0, Package: "stale"}, func(cur models.History, exists bool) models.History { return cur })
	require.Equal(t, 1, s.Size())

	s.Restore(Snapshot{SchemaVersion: SchemaVersion, Records: []Record{
		{User: 0, Package: "fresh", CurrentBucket: models.BucketActive},
	}})

	assert.Equal(t, 1, s.Size())
	_, ok := s.Read(models.AppKey{User: 0, Package: "stale"})
	assert.False(t, ok)
	_, ok = s.Read(models.AppKey{User: 0, Package: "fresh"})
	assert.True(t, ok)
}
