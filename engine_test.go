package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99souls/appstandby/config"
	"github.com/99souls/appstandby/internal/testinjector"
	"github.com/99souls/appstandby/models"
)

func newTestController(t *testing.T, raw string) (*Controller, *testinjector.Fake) {
	t.Helper()
	inj := testinjector.New()
	if raw != "" {
		inj.SetAppIdleSettingsString(raw)
	}
	inj.SetCharging(false)
	cfg := config.Defaults()
	cfg.MetricsEnabled = false
	cfg.HealthEnabled = true
	ctrl, err := New(cfg, inj)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start())
	t.Cleanup(func() { _ = ctrl.Stop() })
	return ctrl, inj
}

// Scenario 1 (spec §8): charging suspends idle enforcement externally, even
// though the scanner keeps the underlying bucket progressing.
func TestScenarioChargingParole(t *testing.T) {
	ctrl, inj := newTestController(t, "elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	key := models.AppKey{User: 0, Package: "com.example.app"}
	ctrl.OnBootPhase(models.BootPhaseCompleted)
	ctrl.ReportEvent(models.EventUserInteraction, key, 0)

	inj.SetCharging(true)
	ctrl.SetChargingState(true)
	inj.SetElapsed(350)
	ctrl.CheckIdleStates(0)
	require.Eventually(t, func() bool { return ctrl.Snapshot().Paroled }, time.Second, 5*time.Millisecond)
	assert.False(t, ctrl.IsAppIdleFilteredOrParoled(key, 350), "filtering must be suppressed while paroled")
	assert.Equal(t, models.BucketRare, ctrl.GetAppStandbyBucket(key, 350, false), "bucket state still progresses while paroled")

	inj.SetCharging(false)
	ctrl.SetChargingState(false)
	require.Eventually(t, func() bool { return !ctrl.Snapshot().Paroled }, time.Second, 5*time.Millisecond)
	assert.True(t, ctrl.IsAppIdleFilteredOrParoled(key, 350), "once un-paroled, a RARE+ bucket is filtered again")

	inj.SetCharging(true)
	ctrl.SetChargingState(true)
	require.Eventually(t, func() bool { return ctrl.Snapshot().Paroled }, time.Second, 5*time.Millisecond)
	assert.False(t, ctrl.IsAppIdleFilteredOrParoled(key, 350), "charging again immediately re-paroles")
}

// Scenario 2: bucket timeline advances through WORKING_SET/FREQUENT/RARE as
// elapsed time crosses each threshold.
func TestScenarioBucketTimeline(t *testing.T) {
	ctrl, inj := newTestController(t, "elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	key := models.AppKey{User: 0, Package: "com.example.app"}
	ctrl.ReportEvent(models.EventUserInteraction, key, 0)
	assert.Equal(t, models.BucketActive, ctrl.GetAppStandbyBucket(key, 0, false))

	inj.SetElapsed(150)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketWorkingSet, ctrl.GetAppStandbyBucket(key, 150, false))

	inj.SetElapsed(250)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketFrequent, ctrl.GetAppStandbyBucket(key, 250, false))

	inj.SetElapsed(350)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketRare, ctrl.GetAppStandbyBucket(key, 350, false))
}

// Scenario 3: screen-on time gates advancement independently of elapsed time.
func TestScenarioScreenTimeGating(t *testing.T) {
	ctrl, inj := newTestController(t, "elapsed_thresholds=10/20/30/30,screen_thresholds=500/1000/1500/1500")
	key := models.AppKey{User: 0, Package: "com.example.app"}

	inj.SetDisplayOn(false, 0)
	ctrl.ReportEvent(models.EventUserInteraction, key, 0)

	inj.SetElapsed(1000)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketActive, ctrl.GetAppStandbyBucket(key, 1000, false), "elapsed past threshold but screen off the whole time must not advance")
}

// Scenario 4: a notification promotes a RARE package to WORKING_SET but
// never touches an already-ACTIVE one.
func TestScenarioNotificationBehavior(t *testing.T) {
	ctrl, _ := newTestController(t, "elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	rare := models.AppKey{User: 0, Package: "com.example.rare"}
	ctrl.SetAppStandbyBucket(rare, models.BucketRare, models.ReasonTag{Reason: models.ReasonForced}, 0)
	ctrl.ReportEvent(models.EventNotificationSeen, rare, 5)
	assert.Equal(t, models.BucketWorkingSet, ctrl.GetAppStandbyBucket(rare, 5, false))

	active := models.AppKey{User: 0, Package: "com.example.active"}
	ctrl.ReportEvent(models.EventUserInteraction, active, 0)
	ctrl.ReportEvent(models.EventNotificationSeen, active, 5)
	assert.Equal(t, models.BucketActive, ctrl.GetAppStandbyBucket(active, 5, false))
}

// Scenario 5: an expired PREDICTED bucket is demoted one rank by the next
// sweep, with reason TIMEOUT.
func TestScenarioPredictionExpiry(t *testing.T) {
	ctrl, inj := newTestController(t, "elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	key := models.AppKey{User: 0, Package: "com.example.predicted"}
	require.NoError(t, ctrl.SetAppStandbyBucket(key, models.BucketWorkingSet, models.ReasonTag{Reason: models.ReasonPredicted}, 0))

	inj.SetElapsed(250)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketFrequent, ctrl.GetAppStandbyBucket(key, 250, false))
}

// Scenario 6: the reason precedence matrix rejects a lower-precedence write
// over a FORCED record.
func TestScenarioPrecedence(t *testing.T) {
	ctrl, _ := newTestController(t, "")
	key := models.AppKey{User: 0, Package: "com.example.forced"}
	require.NoError(t, ctrl.SetAppStandbyBucket(key, models.BucketRare, models.ReasonTag{Reason: models.ReasonForced}, 0))
	require.NoError(t, ctrl.SetAppStandbyBucket(key, models.BucketActive, models.ReasonTag{Reason: models.ReasonUsage}, 10))
	assert.Equal(t, models.BucketRare, ctrl.GetAppStandbyBucket(key, 10, false), "USAGE must not override FORCED")

	ctrl.ForceIdleState(key, false, 20)
	assert.Equal(t, models.BucketActive, ctrl.GetAppStandbyBucket(key, 20, false), "force_idle_state(false) explicitly clears FORCED")
}

// Scenario 7: a timeout sweep still applies after a prediction is cleared by
// direct usage.
func TestScenarioTimeoutAfterPrediction(t *testing.T) {
	ctrl, inj := newTestController(t, "elapsed_thresholds=100/200/300/300,screen_thresholds=0/0/0/0")
	key := models.AppKey{User: 0, Package: "com.example.app"}
	require.NoError(t, ctrl.SetAppStandbyBucket(key, models.BucketFrequent, models.ReasonTag{Reason: models.ReasonPredicted}, 0))

	ctrl.ReportEvent(models.EventUserInteraction, key, 5)
	assert.Equal(t, models.BucketActive, ctrl.GetAppStandbyBucket(key, 5, false))

	inj.SetElapsed(120)
	ctrl.CheckIdleStates(0)
	assert.Equal(t, models.BucketWorkingSet, ctrl.GetAppStandbyBucket(key, 120, false))
}

// I7: GetAppStandbyBucket never mutates state.
func TestGetAppStandbyBucketIsPureRead(t *testing.T) {
	ctrl, _ := newTestController(t, "")
	key := models.AppKey{User: 0, Package: "com.example.app"}
	first := ctrl.GetAppStandbyBucket(key, 1000, false)
	second := ctrl.GetAppStandbyBucket(key, 2000, false)
	assert.Equal(t, first, second)
	assert.Equal(t, models.BucketActive, first, "an unknown package reads as the ACTIVE default, never materializing a record")
}

func TestSetAppStandbyBucketRejectsInvalidBucket(t *testing.T) {
	ctrl, _ := newTestController(t, "")
	key := models.AppKey{User: 0, Package: "com.example.app"}
	err := ctrl.SetAppStandbyBucket(key, models.Bucket(999), models.ReasonTag{Reason: models.ReasonForced}, 0)
	assert.Error(t, err)
}

func TestListAppStatusesReflectsRunningUsersOnly(t *testing.T) {
	ctrl, inj := newTestController(t, "")
	inj.SetRunningUserIDs([]int{0})
	ctrl.ReportEvent(models.EventUserInteraction, models.AppKey{User: 0, Package: "a"}, 0)
	ctrl.ReportEvent(models.EventUserInteraction, models.AppKey{User: 1, Package: "b"}, 0)

	statuses := ctrl.ListAppStatuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "a", statuses[0].Package)
}

func TestStartIsIdempotentAndStopDrainsCleanly(t *testing.T) {
	inj := testinjector.New()
	cfg := config.Defaults()
	cfg.MetricsEnabled = false
	ctrl, err := New(cfg, inj)
	require.NoError(t, err)
	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Start())
	require.NoError(t, ctrl.Stop())
	require.NoError(t, ctrl.Stop())
}

func TestHealthSnapshotReportsProbes(t *testing.T) {
	ctrl, _ := newTestController(t, "")
	snap := ctrl.HealthSnapshot(context.Background())
	assert.NotEmpty(t, snap.Probes, "health evaluator should report at least the registered probes")
}

func TestOnBootPhaseUnparolesOnceComplete(t *testing.T) {
	ctrl, inj := newTestController(t, "")
	inj.SetAppIdleEnabled(true)
	ctrl.OnBootPhase(models.BootPhaseCompleted)
	require.Eventually(t, func() bool {
		return !ctrl.Snapshot().Paroled
	}, time.Second, 5*time.Millisecond)
}

func TestNewRejectsNilInjector(t *testing.T) {
	_, err := New(config.Defaults(), nil)
	assert.Error(t, err)
}
