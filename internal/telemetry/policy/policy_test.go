package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultIsAlreadyNormalized(t *testing.T) {
	d := Default()
	assert.Equal(t, d, d.Normalize(), "Default() should need no correction")
}

func TestNormalizeFillsNonPositiveHealthFields(t *testing.T) {
	p := TelemetryPolicy{}
	n := p.Normalize()
	assert.Equal(t, Default().Health, n.Health)
}

func TestNormalizeClampsTracingSamplePercent(t *testing.T) {
	under := TelemetryPolicy{Tracing: TracingPolicy{SamplePercent: -5}}
	assert.Equal(t, float64(0), under.Normalize().Tracing.SamplePercent)

	over := TelemetryPolicy{Tracing: TracingPolicy{SamplePercent: 150}}
	assert.Equal(t, float64(100), over.Normalize().Tracing.SamplePercent)

	within := TelemetryPolicy{Tracing: TracingPolicy{SamplePercent: 42}}
	assert.Equal(t, float64(42), within.Normalize().Tracing.SamplePercent)
}

func TestNormalizeFillsNonPositiveEventBufferSize(t *testing.T) {
	p := TelemetryPolicy{Events: EventBusPolicy{MaxSubscriberBuffer: -1}}
	assert.Equal(t, 1024, p.Normalize().Events.MaxSubscriberBuffer)
}

func TestNormalizeDoesNotMutateReceiver(t *testing.T) {
	p := TelemetryPolicy{}
	_ = p.Normalize()
	assert.Equal(t, TelemetryPolicy{}, p, "Normalize must return a copy")
}
