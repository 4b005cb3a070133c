package policy

// TelemetryPolicy centralizes runtime-tunable telemetry knobs. Public read access
// is via Controller.Policy(). It is designed to be swapped
// atomically (callers hold an immutable snapshot pointer) to avoid locks on hot
// paths. All durations are expected to be positive; zero values fall back to
// defaults established in Default().

import "time"

type TelemetryPolicy struct {
	Health  HealthPolicy
	Tracing TracingPolicy
	Events  EventBusPolicy
}

// HealthPolicy holds the health evaluator's probe TTL and thresholds. The
// Controller's history-store-size probe uses the History* fields; its scanner
// probe reports only whether a tick has been observed and does not read the
// Scanner* fields.
type HealthPolicy struct {
	ProbeTTL time.Duration

	ScannerMinSamples         int
	ScannerDegradedTickRatio  float64
	ScannerUnhealthyTickRatio float64

	HistoryDegradedSize  int
	HistoryUnhealthySize int
}

type TracingPolicy struct {
	SamplePercent           float64
	ErrorBoostPercent       float64
	LatencyBoostThresholdMs int64
	LatencyBoostPercent     float64
}

type EventBusPolicy struct {
	MaxSubscriberBuffer int
}

// Default returns a TelemetryPolicy populated with conservative defaults.
func Default() TelemetryPolicy {
	return TelemetryPolicy{
		Health: HealthPolicy{
			ProbeTTL:                  2 * time.Second,
			ScannerMinSamples:         10,
			ScannerDegradedTickRatio:  0.50,
			ScannerUnhealthyTickRatio: 0.80,
			HistoryDegradedSize:       100000,
			HistoryUnhealthySize:      500000,
		},
		Tracing: TracingPolicy{SamplePercent: 20},
		Events:  EventBusPolicy{MaxSubscriberBuffer: 1024},
	}
}

// Normalize ensures sane bounds without mutating original; returns a cleaned copy.
func (p TelemetryPolicy) Normalize() TelemetryPolicy {
	c := p
	if c.Health.ProbeTTL <= 0 {
		c.Health.ProbeTTL = 2 * time.Second
	}
	if c.Health.ScannerMinSamples <= 0 {
		c.Health.ScannerMinSamples = 10
	}
	if c.Health.ScannerDegradedTickRatio <= 0 {
		c.Health.ScannerDegradedTickRatio = 0.50
	}
	if c.Health.ScannerUnhealthyTickRatio <= 0 {
		c.Health.ScannerUnhealthyTickRatio = 0.80
	}
	if c.Health.HistoryDegradedSize <= 0 {
		c.Health.HistoryDegradedSize = 100000
	}
	if c.Health.HistoryUnhealthySize <= 0 {
		c.Health.HistoryUnhealthySize = 500000
	}
	if c.Tracing.SamplePercent < 0 {
		c.Tracing.SamplePercent = 0
	}
	if c.Tracing.SamplePercent > 100 {
		c.Tracing.SamplePercent = 100
	}
	if c.Events.MaxSubscriberBuffer <= 0 {
		c.Events.MaxSubscriberBuffer = 1024
	}
	return c
}
