package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSeedsState(t *testing.T) {
	c := New(true, 100)
	assert.True(t, c.IsOn())
	assert.Equal(t, uint64(0), c.Elapsed(100))
}

func TestElapsedAccumulatesWhileOn(t *testing.T) {
	c := New(true, 0)
	assert.Equal(t, uint64(50), c.Elapsed(50))
}

func TestElapsedFreezesWhileOff(t *testing.T) {
	c := New(false, 0)
	assert.Equal(t, uint64(0), c.Elapsed(1000))
}

func TestOnDisplayChangedAccumulatesOnOffTransition(t *testing.T) {
	c := New(true, 0)
	c.OnDisplayChanged(false, 50)
	assert.Equal(t, uint64(50), c.Elapsed(1000), "frozen at 50 once display is off")
	assert.False(t, c.IsOn())
}

func TestOnDisplayChangedResumesAccumulation(t *testing.T) {
	c := New(true, 0)
	c.OnDisplayChanged(false, 50)
	c.OnDisplayChanged(true, 100)
	assert.Equal(t, uint64(70), c.Elapsed(120))
}

func TestOnDisplayChangedSameStateIsNoOp(t *testing.T) {
	c := New(true, 0)
	c.OnDisplayChanged(true, 50)
	assert.Equal(t, uint64(100), c.Elapsed(100), "a same-state transition must not reset lastOnAt")
}

func TestOnDisplayChangedIdempotentAcrossRepeats(t *testing.T) {
	c := New(false, 0)
	c.OnDisplayChanged(false, 10)
	c.OnDisplayChanged(false, 20)
	assert.Equal(t, uint64(0), c.Elapsed(30))
	assert.False(t, c.IsOn())
}

func TestMultipleOnOffCyclesAccumulate(t *testing.T) {
	c := New(false, 0)
	c.OnDisplayChanged(true, 10)
	c.OnDisplayChanged(false, 30) // +20
	c.OnDisplayChanged(true, 40)
	c.OnDisplayChanged(false, 55) // +15
	assert.Equal(t, uint64(35), c.Elapsed(1000))
}
