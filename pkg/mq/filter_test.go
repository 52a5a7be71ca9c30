package mq

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestFilter() *Filter {
	return NewFilter(0.1, 10, 0.1)
}

func TestFilter_FirstReadingAdopted(t *testing.T) {
	f := newTestFilter()

	got := f.Update(Reading{PPM: 20.0, Status: StatusOK})
	assert.InDelta(t, 20.0, got, 1e-6)

	estimate, ok := f.Estimate()
	assert.True(t, ok)
	assert.InDelta(t, 20.0, estimate, 1e-6)
}

func TestFilter_SpikeRejected(t *testing.T) {
	f := newTestFilter()
	f.Update(Reading{PPM: 1.0, Status: StatusOK})

	// 20 > 10 * 1.0 and the estimate sits above the noise floor.
	got := f.Update(Reading{PPM: 20.0, Status: StatusOK})
	assert.InDelta(t, 1.0, got, 1e-6, "spike must leave the estimate unchanged")
}

func TestFilter_SpikeAcceptedBelowNoiseFloor(t *testing.T) {
	f := newTestFilter()
	f.Update(Reading{PPM: 0.05, Status: StatusOK})

	// The estimate is below the noise floor, so the jump is trusted.
	got := f.Update(Reading{PPM: 100.0, Status: StatusOK})
	assert.InDelta(t, 0.1*100.0+0.9*0.05, got, 1e-4)
}

func TestFilter_EMAConvergence(t *testing.T) {
	f := newTestFilter()
	f.Update(Reading{PPM: 0, Status: StatusOK})

	var got float32
	for i := 0; i < 100; i++ {
		got = f.Update(Reading{PPM: 10.0, Status: StatusOK})
	}
	assert.InDelta(t, 10.0, got, 0.1, "estimate must converge geometrically to the input")
}

func TestFilter_ConstantInputNoDrift(t *testing.T) {
	f := newTestFilter()

	first := f.Update(Reading{PPM: 20.0, Status: StatusOK})
	assert.InDelta(t, 20.0, first, 1e-6)

	var fifth float32
	for i := 0; i < 4; i++ {
		fifth = f.Update(Reading{PPM: 20.0, Status: StatusOK})
	}
	assert.InDelta(t, 20.0, fifth, 0.2, "no drift under constant input")
}

func TestFilter_FaultFallback(t *testing.T) {
	f := newTestFilter()

	// No prior reading: a fault reads as zero.
	assert.Zero(t, f.Update(Reading{Status: StatusDisconnected}))
	_, ok := f.Estimate()
	assert.False(t, ok, "a fault must not initialize the filter")

	f.Update(Reading{PPM: 5.0, Status: StatusOK})

	got := f.Update(Reading{Status: StatusDisconnected})
	assert.InDelta(t, 5.0, got, 1e-6, "fault must return the last good estimate")

	estimate, _ := f.Estimate()
	assert.InDelta(t, 5.0, estimate, 1e-6, "fault must not touch the state")
}

func TestFilter_UncalibratedReadsAsZero(t *testing.T) {
	f := newTestFilter()

	got := f.Update(Reading{Status: StatusUncalibrated})
	assert.Zero(t, got)

	_, ok := f.Estimate()
	assert.True(t, ok, "an uncalibrated zero is a legitimate reading")
}
