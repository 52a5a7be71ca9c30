package mq

// Filter produces a stable, spike-resistant estimate from noisy single-shot
// concentrations. Heavy exponential smoothing trades latency for stability,
// which suits slow-changing ambient gas levels.
//
// The filter is uninitialized until the first accepted reading, which is
// adopted directly. While tracking, a reading above spikeThreshold times the
// current estimate is discarded as a spike, provided the estimate sits above
// the noise floor. Disconnected readings never touch the state; the last
// good estimate (or zero) is returned instead.
type Filter struct {
	alpha          float32
	spikeThreshold float32
	noiseFloor     float32

	estimate    float32
	initialized bool
}

// NewFilter creates a filter with the given smoothing constant, spike
// rejection threshold and noise floor.
func NewFilter(alpha, spikeThreshold, noiseFloor float32) *Filter {
	return &Filter{
		alpha:          alpha,
		spikeThreshold: spikeThreshold,
		noiseFloor:     noiseFloor,
	}
}

// Update feeds one single-shot reading into the filter and returns the
// current estimate.
func (f *Filter) Update(r Reading) float32 {
	if r.Status == StatusDisconnected {
		if f.initialized {
			return f.estimate
		}
		return 0
	}

	value := r.PPM

	if !f.initialized {
		f.estimate = value
		f.initialized = true
		return f.estimate
	}

	if value > f.estimate*f.spikeThreshold && f.estimate > f.noiseFloor {
		// Spike: discard the reading, keep the estimate.
		return f.estimate
	}

	f.estimate = f.alpha*value + (1-f.alpha)*f.estimate
	return f.estimate
}

// Estimate returns the current estimate and whether the filter has accepted
// a reading yet.
func (f *Filter) Estimate() (float32, bool) {
	return f.estimate, f.initialized
}
