package orientation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// LowPassFilter is a first-order IIR low-pass filter over a 3-vector
// signal: y[n] = y[n-1] + alpha*(x[n]-y[n-1]), with alpha derived from a
// cutoff frequency and the sample period at each update.
type LowPassFilter struct {
	cutoffHz float64
	value    r3.Vec
	primed   bool
}

// NewLowPassFilter creates a filter with the given cutoff frequency in Hz.
func NewLowPassFilter(cutoffHz float64) *LowPassFilter {
	return &LowPassFilter{cutoffHz: cutoffHz}
}

// SetCutoff changes the cutoff frequency used by subsequent updates.
func (f *LowPassFilter) SetCutoff(hz float64) { f.cutoffHz = hz }

// Value returns the current filtered value.
func (f *LowPassFilter) Value() r3.Vec { return f.value }

// Reset clears the filter state so the next Update seeds it directly.
func (f *LowPassFilter) Reset() { f.primed = false }

// HasSettled reports whether Update has been called at least once, i.e.
// Value() reflects a real sample rather than the zero-value default.
func (f *LowPassFilter) HasSettled() bool { return f.primed }

// Update feeds a new sample taken dt seconds after the previous one and
// returns the updated filtered value. The first call after construction or
// Reset seeds the filter with x unchanged.
func (f *LowPassFilter) Update(x r3.Vec, dt float64) r3.Vec {
	if !f.primed {
		f.value = x
		f.primed = true
		return f.value
	}
	alpha := lowPassAlpha(f.cutoffHz, dt)
	f.value = r3.Add(f.value, r3.Scale(alpha, r3.Sub(x, f.value)))
	return f.value
}

func lowPassAlpha(cutoffHz, dt float64) float64 {
	if cutoffHz <= 0 || dt <= 0 {
		return 1
	}
	rc := 1.0 / (2 * math.Pi * cutoffHz)
	return dt / (rc + dt)
}

// HighPassFilter is a first-order IIR high-pass filter over a 3-vector
// signal: y[n] = alpha*(x[n]-x[n-1]+y[n-1]), the direct recursive form
// rather than a low-pass complement, so it reacts to a step input in one
// sample instead of lagging behind an inner low-pass filter's own settling
// time.
type HighPassFilter struct {
	cutoffHz float64
	value    r3.Vec
	last     r3.Vec
	primed   bool
}

// NewHighPassFilter creates a filter with the given cutoff frequency in Hz.
func NewHighPassFilter(cutoffHz float64) *HighPassFilter {
	return &HighPassFilter{cutoffHz: cutoffHz}
}

// Value returns the current filtered value.
func (f *HighPassFilter) Value() r3.Vec { return f.value }

// IsInitialized reports whether Update has been called at least once, i.e.
// Value() reflects a real sample rather than the zero-value default.
func (f *HighPassFilter) IsInitialized() bool { return f.primed }

// Reset clears the filter state.
func (f *HighPassFilter) Reset() {
	f.value = r3.Vec{}
	f.last = r3.Vec{}
	f.primed = false
}

// Update feeds a new sample and returns the updated filtered value. The
// first call seeds last at x and leaves value at zero, since a single
// sample carries no high-frequency information yet.
func (f *HighPassFilter) Update(x r3.Vec, dt float64) r3.Vec {
	if !f.primed {
		f.primed = true
		f.last = x
		f.value = r3.Vec{}
		return f.value
	}
	alpha := lowPassAlpha(f.cutoffHz, dt)
	delta := r3.Sub(x, f.last)
	f.value = r3.Scale(alpha, r3.Add(delta, f.value))
	f.last = x
	return f.value
}

// DelayedLowPassFilter is a low-pass filter whose output lags its input by a
// fixed time delay, implemented with a FIFO buffer of raw (sample, dt) pairs
// feeding an inner LowPassFilter once their combined age exceeds delayTimeS.
// Used by the stationary-bias estimator so that a freshly-entered stationary
// period only starts contributing to the bias estimate once enough delayed
// history has accumulated to be trusted.
type DelayedLowPassFilter struct {
	lp         *LowPassFilter
	buf        []r3.Vec
	dts        []float64
	delayTimeS float64
	bufferedS  float64
}

// NewDelayedLowPassFilter creates a filter with the given cutoff frequency
// and a FIFO delay of delayTimeS seconds before samples reach the low-pass
// stage.
func NewDelayedLowPassFilter(cutoffHz float64, delayTimeS float64) *DelayedLowPassFilter {
	if delayTimeS < 0 {
		delayTimeS = 0
	}
	return &DelayedLowPassFilter{
		lp:         NewLowPassFilter(cutoffHz),
		delayTimeS: delayTimeS,
	}
}

// SetCutoff changes the inner low-pass filter's cutoff frequency.
func (f *DelayedLowPassFilter) SetCutoff(hz float64) { f.lp.SetCutoff(hz) }

// Ready reports whether the delay buffer holds at least delayTimeS seconds
// of history, i.e. the output reflects genuinely delayed history rather
// than startup transients.
func (f *DelayedLowPassFilter) Ready() bool { return f.bufferedS >= f.delayTimeS }

// Value returns the current filtered (and delayed) value.
func (f *DelayedLowPassFilter) Value() r3.Vec { return f.lp.Value() }

// Reset clears all buffered samples and the inner filter.
func (f *DelayedLowPassFilter) Reset() {
	f.lp.Reset()
	f.buf = nil
	f.dts = nil
	f.bufferedS = 0
}

// Update pushes a new raw sample into the delay buffer and, once the
// buffer's total age exceeds delayTimeS, feeds the oldest buffered sample
// into the inner low-pass filter.
func (f *DelayedLowPassFilter) Update(x r3.Vec, dt float64) r3.Vec {
	f.buf = append(f.buf, x)
	f.dts = append(f.dts, dt)
	f.bufferedS += dt
	if f.bufferedS <= f.delayTimeS {
		return f.lp.Value()
	}
	oldest, oldestDt := f.buf[0], f.dts[0]
	f.buf = f.buf[1:]
	f.dts = f.dts[1:]
	f.bufferedS -= oldestDt
	return f.lp.Update(oldest, oldestDt)
}
