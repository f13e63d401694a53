package orientation

import "gonum.org/v1/gonum/spatial/r3"

const (
	stationaryExitAccelThreshold  = 0.15
	stationaryExitGyroHPThreshold = 0.02
	stationaryExitGyroThreshold   = 0.15

	stationaryEntryAccelThreshold = 0.0025
	stationaryEntryGyroThreshold  = 0.001

	stationaryStableSecsNormal = 10.0
	stationaryStableSecsInit   = 1.0

	gyroBiasCorrectionGain  = 0.002
	gyroBiasCorrectionLimit = 0.0015
	gyroBiasConvergedHoldS  = 0.1

	delayedLowPassCutoffDuringInit  = 0.5
	delayedLowPassCutoffSteadyState = 0.05

	gyroCorrectionDelaySecs = 1.0
)

// StationaryState is the device-motion state tracked by StationaryDetector.
type StationaryState int

const (
	StateNonStationary StationaryState = iota
	StateStationary
)

// conditionTester tracks how long a boolean condition has held continuously
// true, resetting the moment it goes false.
type conditionTester struct {
	elapsed   float64
	running   bool
	startedAt float64
}

func (c *conditionTester) isStable(condition bool, now, requiredSecs float64) bool {
	if !condition {
		c.running = false
		return false
	}
	if !c.running {
		c.running = true
		c.startedAt = now
	}
	return now-c.startedAt > requiredSecs
}

func (c *conditionTester) reset() { c.running = false }

// StationaryDetector watches filtered accelerometer and gyroscope signals to
// decide when a device is at rest, and produces a slowly-converging
// gyro-bias correction while it is. Entry is gated on the low-pass filtered
// magnitude of the DELTA between consecutive samples (so it reflects how
// much the signal is changing, not its absolute level, which for gravity is
// never near zero). Exit is gated on the high-pass filtered magnitude of the
// raw samples plus a hard gyro-norm ceiling. The detector mirrors the
// orientation filter's notion of an "init period": for the first
// initPeriod seconds after the first gyro sample, entry only needs a 1s
// stability hold instead of 10s, and the bias filter's cutoff is looser,
// since a freshly-powered IMU's gyro bias is expected to be further from its
// resting value.
type StationaryDetector struct {
	initPeriod float64

	firstGyroTime float64
	haveFirstGyro bool
	lastTime      float64

	lastAccel    r3.Vec
	haveLastAccel bool
	lastGyro     r3.Vec
	haveLastGyro bool

	state StationaryState

	lpAccel *LowPassFilter
	lpGyro  *LowPassFilter
	hpAccel *HighPassFilter
	hpGyro  *HighPassFilter

	delayedBias *DelayedLowPassFilter

	noExitTester        conditionTester
	convergenceTester    conditionTester
	maxCorrectionCrossed bool
	hasConverged         bool

	onTransition func(StationaryState)
}

// NewStationaryDetector creates a detector whose init period (during which
// stability requirements are relaxed) lasts initPeriodSecs seconds, measured
// from the first gyro sample it receives.
func NewStationaryDetector(initPeriodSecs float64) *StationaryDetector {
	d := &StationaryDetector{
		initPeriod: initPeriodSecs,
		lpAccel:    NewLowPassFilter(1.0),
		lpGyro:     NewLowPassFilter(1.0),
		hpAccel:    NewHighPassFilter(1.0),
		hpGyro:     NewHighPassFilter(1.0),
	}
	d.delayedBias = NewDelayedLowPassFilter(delayedLowPassCutoffDuringInit, gyroCorrectionDelaySecs)
	return d
}

// SetOnTransition installs a callback invoked whenever the detector's state
// changes.
func (d *StationaryDetector) SetOnTransition(f func(StationaryState)) { d.onTransition = f }

// State returns the current motion state.
func (d *StationaryDetector) State() StationaryState { return d.state }

func (d *StationaryDetector) isInitializing() bool {
	if !d.haveFirstGyro {
		return true
	}
	return d.lastTime-d.firstGyroTime < d.initPeriod
}

func (d *StationaryDetector) requiredStableSecs() float64 {
	if d.isInitializing() {
		return stationaryStableSecsInit
	}
	return stationaryStableSecsNormal
}

// Update feeds a new accelerometer/gyroscope sample pair taken dt seconds
// after the previous Update and returns the resulting motion state. The
// detector keeps its own clock as the running sum of dt. It treats the
// caller's combined
// accel+gyro cadence as the gyro cadence for the purposes of the detector's
// own init-period clock.
func (d *StationaryDetector) Update(accel, gyro r3.Vec, dt float64) StationaryState {
	d.lastTime += dt
	if !d.haveFirstGyro {
		d.haveFirstGyro = true
		d.firstGyroTime = d.lastTime
	}

	deltaAccel := accel
	if d.haveLastAccel {
		deltaAccel = r3.Sub(accel, d.lastAccel)
	}
	d.lastAccel, d.haveLastAccel = accel, true

	deltaGyro := gyro
	if d.haveLastGyro {
		deltaGyro = r3.Sub(gyro, d.lastGyro)
	}
	d.lastGyro, d.haveLastGyro = gyro, true

	lpA := d.lpAccel.Update(deltaAccel, dt)
	lpG := d.lpGyro.Update(deltaGyro, dt)
	hpA := d.hpAccel.Update(accel, dt)
	hpG := d.hpGyro.Update(gyro, dt)

	ready := d.lpAccel.HasSettled() && d.lpGyro.HasSettled() &&
		d.hpAccel.IsInitialized() && d.hpGyro.IsInitialized()
	if !ready {
		return d.state
	}

	exit := r3.Norm(hpA) > stationaryExitAccelThreshold ||
		r3.Norm(hpG) > stationaryExitGyroHPThreshold ||
		r3.Norm(gyro) > stationaryExitGyroThreshold ||
		d.maxCorrectionCrossed

	entry := r3.Norm(lpA) < stationaryEntryAccelThreshold &&
		r3.Norm(lpG) < stationaryEntryGyroThreshold

	noExitStable := d.noExitTester.isStable(!exit, d.lastTime, d.requiredStableSecs())

	switch d.state {
	case StateNonStationary:
		if entry && noExitStable {
			d.transitionTo(StateStationary)
		}
	case StateStationary:
		if exit {
			d.transitionTo(StateNonStationary)
		}
	}

	return d.state
}

func (d *StationaryDetector) transitionTo(next StationaryState) {
	if next == d.state {
		return
	}
	d.state = next
	switch next {
	case StateStationary:
		d.delayedBias.Reset()
		d.maxCorrectionCrossed = false
		d.hasConverged = false
		d.convergenceTester.reset()
	case StateNonStationary:
		d.delayedBias.Reset()
		if !d.isInitializing() {
			d.delayedBias.SetCutoff(delayedLowPassCutoffSteadyState)
		}
		d.maxCorrectionCrossed = false
		d.hasConverged = false
		d.convergenceTester.reset()
		d.noExitTester.reset()
	}
	if d.onTransition != nil {
		d.onTransition(next)
	}
}

// GetGyroBiasCorrection returns the incremental correction to apply to an
// externally-tracked gyro bias estimate, given that estimate's own current
// value extBias and the raw gyro sample driving this update. It returns the
// zero vector unless the device is stationary and the delayed low-pass
// filter has accumulated enough history to trust. The correction is a small
// fraction of the gap between extBias and the freshly-observed stationary
// value (extBias minus the stationary estimate, not the other way around,
// since the correction is meant to be ADDED to extBias to pull it toward the
// stationary value), clamped to +/-gyroBiasCorrectionLimit per axis once
// outside the init period; once the (unclamped) correction has stayed within
// that bound for gyroBiasConvergedHoldS seconds, a later excursion sets a
// latch that holds the correction at zero until the detector next leaves and
// re-enters the stationary state.
func (d *StationaryDetector) GetGyroBiasCorrection(extBias r3.Vec, gyro r3.Vec, dt float64) r3.Vec {
	stationaryValue := d.delayedBias.Update(gyro, dt)

	if d.state != StateStationary || !d.delayedBias.Ready() {
		return r3.Vec{}
	}

	raw := r3.Sub(extBias, stationaryValue)

	if d.convergenceTester.isStable(r3.Norm(raw) < gyroBiasCorrectionLimit, d.lastTime, gyroBiasConvergedHoldS) {
		d.hasConverged = true
	}
	if !d.isInitializing() && d.hasConverged && r3.Norm(raw) > gyroBiasCorrectionLimit {
		d.maxCorrectionCrossed = true
		return r3.Vec{}
	}

	correction := raw
	if !d.isInitializing() {
		correction, _ = clampComponentwise(correction, gyroBiasCorrectionLimit)
	}

	gain := gyroBiasCorrectionGain
	if d.isInitializing() {
		gain *= 10.0
	}
	return r3.Scale(gain, correction)
}

func clampComponentwise(v r3.Vec, limit float64) (r3.Vec, bool) {
	crossed := false
	clamp := func(x float64) float64 {
		if x > limit {
			crossed = true
			return limit
		}
		if x < -limit {
			crossed = true
			return -limit
		}
		return x
	}
	return r3.Vec{X: clamp(v.X), Y: clamp(v.Y), Z: clamp(v.Z)}, crossed
}
