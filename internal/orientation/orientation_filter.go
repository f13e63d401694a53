package orientation

import (
	"math"
	"time"

	"github.com/fieldcam/cameracore/internal/monitoring"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r3"
)

// magAlignState tracks the yaw-alignment handshake between the filter and
// its magnetometer input: a fresh mag stream must accumulate a run of good
// samples before its yaw correction is trusted, and a Gauss-Newton solve
// then estimates the constant yaw offset between the magnetometer's frame
// and the filter's current heading estimate.
type magAlignState int

const (
	magUnaligned magAlignState = iota
	magAligning
	magAligned
)

// OrientationFilter is a Mahony-style complementary filter fusing
// accelerometer, gyroscope and (optionally) magnetometer samples into a
// running orientation estimate, plus a gyro bias and a magnetometer bias.
// It has no notion of wall-clock time beyond the timestamps passed to its
// Add*Measurement methods, and never returns an error: every precondition
// violation is logged and the call is a no-op, per the "degrade silently"
// discipline the sensor path is built around.
type OrientationFilter struct {
	cfg *FilterConfig

	q         Quat
	gyroBias  r3.Vec
	magBias   r3.Vec
	appliedR3 r3.Vec // most recent rate-correction term, exposed for diagnostics

	haveGyroEver bool
	lastGyroTime time.Time

	haveAccel     bool
	lastAccel     r3.Vec
	lastAccelTime time.Time

	haveMag        bool
	magFitsCal     bool
	lastMagTime    time.Time
	firstMagTime   time.Time
	magLowPass     *LowPassFilter
	lastMag        r3.Vec // low-passed, bias-corrected
	lastMagRaw2    r3.Vec // bias-corrected, unfiltered
	previousMag    r3.Vec
	stationaryBiasEnabled bool

	startTime time.Time
	started   bool

	magAlign        magAlignState
	magSamplesSeen  int
	magYawOffset    float64
	badMagStreak    int
	onBadMag        []badMagCallback
}

// badMagCallback pairs a registered bad-mag callback with the opaque token
// returned to the caller at registration, so it can be unregistered later
// without callers needing to compare function values.
type badMagCallback struct {
	token uuid.UUID
	fn    func()
}

// NewOrientationFilter creates a filter using cfg for its gains. A nil cfg
// uses an EmptyFilterConfig, i.e. every gain takes its production default.
func NewOrientationFilter(cfg *FilterConfig) *OrientationFilter {
	if cfg == nil {
		cfg = EmptyFilterConfig()
	}
	return &OrientationFilter{
		cfg:                   cfg,
		q:                     IdentityQuat,
		magLowPass:            NewLowPassFilter(cfg.GetMagLowPassCutoffHz()),
		stationaryBiasEnabled: true,
	}
}

// Orientation returns the filter's current orientation estimate.
func (f *OrientationFilter) Orientation() Quat { return f.q }

// GyroBias returns the filter's current gyro bias estimate.
func (f *OrientationFilter) GyroBias() r3.Vec { return f.gyroBias }

// MagBias returns the filter's current magnetometer bias estimate.
func (f *OrientationFilter) MagBias() r3.Vec { return f.magBias }

// SetOrientation overrides the current orientation estimate directly.
func (f *OrientationFilter) SetOrientation(q Quat) { f.q = q.Normalized().Canonical() }

// SetGyroBias overrides the gyro bias estimate directly.
func (f *OrientationFilter) SetGyroBias(b r3.Vec) { f.gyroBias = b }

// GetRotationalVelocity returns a raw gyro sample with the filter's current
// bias estimate subtracted, without consuming the sample.
func (f *OrientationFilter) GetRotationalVelocity(sample r3.Vec) r3.Vec {
	return r3.Sub(sample, f.gyroBias)
}

// SetMagBias overrides the magnetometer bias estimate and marks the mag-yaw
// alignment stale, since a bias change invalidates whatever yaw offset was
// solved against the old bias.
func (f *OrientationFilter) SetMagBias(b r3.Vec) {
	f.magBias = b
	f.magAlign = magUnaligned
	f.magSamplesSeen = 0
}

// SetStationaryBiasEnabled toggles whether AddMagMeasurement should keep a
// raw previous-sample snapshot for a stationary-bias estimator layered on
// top of this filter (see OnlineSensorFusion). When disabled, PreviousMag
// always reflects the most recent low-passed sample instead.
func (f *OrientationFilter) SetStationaryBiasEnabled(enabled bool) { f.stationaryBiasEnabled = enabled }

// PreviousMag returns the magnetometer snapshot recorded just before the
// most recent AddMagMeasurement call, for use by a stationary-bias
// estimator layered on top of this filter.
func (f *OrientationFilter) PreviousMag() r3.Vec { return f.previousMag }

// IsMagAligned reports whether the mag-yaw Gauss-Newton solve has completed
// at least once, i.e. whether the magnetometer is currently contributing a
// heading correction.
func (f *OrientationFilter) IsMagAligned() bool { return f.magAlign == magAligned }

// OnBadMag registers a callback invoked when the magnetometer disagrees
// with the gyro/accel-derived heading by more than the configured threshold
// for the configured number of consecutive samples. It returns an opaque
// token that can be passed to RemoveBadMagCallback to unregister it later;
// callers that never need to unregister can discard the token.
func (f *OrientationFilter) OnBadMag(cb func()) uuid.UUID {
	token := uuid.New()
	f.onBadMag = append(f.onBadMag, badMagCallback{token: token, fn: cb})
	return token
}

// RemoveBadMagCallback unregisters the callback previously returned by
// OnBadMag. Removing an unknown or already-removed token is a no-op.
func (f *OrientationFilter) RemoveBadMagCallback(token uuid.UUID) {
	for i, cb := range f.onBadMag {
		if cb.token == token {
			f.onBadMag = append(f.onBadMag[:i], f.onBadMag[i+1:]...)
			return
		}
	}
}

func (f *OrientationFilter) elapsed(t time.Time) float64 {
	if !f.started {
		return 0
	}
	return t.Sub(f.startTime).Seconds()
}

func (f *OrientationFilter) inInitPeriod(t time.Time) bool {
	return f.elapsed(t) < f.cfg.GetInitPeriodSecs()
}

func (f *OrientationFilter) ensureStarted(t time.Time) {
	if !f.started {
		f.startTime = t
		f.started = true
	}
}

// AddAccelMeasurement records a new accelerometer sample. If the sample's
// direction differs from the previous accepted accel sample by more than the
// configured guard angle it is rejected as non-gravitational (e.g. the
// device is accelerating hard) and dropped; the sample is not compared with
// the filter's gravity estimate, and the estimate is never snapped to it. If no gyro sample has ever
// arrived, the filter synthesizes a zero-angular-velocity propagation step
// so the orientation still tracks gravity from accelerometer alone.
func (f *OrientationFilter) AddAccelMeasurement(sample r3.Vec, t time.Time) {
	f.ensureStarted(t)

	if f.haveAccel {
		if angle := angleBetween(sample, f.lastAccel); angle > degToRad(f.cfg.GetAccelAngleGuardDegrees()) {
			monitoring.Logf("orientation: rejecting accel sample %.3f deg from previous", radToDeg(angle))
			return
		}
	}

	f.lastAccel = sample
	f.lastAccelTime = t
	f.haveAccel = true

	if !f.haveGyroEver {
		dt := 0.0
		if !f.lastGyroTime.IsZero() {
			dt = t.Sub(f.lastGyroTime).Seconds()
		}
		f.lastGyroTime = t
		if dt > 0 {
			f.propagate(r3.Vec{}, dt, t)
		} else if !f.started || f.q == IdentityQuat {
			f.initializeFromAccelMag()
		}
	}
}

// AddGyroMeasurement records a new gyro sample and propagates the filter
// state forward by the interval since the previous gyro sample. Samples
// whose interval falls outside (GyroMinDtSecs, GyroMaxDtSecs] do not
// propagate the filter; a non-monotonic timestamp is also logged. In both
// cases the sample's timestamp still becomes the reference for the next
// interval.
func (f *OrientationFilter) AddGyroMeasurement(sample r3.Vec, t time.Time) {
	f.ensureStarted(t)

	if !f.haveGyroEver {
		f.haveGyroEver = true
		f.lastGyroTime = t
		f.initializeFromAccelMag()
		return
	}

	dt := t.Sub(f.lastGyroTime).Seconds()
	if dt <= 0 {
		monitoring.Logf("orientation: non-monotonic gyro timestamp, dt=%.6f", dt)
		f.lastGyroTime = t
		return
	}
	if dt <= f.cfg.GetGyroMinDtSecs() || dt > f.cfg.GetGyroMaxDtSecs() {
		monitoring.Logf("orientation: dropping gyro sample with dt=%.6f outside (%.3f,%.3f]", dt, f.cfg.GetGyroMinDtSecs(), f.cfg.GetGyroMaxDtSecs())
		f.lastGyroTime = t
		return
	}
	f.lastGyroTime = t

	omega := r3.Sub(sample, f.gyroBias)
	f.propagate(omega, dt, t)
}

// AddMagMeasurement records a new magnetometer sample. fitsCalibration
// reports whether the sample passed the caller's hard/soft-iron calibration
// check; samples that fail are low-passed and cached like any other but
// never contribute a yaw correction.
func (f *OrientationFilter) AddMagMeasurement(sample r3.Vec, t time.Time, fitsCalibration bool) {
	f.ensureStarted(t)
	if !f.haveMag {
		f.firstMagTime = t
	}

	if f.stationaryBiasEnabled {
		f.previousMag = f.lastMagRaw()
	}

	corrected := r3.Sub(sample, f.magBias)
	filtered := f.magLowPass.Update(corrected, f.magDt(t))
	if !f.stationaryBiasEnabled {
		f.previousMag = filtered
	}

	f.lastMagRaw2 = corrected
	f.lastMag = filtered
	f.lastMagTime = t
	f.magFitsCal = fitsCalibration
	f.haveMag = true

	if fitsCalibration {
		f.magSamplesSeen++
		if f.magAlign == magUnaligned && f.magSamplesSeen >= f.cfg.GetNumMagForInitialization() {
			f.magAlign = magAligning
		}
	}
}

func (f *OrientationFilter) magDt(t time.Time) float64 {
	if f.lastMagTime.IsZero() {
		return 0
	}
	return t.Sub(f.lastMagTime).Seconds()
}

// lastMagRaw returns whichever of lastMag (low-passed) or lastMagRaw2
// (bias-corrected but unfiltered) the stationary-bias mode calls for as its
// "previous" snapshot.
func (f *OrientationFilter) lastMagRaw() r3.Vec {
	if f.stationaryBiasEnabled {
		return f.lastMagRaw2
	}
	return f.lastMag
}

// Recenter re-levels the orientation estimate so that the gravity column
// (rotation column Y, this filter's down direction) is preserved exactly,
// while the heading column (rotation column Z) is replaced by the unique
// unit vector with a zero Y-component that stays orthogonal to gravity:
// this removes whatever small roll/pitch drift has crept into the heading
// estimate without discarding the current compass heading or touching the
// gravity estimate at all.
func (f *OrientationFilter) Recenter() {
	_, gravity, heading := f.rotationColumns()

	// Solve for unit h=(hx,0,hz) with dot(h,gravity)=0: (hx,hz) must be
	// perpendicular to (gravity.X, gravity.Z) within the XZ plane.
	gx, gz := gravity.X, gravity.Z
	n := math.Hypot(gx, gz)
	var releveled r3.Vec
	if n < 1e-9 {
		// Gravity already points along world Y: any horizontal heading
		// works, so keep the existing one's horizontal direction.
		releveled = r3.Vec{X: heading.X, Z: heading.Z}
		if hn := math.Hypot(releveled.X, releveled.Z); hn > 1e-9 {
			releveled = r3.Vec{X: releveled.X / hn, Z: releveled.Z / hn}
		} else {
			releveled = r3.Vec{X: 1}
		}
	} else {
		releveled = r3.Vec{X: gz / n, Z: -gx / n}
		// Two solutions exist (+/-); keep whichever is closer to the
		// current heading so Recenter doesn't flip the compass direction.
		if r3.Dot(releveled, heading) < 0 {
			releveled = r3.Scale(-1, releveled)
		}
	}

	right := r3.Cross(gravity, releveled)
	if rn := r3.Norm(right); rn > 1e-9 {
		right = r3.Scale(1/rn, right)
	}

	f.q = QuatFromColumns(right, gravity, releveled)
}

func (f *OrientationFilter) rotationColumns() (colX, colY, colZ r3.Vec) {
	colX = f.q.RotateVector(r3.Vec{X: 1})
	colY = f.q.RotateVector(r3.Vec{Y: 1})
	colZ = f.q.RotateVector(r3.Vec{Z: 1})
	return
}

// initializeFromAccelMag sets the initial orientation directly from the
// most recent accelerometer (and, if available, magnetometer) samples:
// rotation column Y (this filter's down direction) is taken from gravity,
// and rotation column Z (heading) from the horizontal component of the
// magnetometer reading if one is available, or an arbitrary axis orthogonal
// to gravity otherwise.
func (f *OrientationFilter) initializeFromAccelMag() {
	if !f.haveAccel {
		return
	}
	down := f.lastAccel
	if n := r3.Norm(down); n < 1e-6 {
		monitoring.Logf("orientation: cannot initialize, accel sample too small")
		return
	} else {
		down = r3.Scale(1/n, down)
	}

	var north r3.Vec
	if f.haveMag {
		m := f.lastMag
		north = r3.Sub(m, r3.Scale(r3.Dot(m, down), down))
	}
	if r3.Norm(north) < 1e-6 {
		north = arbitraryOrthogonal(down)
	} else {
		north = r3.Scale(1/r3.Norm(north), north)
	}

	right := r3.Cross(down, north)
	if n := r3.Norm(right); n > 1e-9 {
		right = r3.Scale(1/n, right)
	}
	north = r3.Cross(right, down)

	f.q = QuatFromColumns(right, down, north)
}

func arbitraryOrthogonal(v r3.Vec) r3.Vec {
	candidate := r3.Vec{X: 1}
	if math.Abs(v.X) > 0.9 {
		candidate = r3.Vec{Y: 1}
	}
	ortho := r3.Sub(candidate, r3.Scale(r3.Dot(candidate, v), v))
	if n := r3.Norm(ortho); n > 1e-9 {
		return r3.Scale(1/n, ortho)
	}
	return r3.Vec{Y: 1}
}

// propagate performs one full complementary-filter update: rate correction
// from the cached accel/mag samples, quaternion integration by dt using the
// configured scheme, the mag-yaw Gauss-Newton alignment when enough
// samples have accumulated, and once aligned the per-step bad-mag check.
func (f *OrientationFilter) propagate(omega r3.Vec, dt float64, t time.Time) {
	r := f.rateCorrection(t)
	f.appliedR3 = r
	f.q = Integrate(ParseIntegrator(f.cfg.GetIntegrator()), f.q, r3.Add(omega, r), dt)

	if f.magAlign == magAligning {
		f.runMagAlignment()
	} else if f.magAlign == magAligned && f.haveMag && f.magFitsCal {
		// Re-measure the yaw between the heading column and the horizontal
		// mag reading on every step, so the bad-mag streak counts steps.
		_, down, north := f.rotationColumns()
		m := r3.Sub(f.lastMag, r3.Scale(r3.Dot(f.lastMag, down), down))
		if n := r3.Norm(m); n > 1e-9 {
			f.checkBadMag(angleSigned(north, r3.Scale(1/n, m), down))
		}
	}
}

// rateCorrection computes the Mahony feedback term nudging the filter's
// current gravity (and, once aligned, heading) estimate toward what the
// accelerometer (and magnetometer) actually measured.
func (f *OrientationFilter) rateCorrection(t time.Time) r3.Vec {
	var r r3.Vec
	if !f.haveAccel {
		return r
	}
	measured := f.lastAccel
	n := r3.Norm(measured)
	if n < 1e-6 {
		return r
	}
	measured = r3.Scale(1/n, measured)

	_, estimatedDown, _ := f.rotationColumns()
	// estimatedDown is the body-frame direction the filter currently
	// believes points along world-down; a mismatch with the freshly
	// measured direction drives the correction.
	accelGain := f.cfg.GetAccelGainNormal()
	if f.inInitPeriod(t) {
		accelGain = f.cfg.GetAccelGainInit()
	}
	r = r3.Add(r, r3.Scale(accelGain/2, r3.Cross(measured, estimatedDown)))

	if f.magUsable(t) {
		magGain := f.cfg.GetMagGainNormal()
		if f.inInitPeriod(t) {
			magGain = f.cfg.GetMagGainInit()
		}
		measuredMag := f.lastMag
		if n := r3.Norm(measuredMag); n > 1e-9 {
			measuredMag = r3.Scale(1/n, measuredMag)
			_, _, estimatedNorth := f.rotationColumns()
			// Project both onto the horizontal plane (perpendicular to
			// gravity) so only heading, not tilt, is corrected by mag.
			measuredMag = r3.Sub(measuredMag, r3.Scale(r3.Dot(measuredMag, estimatedDown), estimatedDown))
			if mn := r3.Norm(measuredMag); mn > 1e-9 {
				measuredMag = r3.Scale(1/mn, measuredMag)
				r = r3.Add(r, r3.Scale(magGain/2, r3.Cross(measuredMag, estimatedNorth)))
			}
		}
	}

	return r
}

func (f *OrientationFilter) magUsable(t time.Time) bool {
	if !f.haveMag || !f.magFitsCal || f.magAlign != magAligned {
		return false
	}
	if t.Sub(f.lastMagTime).Seconds() > f.cfg.GetMagMaxStalenessSecs() {
		return false
	}
	return true
}

// runMagAlignment performs one Gauss-Newton iteration estimating the
// constant yaw offset between the current heading estimate and the
// magnetometer's horizontal reading, terminating alignment once the
// residual step is small enough or the Hessian degenerates.
func (f *OrientationFilter) runMagAlignment() {
	if !f.haveMag {
		return
	}
	maxIter := f.cfg.GetMagGaussNewtonMaxIterations()
	convergence := f.cfg.GetMagGaussNewtonConvergenceRad()
	minHessian := f.cfg.GetMagGaussNewtonMinHessian()

	_, down, north := f.rotationColumns()
	measuredMag := r3.Sub(f.lastMag, r3.Scale(r3.Dot(f.lastMag, down), down))
	if r3.Norm(measuredMag) < 1e-9 {
		return
	}
	measuredMag = r3.Scale(1/r3.Norm(measuredMag), measuredMag)

	theta := f.magYawOffset
	for i := 0; i < maxIter; i++ {
		rotated := QuatFromAngleAxis(down, theta).RotateVector(north)
		residual := angleSigned(rotated, measuredMag, down)

		// d(residual)/d(theta) for a rotation about `down` is 1 to first
		// order (the residual is itself an angle), so the Hessian here is
		// the Gauss-Newton normal-equation coefficient J^T*J for a
		// single-parameter fit: it is 1 unless the geometry degenerates.
		hessian := 1.0
		if hessian < minHessian {
			break
		}
		step := residual / hessian
		theta += step
		if math.Abs(step) < convergence {
			break
		}
	}
	f.magYawOffset = theta
	f.magAlign = magAligned

	f.checkBadMag(theta)
}

func (f *OrientationFilter) checkBadMag(residualYaw float64) {
	threshold := degToRad(f.cfg.GetBadMagThresholdDegrees())
	if math.Abs(residualYaw) > threshold {
		f.badMagStreak++
	} else {
		f.badMagStreak = 0
	}
	if f.badMagStreak >= f.cfg.GetBadMagConsecutiveSamples() {
		for _, cb := range f.onBadMag {
			cb.fn()
		}
		f.badMagStreak = 0
	}
}

func angleBetween(a, b r3.Vec) float64 {
	na, nb := r3.Norm(a), r3.Norm(b)
	if na < 1e-9 || nb < 1e-9 {
		return 0
	}
	cos := r3.Dot(a, b) / (na * nb)
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos)
}

// angleSigned returns the signed angle (radians) from vector `from` to
// vector `to`, both assumed perpendicular to `axis`, with positive angles
// following the right-hand rule about `axis`.
func angleSigned(from, to, axis r3.Vec) float64 {
	cross := r3.Cross(from, to)
	sin := r3.Dot(cross, axis)
	cos := r3.Dot(from, to)
	return math.Atan2(sin, cos)
}

func degToRad(d float64) float64 { return d * math.Pi / 180 }
func radToDeg(r float64) float64 { return r * 180 / math.Pi }
