package orientation

import (
	"time"

	"github.com/fieldcam/cameracore/internal/monitoring"
	"gonum.org/v1/gonum/spatial/r3"
)

// OnlineSensorFusion is the outer facade over OrientationFilter and
// StationaryDetector: it forwards raw device-frame samples to the filter
// unchanged (the device-to-IMU transform is composed only into the exported
// orientation, never applied to inputs), feeds the stationary detector's
// gyro-bias correction back into the filter, and exports orientation as an
// angle-axis pair with the device-to-IMU alignment folded in.
type OnlineSensorFusion struct {
	filter     *OrientationFilter
	stationary *StationaryDetector

	deviceToImu Quat

	lastEventTime time.Time
	haveEvent     bool

	lastStationaryUpdate time.Time
	haveStationaryUpdate bool
}

// NewOnlineSensorFusion builds a facade with default (identity) device-to-IMU
// alignment. Use SetDeviceToImuTransform if the IMU is mounted at a fixed
// offset from the device's own reference frame.
func NewOnlineSensorFusion(cfg *FilterConfig) *OnlineSensorFusion {
	if cfg == nil {
		cfg = EmptyFilterConfig()
	}
	return &OnlineSensorFusion{
		filter:      NewOrientationFilter(cfg),
		stationary:  NewStationaryDetector(cfg.GetStationaryInitPeriodSecs()),
		deviceToImu: IdentityQuat,
	}
}

// SetDeviceToImuTransform sets the fixed rotation from the raw device frame
// (the frame samples arrive in) to the IMU frame the filter's math assumes.
func (o *OnlineSensorFusion) SetDeviceToImuTransform(q Quat) { o.deviceToImu = q.Normalized() }

// Filter returns the underlying OrientationFilter, for callers that need
// direct access (bias overrides, bad-mag callback registration).
func (o *OnlineSensorFusion) Filter() *OrientationFilter { return o.filter }

// StationaryDetector returns the underlying StationaryDetector.
func (o *OnlineSensorFusion) StationaryDetector() *StationaryDetector { return o.stationary }

// checkMonotonic logs, but never rejects, a timestamp that arrives behind
// the latest one seen: jittered USB/BLE delivery routinely reorders samples
// by a millisecond or two, and the downstream filters already guard their
// own dt ranges, so there is nothing to gain from dropping the sample here.
func (o *OnlineSensorFusion) checkMonotonic(t time.Time) {
	if !o.haveEvent {
		o.lastEventTime = t
		o.haveEvent = true
		return
	}
	delta := t.Sub(o.lastEventTime).Seconds()
	if delta < 0 {
		monitoring.Logf("orientation: non-monotonic sample %.6fs behind latest event", -delta)
	} else {
		o.lastEventTime = t
	}
}

// AddAccelMeasurement feeds a device-frame accelerometer sample (m/s^2).
func (o *OnlineSensorFusion) AddAccelMeasurement(sample r3.Vec, t time.Time) {
	o.checkMonotonic(t)
	o.filter.AddAccelMeasurement(sample, t)
	o.updateStationary(sample, r3.Vec{}, t, false)
}

// AddGyroMeasurement feeds a device-frame gyroscope sample (rad/s).
func (o *OnlineSensorFusion) AddGyroMeasurement(sample r3.Vec, t time.Time) {
	o.checkMonotonic(t)
	o.filter.AddGyroMeasurement(sample, t)
	o.updateStationary(r3.Vec{}, sample, t, true)
}

// AddMagMeasurement feeds a device-frame magnetometer sample (uT).
func (o *OnlineSensorFusion) AddMagMeasurement(sample r3.Vec, t time.Time, fitsCalibration bool) {
	o.checkMonotonic(t)
	o.filter.AddMagMeasurement(sample, t, fitsCalibration)
}

// updateStationary advances the stationary detector and, when a fresh gyro
// sample drives it, folds its bias correction back into the filter's gyro
// bias estimate. Accel-only calls still feed the detector's accel filter
// bank (with a zero gyro reading) so its entry/exit condition stays current
// between gyro samples, but never themselves trigger a bias update.
func (o *OnlineSensorFusion) updateStationary(accel, gyro r3.Vec, t time.Time, isGyro bool) {
	if !o.haveStationaryUpdate {
		o.lastStationaryUpdate = t
		o.haveStationaryUpdate = true
		return
	}
	dt := t.Sub(o.lastStationaryUpdate).Seconds()
	if dt <= 0 {
		return
	}
	o.lastStationaryUpdate = t

	accelForDetector := accel
	if !isGyro {
		accelForDetector = o.filter.lastAccel
	}
	o.stationary.Update(accelForDetector, gyro, dt)

	if isGyro {
		correction := o.stationary.GetGyroBiasCorrection(o.filter.GyroBias(), gyro, dt)
		if correction != (r3.Vec{}) {
			o.filter.SetGyroBias(r3.Add(o.filter.GyroBias(), correction))
		}
	}
}

// Recenter re-levels the filter's orientation estimate; see
// OrientationFilter.Recenter.
func (o *OnlineSensorFusion) Recenter() { o.filter.Recenter() }

// GetOrientation returns the current orientation as an angle (radians) and
// unit axis, composing the fixed device-to-IMU alignment into the inner
// filter's own estimate rather than applying it to each input sample: a
// device-frame axis vector v is carried to world frame by first rotating it
// into the IMU frame (deviceToImu) and then applying the filter's own
// body-to-world estimate, i.e. the combined rotation is
// filter.Orientation() composed with deviceToImu.
func (o *OnlineSensorFusion) GetOrientation() (angle float64, axis r3.Vec) {
	combined := o.filter.Orientation().Mul(o.deviceToImu)
	return combined.AngleAxis()
}

// GetRotationalVelocity returns the bias-corrected angular velocity implied
// by a raw gyro sample and the filter's current bias estimate, without
// consuming the sample or advancing the filter.
func (o *OnlineSensorFusion) GetRotationalVelocity(sample r3.Vec) r3.Vec {
	return o.filter.GetRotationalVelocity(sample)
}
