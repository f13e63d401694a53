package orientation

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"
)

func almostEqualVec(t *testing.T, want, got r3.Vec, tol float64, msgAndArgs ...interface{}) {
	t.Helper()
	d := r3.Norm(r3.Sub(want, got))
	assert.LessOrEqualf(t, d, tol, "want %+v got %+v (msg: %v)", want, got, msgAndArgs)
}

// TestOrientationFilterGravityAlignment covers P1: constant accel = g*d with
// zero gyro converges the gravity column to d after the init period.
func TestOrientationFilterGravityAlignment(t *testing.T) {
	t.Parallel()

	cfg := EmptyFilterConfig()
	cfg.InitPeriodSecs = ptrFloat64(0.5)
	f := NewOrientationFilter(cfg)

	start := time.Unix(0, 0)
	d := r3.Vec{X: 0, Y: -1, Z: 0}
	accel := r3.Scale(9.8, d)

	dt := 10 * time.Millisecond
	steps := int(2 * time.Second / dt)
	for i := 0; i <= steps; i++ {
		ts := start.Add(time.Duration(i) * dt)
		f.AddAccelMeasurement(accel, ts)
		f.AddGyroMeasurement(r3.Vec{}, ts)
	}

	_, gravity, _ := f.rotationColumns()
	almostEqualVec(t, d, gravity, 1e-3, "gravity column should converge to d")
}

// TestRecenterPreservesGravityColumn covers P2.
func TestRecenterPreservesGravityColumn(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(nil)
	f.SetOrientation(QuatFromAngleAxis(r3.Vec{X: 1, Y: 1, Z: 0.3}, 0.7))

	_, gravityBefore, _ := f.rotationColumns()
	f.Recenter()
	_, gravityAfter, headingAfter := f.rotationColumns()

	almostEqualVec(t, gravityBefore, gravityAfter, 1e-9, "gravity column must be invariant under Recenter")
	assert.InDeltaf(t, 0, headingAfter.Y, 1e-9, "heading column's Y component must be zeroed")
}

// TestIntegratePreservesQuatUnderZeroRate covers P3 for all three schemes.
func TestIntegratePreservesQuatUnderZeroRate(t *testing.T) {
	t.Parallel()

	q := QuatFromAngleAxis(r3.Vec{X: 0.2, Y: 0.5, Z: 0.1}, 1.234)
	for _, method := range []Integrator{IntegratorEuler, IntegratorRK2, IntegratorRK4} {
		next := Integrate(method, q, r3.Vec{}, 0.05)
		almostEqualVec(t, r3.Vec{X: next.X, Y: next.Y, Z: next.Z}, r3.Vec{X: q.X, Y: q.Y, Z: q.Z}, 1e-12)
		assert.InDeltaf(t, q.W, next.W, 1e-12, "scalar part must be preserved under zero rate")
	}
}

// TestGetRotationalVelocitySubtractsBias covers P4.
func TestGetRotationalVelocitySubtractsBias(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(nil)
	bias := r3.Vec{X: 0.01, Y: -0.02, Z: 0.005}
	f.SetGyroBias(bias)

	sample := r3.Vec{X: 1, Y: 2, Z: 3}
	got := f.GetRotationalVelocity(sample)
	almostEqualVec(t, r3.Sub(sample, bias), got, 1e-15)
}

// TestGyroDtGating covers P5's dt gating: samples outside (min, max] dt are
// dropped and the orientation is left unchanged.
func TestGyroDtGating(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(nil)
	start := time.Unix(0, 0)
	f.AddGyroMeasurement(r3.Vec{}, start)
	before := f.Orientation()

	// dt below the minimum threshold: dropped.
	f.AddGyroMeasurement(r3.Vec{X: 1}, start.Add(500*time.Microsecond))
	assert.Equal(t, before, f.Orientation())

	// dt above the maximum threshold: dropped.
	f.AddGyroMeasurement(r3.Vec{X: 1}, start.Add(2*time.Second))
	assert.Equal(t, before, f.Orientation())
}

// TestGravityAlignmentAlongEachAxis covers S1-S3's setup (gravity held along
// each principal axis in turn): the filter's gravity column (rotation
// column Y) converges to the normalized accel direction regardless of which
// axis gravity is fed along.
func TestGravityAlignmentAlongEachAxis(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		gravity r3.Vec
	}{
		{"z-up", r3.Vec{X: 0, Y: 0, Z: -9.81}},
		{"y-up", r3.Vec{X: 0, Y: -9.81, Z: 0}},
		{"x-up", r3.Vec{X: -9.81, Y: 0, Z: 0}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := EmptyFilterConfig()
			cfg.InitPeriodSecs = ptrFloat64(0)
			f := NewOrientationFilter(cfg)

			start := time.Unix(0, 0)
			t0 := start
			f.AddAccelMeasurement(tc.gravity, t0)
			f.AddGyroMeasurement(r3.Vec{}, t0)
			t1 := t0.Add(time.Second)
			f.AddAccelMeasurement(tc.gravity, t1)
			f.AddGyroMeasurement(r3.Vec{}, t1)

			_, gravityCol, _ := f.rotationColumns()
			want := r3.Scale(1/r3.Norm(tc.gravity), tc.gravity)
			almostEqualVec(t, want, gravityCol, 5e-2)
		})
	}
}

func TestParseIntegratorDefaultsToRK4(t *testing.T) {
	t.Parallel()
	require.Equal(t, IntegratorRK4, ParseIntegrator("bogus"))
	require.Equal(t, IntegratorEuler, ParseIntegrator("euler"))
	require.Equal(t, IntegratorRK2, ParseIntegrator("rk2"))
}

func TestQuatFromColumnsRoundTrip(t *testing.T) {
	t.Parallel()
	q := QuatFromAngleAxis(r3.Vec{X: 0.3, Y: -0.6, Z: 0.2}, 1.1)
	x := q.RotateVector(r3.Vec{X: 1})
	y := q.RotateVector(r3.Vec{Y: 1})
	z := q.RotateVector(r3.Vec{Z: 1})

	rebuilt := QuatFromColumns(x, y, z)
	almostEqualVec(t, rebuilt.RotateVector(r3.Vec{X: 1}), x, 1e-9)
	almostEqualVec(t, rebuilt.RotateVector(r3.Vec{Y: 1}), y, 1e-9)
	almostEqualVec(t, rebuilt.RotateVector(r3.Vec{Z: 1}), z, 1e-9)
}

func TestMagAlignmentTriggersAfterEnoughSamples(t *testing.T) {
	t.Parallel()

	cfg := EmptyFilterConfig()
	cfg.NumMagForInitialization = ptrInt(3)
	f := NewOrientationFilter(cfg)

	start := time.Unix(0, 0)
	f.AddAccelMeasurement(r3.Vec{X: 0, Y: -9.81, Z: 0}, start)
	f.AddGyroMeasurement(r3.Vec{}, start)

	for i := 0; i < 3; i++ {
		ts := start.Add(time.Duration(i+1) * 10 * time.Millisecond)
		f.AddMagMeasurement(r3.Vec{X: 20, Y: 0, Z: 10}, ts, true)
	}
	assert.False(t, f.IsMagAligned(), "alignment only runs on the next gyro-driven propagate")

	ts := start.Add(50 * time.Millisecond)
	f.AddGyroMeasurement(r3.Vec{}, ts)
	assert.True(t, f.IsMagAligned())
}

func TestBadMagCallbackFires(t *testing.T) {
	t.Parallel()

	cfg := EmptyFilterConfig()
	cfg.NumMagForInitialization = ptrInt(1)
	cfg.BadMagConsecutiveSamples = ptrInt(2)
	cfg.BadMagThresholdDegrees = ptrFloat64(1)
	f := NewOrientationFilter(cfg)

	fired := 0
	f.OnBadMag(func() { fired++ })

	start := time.Unix(0, 0)
	f.AddAccelMeasurement(r3.Vec{X: 0, Y: -9.81, Z: 0}, start)
	f.AddGyroMeasurement(r3.Vec{}, start)

	// A mag direction badly rotated relative to the current heading
	// estimate should keep failing the residual-yaw check.
	badMag := r3.Vec{X: 0, Y: 0, Z: 1}
	for i := 0; i < 5; i++ {
		ts := start.Add(time.Duration(i+1) * 20 * time.Millisecond)
		f.AddMagMeasurement(badMag, ts, true)
		f.AddGyroMeasurement(r3.Vec{}, ts)
	}

	assert.GreaterOrEqual(t, fired, 1, "persistent mag disagreement should fire the bad-mag callback")
}

func TestRemoveBadMagCallbackStopsFutureInvocations(t *testing.T) {
	t.Parallel()

	cfg := EmptyFilterConfig()
	cfg.NumMagForInitialization = ptrInt(1)
	cfg.BadMagConsecutiveSamples = ptrInt(2)
	cfg.BadMagThresholdDegrees = ptrFloat64(1)
	f := NewOrientationFilter(cfg)

	fired := 0
	token := f.OnBadMag(func() { fired++ })
	f.RemoveBadMagCallback(token)

	// Removing an already-removed (or unknown) token must stay a no-op.
	f.RemoveBadMagCallback(token)

	start := time.Unix(0, 0)
	f.AddAccelMeasurement(r3.Vec{X: 0, Y: -9.81, Z: 0}, start)
	f.AddGyroMeasurement(r3.Vec{}, start)

	badMag := r3.Vec{X: 0, Y: 0, Z: 1}
	for i := 0; i < 5; i++ {
		ts := start.Add(time.Duration(i+1) * 20 * time.Millisecond)
		f.AddMagMeasurement(badMag, ts, true)
		f.AddGyroMeasurement(r3.Vec{}, ts)
	}

	assert.Equal(t, 0, fired, "unregistered callback must never fire")
}

func TestAngleBetweenGuardRejectsLargeJump(t *testing.T) {
	t.Parallel()

	f := NewOrientationFilter(nil)
	start := time.Unix(0, 0)
	f.AddAccelMeasurement(r3.Vec{X: 0, Y: -9.81, Z: 0}, start)

	before := f.lastAccel
	// Nearly opposite direction: far past the 44 degree guard.
	f.AddAccelMeasurement(r3.Vec{X: 0, Y: 9.81, Z: 0}, start.Add(10*time.Millisecond))
	assert.Equal(t, before, f.lastAccel, "an accel sample far from the previous one should be rejected")
}

func TestDegToRadRadToDegRoundTrip(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 90.0, radToDeg(degToRad(90)), 1e-12)
	assert.InDelta(t, math.Pi, degToRad(radToDeg(math.Pi)), 1e-12)
}
