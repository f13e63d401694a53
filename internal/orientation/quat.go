package orientation

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Quat is a unit quaternion with components stored (x, y, z, w), the scalar
// part last. Composition (Mul) is the Hamilton product, not the JPL one, and
// RotateVector computes q*v*conj(q). This package does not use gonum's
// quaternion types: the filter state, rate integration, Recenter's column
// algebra and angle-axis extraction are all written against this type.
type Quat struct {
	X, Y, Z, W float64
}

// IdentityQuat is the identity rotation.
var IdentityQuat = Quat{X: 0, Y: 0, Z: 0, W: 1}

// Norm returns the quaternion's Euclidean norm.
func (q Quat) Norm() float64 {
	return math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z + q.W*q.W)
}

// Normalized returns q scaled to unit norm. If q is (near) zero it returns
// the identity quaternion rather than dividing by zero.
func (q Quat) Normalized() Quat {
	n := q.Norm()
	if n < 1e-12 {
		return IdentityQuat
	}
	return Quat{q.X / n, q.Y / n, q.Z / n, q.W / n}
}

// Canonical flips q to its equivalent double-cover representative with a
// non-negative scalar part, so a filter's stored orientation does not
// randomly flip sign between updates.
func (q Quat) Canonical() Quat {
	if q.W < 0 {
		return Quat{-q.X, -q.Y, -q.Z, -q.W}
	}
	return q
}

// Conj returns the conjugate (inverse, for a unit quaternion) of q.
func (q Quat) Conj() Quat {
	return Quat{-q.X, -q.Y, -q.Z, q.W}
}

// Mul returns the Hamilton product q*o: as rotations, q.Mul(o) applies o
// first, then q.
func (q Quat) Mul(o Quat) Quat {
	return Quat{
		X: q.W*o.X + q.X*o.W + q.Y*o.Z - q.Z*o.Y,
		Y: q.W*o.Y - q.X*o.Z + q.Y*o.W + q.Z*o.X,
		Z: q.W*o.Z + q.X*o.Y - q.Y*o.X + q.Z*o.W,
		W: q.W*o.W - q.X*o.X - q.Y*o.Y - q.Z*o.Z,
	}
}

// RotateVector rotates v from the body frame into the world frame using q.
func (q Quat) RotateVector(v r3.Vec) r3.Vec {
	qv := Quat{v.X, v.Y, v.Z, 0}
	r := q.Mul(qv).Mul(q.Conj())
	return r3.Vec{X: r.X, Y: r.Y, Z: r.Z}
}

// QuatFromAngleAxis builds a quaternion representing a rotation of
// angle radians about axis (which need not be normalized).
func QuatFromAngleAxis(axis r3.Vec, angle float64) Quat {
	n := r3.Norm(axis)
	if n < 1e-12 {
		return IdentityQuat
	}
	axis = r3.Scale(1/n, axis)
	half := angle / 2
	s := math.Sin(half)
	return Quat{axis.X * s, axis.Y * s, axis.Z * s, math.Cos(half)}
}

// AngleAxis extracts an angle (radians) and unit axis from q. For the
// identity rotation the axis is arbitrarily chosen as +X.
func (q Quat) AngleAxis() (angle float64, axis r3.Vec) {
	q = q.Canonical()
	sinHalf := math.Sqrt(q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	angle = 2 * math.Atan2(sinHalf, q.W)
	if sinHalf < 1e-12 {
		return 0, r3.Vec{X: 1}
	}
	return angle, r3.Vec{X: q.X / sinHalf, Y: q.Y / sinHalf, Z: q.Z / sinHalf}
}

// QuatFromColumns builds a quaternion from an orthonormal world-frame
// basis expressed as the columns (X axis, Y axis, Z axis) of the rotation
// matrix that carries body axes to world axes. Used by orientation-from-
// accelerometer initialization and by Recenter.
func QuatFromColumns(colX, colY, colZ r3.Vec) Quat {
	m00, m01, m02 := colX.X, colY.X, colZ.X
	m10, m11, m12 := colX.Y, colY.Y, colZ.Y
	m20, m21, m22 := colX.Z, colY.Z, colZ.Z

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q.W = 0.25 / s
		q.X = (m21 - m12) * s
		q.Y = (m02 - m20) * s
		q.Z = (m10 - m01) * s
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		q.W = (m21 - m12) / s
		q.X = 0.25 * s
		q.Y = (m01 + m10) / s
		q.Z = (m02 + m20) / s
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		q.W = (m02 - m20) / s
		q.X = (m01 + m10) / s
		q.Y = 0.25 * s
		q.Z = (m12 + m21) / s
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		q.W = (m10 - m01) / s
		q.X = (m02 + m20) / s
		q.Y = (m12 + m21) / s
		q.Z = 0.25 * s
	}
	return q.Normalized().Canonical()
}
