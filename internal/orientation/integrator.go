package orientation

import "gonum.org/v1/gonum/spatial/r3"

// Integrator names a quaternion-propagation scheme for angular velocity.
type Integrator int

const (
	IntegratorEuler Integrator = iota
	IntegratorRK2
	IntegratorRK4
)

// ParseIntegrator converts a config string ("euler", "rk2", "rk4") to an
// Integrator, defaulting to RK4 for any unrecognized value.
func ParseIntegrator(s string) Integrator {
	switch s {
	case "euler":
		return IntegratorEuler
	case "rk2":
		return IntegratorRK2
	default:
		return IntegratorRK4
	}
}

// quatDerivative returns dq/dt = 1/2 * Omega(w) * q for angular velocity w
// (rad/s) expressed in the body frame.
func quatDerivative(q Quat, w r3.Vec) Quat {
	omega := Quat{w.X, w.Y, w.Z, 0}
	d := q.Mul(omega)
	return Quat{d.X / 2, d.Y / 2, d.Z / 2, d.W / 2}
}

func addQuat(a, b Quat) Quat {
	return Quat{a.X + b.X, a.Y + b.Y, a.Z + b.Z, a.W + b.W}
}

func scaleQuat(s float64, q Quat) Quat {
	return Quat{q.X * s, q.Y * s, q.Z * s, q.W * s}
}

// Integrate propagates q forward by dt seconds under constant angular
// velocity w, using the scheme named by method. The result is renormalized
// and put into canonical (non-negative scalar) form, since both
// normalization and the sign of q are otherwise free: all three schemes
// converge to the same answer in the small-angle limit, and differ only in
// how much of a single step's curvature they capture.
func Integrate(method Integrator, q Quat, w r3.Vec, dt float64) Quat {
	var next Quat
	switch method {
	case IntegratorEuler:
		k1 := quatDerivative(q, w)
		next = addQuat(q, scaleQuat(dt, k1))
	case IntegratorRK2:
		k1 := quatDerivative(q, w)
		mid := addQuat(q, scaleQuat(dt/2, k1))
		k2 := quatDerivative(mid, w)
		next = addQuat(q, scaleQuat(dt, k2))
	default: // RK4
		k1 := quatDerivative(q, w)
		k2 := quatDerivative(addQuat(q, scaleQuat(dt/2, k1)), w)
		k3 := quatDerivative(addQuat(q, scaleQuat(dt/2, k2)), w)
		k4 := quatDerivative(addQuat(q, scaleQuat(dt, k3)), w)
		sum := addQuat(addQuat(k1, scaleQuat(2, k2)), addQuat(scaleQuat(2, k3), k4))
		next = addQuat(q, scaleQuat(dt/6, sum))
	}
	return next.Normalized().Canonical()
}
