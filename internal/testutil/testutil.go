// Package testutil provides shared test helpers for comparing the two
// kinds of structured state this repo's tests build by hand: IMU
// vectors/quaternions and MP4 atom trees. Centralizing the tolerance and
// traversal logic here keeps individual test files from reimplementing
// approximate-equality checks with their own ad hoc epsilons.
package testutil

import (
	"fmt"
	"testing"

	"github.com/fieldcam/cameracore/internal/mp4"
	"gonum.org/v1/gonum/spatial/r3"
)

// DefaultEpsilon is the tolerance used by the Assert* helpers below when no
// caller-supplied epsilon fits better (e.g. a filter converging to within a
// known numerical error bound rather than exactly).
const DefaultEpsilon = 1e-9

// AssertVecApproxEqual fails the test if got and want differ in any
// component by more than epsilon.
func AssertVecApproxEqual(t *testing.T, got, want r3.Vec, epsilon float64) {
	t.Helper()
	if !VecApproxEqual(got, want, epsilon) {
		t.Errorf("vector = %v, want %v (epsilon %g)", got, want, epsilon)
	}
}

// VecApproxEqual reports whether got and want agree within epsilon on every
// component.
func VecApproxEqual(got, want r3.Vec, epsilon float64) bool {
	return approxEqual(got.X, want.X, epsilon) &&
		approxEqual(got.Y, want.Y, epsilon) &&
		approxEqual(got.Z, want.Z, epsilon)
}

// QuatLike is the subset of orientation.Quat's shape needed for comparison,
// expressed structurally so this package doesn't need to import
// internal/orientation (which already imports internal/testutil's sibling
// packages in some test files, and a cyclic test-only dependency is exactly
// the kind of thing this helper exists to avoid).
type QuatLike struct {
	X, Y, Z, W float64
}

// AssertQuatApproxEqual fails the test if got and want differ in any
// component by more than epsilon. Quaternions q and -q represent the same
// rotation, so both signs are checked before failing.
func AssertQuatApproxEqual(t *testing.T, got, want QuatLike, epsilon float64) {
	t.Helper()
	if quatApproxEqual(got, want, epsilon) {
		return
	}
	negWant := QuatLike{X: -want.X, Y: -want.Y, Z: -want.Z, W: -want.W}
	if quatApproxEqual(got, negWant, epsilon) {
		return
	}
	t.Errorf("quaternion = %+v, want %+v or its negation (epsilon %g)", got, want, epsilon)
}

func quatApproxEqual(a, b QuatLike, epsilon float64) bool {
	return approxEqual(a.X, b.X, epsilon) &&
		approxEqual(a.Y, b.Y, epsilon) &&
		approxEqual(a.Z, b.Z, epsilon) &&
		approxEqual(a.W, b.W, epsilon)
}

func approxEqual(a, b, epsilon float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= epsilon
}

// AssertAtomTreeEqual fails the test if got and want don't have the same
// atom types in the same order at every level of the tree, the structural
// check most injection/modify tests actually want rather than a byte-exact
// comparison (payload differences like recomputed sizes are expected across
// a round trip and shouldn't fail the test).
func AssertAtomTreeEqual(t *testing.T, got, want mp4.Box) {
	t.Helper()
	if diff := atomTreeDiff(got, want, ""); diff != "" {
		t.Errorf("atom tree mismatch:\n%s", diff)
	}
}

func atomTreeDiff(got, want mp4.Box, path string) string {
	if got == nil && want == nil {
		return ""
	}
	if got == nil || want == nil {
		return fmt.Sprintf("%s: got %v, want %v", path, got, want)
	}

	gotType, wantType := got.Basic().Type(), want.Basic().Type()
	path = path + "/" + wantType
	if gotType != wantType {
		return fmt.Sprintf("%s: type = %q, want %q", path, gotType, wantType)
	}

	gotChildren, wantChildren := got.Basic().Children(), want.Basic().Children()
	if len(gotChildren) != len(wantChildren) {
		return fmt.Sprintf("%s: %d children, want %d", path, len(gotChildren), len(wantChildren))
	}
	for i := range wantChildren {
		if diff := atomTreeDiff(gotChildren[i], wantChildren[i], path); diff != "" {
			return diff
		}
	}
	return ""
}
