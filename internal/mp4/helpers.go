package mp4

// FindChild returns the first child of parent whose concrete type is T, and
// true if one was found. Replaces the original engine's typeid-based
// template lookup with a Go type assertion.
func FindChild[T Box](parent Box) (T, bool) {
	var zero T
	for _, c := range parent.Basic().Children() {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	return zero, false
}

// FindChildren returns every direct child of parent whose concrete type is T.
func FindChildren[T Box](parent Box) []T {
	var out []T
	for _, c := range parent.Basic().Children() {
		if t, ok := c.(T); ok {
			out = append(out, t)
		}
	}
	return out
}

// DeleteChildren removes every direct child of parent whose concrete type is
// T. Deletes back-to-front so earlier indices stay valid mid-loop.
func DeleteChildren[T Box](parent Box) {
	children := parent.Basic().Children()
	for i := len(children) - 1; i >= 0; i-- {
		if _, ok := children[i].(T); ok {
			parent.Basic().DeleteChild(i)
		}
	}
}

// FindChildByType returns the first direct child of parent whose atom type
// tag equals atomType. Used where several children share a concrete Go type
// (e.g. every pure container registers as *AtomContainer) and only the wire
// type tag disambiguates them.
func FindChildByType(parent Box, atomType string) Box {
	for _, c := range parent.Basic().Children() {
		if c.Basic().Type() == atomType {
			return c
		}
	}
	return nil
}

// FindIndex returns the index of child within parent's child list, or -1 if
// child is not a direct child of parent.
func FindIndex(parent Box, child Box) int {
	for i, c := range parent.Basic().Children() {
		if c == child {
			return i
		}
	}
	return -1
}
