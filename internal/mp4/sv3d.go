package mp4

func init() {
	RegisterAtom("sv3d", func(atomType string) Box {
		a := &AtomContainer{}
		InitBase(a, atomType)
		return a
	})
}
