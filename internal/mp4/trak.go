package mp4

func init() {
	RegisterAtom("trak", func(atomType string) Box {
		a := &AtomTRAK{}
		InitBase(a, atomType)
		return a
	})
}

// AtomTRAK is the "trak" track atom.
type AtomTRAK struct {
	AtomContainer
}

// mdia returns this track's "mdia" child, or nil.
func (a *AtomTRAK) mdia() Box {
	return FindChildByType(a, "mdia")
}

// hdlr finds the "hdlr" atom under this track's mdia.
func (a *AtomTRAK) hdlr() *AtomHDLR {
	mdia := a.mdia()
	if mdia == nil {
		return nil
	}
	h, ok := FindChild[*AtomHDLR](mdia)
	if !ok {
		return nil
	}
	return h
}

// MediaType classifies this track using its mdia/hdlr component subtype.
func (a *AtomTRAK) MediaType() TrackMediaType {
	h := a.hdlr()
	if h == nil {
		return TrackMediaUnknown
	}
	return h.MediaType()
}

// MDIA returns this track's "mdia" child, or nil.
func (a *AtomTRAK) MDIA() Box { return a.mdia() }

// Edts returns this track's "edts" child, or nil if it has none yet.
func (a *AtomTRAK) Edts() Box { return FindChildByType(a, "edts") }

// TKHD returns this track's "tkhd" child, or nil.
func (a *AtomTRAK) TKHD() *AtomTKHD {
	t, ok := FindChild[*AtomTKHD](a)
	if !ok {
		return nil
	}
	return t
}

// minf returns the "minf" atom under this track's mdia, or nil.
func (a *AtomTRAK) minf() Box {
	mdia := a.mdia()
	if mdia == nil {
		return nil
	}
	return FindChildByType(mdia, "minf")
}

// STBL returns the "stbl" sample table atom under this track's mdia/minf, or
// nil if the track has no sample table (e.g. a reference track).
func (a *AtomTRAK) STBL() *AtomContainer {
	minf := a.minf()
	if minf == nil {
		return nil
	}
	c := FindChildByType(minf, "stbl")
	if c == nil {
		return nil
	}
	return c.(*AtomContainer)
}

// STSD returns the "stsd" sample-description atom under this track's stbl,
// or nil.
func (a *AtomTRAK) STSD() *AtomSTSD {
	stbl := a.STBL()
	if stbl == nil {
		return nil
	}
	s, ok := FindChild[*AtomSTSD](stbl)
	if !ok {
		return nil
	}
	return s
}

// VisualSampleEntry returns the first visual sample entry in the track's
// stsd, or nil if there is none. It checks neither how many entries the
// stsd holds nor the track's handler type.
func (a *AtomTRAK) VisualSampleEntry() *AtomVisualSampleEntry {
	stsd := a.STSD()
	if stsd == nil {
		return nil
	}
	v, ok := FindChild[*AtomVisualSampleEntry](stsd)
	if !ok {
		return nil
	}
	return v
}
