package mp4

// defaultTkhdMatrix is the identity 16.16 fixed-point 3x3 transform matrix
// every fresh track header starts with.
var defaultTkhdMatrix = [9]int32{
	0x00010000, 0, 0,
	0, 0x00010000, 0,
	0, 0, 0x40000000,
}

func init() {
	RegisterAtom("tkhd", func(atomType string) Box {
		a := &AtomTKHD{Matrix: defaultTkhdMatrix}
		InitBase(a, atomType)
		return a
	})
}

// AtomTKHD is the "tkhd" track-header atom.
type AtomTKHD struct {
	FullAtom

	CreationTime     uint64
	ModificationTime uint64
	TrackID          uint32
	Duration         uint64
	Layer            int16
	AlternateGroup   int16
	Volume           int16
	Matrix           [9]int32
	WidthFixed       uint32 // 16.16 fixed point
	HeightFixed      uint32 // 16.16 fixed point
}

func (a *AtomTKHD) Basic() *Base { return &a.FullAtom.Base }

// Width returns the track's display width in whole pixels.
func (a *AtomTKHD) Width() float64 { return float64(a.WidthFixed) / 65536.0 }

// Height returns the track's display height in whole pixels.
func (a *AtomTKHD) Height() float64 { return float64(a.HeightFixed) / 65536.0 }

func (a *AtomTKHD) isV1() bool { return a.Version() == 1 }

func (a *AtomTKHD) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}

	var s Status
	if a.isV1() {
		a.CreationTime, s = r.ReadUint64()
		if !s.Ok() {
			return s
		}
		a.ModificationTime, s = r.ReadUint64()
		if !s.Ok() {
			return s
		}
		a.TrackID, s = r.ReadUint32()
		if !s.Ok() {
			return s
		}
		if _, s = r.ReadUint32(); !s.Ok() { // reserved
			return s
		}
		a.Duration, s = r.ReadUint64()
		if !s.Ok() {
			return s
		}
	} else {
		var v32 uint32
		v32, s = r.ReadUint32()
		if !s.Ok() {
			return s
		}
		a.CreationTime = uint64(v32)
		v32, s = r.ReadUint32()
		if !s.Ok() {
			return s
		}
		a.ModificationTime = uint64(v32)
		a.TrackID, s = r.ReadUint32()
		if !s.Ok() {
			return s
		}
		if _, s = r.ReadUint32(); !s.Ok() { // reserved
			return s
		}
		v32, s = r.ReadUint32()
		if !s.Ok() {
			return s
		}
		a.Duration = uint64(v32)
	}

	if _, s = r.ReadUint64(); !s.Ok() { // reserved[2]
		return s
	}
	layer, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.Layer = int16(layer)
	ag, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.AlternateGroup = int16(ag)
	vol, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.Volume = int16(vol)
	if _, s = r.ReadUint16(); !s.Ok() { // reserved
		return s
	}
	for i := range a.Matrix {
		v, s := r.ReadUint32()
		if !s.Ok() {
			return s
		}
		a.Matrix[i] = int32(v)
	}
	a.WidthFixed, s = r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.HeightFixed, s = r.ReadUint32()
	if !s.Ok() {
		return s
	}
	return OK()
}

func (a *AtomTKHD) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	if a.isV1() {
		if s := w.PutUint64(a.CreationTime); !s.Ok() {
			return s
		}
		if s := w.PutUint64(a.ModificationTime); !s.Ok() {
			return s
		}
		if s := w.PutUint32(a.TrackID); !s.Ok() {
			return s
		}
		if s := w.PutUint32(0); !s.Ok() {
			return s
		}
		if s := w.PutUint64(a.Duration); !s.Ok() {
			return s
		}
	} else {
		if s := w.PutUint32(uint32(a.CreationTime)); !s.Ok() {
			return s
		}
		if s := w.PutUint32(uint32(a.ModificationTime)); !s.Ok() {
			return s
		}
		if s := w.PutUint32(a.TrackID); !s.Ok() {
			return s
		}
		if s := w.PutUint32(0); !s.Ok() {
			return s
		}
		if s := w.PutUint32(uint32(a.Duration)); !s.Ok() {
			return s
		}
	}
	if s := w.PutUint64(0); !s.Ok() { // reserved[2]
		return s
	}
	if s := w.PutUint16(uint16(a.Layer)); !s.Ok() {
		return s
	}
	if s := w.PutUint16(uint16(a.AlternateGroup)); !s.Ok() {
		return s
	}
	if s := w.PutUint16(uint16(a.Volume)); !s.Ok() {
		return s
	}
	if s := w.PutUint16(0); !s.Ok() { // reserved
		return s
	}
	for _, v := range a.Matrix {
		if s := w.PutUint32(uint32(v)); !s.Ok() {
			return s
		}
	}
	if s := w.PutUint32(a.WidthFixed); !s.Ok() {
		return s
	}
	return w.PutUint32(a.HeightFixed)
}

func (a *AtomTKHD) PayloadSizeWithoutChildren() uint64 {
	if a.isV1() {
		return versionAndFlagsSize + 8 + 8 + 4 + 4 + 8 + 8 + 2 + 2 + 2 + 2 + 9*4 + 4 + 4
	}
	return versionAndFlagsSize + 4 + 4 + 4 + 4 + 4 + 8 + 2 + 2 + 2 + 2 + 9*4 + 4 + 4
}
