package mp4

func init() {
	RegisterAtom("stsd", func(atomType string) Box {
		a := &AtomSTSD{}
		InitBase(a, atomType)
		return a
	})
}

// AtomSTSD is the "stsd" sample-description atom: a full-box preamble
// followed by a child count, with the descriptions themselves stored as
// ordinary children.
type AtomSTSD struct {
	FullAtom
}

func (a *AtomSTSD) Basic() *Base { return &a.FullAtom.Base }

func (a *AtomSTSD) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}
	// The entry count is redundant with len(children) once the children
	// are parsed, so it is not stored; it is recomputed on write.
	if _, s := r.ReadUint32(); !s.Ok() {
		return s
	}
	return OK()
}

func (a *AtomSTSD) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	return w.PutUint32(uint32(len(a.Children())))
}

func (a *AtomSTSD) PayloadSizeWithoutChildren() uint64 {
	return versionAndFlagsSize + 4
}
