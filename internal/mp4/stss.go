package mp4

func init() {
	RegisterAtom("stss", func(atomType string) Box {
		a := &AtomSTSS{}
		InitBase(a, atomType)
		return a
	})
}

// AtomSTSS is the "stss" sync-sample (key-frame) table: a full-box preamble
// followed by a count and an array of 1-based sample indices.
type AtomSTSS struct {
	FullAtom

	KeyFrameIndices []uint32
}

func (a *AtomSTSS) Basic() *Base { return &a.FullAtom.Base }

func (a *AtomSTSS) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}
	count, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	indices := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, s := r.ReadUint32()
		if !s.Ok() {
			return s
		}
		indices = append(indices, v)
	}
	a.KeyFrameIndices = indices
	return OK()
}

func (a *AtomSTSS) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	if s := w.PutUint32(uint32(len(a.KeyFrameIndices))); !s.Ok() {
		return s
	}
	for _, idx := range a.KeyFrameIndices {
		if s := w.PutUint32(idx); !s.Ok() {
			return s
		}
	}
	return OK()
}

func (a *AtomSTSS) PayloadSizeWithoutChildren() uint64 {
	return versionAndFlagsSize + 4 + 4*uint64(len(a.KeyFrameIndices))
}
