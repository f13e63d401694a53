package mp4

func init() {
	RegisterAtom("elst", func(atomType string) Box {
		a := &AtomELST{}
		InitBase(a, atomType)
		return a
	})
}

// ELSTEntry is one edit-list segment.
type ELSTEntry struct {
	SegmentDuration    uint64
	MediaTime          int64
	MediaRateInteger   int16
	MediaRateFraction  int16
}

// AtomELST is the "elst" edit-list atom. Version 0 stores 32-bit
// segment_duration/media_time per entry (12 bytes); version 1 stores both
// as 64-bit (20 bytes).
type AtomELST struct {
	FullAtom

	Entries []ELSTEntry
}

func (a *AtomELST) Basic() *Base { return &a.FullAtom.Base }

func (a *AtomELST) entrySize() uint64 {
	if a.Version() == 1 {
		return 20
	}
	return 12
}

func (a *AtomELST) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}
	count, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	entries := make([]ELSTEntry, 0, count)
	for i := uint32(0); i < count; i++ {
		var e ELSTEntry
		if a.Version() == 1 {
			d, s := r.ReadUint64()
			if !s.Ok() {
				return s
			}
			e.SegmentDuration = d
			mt, s := r.ReadUint64()
			if !s.Ok() {
				return s
			}
			e.MediaTime = int64(mt)
		} else {
			d, s := r.ReadUint32()
			if !s.Ok() {
				return s
			}
			e.SegmentDuration = uint64(d)
			mt, s := r.ReadUint32()
			if !s.Ok() {
				return s
			}
			e.MediaTime = int64(int32(mt))
		}
		ri, s := r.ReadUint16()
		if !s.Ok() {
			return s
		}
		e.MediaRateInteger = int16(ri)
		rf, s := r.ReadUint16()
		if !s.Ok() {
			return s
		}
		e.MediaRateFraction = int16(rf)
		entries = append(entries, e)
	}
	a.Entries = entries
	return OK()
}

func (a *AtomELST) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	if s := w.PutUint32(uint32(len(a.Entries))); !s.Ok() {
		return s
	}
	for _, e := range a.Entries {
		if a.Version() == 1 {
			if s := w.PutUint64(e.SegmentDuration); !s.Ok() {
				return s
			}
			if s := w.PutUint64(uint64(e.MediaTime)); !s.Ok() {
				return s
			}
		} else {
			if s := w.PutUint32(uint32(e.SegmentDuration)); !s.Ok() {
				return s
			}
			if s := w.PutUint32(uint32(int32(e.MediaTime))); !s.Ok() {
				return s
			}
		}
		if s := w.PutUint16(uint16(e.MediaRateInteger)); !s.Ok() {
			return s
		}
		if s := w.PutUint16(uint16(e.MediaRateFraction)); !s.Ok() {
			return s
		}
	}
	return OK()
}

func (a *AtomELST) PayloadSizeWithoutChildren() uint64 {
	return versionAndFlagsSize + 4 + a.entrySize()*uint64(len(a.Entries))
}

// AddEntry appends e, promoting this atom to full-box version 1 if e's
// segment_duration or media_time would not fit in 32 bits.
func (a *AtomELST) AddEntry(e ELSTEntry) {
	if e.SegmentDuration > 0xFFFFFFFF || e.MediaTime > 0x7FFFFFFF || e.MediaTime < -0x80000000 {
		a.SetVersion(1)
	}
	a.Entries = append(a.Entries, e)
	a.Update()
}
