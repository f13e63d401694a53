package mp4

func init() {
	RegisterAtom("hdlr", func(atomType string) Box {
		a := &AtomHDLR{}
		InitBase(a, atomType)
		return a
	})
}

// AtomHDLR is the "hdlr" handler-reference atom: it names the component
// type and subtype that determine a track's media kind.
type AtomHDLR struct {
	FullAtom

	ComponentType         string
	ComponentSubtype      string
	ComponentManufacturer uint32
	ComponentFlags        uint32
	ComponentFlagsMask    uint32
	ComponentName         string
}

func (a *AtomHDLR) Basic() *Base { return &a.FullAtom.Base }

// MediaType classifies the track this handler belongs to, based on its
// component subtype fourCC.
func (a *AtomHDLR) MediaType() TrackMediaType {
	if t, ok := handlerSubtypes[a.ComponentSubtype]; ok {
		return t
	}
	return TrackMediaUnknown
}

func (a *AtomHDLR) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}
	read := versionAndFlagsSize

	ct, s := r.ReadString(4)
	if !s.Ok() {
		return s
	}
	a.ComponentType = ct
	read += 4

	st, s := r.ReadString(4)
	if !s.Ok() {
		return s
	}
	a.ComponentSubtype = st
	read += 4

	manu, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.ComponentManufacturer = manu
	read += 4

	flags, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.ComponentFlags = flags
	read += 4

	mask, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.ComponentFlagsMask = mask
	read += 4

	if uint64(read) > size {
		return Errorf(CodeFileFormatError, "mp4: hdlr payload shorter than fixed fields")
	}
	remaining := size - uint64(read)
	name, s := r.ReadString(remaining)
	if !s.Ok() {
		return s
	}
	a.ComponentName = name
	return OK()
}

func (a *AtomHDLR) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	if s := w.PutString(capTo(a.ComponentType, 4)); !s.Ok() {
		return s
	}
	if s := w.PutString(capTo(a.ComponentSubtype, 4)); !s.Ok() {
		return s
	}
	if s := w.PutUint32(a.ComponentManufacturer); !s.Ok() {
		return s
	}
	if s := w.PutUint32(a.ComponentFlags); !s.Ok() {
		return s
	}
	if s := w.PutUint32(a.ComponentFlagsMask); !s.Ok() {
		return s
	}
	return w.PutString(a.ComponentName)
}

func (a *AtomHDLR) PayloadSizeWithoutChildren() uint64 {
	return uint64(versionAndFlagsSize + 4 + 4 + 4 + 4 + 4 + len(a.ComponentName))
}

// capTo truncates or zero-pads s to exactly n bytes.
func capTo(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	b := make([]byte, n)
	copy(b, s)
	return string(b)
}
