package mp4

func init() {
	RegisterAtom("sdtp", func(atomType string) Box {
		a := &AtomSDTP{}
		InitBase(a, atomType)
		return a
	})
}

const (
	sdtpIFrameDescription = 0x20
	sdtpPFrameDescription = 0x18
)

// AtomSDTP is the "sdtp" sample-dependency-type table: a full-box preamble
// followed by one descriptor byte per sample.
type AtomSDTP struct {
	FullAtom

	SampleFlags []byte
}

func (a *AtomSDTP) Basic() *Base { return &a.FullAtom.Base }

func (a *AtomSDTP) ReadPayload(r *Reader, size uint64) Status {
	if s := a.ReadVersionAndFlags(r); !s.Ok() {
		return s
	}
	n := size - versionAndFlagsSize
	buf, s := r.ReadString(n)
	if !s.Ok() {
		return s
	}
	a.SampleFlags = []byte(buf)
	return OK()
}

func (a *AtomSDTP) WritePayload(w *Writer) Status {
	if s := a.WriteVersionAndFlags(w); !s.Ok() {
		return s
	}
	return w.PutString(string(a.SampleFlags))
}

func (a *AtomSDTP) PayloadSizeWithoutChildren() uint64 {
	return versionAndFlagsSize + uint64(len(a.SampleFlags))
}

// PopulateFromKeyFrameIndices builds one descriptor byte per sample up to
// the highest index in keyFrames (1-based): key-frame positions get the
// I-frame descriptor, every other sample gets the P-frame descriptor.
func (a *AtomSDTP) PopulateFromKeyFrameIndices(keyFrames []uint32) {
	var last uint32
	for _, idx := range keyFrames {
		if idx > last {
			last = idx
		}
	}
	flags := make([]byte, last)
	for i := range flags {
		flags[i] = sdtpPFrameDescription
	}
	for _, idx := range keyFrames {
		if idx >= 1 && idx <= last {
			flags[idx-1] = sdtpIFrameDescription
		}
	}
	a.SampleFlags = flags
	a.Update()
}
