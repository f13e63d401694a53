package mp4

// visualSampleEntryFourCCs lists every video codec sample-entry fourCC this
// package recognizes as a visual sample entry rather than falling back to
// the byte-preserving default atom.
var visualSampleEntryFourCCs = []string{
	"AVDJ", "AVdh", "AVdn", "CFHD", "DIVX",
	"WMV1", "WMV2", "WMV3", "XVID",
	"ai12", "ai13", "ai15", "ai16", "ai1p", "ai1q", "ai52", "ai53", "ai55", "ai56", "ai5p", "ai5q",
	"ap4h", "ap4x", "apch", "apcn", "apco", "apcs",
	"av01", "avc1", "dmb1", "h263",
	"hev1", "hvc1", "jpeg", "mjp2", "mjpa", "mjpb", "mp4v", "s263", "vp09",
}

func init() {
	ctor := func(atomType string) Box {
		a := &AtomVisualSampleEntry{}
		InitBase(a, atomType)
		return a
	}
	for _, fourCC := range visualSampleEntryFourCCs {
		RegisterAtom(fourCC, ctor)
	}
}

const visualSampleEntryCompressorNameSize = 32

// visualSampleEntrySize is the fixed 78-byte preamble common to every video
// sample entry type, before any codec-specific child boxes.
const visualSampleEntrySize = 8 + 2 + 2 + 12 + 2 + 2 + 4 + 4 + 4 + 2 + visualSampleEntryCompressorNameSize + 2 + 2

// AtomVisualSampleEntry is a video sample-description entry: a fixed 78-byte
// preamble (dimensions, resolution, compressor name) followed by
// codec-specific children such as avcC or colr.
type AtomVisualSampleEntry struct {
	Base

	DataReferenceIndex uint16
	Width              uint16
	Height             uint16
	HorizResolution    uint32 // 16.16 fixed point, typically 0x00480000 (72 dpi)
	VertResolution     uint32 // 16.16 fixed point
	FrameCount         uint16
	CompressorName     string // up to 31 bytes, Pascal-style length-prefixed
	Depth              uint16
}

func (a *AtomVisualSampleEntry) Basic() *Base { return &a.Base }

func (a *AtomVisualSampleEntry) ReadPayload(r *Reader, size uint64) Status {
	if _, s := r.ReadString(6); !s.Ok() { // reserved
		return s
	}
	idx, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.DataReferenceIndex = idx

	if _, s := r.ReadUint16(); !s.Ok() { // pre_defined
		return s
	}
	if _, s := r.ReadUint16(); !s.Ok() { // reserved
		return s
	}
	if _, s := r.ReadString(12); !s.Ok() { // pre_defined[3]
		return s
	}

	w, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.Width = w
	h, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.Height = h
	hr, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.HorizResolution = hr
	vr, s := r.ReadUint32()
	if !s.Ok() {
		return s
	}
	a.VertResolution = vr
	if _, s := r.ReadUint32(); !s.Ok() { // reserved
		return s
	}
	fc, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.FrameCount = fc

	nameLen, s := r.ReadUint8()
	if !s.Ok() {
		return s
	}
	name, s := r.ReadString(uint64(visualSampleEntryCompressorNameSize - 1))
	if !s.Ok() {
		return s
	}
	if int(nameLen) <= len(name) {
		a.CompressorName = name[:nameLen]
	} else {
		a.CompressorName = name
	}

	depth, s := r.ReadUint16()
	if !s.Ok() {
		return s
	}
	a.Depth = depth
	if _, s := r.ReadUint16(); !s.Ok() { // pre_defined, -1
		return s
	}
	return OK()
}

func (a *AtomVisualSampleEntry) WritePayload(w *Writer) Status {
	if s := w.PutString(string(make([]byte, 6))); !s.Ok() { // reserved
		return s
	}
	if s := w.PutUint16(a.DataReferenceIndex); !s.Ok() {
		return s
	}
	if s := w.PutUint16(0); !s.Ok() { // pre_defined
		return s
	}
	if s := w.PutUint16(0); !s.Ok() { // reserved
		return s
	}
	if s := w.PutString(string(make([]byte, 12))); !s.Ok() { // pre_defined[3]
		return s
	}
	if s := w.PutUint16(a.Width); !s.Ok() {
		return s
	}
	if s := w.PutUint16(a.Height); !s.Ok() {
		return s
	}
	if s := w.PutUint32(a.HorizResolution); !s.Ok() {
		return s
	}
	if s := w.PutUint32(a.VertResolution); !s.Ok() {
		return s
	}
	if s := w.PutUint32(0); !s.Ok() { // reserved
		return s
	}
	if s := w.PutUint16(a.FrameCount); !s.Ok() {
		return s
	}
	if s := w.PutUint8(uint8(len(a.CompressorName))); !s.Ok() {
		return s
	}
	nameField := make([]byte, visualSampleEntryCompressorNameSize-1)
	copy(nameField, a.CompressorName)
	if s := w.PutString(string(nameField)); !s.Ok() {
		return s
	}
	if s := w.PutUint16(a.Depth); !s.Ok() {
		return s
	}
	return w.PutUint16(0xFFFF) // pre_defined
}

func (a *AtomVisualSampleEntry) PayloadSizeWithoutChildren() uint64 {
	return visualSampleEntrySize
}
