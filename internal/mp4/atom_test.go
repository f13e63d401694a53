package mp4

import (
	"bytes"
	"fmt"
	"io"
	"testing"
)

func mustWriteAtom(t *testing.T, box Box) []byte {
	t.Helper()
	buf := newSeekBuffer(nil)
	w := NewWriter(buf)
	if s := WriteAtom(box, w); !s.Ok() {
		t.Fatalf("WriteAtom: %v", s)
	}
	return buf.Bytes()
}

func TestFreeAtomRoundTrip(t *testing.T) {
	free := newFreeAtom(16)
	b := mustWriteAtom(t, free)
	if len(b) != 16 {
		t.Fatalf("free atom serialized to %d bytes, want 16", len(b))
	}

	r := NewReader(bytes.NewReader(b))
	parsed, s := ReadAtom(r, uint64(len(b)))
	if !s.Ok() {
		t.Fatalf("ReadAtom: %v", s)
	}
	if parsed.Basic().Type() != "free" {
		t.Fatalf("got type %q, want free", parsed.Basic().Type())
	}
	if parsed.Basic().DataSize() != 16 {
		t.Fatalf("got size %d, want 16", parsed.Basic().DataSize())
	}

	roundTripped := mustWriteAtom(t, parsed)
	if !bytes.Equal(b, roundTripped) {
		t.Fatalf("round trip mismatch:\n got  %x\n want %x", roundTripped, b)
	}
}

func TestStcoPromotesToCo64OnOverflow(t *testing.T) {
	stco := &AtomSTCO{Offsets: []uint64{100, 0xFFFFFFF0}}
	InitBase(stco, "stco")
	stco.Update()

	stco.AdjustChunkOffsets(0x20)

	if stco.Type() != "co64" {
		t.Fatalf("type = %q, want co64 after overflowing offset", stco.Type())
	}

	b := mustWriteAtom(t, stco)
	r := NewReader(bytes.NewReader(b))
	parsed, s := ReadAtom(r, uint64(len(b)))
	if !s.Ok() {
		t.Fatalf("ReadAtom: %v", s)
	}
	got := parsed.(*AtomSTCO)
	if got.Type() != "co64" {
		t.Fatalf("re-read type = %q, want co64", got.Type())
	}
	want := []uint64{100 + 0x20, 0xFFFFFFF0 + 0x20}
	if len(got.Offsets) != len(want) {
		t.Fatalf("got %d offsets, want %d", len(got.Offsets), len(want))
	}
	for i, w := range want {
		if got.Offsets[i] != w {
			t.Errorf("offset[%d] = %d, want %d", i, got.Offsets[i], w)
		}
	}
}

func TestStcoStaysStco32BitWithinRange(t *testing.T) {
	stco := &AtomSTCO{Offsets: []uint64{100, 200}}
	InitBase(stco, "stco")
	stco.Update()
	stco.AdjustChunkOffsets(50)
	if stco.Type() != "stco" {
		t.Fatalf("type = %q, want stco to stay 32-bit", stco.Type())
	}
}

func TestElstPromotesVersionOnLargeMediaTime(t *testing.T) {
	elst := &AtomELST{}
	InitBase(elst, "elst")
	elst.AddEntry(ELSTEntry{SegmentDuration: 1000, MediaTime: int64(0x80000000)})

	if elst.Version() != 1 {
		t.Fatalf("version = %d, want 1 after adding an out-of-range media_time", elst.Version())
	}

	b := mustWriteAtom(t, elst)
	r := NewReader(bytes.NewReader(b))
	parsed, s := ReadAtom(r, uint64(len(b)))
	if !s.Ok() {
		t.Fatalf("ReadAtom: %v", s)
	}
	got := parsed.(*AtomELST)
	if len(got.Entries) != 1 || got.Entries[0].MediaTime != int64(0x80000000) {
		t.Fatalf("round-tripped entry = %+v, want MediaTime 0x80000000", got.Entries)
	}
}

func TestSdtpPopulateFromKeyFrameIndices(t *testing.T) {
	sdtp := &AtomSDTP{}
	InitBase(sdtp, "sdtp")
	sdtp.PopulateFromKeyFrameIndices([]uint32{1, 13, 25})

	if len(sdtp.SampleFlags) != 25 {
		t.Fatalf("got %d flags, want 25", len(sdtp.SampleFlags))
	}
	for _, i := range []int{0, 12, 24} {
		if sdtp.SampleFlags[i] != sdtpIFrameDescription {
			t.Errorf("flags[%d] = %#x, want I-frame descriptor", i, sdtp.SampleFlags[i])
		}
	}
	for i, f := range sdtp.SampleFlags {
		if i == 0 || i == 12 || i == 24 {
			continue
		}
		if f != sdtpPFrameDescription {
			t.Errorf("flags[%d] = %#x, want P-frame descriptor", i, f)
		}
	}
}

func TestAddChildCascadesSizeToParent(t *testing.T) {
	moov := &AtomMOOV{}
	InitBase(moov, "moov")

	before := moov.Basic().DataSize()

	free := newFreeAtom(16)
	moov.Basic().AddChild(free)

	after := moov.Basic().DataSize()
	if after-before != 16 {
		t.Fatalf("moov size grew by %d, want 16", after-before)
	}

	moov.Basic().DeleteChild(0)
	if moov.Basic().DataSize() != before {
		t.Fatalf("moov size after delete = %d, want %d", moov.Basic().DataSize(), before)
	}
}

func TestUnknownAtomTypeRoundTripsByteForByte(t *testing.T) {
	RegisterAtom("zzzz", func(atomType string) Box {
		a := &AtomDefault{}
		InitBase(a, atomType)
		return a
	})

	original := NewAtomDefault("zzzz")
	original.SetPayloadBytes([]byte("hello, atom"))

	b := mustWriteAtom(t, original)
	r := NewReader(bytes.NewReader(b))
	parsed, s := ReadAtom(r, uint64(len(b)))
	if !s.Ok() {
		t.Fatalf("ReadAtom: %v", s)
	}
	roundTripped := mustWriteAtom(t, parsed)
	if !bytes.Equal(b, roundTripped) {
		t.Fatalf("round trip mismatch:\n got  %x\n want %x", roundTripped, b)
	}
}

// seekBuffer is a real in-memory io.ReadWriteSeeker backed by a growable
// byte slice, standing in for a file in tests that exercise ModifyMoov's
// and ModifyMoovInPlace's rewrite paths: both read from an arbitrary
// position, seek backward to patch bytes in place, and seek forward past
// the current end to append, none of which a sequential-only stub can
// exercise.
type seekBuffer struct {
	data []byte
	pos  int64
}

// newSeekBuffer creates a buffer seeded with a copy of initial (nil is fine
// for a buffer that will only be written to).
func newSeekBuffer(initial []byte) *seekBuffer {
	data := make([]byte, len(initial))
	copy(data, initial)
	return &seekBuffer{data: data}
}

func (s *seekBuffer) Read(p []byte) (int, error) {
	if s.pos >= int64(len(s.data)) {
		return 0, io.EOF
	}
	n := copy(p, s.data[s.pos:])
	s.pos += int64(n)
	return n, nil
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.data)) {
		grown := make([]byte, end)
		copy(grown, s.data)
		s.data = grown
	}
	n := copy(s.data[s.pos:end], p)
	s.pos += int64(n)
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = s.pos + offset
	case io.SeekEnd:
		next = int64(len(s.data)) + offset
	default:
		return 0, fmt.Errorf("seekBuffer: invalid whence %d", whence)
	}
	if next < 0 {
		return 0, fmt.Errorf("seekBuffer: negative seek position %d", next)
	}
	s.pos = next
	return s.pos, nil
}

// Bytes returns the buffer's full backing slice, regardless of the current
// seek position.
func (s *seekBuffer) Bytes() []byte { return s.data }
