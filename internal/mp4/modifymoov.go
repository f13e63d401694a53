package mp4

import "io"

// Modifier mutates a parsed "moov" tree in place. ModifyMoov and
// ModifyMoovInPlace both run exactly one Modifier, then repair whatever
// byte-offset bookkeeping the mutation disturbed.
type Modifier func(moov *AtomMOOV) Status

const freeAtomHeaderSize = 8

func atomPosition(atoms []Box, target Box) uint64 {
	var pos uint64
	for _, a := range atoms {
		if a == target {
			return pos
		}
		pos += a.Basic().DataSize()
	}
	return pos
}

func findTopLevel(atoms []Box, atomType string) (Box, int) {
	for i, a := range atoms {
		if a.Basic().Type() == atomType {
			return a, i
		}
	}
	return nil, -1
}

// adjustTrackOffsets adds delta to the chunk-offset table of every track
// under moov, promoting stco to co64 where the new offsets require it.
func adjustTrackOffsets(moov *AtomMOOV, delta int64) {
	if delta == 0 {
		return
	}
	for _, track := range moov.Tracks() {
		stbl := track.STBL()
		if stbl == nil {
			continue
		}
		if stco, ok := FindChild[*AtomSTCO](stbl); ok {
			stco.AdjustChunkOffsets(delta)
		}
	}
}

// newFreeAtom builds a "free" placeholder atom that serializes to exactly
// size bytes. size must be at least freeAtomHeaderSize.
func newFreeAtom(size uint64) *AtomDefault {
	a := NewAtomDefault("free")
	if size > freeAtomHeaderSize {
		a.SetPayloadBytes(make([]byte, size-freeAtomHeaderSize))
	} else {
		a.Update()
	}
	return a
}

// ModifyMoov applies modifier to the "moov" atom of an ISO-BMFF stream read
// from input and writes the resulting stream to output. input and output
// must be distinct streams (use ModifyMoovInPlace to edit a single file in
// place). Both "moov" and "mdat" must be present at the top level or this
// returns a FileFormatError.
func ModifyMoov(input io.ReadSeeker, output io.WriteSeeker, modifier Modifier) Status {
	r := NewReader(input)
	atoms, s := ReadTopLevelAtoms(r)
	if !s.Ok() {
		return s
	}

	moovBox, moovIdx := findTopLevel(atoms, "moov")
	mdatBox, mdatIdx := findTopLevel(atoms, "mdat")
	if moovBox == nil {
		return Errorf(CodeFileFormatError, "mp4: no top-level moov atom")
	}
	if mdatBox == nil {
		return Errorf(CodeFileFormatError, "mp4: no top-level mdat atom")
	}
	moov, ok := moovBox.(*AtomMOOV)
	if !ok {
		return Errorf(CodeUnexpectedError, "mp4: moov atom has unexpected concrete type")
	}

	oldMdatPos := atomPosition(atoms, mdatBox)

	if s := modifier(moov); !s.Ok() {
		return s
	}

	if moovIdx > mdatIdx {
		atoms[moovIdx], atoms[mdatIdx] = atoms[mdatIdx], atoms[moovIdx]
	}

	// Chunk-offset repair may itself grow moov (stco -> co64 promotion),
	// which can shift mdat again; iterate to a fixed point.
	for i := 0; i < 4; i++ {
		newMdatPos := atomPosition(atoms, mdatBox)
		delta := int64(newMdatPos) - int64(oldMdatPos)
		if delta == 0 {
			break
		}
		adjustTrackOffsets(moov, delta)
		oldMdatPos = uint64(int64(oldMdatPos) + delta)
	}

	w := NewWriter(output)
	return WriteTopLevelAtoms(atoms, w)
}

// ModifyMoovInPlace applies modifier to the "moov" atom of an ISO-BMFF
// stream and rewrites only the bytes that changed, using any trailing
// "free" padding as slack so that "mdat" (and therefore every existing
// chunk offset) never has to move when it can be avoided.
func ModifyMoovInPlace(rw io.ReadWriteSeeker, modifier Modifier) Status {
	r := NewReader(rw)
	atoms, s := ReadTopLevelAtoms(r)
	if !s.Ok() {
		return s
	}

	moovBox, moovIdx := findTopLevel(atoms, "moov")
	mdatBox, mdatIdx := findTopLevel(atoms, "mdat")
	if moovBox == nil {
		return Errorf(CodeFileFormatError, "mp4: no top-level moov atom")
	}
	if mdatBox == nil {
		return Errorf(CodeFileFormatError, "mp4: no top-level mdat atom")
	}
	moov, ok := moovBox.(*AtomMOOV)
	if !ok {
		return Errorf(CodeUnexpectedError, "mp4: moov atom has unexpected concrete type")
	}

	moovPos := atomPosition(atoms, moovBox)
	oldMoovSize := moovBox.Basic().DataSize()
	fileEnd := totalSize(atoms)

	var freeSize uint64
	if moovIdx+1 < len(atoms) && atoms[moovIdx+1].Basic().Type() == "free" {
		freeSize = atoms[moovIdx+1].Basic().DataSize()
	}

	if s := modifier(moov); !s.Ok() {
		return s
	}
	newMoovSize := moovBox.Basic().DataSize()

	w := NewWriter(rw)

	if moovIdx > mdatIdx {
		// moov trails mdat: rewrite everything from moov to the end of the
		// stream. mdat precedes moov so its bytes, and every chunk offset
		// that points into it, are untouched.
		if s := w.Seek(moovPos); !s.Ok() {
			return s
		}
		tail := atoms[moovIdx:]
		if s := WriteTopLevelAtoms(tail, w); !s.Ok() {
			return s
		}
		if delta := int64(newMoovSize) - int64(oldMoovSize); delta < 0 {
			pad := -delta
			if pad < freeAtomHeaderSize {
				pad = freeAtomHeaderSize
			}
			return WriteAtom(newFreeAtom(uint64(pad)), w)
		}
		return OK()
	}

	delta := int64(newMoovSize) - int64(oldMoovSize)
	switch {
	case delta == int64(freeSize):
		if s := w.Seek(moovPos); !s.Ok() {
			return s
		}
		return WriteAtom(moov, w)
	case delta+freeAtomHeaderSize <= int64(freeSize):
		if s := w.Seek(moovPos); !s.Ok() {
			return s
		}
		if s := WriteAtom(moov, w); !s.Ok() {
			return s
		}
		remainder := uint64(int64(freeSize) - delta)
		return WriteAtom(newFreeAtom(remainder), w)
	default:
		// Not enough slack: append the new moov at end of stream and turn
		// its old location into free space. mdat does not move, so chunk
		// offsets remain valid.
		if s := w.Seek(fileEnd); !s.Ok() {
			return s
		}
		if s := WriteAtom(moov, w); !s.Ok() {
			return s
		}
		if s := w.Seek(moovPos); !s.Ok() {
			return s
		}
		return WriteAtom(newFreeAtom(oldMoovSize), w)
	}
}

func totalSize(atoms []Box) uint64 {
	var total uint64
	for _, a := range atoms {
		total += a.Basic().DataSize()
	}
	return total
}
