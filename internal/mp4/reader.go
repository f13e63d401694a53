package mp4

// header is a parsed atom header: the type tag plus the total size
// (including the header itself) and the number of bytes the header
// occupied on the wire.
type header struct {
	atomType   string
	userType   [16]byte
	hasUUID    bool
	size       uint64
	headerSize uint64
}

// readHeader parses one atom header at the reader's current position.
// size == sizeIsToEndOfFile means "runs to end of stream"; size == 1 means a
// 64-bit size follows. A size smaller than the header itself is a format
// error.
func readHeader(r *Reader, streamSize uint64) (header, Status) {
	start := r.Tell()

	size32, s := r.ReadUint32()
	if !s.Ok() {
		return header{}, s
	}
	atomType, s := r.ReadString(atomTypeSize)
	if !s.Ok() {
		return header{}, s
	}

	h := header{atomType: atomType, headerSize: sizeOf32BitSize + atomTypeSize}

	switch size32 {
	case sizeIs64Bit:
		size64, s := r.ReadUint64()
		if !s.Ok() {
			return header{}, s
		}
		h.size = size64
		h.headerSize = sizeOf64BitSize + atomTypeSize
	case sizeIsToEndOfFile:
		if streamSize < start {
			return header{}, Errorf(CodeFileFormatError, "mp4: atom %q starts past end of stream", atomType)
		}
		h.size = streamSize - start
	default:
		h.size = uint64(size32)
	}

	if atomType == "uuid" {
		var u [16]byte
		s, st := r.ReadString(userTypeSize)
		if !st.Ok() {
			return header{}, st
		}
		copy(u[:], s)
		h.userType = u
		h.hasUUID = true
		h.headerSize += userTypeSize
	}

	if h.size < h.headerSize {
		return header{}, Errorf(CodeFileFormatError, "mp4: atom %q declares size %d smaller than its header (%d)", atomType, h.size, h.headerSize)
	}
	return h, OK()
}

// ReadAtom parses one atom, including its payload and all descendants, from
// r's current position. streamSize is the total length of the underlying
// stream, needed to resolve a to-end-of-file size.
func ReadAtom(r *Reader, streamSize uint64) (Box, Status) {
	start := r.Tell()
	h, s := readHeader(r, streamSize)
	if !s.Ok() {
		return nil, s
	}

	box := CreateAtom(h.atomType)
	base := box.Basic()
	base.headerSize = h.headerSize
	base.dataSize = h.size
	if h.hasUUID {
		base.hasUUID = true
		base.userType = h.userType
	}

	payloadSize := h.size - h.headerSize
	if s := box.ReadPayload(r, payloadSize); !s.Ok() {
		return nil, s
	}

	end := start + h.size
	if s := readChildAtoms(box, r, end); !s.Ok() {
		return nil, s
	}

	if r.Tell() != end {
		return nil, Errorf(CodeFileFormatError, "mp4: atom %q ended at %d, expected %d", h.atomType, r.Tell(), end)
	}
	return box, OK()
}

// readChildAtoms greedily reads children while there is room for at least
// another minimal header, then consumes a trailing 4-byte null terminator
// if exactly 4 bytes remain.
func readChildAtoms(parent Box, r *Reader, end uint64) Status {
	for end-r.Tell() >= MinHeaderSize {
		child, s := ReadAtom(r, end)
		if !s.Ok() {
			return s
		}
		parent.Basic().children = append(parent.Basic().children, child)
		child.Basic().parent = parent
	}

	if remaining := end - r.Tell(); remaining == 4 {
		if s := r.Seek(r.Tell() + 4); !s.Ok() {
			return s
		}
		parent.Basic().hasNullTerminator = true
	} else if remaining != 0 {
		return Errorf(CodeFileFormatError, "mp4: atom %q has %d trailing bytes that are neither a child nor a null terminator", parent.Basic().Type(), remaining)
	}
	return OK()
}

// ReadTopLevelAtoms reads every atom at the root of a stream, in order,
// until the stream is exhausted.
func ReadTopLevelAtoms(r *Reader) ([]Box, Status) {
	size, s := r.Size()
	if !s.Ok() {
		return nil, s
	}
	var atoms []Box
	for r.Tell() < size {
		a, s := ReadAtom(r, size)
		if !s.Ok() {
			return nil, s
		}
		atoms = append(atoms, a)
	}
	return atoms, OK()
}
