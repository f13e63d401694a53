package mp4

// WriteAtom serializes box — header, payload, children, and the null
// terminator if set — to w.
func WriteAtom(box Box, w *Writer) Status {
	if s := writeHeader(box, w); !s.Ok() {
		return s
	}
	if s := box.WritePayload(w); !s.Ok() {
		return s
	}
	for _, child := range box.Basic().Children() {
		if s := WriteAtom(child, w); !s.Ok() {
			return s
		}
	}
	if box.Basic().HasNullTerminator() {
		if s := w.PutUint32(0); !s.Ok() {
			return s
		}
	}
	return OK()
}

func writeHeader(box Box, w *Writer) Status {
	b := box.Basic()

	// A plain atom's header is either 8 or 16 bytes; a uuid atom's is 24 or
	// 32. Either way the larger variant carries the 64-bit size form.
	var use64 bool
	if b.hasUUID {
		use64 = b.headerSize == sizeOf64BitSize+atomTypeSize+userTypeSize
	} else {
		use64 = b.headerSize == sizeOf64BitSize+atomTypeSize
	}

	if use64 {
		if s := w.PutUint32(sizeIs64Bit); !s.Ok() {
			return s
		}
	} else {
		if s := w.PutUint32(uint32(b.dataSize)); !s.Ok() {
			return s
		}
	}

	if s := w.PutString(b.atomType); !s.Ok() {
		return s
	}

	if use64 {
		if s := w.PutUint64(b.dataSize); !s.Ok() {
			return s
		}
	}

	if b.hasUUID {
		if s := w.PutString(string(b.userType[:])); !s.Ok() {
			return s
		}
	}
	return OK()
}

// WriteTopLevelAtoms serializes atoms in order to w.
func WriteTopLevelAtoms(atoms []Box, w *Writer) Status {
	for _, a := range atoms {
		if s := WriteAtom(a, w); !s.Ok() {
			return s
		}
	}
	return OK()
}
