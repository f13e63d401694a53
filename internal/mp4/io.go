package mp4

import (
	"encoding/binary"
	"io"
)

// Reader is a seekable big-endian byte source. All atom payload codecs read
// through this interface rather than touching the underlying stream
// directly, so the same codec works whether the bytes come from a file, an
// in-memory buffer, or a cloned sub-range held by the default atom.
type Reader struct {
	r io.ReadSeeker
}

// NewReader wraps a ReadSeeker.
func NewReader(r io.ReadSeeker) *Reader { return &Reader{r: r} }

// Size returns the total length of the underlying stream in bytes.
func (r *Reader) Size() (uint64, Status) {
	cur, err := r.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, Wrap(CodeUnexpectedEOF, err)
	}
	end, err := r.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, Wrap(CodeUnexpectedEOF, err)
	}
	if _, err := r.r.Seek(cur, io.SeekStart); err != nil {
		return 0, Wrap(CodeUnexpectedEOF, err)
	}
	return uint64(end), OK()
}

// Tell returns the current stream position.
func (r *Reader) Tell() uint64 {
	pos, _ := r.r.Seek(0, io.SeekCurrent)
	return uint64(pos)
}

// Seek moves the stream to an absolute byte position.
func (r *Reader) Seek(pos uint64) Status {
	if _, err := r.r.Seek(int64(pos), io.SeekStart); err != nil {
		return Wrap(CodeUnexpectedEOF, err)
	}
	return OK()
}

func (r *Reader) readFull(buf []byte) Status {
	if _, err := io.ReadFull(r.r, buf); err != nil {
		return Wrap(CodeUnexpectedEOF, err)
	}
	return OK()
}

// ReadUint8 reads one byte.
func (r *Reader) ReadUint8() (uint8, Status) {
	var buf [1]byte
	if s := r.readFull(buf[:]); !s.Ok() {
		return 0, s
	}
	return buf[0], OK()
}

// ReadUint16 reads a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, Status) {
	var buf [2]byte
	if s := r.readFull(buf[:]); !s.Ok() {
		return 0, s
	}
	return binary.BigEndian.Uint16(buf[:]), OK()
}

// ReadUint24 reads the first three bytes of a big-endian uint32. The
// original source assumed a little-endian host and read this incorrectly on
// big-endian machines; this port always treats the wire bytes as big-endian
// regardless of host byte order.
func (r *Reader) ReadUint24() (uint32, Status) {
	var buf [3]byte
	if s := r.readFull(buf[:]); !s.Ok() {
		return 0, s
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), OK()
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, Status) {
	var buf [4]byte
	if s := r.readFull(buf[:]); !s.Ok() {
		return 0, s
	}
	return binary.BigEndian.Uint32(buf[:]), OK()
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, Status) {
	var buf [8]byte
	if s := r.readFull(buf[:]); !s.Ok() {
		return 0, s
	}
	return binary.BigEndian.Uint64(buf[:]), OK()
}

// ReadString reads size bytes verbatim.
func (r *Reader) ReadString(size uint64) (string, Status) {
	buf := make([]byte, size)
	if s := r.readFull(buf); !s.Ok() {
		return "", s
	}
	return string(buf), OK()
}

// Clone returns a Reader sharing the same underlying stream, and therefore
// the same current position, as r. The default atom keeps a clone together
// with its payload's start offset and seeks back to that offset before
// re-emitting the bytes, so the payload is not copied into memory at parse
// time.
func (r *Reader) Clone() *Reader {
	return &Reader{r: r.r}
}

// Writer is a seekable big-endian byte sink.
type Writer struct {
	w io.WriteSeeker
}

// NewWriter wraps a WriteSeeker.
func NewWriter(w io.WriteSeeker) *Writer { return &Writer{w: w} }

// Tell returns the current stream position.
func (w *Writer) Tell() uint64 {
	pos, _ := w.w.Seek(0, io.SeekCurrent)
	return uint64(pos)
}

// Seek moves the stream to an absolute byte position.
func (w *Writer) Seek(pos uint64) Status {
	if _, err := w.w.Seek(int64(pos), io.SeekStart); err != nil {
		return Wrap(CodeWriteError, err)
	}
	return OK()
}

func (w *Writer) writeAll(buf []byte) Status {
	if _, err := w.w.Write(buf); err != nil {
		return Wrap(CodeWriteError, err)
	}
	return OK()
}

// PutUint8 writes one byte.
func (w *Writer) PutUint8(v uint8) Status {
	return w.writeAll([]byte{v})
}

// PutUint16 writes a big-endian uint16.
func (w *Writer) PutUint16(v uint16) Status {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], v)
	return w.writeAll(buf[:])
}

// PutUint24 writes the low 24 bits of v, big-endian.
func (w *Writer) PutUint24(v uint32) Status {
	buf := []byte{byte(v >> 16), byte(v >> 8), byte(v)}
	return w.writeAll(buf)
}

// PutUint32 writes a big-endian uint32.
func (w *Writer) PutUint32(v uint32) Status {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], v)
	return w.writeAll(buf[:])
}

// PutUint64 writes a big-endian uint64.
func (w *Writer) PutUint64(v uint64) Status {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return w.writeAll(buf[:])
}

// PutString writes the bytes of s verbatim.
func (w *Writer) PutString(s string) Status {
	return w.writeAll([]byte(s))
}

// PutData copies size bytes read from r into the writer, starting at r's
// current position.
func (w *Writer) PutData(r *Reader, size uint64) Status {
	if _, err := io.CopyN(w.w, r.r, int64(size)); err != nil {
		return Wrap(CodeWriteError, err)
	}
	return OK()
}
