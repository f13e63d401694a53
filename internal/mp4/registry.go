package mp4

import (
	"bytes"
	"sync"
)

// Constructor builds a fresh, uninitialized instance of a registered atom
// type. Implementations must call InitBase(self, atomType) before returning.
type Constructor func(atomType string) Box

var (
	registryMu sync.Mutex
	registry   = map[string]Constructor{}
)

// RegisterAtom associates atomType with a constructor. Registration is
// thread-safe and idempotent; later registrations for the same type replace
// earlier ones, matching the original engine's static-init registration
// order not mattering.
func RegisterAtom(atomType string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[atomType] = ctor
}

// CreateAtom instantiates the registered Box for atomType, or a byte
// preserving AtomDefault if no type-specific constructor is registered.
func CreateAtom(atomType string) Box {
	registryMu.Lock()
	ctor, ok := registry[atomType]
	registryMu.Unlock()
	if !ok {
		return newAtomDefault(atomType)
	}
	return ctor(atomType)
}

// AtomDefault is the fallback Box for any atom type without a dedicated
// codec. It preserves its payload bytes verbatim by cloning the reader at
// parse time and re-emitting the cloned range unchanged on write, so
// unknown atom types round-trip byte-for-byte through read/modify/write.
type AtomDefault struct {
	Base

	payload       *Reader
	payloadOffset uint64
	payloadSize   uint64
}

func newAtomDefault(atomType string) Box {
	a := &AtomDefault{}
	InitBase(a, atomType)
	return a
}

// NewAtomDefault constructs a detached default atom, useful for
// programmatically building placeholder atoms (e.g. "free" padding).
func NewAtomDefault(atomType string) *AtomDefault {
	a := &AtomDefault{}
	InitBase(a, atomType)
	return a
}

func (a *AtomDefault) Basic() *Base { return &a.Base }

func (a *AtomDefault) ReadPayload(r *Reader, size uint64) Status {
	a.payload = r.Clone()
	a.payloadOffset = r.Tell()
	a.payloadSize = size
	return r.Seek(r.Tell() + size)
}

func (a *AtomDefault) WritePayload(w *Writer) Status {
	if a.payloadSize == 0 {
		return OK()
	}
	if a.payload == nil {
		return Errorf(CodeUnexpectedError, "mp4: default atom %q has no payload to write", a.Type())
	}
	// The cloned Reader shares its stream position with every other user of
	// that stream (possibly w itself, when editing in place), so read the
	// bytes from their recorded offset first, then return to the write
	// position.
	pos := w.Tell()
	if s := a.payload.Seek(a.payloadOffset); !s.Ok() {
		return s
	}
	data, s := a.payload.ReadString(a.payloadSize)
	if !s.Ok() {
		return s
	}
	if s := w.Seek(pos); !s.Ok() {
		return s
	}
	return w.PutString(data)
}

func (a *AtomDefault) PayloadSizeWithoutChildren() uint64 { return a.payloadSize }

// SetPayloadBytes replaces the preserved payload with explicit bytes,
// building a Reader around an in-memory buffer. Used to construct
// placeholder atoms such as "free" padding.
func (a *AtomDefault) SetPayloadBytes(b []byte) {
	a.payload = NewReader(bytes.NewReader(b))
	a.payloadOffset = 0
	a.payloadSize = uint64(len(b))
	a.Update()
}
