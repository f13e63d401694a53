// Package mp4 implements an in-memory box tree for ISO-BMFF/QuickTime
// containers: parsing, in-place mutation and serialization of moov/mdat
// style atom structures.
package mp4

import "github.com/fieldcam/cameracore/internal/monitoring"

const (
	// sizeIsToEndOfFile is the sentinel 32-bit size value meaning "this atom
	// runs to the end of the containing stream".
	sizeIsToEndOfFile = 0
	// sizeIs64Bit is the sentinel 32-bit size value meaning "the real size
	// follows as a 64-bit integer".
	sizeIs64Bit = 1

	sizeOf32BitSize = 4
	sizeOf64BitSize = sizeOf32BitSize + 8
	atomTypeSize    = 4
	userTypeSize    = 16

	// MinHeaderSize is the smallest possible atom header: a 32-bit size plus
	// a 4-byte type.
	MinHeaderSize = sizeOf32BitSize + atomTypeSize
	// MaxHeaderSize is the largest possible atom header: a 64-bit
	// size-is-64 header plus a 16-byte extended user_type.
	MaxHeaderSize = sizeOf64BitSize + atomTypeSize + userTypeSize
)

// Box is the interface every atom type implements. A Box owns its own
// payload codec (ReadPayload/WritePayload/PayloadSizeWithoutChildren) and
// exposes its common bookkeeping fields through Basic, so generic tree
// operations (Update, AddChild, the Reader/Writer) never need a type switch.
type Box interface {
	// Basic returns the embedded Base, the seat of every box's shared state.
	Basic() *Base

	// ReadPayload parses this atom's payload (but not its children) from r.
	// size is the number of payload bytes available, i.e. data_size minus
	// whatever the caller has already consumed of the header.
	ReadPayload(r *Reader, size uint64) Status

	// WritePayload serializes this atom's payload, excluding children.
	WritePayload(w *Writer) Status

	// PayloadSizeWithoutChildren returns the serialized size of this atom's
	// own payload, excluding header and children.
	PayloadSizeWithoutChildren() uint64
}

// Base holds the bookkeeping every Box shares: its type tag, computed sizes,
// child list and parent back-reference. Concrete atom types embed Base and
// set self to themselves so Base's tree-maintenance methods (Update,
// AddChild, ...) can still call back into the concrete type's payload codec
// — the same "virtual dispatch via self-reference" idiom used for plain Go
// struct embedding without interfaces baked into the fields themselves.
type Base struct {
	atomType string
	userType [16]byte
	hasUUID  bool

	headerSize uint64
	dataSize   uint64

	hasNullTerminator bool

	children []Box
	parent   Box

	self Box
}

// InitBase wires a concrete atom's Base to itself. Every constructor must
// call this before the Box is used.
func InitBase(self Box, atomType string) {
	b := self.Basic()
	b.atomType = atomType
	b.self = self
	b.headerSize = MinHeaderSize
	b.UpdateSize()
}

// Type returns the four-character atom type tag.
func (b *Base) Type() string { return b.atomType }

// SetType overrides the atom type tag, used when an atom is replaced in
// place by one of a different kind (e.g. mett -> camm).
func (b *Base) SetType(t string) { b.atomType = t }

// UserType returns the 16-byte extended type for a "uuid" atom.
func (b *Base) UserType() [16]byte { return b.userType }

// SetUserType sets the 16-byte extended type and marks this atom as
// carrying one, promoting header size accordingly on the next Update.
func (b *Base) SetUserType(u [16]byte) {
	b.userType = u
	b.hasUUID = true
	b.Update()
}

// HeaderSize returns the serialized header size in bytes: 8, 16, 24 or 32
// depending on 64-bit size promotion and extended user_type presence.
func (b *Base) HeaderSize() uint64 { return b.headerSize }

// DataSize returns the total serialized size of this atom including its
// header, payload and all descendants.
func (b *Base) DataSize() uint64 { return b.dataSize }

// HasNullTerminator reports whether this atom emits a trailing 4-byte zero
// terminator after its children.
func (b *Base) HasNullTerminator() bool { return b.hasNullTerminator }

// SetHasNullTerminator toggles the trailing terminator and recomputes sizes
// if the value actually changed.
func (b *Base) SetHasNullTerminator(v bool) {
	if b.hasNullTerminator == v {
		return
	}
	b.hasNullTerminator = v
	b.Update()
}

// Children returns the direct child atoms in order.
func (b *Base) Children() []Box { return b.children }

// Parent returns the containing atom, or nil at the tree root.
func (b *Base) Parent() Box { return b.parent }

// AddChild appends child to the end of the child list and recomputes sizes
// up the tree.
func (b *Base) AddChild(child Box) {
	b.AddChildAt(child, len(b.children))
}

// AddChildAt inserts child at index i, logging and doing nothing if i is out
// of bounds. Mirrors the original engine's bounds-checked insertion: a
// caller mistake here should not panic a long-running injection pipeline.
func (b *Base) AddChildAt(child Box, i int) {
	if i < 0 || i > len(b.children) {
		monitoring.Logf("mp4: AddChildAt index %d out of range [0,%d] for %s, ignoring", i, len(b.children), b.atomType)
		return
	}
	child.Basic().parent = b.self
	b.children = append(b.children, nil)
	copy(b.children[i+1:], b.children[i:])
	b.children[i] = child
	b.Update()
}

// DeleteChild removes the child at index i, logging and doing nothing if i
// is out of bounds.
func (b *Base) DeleteChild(i int) {
	if i < 0 || i >= len(b.children) {
		monitoring.Logf("mp4: DeleteChild index %d out of range [0,%d) for %s, ignoring", i, len(b.children), b.atomType)
		return
	}
	b.children[i].Basic().parent = nil
	b.children = append(b.children[:i], b.children[i+1:]...)
	b.Update()
}

// ComputeHeaderSize decides whether this atom needs a 64-bit size field
// and/or a 16-byte user_type, given its total data size.
func (b *Base) ComputeHeaderSize() uint64 {
	size := uint64(sizeOf32BitSize + atomTypeSize)
	if b.hasUUID {
		size += userTypeSize
	}
	if size+b.dataSizeWithoutHeader() > 0xFFFFFFFF {
		size += sizeOf64BitSize - sizeOf32BitSize
	}
	return size
}

func (b *Base) dataSizeWithoutHeader() uint64 {
	total := b.self.PayloadSizeWithoutChildren()
	for _, c := range b.children {
		total += c.Basic().dataSize
	}
	if b.hasNullTerminator {
		total += 4
	}
	return total
}

// UpdateSize recomputes dataSize and headerSize from the current payload and
// children, without touching the parent.
func (b *Base) UpdateSize() {
	withoutHeader := b.dataSizeWithoutHeader()
	b.headerSize = b.ComputeHeaderSize()
	b.dataSize = b.headerSize + withoutHeader
}

// Update recomputes this atom's size and cascades the recomputation up to
// the root. Call this after any mutation that can change a payload's or a
// child's serialized size: adding/removing children, rewriting a payload
// field whose width varies, toggling the null terminator, and so on.
func (b *Base) Update() {
	b.UpdateSize()
	if b.parent != nil {
		b.parent.Basic().Update()
	}
}

