package mp4

func init() {
	for _, t := range []string{"mdia", "stbl", "minf", "edts", "udta", "dinf", "meta"} {
		atomType := t
		RegisterAtom(atomType, func(atomType string) Box {
			a := &AtomContainer{}
			InitBase(a, atomType)
			return a
		})
	}
}

// AtomContainer is a pure container atom: it carries no payload of its own,
// only children. mdia, stbl, minf, edts, udta, dinf and meta are all of
// this shape.
type AtomContainer struct {
	Base
}

func (a *AtomContainer) Basic() *Base { return &a.Base }

func (a *AtomContainer) ReadPayload(r *Reader, size uint64) Status {
	// size covers the children, which the reader parses after this call; a
	// container has no payload bytes of its own to consume.
	return OK()
}

func (a *AtomContainer) WritePayload(w *Writer) Status { return OK() }

func (a *AtomContainer) PayloadSizeWithoutChildren() uint64 { return 0 }
