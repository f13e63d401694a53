package mp4

func init() {
	RegisterAtom("moov", func(atomType string) Box {
		a := &AtomMOOV{}
		InitBase(a, atomType)
		return a
	})
}

// AtomMOOV is the "moov" movie-metadata atom, the container ModifyMoov
// operates on.
type AtomMOOV struct {
	AtomContainer
}

// Tracks returns every direct "trak" child.
func (a *AtomMOOV) Tracks() []*AtomTRAK {
	return FindChildren[*AtomTRAK](a)
}

// FirstVideoTrack returns the first trak whose handler reports a visual
// media type, or nil if none exists.
func (a *AtomMOOV) FirstVideoTrack() *AtomTRAK {
	for _, t := range a.Tracks() {
		if t.MediaType() == TrackMediaVisual {
			return t
		}
	}
	return nil
}

// FirstMetaTrack returns the first trak whose handler reports the timed
// metadata media type, or nil if none exists.
func (a *AtomMOOV) FirstMetaTrack() *AtomTRAK {
	for _, t := range a.Tracks() {
		if t.MediaType() == TrackMediaTimedMetadata {
			return t
		}
	}
	return nil
}
