// Package inject implements the moov mutation pipelines layered on top of
// internal/mp4's atom tree: sample-dependency synthesis, edit-list
// normalization, timed-metadata handler replacement and spherical/stereo
// projection metadata injection.
package inject

import (
	"bytes"
	"fmt"

	"github.com/fieldcam/cameracore/internal/mp4"
)

// InjectSdtpToMoov populates the first video track's "sdtp" sample
// dependency table from its "stss" key-frame list. If the track already has
// an sdtp atom this is a no-op: sdtp is derived data and an existing one is
// assumed authoritative.
func InjectSdtpToMoov(moov *mp4.AtomMOOV) mp4.Status {
	track := moov.FirstVideoTrack()
	if track == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: moov has no video track")
	}
	stbl := track.STBL()
	if stbl == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: video track has no stbl")
	}
	if mp4.FindChildByType(stbl, "sdtp") != nil {
		return mp4.OK()
	}
	stss, ok := mp4.FindChild[*mp4.AtomSTSS](stbl)
	if !ok {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: video track stbl has no stss to derive sdtp from")
	}

	sdtp := &mp4.AtomSDTP{}
	mp4.InitBase(sdtp, "sdtp")
	sdtp.PopulateFromKeyFrameIndices(stss.KeyFrameIndices)
	stbl.Basic().AddChild(sdtp)
	return mp4.OK()
}

// InjectEdtsToMoov ensures every track has an "edts" box containing a single
// elst entry covering the full track duration, inserted immediately before
// "mdia". An existing edts is moved to that position rather than replaced.
func InjectEdtsToMoov(moov *mp4.AtomMOOV) mp4.Status {
	for _, track := range moov.Tracks() {
		if s := injectEdtsToTrack(track); !s.Ok() {
			return s
		}
	}
	return mp4.OK()
}

func injectEdtsToTrack(track *mp4.AtomTRAK) mp4.Status {
	mdia := track.MDIA()
	if mdia == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: track has no mdia")
	}
	mdiaIdx := mp4.FindIndex(track, mdia)
	if mdiaIdx < 0 {
		return mp4.Errorf(mp4.CodeUnexpectedError, "inject: mdia not found among its own parent's children")
	}

	if existing := track.Edts(); existing != nil {
		idx := mp4.FindIndex(track, existing)
		track.Basic().DeleteChild(idx)
		if idx < mdiaIdx {
			mdiaIdx--
		}
		track.Basic().AddChildAt(existing, mdiaIdx)
		return mp4.OK()
	}

	tkhd := track.TKHD()
	if tkhd == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: track has no tkhd")
	}

	elst := &mp4.AtomELST{}
	mp4.InitBase(elst, "elst")
	elst.AddEntry(mp4.ELSTEntry{
		SegmentDuration:   tkhd.Duration,
		MediaTime:         0,
		MediaRateInteger:  1,
		MediaRateFraction: 0,
	})

	edts := &mp4.AtomContainer{}
	mp4.InitBase(edts, "edts")
	edts.Basic().AddChild(elst)

	track.Basic().AddChildAt(edts, mdiaIdx)
	return mp4.OK()
}

// ReplaceMettWithCamm replaces the first timed-metadata track's sole "mett"
// sample entry with a fresh, zeroed "camm" sample entry. The stsd must
// contain exactly one mett child or this returns a FileFormatError.
func ReplaceMettWithCamm(moov *mp4.AtomMOOV) mp4.Status {
	track := moov.FirstMetaTrack()
	if track == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: moov has no timed-metadata track")
	}
	stsd := track.STSD()
	if stsd == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: metadata track has no stsd")
	}
	metts := metaStsdChildrenOfType(stsd, "mett")
	if len(metts) != 1 {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: stsd has %d mett children, expected exactly 1", len(metts))
	}
	idx := mp4.FindIndex(stsd, metts[0])

	camm := &mp4.AtomCAMM{}
	mp4.InitBase(camm, "camm")

	stsd.Basic().DeleteChild(idx)
	stsd.Basic().AddChildAt(camm, idx)
	return mp4.OK()
}

func metaStsdChildrenOfType(stsd *mp4.AtomSTSD, atomType string) []mp4.Box {
	var out []mp4.Box
	for _, c := range stsd.Basic().Children() {
		if c.Basic().Type() == atomType {
			out = append(out, c)
		}
	}
	return out
}

// InjectProjectionMetadataToMoov parses sv3dBytes as a serialized "sv3d"
// atom and inserts it, together with a fresh "st3d" atom set to stereo, into
// the first video track's visual sample entry. Any previously-present st3d
// or sv3d children are removed first, so this is idempotent.
func InjectProjectionMetadataToMoov(moov *mp4.AtomMOOV, stereo mp4.StereoMode, sv3dBytes []byte) mp4.Status {
	track := moov.FirstVideoTrack()
	if track == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: moov has no video track")
	}
	vse := track.VisualSampleEntry()
	if vse == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: video track stsd has no visual sample entry")
	}

	sv3dBox, s := parseAtomBytes(sv3dBytes)
	if !s.Ok() {
		return s
	}
	sv3d, ok := sv3dBox.(*mp4.AtomContainer)
	if !ok || sv3d.Basic().Type() != "sv3d" {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: sv3dBytes did not parse as an sv3d atom")
	}

	mp4.DeleteChildren[*mp4.AtomST3D](vse)
	mp4.DeleteChildren[*mp4.AtomContainer](vse) // removes any prior sv3d (and nothing else, since sv3d is the only AtomContainer-typed child of a visual sample entry)

	st3d := &mp4.AtomST3D{StereoMode: stereo}
	mp4.InitBase(st3d, "st3d")

	vse.Basic().AddChild(st3d)
	vse.Basic().AddChild(sv3d)
	return mp4.OK()
}

func parseAtomBytes(b []byte) (mp4.Box, mp4.Status) {
	r := mp4.NewReader(bytes.NewReader(b))
	return mp4.ReadAtom(r, uint64(len(b)))
}

// sphericalV1UUID is the fixed 16-byte identifier that marks a "uuid" atom
// as carrying cropped-equirectangular spherical-video v1 metadata.
var sphericalV1UUID = [16]byte{
	0xFF, 0xCC, 0x82, 0x63, 0xF8, 0x55, 0x4A, 0x93,
	0x88, 0x14, 0x58, 0x7A, 0x02, 0x52, 0x1F, 0xDD,
}

const sphericalV1XMLTemplate = `<?xml version="1.0"?>
<rdf:SphericalVideo xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#" xmlns:GSpherical="http://ns.google.com/videos/1.0/spherical/">
<GSpherical:Spherical>true</GSpherical:Spherical>
<GSpherical:Stitched>true</GSpherical:Stitched>
<GSpherical:StitchingSoftware>%s</GSpherical:StitchingSoftware>
<GSpherical:ProjectionType>equirectangular</GSpherical:ProjectionType>
<GSpherical:StereoMode>%s</GSpherical:StereoMode>
<GSpherical:SourceCount>2</GSpherical:SourceCount>
<GSpherical:CroppedAreaImageWidthPixels>%d</GSpherical:CroppedAreaImageWidthPixels>
<GSpherical:CroppedAreaImageHeightPixels>%d</GSpherical:CroppedAreaImageHeightPixels>
<GSpherical:FullPanoWidthPixels>%d</GSpherical:FullPanoWidthPixels>
<GSpherical:FullPanoHeightPixels>%d</GSpherical:FullPanoHeightPixels>
<GSpherical:CroppedAreaLeftPixels>%d</GSpherical:CroppedAreaLeftPixels>
<GSpherical:CroppedAreaTopPixels>%d</GSpherical:CroppedAreaTopPixels>
</rdf:SphericalVideo>
`

// InjectSphericalV1MetadataToMoov builds a legacy (v1) spherical-video "uuid"
// atom from the visible image size and camera field of view, and inserts it
// into the first video track's visual sample entry, deleting any prior uuid
// children first.
func InjectSphericalV1MetadataToMoov(moov *mp4.AtomMOOV, stitcher string, stereo mp4.StereoMode, width, height int, fovXDegrees, fovYDegrees float64) mp4.Status {
	if width <= 0 || height <= 0 {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: image size %dx%d is not positive", width, height)
	}
	if fovXDegrees <= 0 || fovXDegrees > 360 || fovYDegrees <= 0 || fovYDegrees > 180 {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: field of view %gx%g is out of range", fovXDegrees, fovYDegrees)
	}

	track := moov.FirstVideoTrack()
	if track == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: moov has no video track")
	}
	vse := track.VisualSampleEntry()
	if vse == nil {
		return mp4.Errorf(mp4.CodeFileFormatError, "inject: video track stsd has no visual sample entry")
	}

	fullWidth := int(float64(width) * 360.0 / fovXDegrees)
	fullHeight := int(float64(height) * 180.0 / fovYDegrees)
	cropLeft := (fullWidth - width) / 2
	cropTop := (fullHeight - height) / 2

	xml := fmt.Sprintf(sphericalV1XMLTemplate, stitcher, stereo.String(), width, height, fullWidth, fullHeight, cropLeft, cropTop)

	mp4.DeleteChildren[*mp4.AtomUUID](vse)

	uuid := &mp4.AtomUUID{}
	mp4.InitBase(uuid, "uuid")
	uuid.SetPayload(sphericalV1UUID, []byte(xml))

	vse.Basic().AddChild(uuid)
	return mp4.OK()
}
