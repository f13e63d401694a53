package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldcam/cameracore/internal/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// growableWriteSeeker is a minimal in-memory io.WriteSeeker for
// serializing fixture atom trees to bytes before writing them to a temp
// file, the same pattern internal/mp4/inject's tests use.
type growableWriteSeeker struct {
	data []byte
	pos  int64
}

func (g *growableWriteSeeker) Write(p []byte) (int, error) {
	end := int(g.pos) + len(p)
	if end > len(g.data) {
		grown := make([]byte, end)
		copy(grown, g.data)
		g.data = grown
	}
	copy(g.data[g.pos:end], p)
	g.pos = int64(end)
	return len(p), nil
}

func (g *growableWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case 0:
		g.pos = offset
	case 1:
		g.pos += offset
	case 2:
		g.pos = int64(len(g.data)) + offset
	}
	return g.pos, nil
}

func newFixtureVideoTrack(t *testing.T) *mp4.AtomTRAK {
	t.Helper()
	trak := &mp4.AtomTRAK{}
	mp4.InitBase(trak, "trak")

	tkhd := &mp4.AtomTKHD{}
	mp4.InitBase(tkhd, "tkhd")
	tkhd.TrackID = 1
	tkhd.Duration = 6000
	tkhd.Update()
	trak.Basic().AddChild(tkhd)

	mdia := &mp4.AtomContainer{}
	mp4.InitBase(mdia, "mdia")
	trak.Basic().AddChild(mdia)

	hdlr := &mp4.AtomHDLR{}
	mp4.InitBase(hdlr, "hdlr")
	hdlr.ComponentSubtype = "vide"
	hdlr.Update()
	mdia.Basic().AddChild(hdlr)

	minf := &mp4.AtomContainer{}
	mp4.InitBase(minf, "minf")
	mdia.Basic().AddChild(minf)

	stbl := &mp4.AtomContainer{}
	mp4.InitBase(stbl, "stbl")
	minf.Basic().AddChild(stbl)

	stsd := &mp4.AtomSTSD{}
	mp4.InitBase(stsd, "stsd")
	stbl.Basic().AddChild(stsd)

	vse := &mp4.AtomVisualSampleEntry{}
	mp4.InitBase(vse, "avc1")
	vse.Width, vse.Height, vse.DataReferenceIndex = 3840, 2160, 1
	vse.Update()
	stsd.Basic().AddChild(vse)

	stss := &mp4.AtomSTSS{}
	mp4.InitBase(stss, "stss")
	stss.KeyFrameIndices = []uint32{1}
	stss.Update()
	stbl.Basic().AddChild(stss)

	return trak
}

func writeFixtureFile(t *testing.T, path string) {
	t.Helper()

	video := newFixtureVideoTrack(t)
	moov := &mp4.AtomMOOV{}
	mp4.InitBase(moov, "moov")
	moov.Basic().AddChild(video)

	mdat := mp4.NewAtomDefault("mdat")
	mdat.SetPayloadBytes([]byte("fixture media samples"))

	var buf growableWriteSeeker
	w := mp4.NewWriter(&buf)
	require.True(t, mp4.WriteTopLevelAtoms([]mp4.Box{moov, mdat}, w).Ok())
	require.NoError(t, os.WriteFile(path, buf.data, 0644))
}

func buildFixtureSv3dFile(t *testing.T, path string) {
	t.Helper()
	sv3d := &mp4.AtomContainer{}
	mp4.InitBase(sv3d, "sv3d")
	svhd := mp4.NewAtomDefault("svhd")
	svhd.SetPayloadBytes([]byte{0, 0, 0, 0, 'm', 'e', 't', 'a'})
	sv3d.Basic().AddChild(svhd)

	var buf growableWriteSeeker
	w := mp4.NewWriter(&buf)
	require.True(t, mp4.WriteAtom(sv3d, w).Ok())
	require.NoError(t, os.WriteFile(path, buf.data, 0644))
}

func readMoov(t *testing.T, path string) *mp4.AtomMOOV {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := mp4.NewReader(bytes.NewReader(data))
	atoms, s := mp4.ReadTopLevelAtoms(r)
	require.True(t, s.Ok(), "ReadTopLevelAtoms: %v", s)

	for _, a := range atoms {
		if m, ok := a.(*mp4.AtomMOOV); ok {
			return m
		}
	}
	t.Fatal("no moov atom in output file")
	return nil
}

func TestLoadJobRejectsMissingInput(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(jobPath, []byte("steps:\n  - sdtp: {}\n"), 0644))

	_, err := loadJob(jobPath)
	assert.Error(t, err)
}

func TestLoadJobRejectsStepWithNoOperation(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(jobPath, []byte("input: in.mp4\nsteps:\n  - {}\n"), 0644))

	_, err := loadJob(jobPath)
	assert.Error(t, err)
}

func TestLoadJobRejectsStepWithMultipleOperations(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(jobPath, []byte("input: in.mp4\nsteps:\n  - sdtp: {}\n    edts: {}\n"), 0644))

	_, err := loadJob(jobPath)
	assert.Error(t, err)
}

func TestRunToOutputAppliesSdtpAndEdtsSteps(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.mp4")
	outputPath := filepath.Join(dir, "out.mp4")
	writeFixtureFile(t, inputPath)

	modifier, err := buildModifier([]step{
		{Sdtp: &struct{}{}},
		{Edts: &struct{}{}},
	})
	require.NoError(t, err)
	require.NoError(t, runToOutput(inputPath, outputPath, modifier))

	moov := readMoov(t, outputPath)
	video := moov.FirstVideoTrack()
	require.NotNil(t, video)
	_, hasSdtp := mp4.FindChild[*mp4.AtomSDTP](video.STBL())
	assert.True(t, hasSdtp)
	assert.NotNil(t, video.Edts())
}

func TestRunInPlaceAppliesSteps(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "video.mp4")
	writeFixtureFile(t, path)

	modifier, err := buildModifier([]step{{Sdtp: &struct{}{}}})
	require.NoError(t, err)
	require.NoError(t, runInPlace(path, modifier))

	moov := readMoov(t, path)
	video := moov.FirstVideoTrack()
	require.NotNil(t, video)
	_, hasSdtp := mp4.FindChild[*mp4.AtomSDTP](video.STBL())
	assert.True(t, hasSdtp)
}

func TestBuildModifierProjectionStepInsertsSt3dAndSv3d(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.mp4")
	outputPath := filepath.Join(dir, "out.mp4")
	sv3dPath := filepath.Join(dir, "sv3d.bin")
	writeFixtureFile(t, inputPath)
	buildFixtureSv3dFile(t, sv3dPath)

	modifier, err := buildModifier([]step{
		{Projection: &projectionStep{Stereo: "top-bottom", SV3DFile: sv3dPath}},
	})
	require.NoError(t, err)
	require.NoError(t, runToOutput(inputPath, outputPath, modifier))

	moov := readMoov(t, outputPath)
	vse := moov.FirstVideoTrack().VisualSampleEntry()
	require.NotNil(t, vse)
	_, hasSt3d := mp4.FindChild[*mp4.AtomST3D](vse)
	assert.True(t, hasSt3d)
}

func TestParseStereoModeDefaultsToMonoOnUnknown(t *testing.T) {
	assert.Equal(t, mp4.StereoModeMono, parseStereoMode("nonsense"))
	assert.Equal(t, mp4.StereoModeTopBottom, parseStereoMode("top-bottom"))
	assert.Equal(t, mp4.StereoModeLeftRight, parseStereoMode("left-right"))
}
