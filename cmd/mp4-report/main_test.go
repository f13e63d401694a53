package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fieldcam/cameracore/internal/mp4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

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

func writeFixtureFile(t *testing.T, path string) {
	t.Helper()

	free := mp4.NewAtomDefault("free")
	free.SetPayloadBytes([]byte{0, 0, 0, 0})

	moov := &mp4.AtomMOOV{}
	mp4.InitBase(moov, "moov")
	moov.Basic().AddChild(free)

	mdat := mp4.NewAtomDefault("mdat")
	mdat.SetPayloadBytes([]byte("some media bytes"))

	var buf growableWriteSeeker
	w := mp4.NewWriter(&buf)
	require.True(t, mp4.WriteTopLevelAtoms([]mp4.Box{moov, mdat}, w).Ok())
	require.NoError(t, os.WriteFile(path, buf.data, 0644))
}

func TestReadTopLevelAtomsReadsFixture(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.mp4")
	writeFixtureFile(t, path)

	atoms, err := readTopLevelAtoms(path)
	require.NoError(t, err)
	require.Len(t, atoms, 2)
	assert.Equal(t, "moov", atoms[0].Basic().Type())
	assert.Equal(t, "mdat", atoms[1].Basic().Type())
}

func TestBuildTreeMapRootsSizesLeavesAndNestsContainers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "in.mp4")
	writeFixtureFile(t, path)

	atoms, err := readTopLevelAtoms(path)
	require.NoError(t, err)

	roots := buildTreeMapRoots(atoms)
	require.Len(t, roots, 2)

	moovNode := roots[0]
	assert.Equal(t, "moov[0]", moovNode.Name)
	require.Len(t, moovNode.Children, 1)
	assert.Equal(t, "free[0]", moovNode.Children[0].Name)
	assert.Greater(t, moovNode.Children[0].Value, 0)

	mdatNode := roots[1]
	assert.Equal(t, "mdat[1]", mdatNode.Name)
	assert.Empty(t, mdatNode.Children)
	assert.Greater(t, mdatNode.Value, 0)
}

func TestRenderReportWritesHTMLFile(t *testing.T) {
	dir := t.TempDir()
	inputPath := filepath.Join(dir, "in.mp4")
	outPath := filepath.Join(dir, "report.html")
	writeFixtureFile(t, inputPath)

	atoms, err := readTopLevelAtoms(inputPath)
	require.NoError(t, err)
	require.NoError(t, renderReport(atoms, inputPath, outPath))

	info, err := os.Stat(outPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}
