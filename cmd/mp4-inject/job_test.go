package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testJobYAML = `
input: in.mp4
output: out.mp4
steps:
  - sdtp: {}
  - edts: {}
  - camm: {}
  - projection:
      stereo: top-bottom
      sv3d_file: sv3d.bin
  - spherical_v1:
      stitcher: cameracore
      stereo: mono
      width: 3840
      height: 1920
      fov_x_degrees: 360
      fov_y_degrees: 180
`

func TestLoadJobParsesEveryStepKind(t *testing.T) {
	dir := t.TempDir()
	jobPath := filepath.Join(dir, "job.yaml")
	require.NoError(t, os.WriteFile(jobPath, []byte(testJobYAML), 0644))

	j, err := loadJob(jobPath)
	require.NoError(t, err)

	want := &job{
		Input:  "in.mp4",
		Output: "out.mp4",
		Steps: []step{
			{Sdtp: &struct{}{}},
			{Edts: &struct{}{}},
			{Camm: &struct{}{}},
			{Projection: &projectionStep{Stereo: "top-bottom", SV3DFile: "sv3d.bin"}},
			{SphericalV1: &sphericalV1Step{
				Stitcher:    "cameracore",
				Stereo:      "mono",
				Width:       3840,
				Height:      1920,
				FOVXDegrees: 360,
				FOVYDegrees: 180,
			}},
		},
	}

	// go-cmp dereferences pointers structurally, so the *struct{} and typed
	// step-payload pointers compare by pointed-to value rather than address,
	// which is what makes a plain reflect.DeepEqual-style comparison useful
	// here despite every step field being a pointer.
	if diff := cmp.Diff(want, j); diff != "" {
		t.Errorf("loadJob() mismatch (-want +got):\n%s", diff)
	}
}
