// Command mp4-inject applies a batch of moov-atom metadata injections to an
// MP4 file, driven by a YAML job file, without re-encoding any media.
package main

import (
	"fmt"
	"os"

	"github.com/fieldcam/cameracore/internal/mp4"
	"gopkg.in/yaml.v3"
)

// job describes a single mp4-inject run: which file to read, where to write
// the result (or, if empty, edit input in place), and which injection steps
// to apply, in order.
type job struct {
	Input  string `yaml:"input"`
	Output string `yaml:"output"`
	Steps  []step `yaml:"steps"`
}

// step is a tagged union over the five injection pipelines in
// internal/mp4/inject. Exactly one field should be set; which one selects
// the operation, the same way the teacher's sweep-mode flag selects a sweep
// kind by name rather than a numeric enum.
type step struct {
	Sdtp        *struct{}        `yaml:"sdtp"`
	Edts        *struct{}        `yaml:"edts"`
	Camm        *struct{}        `yaml:"camm"`
	Projection  *projectionStep  `yaml:"projection"`
	SphericalV1 *sphericalV1Step `yaml:"spherical_v1"`
}

type projectionStep struct {
	Stereo  string `yaml:"stereo"`
	SV3DFile string `yaml:"sv3d_file"`
}

type sphericalV1Step struct {
	Stitcher    string  `yaml:"stitcher"`
	Stereo      string  `yaml:"stereo"`
	Width       int     `yaml:"width"`
	Height      int     `yaml:"height"`
	FOVXDegrees float64 `yaml:"fov_x_degrees"`
	FOVYDegrees float64 `yaml:"fov_y_degrees"`
}

// loadJob reads and validates a job file from path.
func loadJob(path string) (*job, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mp4-inject: read job file: %w", err)
	}

	var j job
	if err := yaml.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("mp4-inject: parse job file: %w", err)
	}

	if j.Input == "" {
		return nil, fmt.Errorf("mp4-inject: job file must set input")
	}
	if len(j.Steps) == 0 {
		return nil, fmt.Errorf("mp4-inject: job file must list at least one step")
	}
	for i, s := range j.Steps {
		if _, err := s.count(); err != nil {
			return nil, fmt.Errorf("mp4-inject: step %d: %w", i, err)
		}
	}
	return &j, nil
}

// count returns the number of set fields in s, erroring if it isn't exactly
// one, so a job file can't silently apply zero or ambiguously many steps.
func (s step) count() (int, error) {
	n := 0
	if s.Sdtp != nil {
		n++
	}
	if s.Edts != nil {
		n++
	}
	if s.Camm != nil {
		n++
	}
	if s.Projection != nil {
		n++
	}
	if s.SphericalV1 != nil {
		n++
	}
	if n != 1 {
		return n, fmt.Errorf("must set exactly one of sdtp, edts, camm, projection, spherical_v1 (got %d)", n)
	}
	return n, nil
}

// parseStereoMode maps the job file's human-readable stereo names to
// mp4.StereoMode. An empty or unrecognized name is treated as mono, the
// same permissive default mp4.StereoMode.String uses for an unknown value.
func parseStereoMode(name string) mp4.StereoMode {
	switch name {
	case "top-bottom":
		return mp4.StereoModeTopBottom
	case "left-right":
		return mp4.StereoModeLeftRight
	default:
		return mp4.StereoModeMono
	}
}
