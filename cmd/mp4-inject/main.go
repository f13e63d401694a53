package main

import (
	"flag"
	"log"
	"os"

	"github.com/fieldcam/cameracore/internal/mp4"
	"github.com/fieldcam/cameracore/internal/mp4/inject"
)

func main() {
	jobPath := flag.String("job", "", "Path to a YAML job file describing the injection steps to run")
	flag.Parse()

	if *jobPath == "" {
		log.Fatalf("mp4-inject: -job is required")
	}

	j, err := loadJob(*jobPath)
	if err != nil {
		log.Fatalf("%v", err)
	}

	modifier, err := buildModifier(j.Steps)
	if err != nil {
		log.Fatalf("mp4-inject: %v", err)
	}

	if j.Output == "" || j.Output == j.Input {
		if err := runInPlace(j.Input, modifier); err != nil {
			log.Fatalf("mp4-inject: %v", err)
		}
		log.Printf("mp4-inject: rewrote %s in place (%d steps)", j.Input, len(j.Steps))
		return
	}

	if err := runToOutput(j.Input, j.Output, modifier); err != nil {
		log.Fatalf("mp4-inject: %v", err)
	}
	log.Printf("mp4-inject: wrote %s -> %s (%d steps)", j.Input, j.Output, len(j.Steps))
}

// buildModifier composes steps into a single mp4.Modifier that runs each
// step's injection function in order, stopping at the first failure.
func buildModifier(steps []step) (mp4.Modifier, error) {
	fns := make([]mp4.Modifier, 0, len(steps))
	for _, s := range steps {
		fn, err := stepModifier(s)
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
	}
	return func(moov *mp4.AtomMOOV) mp4.Status {
		for _, fn := range fns {
			if st := fn(moov); !st.Ok() {
				return st
			}
		}
		return mp4.OK()
	}, nil
}

func stepModifier(s step) (mp4.Modifier, error) {
	switch {
	case s.Sdtp != nil:
		return inject.InjectSdtpToMoov, nil
	case s.Edts != nil:
		return inject.InjectEdtsToMoov, nil
	case s.Camm != nil:
		return inject.ReplaceMettWithCamm, nil
	case s.Projection != nil:
		p := s.Projection
		sv3dBytes, err := os.ReadFile(p.SV3DFile)
		if err != nil {
			return nil, err
		}
		stereo := parseStereoMode(p.Stereo)
		return func(moov *mp4.AtomMOOV) mp4.Status {
			return inject.InjectProjectionMetadataToMoov(moov, stereo, sv3dBytes)
		}, nil
	case s.SphericalV1 != nil:
		p := s.SphericalV1
		stereo := parseStereoMode(p.Stereo)
		return func(moov *mp4.AtomMOOV) mp4.Status {
			return inject.InjectSphericalV1MetadataToMoov(moov, p.Stitcher, stereo, p.Width, p.Height, p.FOVXDegrees, p.FOVYDegrees)
		}, nil
	default:
		panic("mp4-inject: step with no operation set reached stepModifier")
	}
}

func runToOutput(inputPath, outputPath string, modifier mp4.Modifier) error {
	in, err := os.Open(inputPath)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if st := mp4.ModifyMoov(in, out, modifier); !st.Ok() {
		return st
	}
	return nil
}

func runInPlace(path string, modifier mp4.Modifier) error {
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	if st := mp4.ModifyMoovInPlace(f, modifier); !st.Ok() {
		return st
	}
	return nil
}
