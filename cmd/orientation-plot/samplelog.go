// Command orientation-plot replays a recorded IMU sample log through
// OnlineSensorFusion and renders the resulting orientation estimate as a
// time-series PNG, for visually inspecting a filter run offline.
package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fieldcam/cameracore/internal/orientation"
	"gonum.org/v1/gonum/spatial/r3"
)

// sample is one row of a recorded IMU log: a timestamped device-frame
// vector reading from one of the three sensor types.
type sample struct {
	t               time.Time
	kind            string // "accel", "gyro", or "mag"
	v               r3.Vec
	fitsCalibration bool
}

// readSampleLog parses a CSV IMU log with the columns
// t_unix_nanos,kind,x,y,z,fits_calibration (fits_calibration only matters
// for "mag" rows and defaults to true when blank).
func readSampleLog(r io.Reader) ([]sample, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	var out []sample
	lineNum := 0
	for {
		lineNum++
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("orientation-plot: line %d: %w", lineNum, err)
		}
		if len(row) == 0 || row[0] == "t_unix_nanos" {
			continue // skip blank lines and an optional header row
		}
		if len(row) < 5 {
			return nil, fmt.Errorf("orientation-plot: line %d: expected at least 5 columns, got %d", lineNum, len(row))
		}

		nanos, err := strconv.ParseInt(row[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("orientation-plot: line %d: invalid timestamp %q: %w", lineNum, row[0], err)
		}
		x, err := strconv.ParseFloat(row[2], 64)
		if err != nil {
			return nil, fmt.Errorf("orientation-plot: line %d: invalid x %q: %w", lineNum, row[2], err)
		}
		y, err := strconv.ParseFloat(row[3], 64)
		if err != nil {
			return nil, fmt.Errorf("orientation-plot: line %d: invalid y %q: %w", lineNum, row[3], err)
		}
		z, err := strconv.ParseFloat(row[4], 64)
		if err != nil {
			return nil, fmt.Errorf("orientation-plot: line %d: invalid z %q: %w", lineNum, row[4], err)
		}

		fits := true
		if len(row) >= 6 && row[5] != "" {
			fits, err = strconv.ParseBool(row[5])
			if err != nil {
				return nil, fmt.Errorf("orientation-plot: line %d: invalid fits_calibration %q: %w", lineNum, row[5], err)
			}
		}

		out = append(out, sample{
			t:               time.Unix(0, nanos).UTC(),
			kind:            row[1],
			v:               r3.Vec{X: x, Y: y, Z: z},
			fitsCalibration: fits,
		})
	}
	return out, nil
}

// orientationSample is one point of the rendered time series: the fused
// orientation and stationary-detector state immediately after feeding one
// input sample to the filter.
type orientationSample struct {
	seconds    float64
	angleDeg   float64
	axis       r3.Vec
	stationary bool
}

// replay feeds samples through a fresh OnlineSensorFusion in order and
// records the orientation estimate after every sample, so the plot shows
// how the estimate evolves rather than only its final value.
func replay(samples []sample, cfg *orientation.FilterConfig) []orientationSample {
	fusion := orientation.NewOnlineSensorFusion(cfg)

	var out []orientationSample
	var start time.Time
	for i, s := range samples {
		if i == 0 {
			start = s.t
		}
		switch s.kind {
		case "accel":
			fusion.AddAccelMeasurement(s.v, s.t)
		case "gyro":
			fusion.AddGyroMeasurement(s.v, s.t)
		case "mag":
			fusion.AddMagMeasurement(s.v, s.t, s.fitsCalibration)
		default:
			continue
		}

		angle, axis := fusion.GetOrientation()
		out = append(out, orientationSample{
			seconds:    s.t.Sub(start).Seconds(),
			angleDeg:   angle * 180 / 3.141592653589793,
			axis:       axis,
			stationary: fusion.StationaryDetector().State() == orientation.StateStationary,
		})
	}
	return out
}

func readSampleLogFile(path string) ([]sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readSampleLog(f)
}
