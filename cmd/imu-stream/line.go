package main

import (
	"fmt"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// imuLine is one parsed line of the device's wire protocol: a sensor kind
// and its device-frame reading, plus mag's calibration-fit flag.
type imuLine struct {
	kind            string
	v               r3.Vec
	fitsCalibration bool
}

// parseIMULine parses a comma-separated "kind,x,y,z[,fits_calibration]"
// line as emitted by the IMU firmware. Blank lines and lines starting with
// "#" (the firmware's startup banner and debug prints) are skipped by
// returning ok=false with a nil error.
func parseIMULine(line string) (imuLine, bool, error) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return imuLine{}, false, nil
	}

	fields := strings.Split(line, ",")
	if len(fields) < 4 {
		return imuLine{}, false, fmt.Errorf("imu-stream: expected at least 4 fields, got %d in %q", len(fields), line)
	}

	kind := strings.TrimSpace(fields[0])
	if kind != "accel" && kind != "gyro" && kind != "mag" {
		return imuLine{}, false, fmt.Errorf("imu-stream: unknown sensor kind %q in %q", kind, line)
	}

	x, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil {
		return imuLine{}, false, fmt.Errorf("imu-stream: invalid x in %q: %w", line, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil {
		return imuLine{}, false, fmt.Errorf("imu-stream: invalid y in %q: %w", line, err)
	}
	z, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err != nil {
		return imuLine{}, false, fmt.Errorf("imu-stream: invalid z in %q: %w", line, err)
	}

	fits := true
	if len(fields) >= 5 && strings.TrimSpace(fields[4]) != "" {
		fits, err = strconv.ParseBool(strings.TrimSpace(fields[4]))
		if err != nil {
			return imuLine{}, false, fmt.Errorf("imu-stream: invalid fits_calibration in %q: %w", line, err)
		}
	}

	return imuLine{kind: kind, v: r3.Vec{X: x, Y: y, Z: z}, fitsCalibration: fits}, true, nil
}
