// Command imu-stream reads newline-delimited IMU samples from a serial
// port, feeds them into an OnlineSensorFusion, prints the fused orientation
// as it updates, and periodically persists the filter's converged bias to
// disk so a restart doesn't lose it.
package main

import (
	"fmt"
	"strings"

	"go.bug.st/serial"
)

// portOptions describes the serial connection parameters used to open the
// IMU's serial port.
type portOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

func defaultPortOptions() portOptions {
	return portOptions{BaudRate: 115200, DataBits: 8, StopBits: 1, Parity: "N"}
}

// normalize validates o and applies defaults for any unset field.
func (o portOptions) normalize() (portOptions, error) {
	opts := o
	if opts.BaudRate <= 0 {
		opts.BaudRate = 115200
	}
	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}
	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	parity := strings.ToUpper(strings.TrimSpace(opts.Parity))
	if parity == "" {
		parity = "N"
	}
	switch parity {
	case "N", "NONE":
		parity = "N"
	case "E", "EVEN":
		parity = "E"
	case "O", "ODD":
		parity = "O"
	default:
		return opts, fmt.Errorf("unsupported parity %q: expected N, E, or O", opts.Parity)
	}
	opts.Parity = parity
	return opts, nil
}

// serialMode converts o into the serial.Mode go.bug.st/serial requires to
// open a port.
func (o portOptions) serialMode() (*serial.Mode, error) {
	opts, err := o.normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.StopBits(opts.StopBits),
	}
	switch opts.Parity {
	case "N":
		mode.Parity = serial.NoParity
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	}
	return mode, nil
}
