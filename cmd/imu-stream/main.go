package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldcam/cameracore/internal/biasstore"
	"github.com/fieldcam/cameracore/internal/config"
	"github.com/fieldcam/cameracore/internal/orientation"
	"go.bug.st/serial"
)

func main() {
	portName := flag.String("port", "", "Serial port device path (e.g. /dev/ttyACM0)")
	baudRate := flag.Int("baud", 115200, "Serial port baud rate")
	dbPath := flag.String("bias-db", "", "Path to the bias-persistence sqlite database (defaults to the biasstore config default)")
	flushInterval := flag.Duration("flush-interval", 30*time.Second, "How often to persist the converged bias to disk")
	maxBiasAge := flag.Duration("max-bias-age", time.Hour, "Discard a persisted bias older than this on startup")
	flag.Parse()

	if *portName == "" {
		log.Fatalf("imu-stream: -port is required")
	}

	opts, err := defaultPortOptions().normalize()
	if err != nil {
		log.Fatalf("imu-stream: %v", err)
	}
	opts.BaudRate = *baudRate
	mode, err := opts.serialMode()
	if err != nil {
		log.Fatalf("imu-stream: %v", err)
	}

	port, err := serial.Open(*portName, mode)
	if err != nil {
		log.Fatalf("imu-stream: open %s: %v", *portName, err)
	}
	defer port.Close()

	cfg := config.EmptyBiasStoreConfig()
	if *dbPath != "" {
		p := *dbPath
		cfg.DBPath = &p
	}
	store, err := biasstore.Open(cfg)
	if err != nil {
		log.Fatalf("imu-stream: %v", err)
	}
	defer store.Close()

	fusion := orientation.NewOnlineSensorFusion(nil)
	now := time.Now()
	if err := store.RestoreFilterBias(fusion.Filter(), *maxBiasAge, now); err != nil {
		log.Printf("imu-stream: no usable persisted bias, starting from zero: %v", err)
	} else {
		log.Printf("imu-stream: restored persisted bias")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go store.FlushLoop(ctx, fusion.Filter(), *flushInterval, nil)

	if err := stream(ctx, port, fusion, os.Stdout); err != nil && err != context.Canceled {
		log.Printf("imu-stream: stream ended: %v", err)
	}

	if err := store.SaveFilterBias(fusion.Filter(), time.Now()); err != nil {
		log.Printf("imu-stream: final bias save failed: %v", err)
	}
}

// stream reads newline-delimited IMU samples from r, feeds them to fusion,
// and writes the running angle-axis orientation to w after every line, one
// line of output per input sample. Malformed input lines are logged and
// skipped rather than aborting the stream, matching the sensor path's
// log-and-continue discipline elsewhere in this codebase.
func stream(ctx context.Context, r io.Reader, fusion *orientation.OnlineSensorFusion, w io.Writer) error {
	scan := bufio.NewScanner(r)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !scan.Scan() {
			return scan.Err()
		}

		parsed, ok, err := parseIMULine(scan.Text())
		if err != nil {
			log.Printf("imu-stream: %v", err)
			continue
		}
		if !ok {
			continue
		}

		t := time.Now()
		switch parsed.kind {
		case "accel":
			fusion.AddAccelMeasurement(parsed.v, t)
		case "gyro":
			fusion.AddGyroMeasurement(parsed.v, t)
		case "mag":
			fusion.AddMagMeasurement(parsed.v, t, parsed.fitsCalibration)
		}

		angle, axis := fusion.GetOrientation()
		fmt.Fprintf(w, "%s angle=%.4f axis=(%.4f,%.4f,%.4f)\n", t.Format(time.RFC3339Nano), angle*180/3.141592653589793, axis.X, axis.Y, axis.Z)
	}
}
