package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"github.com/fieldcam/cameracore/internal/orientation"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

func main() {
	logPath := flag.String("log", "", "Path to a CSV IMU sample log (t_unix_nanos,kind,x,y,z[,fits_calibration])")
	outPath := flag.String("out", "orientation.png", "Path to write the rendered PNG plot")
	configPath := flag.String("config", "", "Optional path to a filter config JSON file")
	flag.Parse()

	if *logPath == "" {
		log.Fatalf("orientation-plot: -log is required")
	}

	cfg := orientation.EmptyFilterConfig()
	if *configPath != "" {
		loaded, err := orientation.LoadFilterConfigJSON(*configPath)
		if err != nil {
			log.Fatalf("orientation-plot: %v", err)
		}
		cfg = loaded
	}

	samples, err := readSampleLogFile(*logPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	if len(samples) == 0 {
		log.Fatalf("orientation-plot: %s contains no samples", *logPath)
	}

	series := replay(samples, cfg)
	if err := renderPlot(series, *outPath); err != nil {
		log.Fatalf("orientation-plot: %v", err)
	}
	log.Printf("orientation-plot: wrote %s (%d samples)", *outPath, len(series))
}

// renderPlot draws angle-axis magnitude, its three axis components and a
// 0/1 stationary line against elapsed time, one line per quantity, using
// plot.New/plotter.NewLine/Legend.Add/Save.
func renderPlot(series []orientationSample, outPath string) error {
	p := plot.New()
	p.Title.Text = "Orientation estimate over time"
	p.X.Label.Text = "Time (s)"
	p.Y.Label.Text = "Angle (deg) / unit axis component"

	angle := make(plotter.XYs, len(series))
	axisX := make(plotter.XYs, len(series))
	axisY := make(plotter.XYs, len(series))
	axisZ := make(plotter.XYs, len(series))
	stationary := make(plotter.XYs, len(series))
	for i, s := range series {
		angle[i] = plotter.XY{X: s.seconds, Y: s.angleDeg}
		axisX[i] = plotter.XY{X: s.seconds, Y: s.axis.X}
		axisY[i] = plotter.XY{X: s.seconds, Y: s.axis.Y}
		axisZ[i] = plotter.XY{X: s.seconds, Y: s.axis.Z}
		// 0 (moving) or 1 (stationary), unscaled, on the same y-axis as
		// the other lines.
		stationaryY := 0.0
		if s.stationary {
			stationaryY = 1.0
		}
		stationary[i] = plotter.XY{X: s.seconds, Y: stationaryY}
	}

	if err := addLine(p, "angle", angle, color.RGBA{R: 220, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "axis.x", axisX, color.RGBA{G: 150, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "axis.y", axisY, color.RGBA{B: 200, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "axis.z", axisZ, color.RGBA{R: 150, G: 100, B: 150, A: 255}); err != nil {
		return err
	}
	if err := addLine(p, "stationary", stationary, color.RGBA{R: 255, G: 215, A: 255}); err != nil {
		return err
	}

	p.Legend.Top = true
	p.Legend.Left = false

	if err := p.Save(14*vg.Inch, 6*vg.Inch, outPath); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func addLine(p *plot.Plot, label string, pts plotter.XYs, c color.Color) error {
	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("line %s: %w", label, err)
	}
	line.Color = c
	line.Width = vg.Points(1)
	p.Add(line)
	p.Legend.Add(label, line)
	return nil
}
