package main

import (
	"flag"
	"log"
	"os"

	"github.com/fieldcam/cameracore/internal/mp4"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

func main() {
	inputPath := flag.String("input", "", "Path to the MP4 file to report on")
	outPath := flag.String("out", "mp4-report.html", "Path to write the rendered HTML treemap")
	flag.Parse()

	if *inputPath == "" {
		log.Fatalf("mp4-report: -input is required")
	}

	atoms, err := readTopLevelAtoms(*inputPath)
	if err != nil {
		log.Fatalf("mp4-report: %v", err)
	}

	if err := renderReport(atoms, *inputPath, *outPath); err != nil {
		log.Fatalf("mp4-report: %v", err)
	}
	log.Printf("mp4-report: wrote %s (%d top-level atoms)", *outPath, len(atoms))
}

func readTopLevelAtoms(path string) ([]mp4.Box, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := mp4.NewReader(f)
	atoms, s := mp4.ReadTopLevelAtoms(r)
	if !s.Ok() {
		return nil, s
	}
	return atoms, nil
}

// renderReport builds a treemap chart over atoms and writes it as a
// self-contained HTML file through the chart's Render(w).
func renderReport(atoms []mp4.Box, inputPath, outPath string) error {
	tm := charts.NewTreeMap()
	tm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "mp4-report: " + inputPath, Theme: "dark", Width: "1200px", Height: "800px"}),
		charts.WithTitleOpts(opts.Title{Title: "MP4 box tree", Subtitle: inputPath}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	tm.AddSeries("bytes", buildTreeMapRoots(atoms))

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	return tm.Render(f)
}
