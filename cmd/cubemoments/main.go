package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"spectralcube/internal/cubeio"
	"spectralcube/internal/observability"
	"spectralcube/pkg/config"
	"spectralcube/pkg/cube"
	"spectralcube/pkg/grid"
	"spectralcube/pkg/mask"
	"spectralcube/pkg/moments"
	"spectralcube/pkg/visualization"
)

func main() {
	// Parse command line arguments
	headerPath := flag.String("header", "", "YAML header describing the cube")
	dataPath := flag.String("data", "", "Raw float64 data file (default: the file named in the header)")
	configPath := flag.String("config", "", "YAML configuration file")
	order := flag.Int("order", 0, "Moment order")
	axisName := flag.String("axis", "spectral", "Axis to collapse: spectral, lat or lon")
	strategyName := flag.String("strategy", "auto", "Moment strategy: auto, whole, plane or ray")
	outputPath := flag.String("out", "moment.yaml", "Output header path; the data file is written next to it")
	threshold := flag.Float64("threshold", 0, "Exclude voxels at or below this value (default: no mask)")
	chunked := flag.Bool("chunked", true, "Read the data file chunk by chunk instead of loading it")
	pngPath := flag.String("png", "", "Optional PNG quicklook of the moment map")
	showMetrics := flag.Bool("metrics", false, "Print reduction counters when done")
	flag.Parse()

	if *headerPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	observability.InitLogger("cubemoments")
	if err := cfg.ApplyLogging(); err != nil {
		log.Fatalf("Invalid log level: %v", err)
	}
	observability.RegisterMetrics()

	axis, err := grid.ParseAxis(*axisName)
	if err != nil {
		log.Fatalf("Invalid axis: %v", err)
	}
	kind, err := moments.ParseKind(*strategyName)
	if err != nil {
		log.Fatalf("Invalid strategy: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Println("================================")
		fmt.Println("SPECTRAL CUBE MOMENT MAPS")
		fmt.Println("================================")
	}

	startTime := time.Now()
	var in *cubeio.Ingest
	if *chunked {
		in, err = cubeio.Open(*headerPath, *dataPath)
	} else {
		in, err = cubeio.ReadAll(*headerPath, *dataPath)
	}
	if err != nil {
		log.Fatalf("Failed to read cube: %v", err)
	}
	defer in.Close()

	opts := cfg.CubeOptions()
	if flagSet("threshold") {
		opts = append(opts, cube.WithMask(mask.GreaterThan(*threshold)))
	}
	c, err := in.Cube(opts...)
	if err != nil {
		log.Fatalf("Failed to build cube: %v", err)
	}

	if cfg.Output.Verbose {
		fmt.Printf("Loaded %s\n", c)
		fmt.Printf("- Spectral unit: %s\n", c.SpectralUnit())
		if b, ok := c.Beam(); ok {
			fmt.Printf("- Beam: %.4g x %.4g deg, PA %.1f deg\n", b.Major, b.Minor, b.PA)
		}
		if c.VaryingResolution() {
			fmt.Printf("- Varying resolution: %d per-channel beams\n", len(c.Beams()))
		}
		fmt.Printf("Computing moment %d along the %s axis (%s strategy) with %d workers...\n",
			*order, axis, kind, cfg.Processing.NumCores)
	}

	p, err := c.Moment(*order, axis, kind)
	if err != nil {
		log.Fatalf("Moment computation failed: %v", err)
	}
	processingTime := time.Since(startTime)

	outData := strings.TrimSuffix(*outputPath, filepath.Ext(*outputPath)) + ".bin"
	if err := cubeio.WriteProjection(p, *outputPath, outData); err != nil {
		log.Fatalf("Failed to write moment map: %v", err)
	}

	undefined := 0
	for _, v := range p.Data {
		if math.IsNaN(v) {
			undefined++
		}
	}
	fmt.Printf("\nMoment map completed successfully in %.2f seconds!\n", processingTime.Seconds())
	fmt.Printf("Output saved to: %s (%s)\n", *outputPath, outData)
	fmt.Printf("- Shape: %v\n", p.Shape)
	fmt.Printf("- Unit: %s\n", p.Unit)
	fmt.Printf("- Strategy used: %v\n", p.Meta["moment_strategy"])
	fmt.Printf("- Undefined pixels: %d of %d\n", undefined, p.Size())

	if *pngPath != "" {
		viewer, err := visualization.NewProjectionViewer(p)
		if err != nil {
			log.Fatalf("Failed to render quicklook: %v", err)
		}
		img, err := viewer.ExtractChannel(grid.Spectral, 0)
		if err != nil {
			log.Fatalf("Failed to render quicklook: %v", err)
		}
		if err := viewer.SaveImage(img, *pngPath); err != nil {
			log.Printf("Warning: Failed to save quicklook: %v", err)
		} else {
			lo, hi := viewer.Range()
			fmt.Printf("Quicklook saved to: %s (range %.4g to %.4g)\n", *pngPath, lo, hi)
		}
	}

	if *showMetrics {
		printMetrics()
	}
}

// flagSet reports whether the named flag was given on the command line.
func flagSet(name string) bool {
	set := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

// printMetrics prints the spectralcube counters of the default registry.
func printMetrics() {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		log.Printf("Warning: Failed to gather metrics: %v", err)
		return
	}
	fmt.Println("\nMetrics:")
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), "spectralcube_") || !strings.HasSuffix(mf.GetName(), "_total") {
			continue
		}
		for _, m := range mf.GetMetric() {
			var labels []string
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			fmt.Printf("- %s{%s}: %.0f\n", mf.GetName(), strings.Join(labels, ","), m.GetCounter().GetValue())
		}
	}
}
