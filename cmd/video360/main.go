// Command video360 extracts frames from a 360° drive video along its GPS
// track, runs object detection on them and exports geo-referenced detection
// layers.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/video360/detector/internal/catalog"
	"github.com/video360/detector/internal/config"
	"github.com/video360/detector/internal/database"
	"github.com/video360/detector/internal/detect"
	"github.com/video360/detector/internal/logging"
	"github.com/video360/detector/internal/monitor"
	"github.com/video360/detector/internal/pipeline"
)

var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		videoPath  = flag.String("video", "", "path to the 360° video file (required)")
		gpsPath    = flag.String("gps", "", "GPS source: .gpx track or parallel-array .json")
		outputDir  = flag.String("output", "", "output directory (default from config)")
		configDir  = flag.String("config", ".", "directory holding video360.cfg.json")
		stepFlag   = flag.String("step", "all", "stage to run: extract|detect|export|all")
		distance   = flag.Float64("distance", 0, "meters of travel between frames (overrides config)")
		radius     = flag.Float64("radius", 0, "assumed object distance in meters (overrides config)")
		confidence = flag.Float64("confidence", 0, "detector confidence threshold (overrides config)")
		noCrops    = flag.Bool("no-crops", false, "skip writing bounding-box crops")
		version    = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *version {
		fmt.Printf("video360 %s (built %s)\n", Version, BuildDate)
		return nil
	}
	if *videoPath == "" {
		flag.Usage()
		return fmt.Errorf("-video is required")
	}

	if err := config.Load(*configDir); err != nil {
		return err
	}

	step, err := pipeline.ParseStep(*stepFlag)
	if err != nil {
		return err
	}

	opts := pipeline.Options{
		VideoPath:           *videoPath,
		GPSPath:             *gpsPath,
		OutputDir:           config.GetString("outputDir"),
		Step:                step,
		DistanceInterval:    config.GetFloat("extract.distanceInterval"),
		FallbackIntervalSec: config.GetFloat("extract.fallbackIntervalSec"),
		JPEGQuality:         config.GetInt("extract.jpegQuality"),
		DetectionRadius:     config.GetFloat("detect.radius"),
		SaveCrops:           config.GetBool("detect.saveCrops") && !*noCrops,
		WriterKind:          config.GetString("export.writer"),
	}
	if *outputDir != "" {
		opts.OutputDir = *outputDir
	}
	if *distance > 0 {
		opts.DistanceInterval = *distance
	}
	if *radius > 0 {
		opts.DetectionRadius = *radius
	}

	startTime := time.Now().UTC()
	logManager := logging.NewSlogManager()
	logFile := openLogFile(opts.OutputDir, startTime)
	if logFile != nil {
		defer logFile.Close()
		logManager.Setup(logFile, config.GetString("logLevel"))
	} else {
		logManager.Setup(nil, config.GetString("logLevel"))
	}
	log := logManager.Logger()

	detConfidence := config.GetFloat("detect.confidence")
	if *confidence > 0 {
		detConfidence = *confidence
	}
	var detector detect.Detector
	if step.Runs(pipeline.StepDetect) {
		onnx, err := detect.NewONNXDetector(detect.ONNXConfig{
			Model:      config.GetString("detect.model"),
			Confidence: detConfidence,
		})
		if err != nil {
			return err
		}
		defer onnx.Close()
		detector = onnx
	}

	metrics, err := monitor.NewMetrics()
	if err != nil {
		return err
	}

	p := pipeline.New(opts, detector, metrics, log)

	ctx := context.Background()
	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	catalogCfg := config.Catalog()
	if catalogCfg.Enabled {
		dbm := database.NewManager(zlog)
		if err := dbm.Connect(catalogCfg); err != nil {
			log.Warn("run catalog unavailable, continuing without it", "error", err)
		} else {
			defer dbm.Close()
			cat := catalog.New(dbm.DB, zlog)
			if err := cat.Migrate(); err != nil {
				return err
			}
			p.Catalog = cat
		}
	}

	influx := monitor.NewInfluxManager(zlog)
	if err := influx.Connect(ctx); err == nil {
		defer influx.Close()
		p.Influx = influx
	}

	res, err := p.Run(ctx)
	if err != nil {
		return err
	}

	log.Info("done",
		"output", opts.OutputDir,
		"features", res.Summary.Total,
		"classes", res.Summary.ByClass)
	return nil
}

// openLogFile creates the run log under <output>/logs. A log file is best
// effort; failure to create one falls back to console-only logging.
func openLogFile(outputDir string, start time.Time) *os.File {
	logsDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil
	}
	f, err := os.OpenFile(logging.LogFilePath(logsDir, start), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil
	}
	return f
}
