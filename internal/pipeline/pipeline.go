// Package pipeline runs the batch stages end to end: frame extraction,
// object detection and geo export. Stages are strictly sequential and each
// one can also run standalone off the previous stage's on-disk artifacts.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/video360/detector/internal/catalog"
	"github.com/video360/detector/internal/detect"
	"github.com/video360/detector/internal/export"
	"github.com/video360/detector/internal/monitor"
	"github.com/video360/detector/internal/sampler"
	"github.com/video360/detector/internal/store"
	"github.com/video360/detector/internal/track"
	"github.com/video360/detector/internal/video"
	"github.com/video360/detector/pkg/core"
)

// DetectionsFilename is the raw detections artifact in the output dir.
const DetectionsFilename = "detections.json"

// Step selects which stages to run.
type Step string

const (
	StepExtract Step = "extract"
	StepDetect  Step = "detect"
	StepExport  Step = "export"
	StepAll     Step = "all"
)

// ParseStep validates a -step flag value.
func ParseStep(s string) (Step, error) {
	switch Step(strings.ToLower(s)) {
	case StepExtract:
		return StepExtract, nil
	case StepDetect:
		return StepDetect, nil
	case StepExport:
		return StepExport, nil
	case StepAll, "":
		return StepAll, nil
	default:
		return "", fmt.Errorf("unknown step: %s", s)
	}
}

// Runs reports whether the given stage executes under this step selection.
func (s Step) Runs(stage Step) bool {
	return s == StepAll || s == stage
}

// Options are the per-run parameters.
type Options struct {
	VideoPath string
	GPSPath   string // .gpx or .json; empty means time-driven sampling
	OutputDir string
	Step      Step

	DistanceInterval    float64
	FallbackIntervalSec float64
	JPEGQuality         int

	DetectionRadius float64
	SaveCrops       bool

	WriterKind string // export layer writer; empty selects by probe
}

// Result summarizes a finished run.
type Result struct {
	Meta    *core.ExtractionMetadata
	Records []core.DetectionRecord
	Export  export.Result
	Summary store.Summary
}

// Pipeline wires the stages together with the optional catalog and monitor.
type Pipeline struct {
	opts     Options
	detector detect.Detector
	log      *slog.Logger
	metrics  *monitor.Metrics

	// Optional; nil disables.
	Catalog *catalog.Catalog
	Influx  *monitor.InfluxManager

	// OpenVideo opens the source; tests swap in a synthetic one.
	OpenVideo func(path string) (video.Source, error)
}

// New creates a pipeline. The detector may be nil when only the extract or
// export stage runs.
func New(opts Options, detector detect.Detector, metrics *monitor.Metrics, log *slog.Logger) *Pipeline {
	if opts.Step == "" {
		opts.Step = StepAll
	}
	return &Pipeline{
		opts:     opts,
		detector: detector,
		log:      log,
		metrics:  metrics,
		OpenVideo: func(path string) (video.Source, error) {
			return video.OpenFile(path)
		},
	}
}

// Run executes the selected stages in order. Empty intermediate results are
// tolerated at every boundary: a run over a video with no detections still
// finishes cleanly with an empty export.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	started := time.Now()
	res := &Result{}

	var runID uint
	if p.Catalog != nil {
		var err error
		runID, err = p.Catalog.CreateRun(&catalog.Run{
			VideoPath:        p.opts.VideoPath,
			GPSSource:        p.opts.GPSPath,
			DistanceInterval: p.opts.DistanceInterval,
			DetectionModel:   p.detectorModel(),
			Confidence:       p.detectorConfidence(),
			DetectionRadius:  p.opts.DetectionRadius,
		})
		if err != nil {
			return nil, err
		}
	}

	if p.opts.Step.Runs(StepExtract) {
		meta, err := p.extract(ctx)
		if err != nil {
			return nil, err
		}
		res.Meta = meta
	}

	if p.opts.Step.Runs(StepDetect) {
		records, meta, err := p.detect(ctx, res.Meta)
		if err != nil {
			return nil, err
		}
		res.Records = records
		if res.Meta == nil {
			res.Meta = meta
		}
	}

	if p.opts.Step.Runs(StepExport) {
		exp, summary, err := p.export(ctx, res.Records)
		if err != nil {
			return nil, err
		}
		res.Export = exp
		res.Summary = summary
	}

	if p.Catalog != nil {
		if err := p.Catalog.SaveFrames(runID, res.Meta); err != nil {
			return nil, err
		}
		if err := p.Catalog.SaveDetections(runID, res.Records); err != nil {
			return nil, err
		}
		frameCount, distance := 0, 0.0
		if res.Meta != nil {
			frameCount = res.Meta.TotalFrames
			distance = res.Meta.TotalDistance
		}
		if err := p.Catalog.FinishRun(runID, frameCount, len(res.Records), distance); err != nil {
			return nil, err
		}
	}

	if p.Influx != nil {
		stats := monitor.RunStats{
			VideoPath:       p.opts.VideoPath,
			DetectionsTotal: len(res.Records),
			FeaturesWritten: res.Summary.Total,
			Duration:        time.Since(started),
		}
		if res.Meta != nil {
			stats.FramesExtracted = res.Meta.TotalFrames
			stats.TotalDistanceM = res.Meta.TotalDistance
		}
		p.Influx.WriteRunStats(stats)
	}

	p.log.Info("pipeline finished",
		"step", string(p.opts.Step),
		"duration", time.Since(started).Round(time.Millisecond))
	return res, nil
}

func (p *Pipeline) extract(ctx context.Context) (*core.ExtractionMetadata, error) {
	tr, err := p.loadTrack()
	if err != nil {
		return nil, err
	}

	src, err := p.OpenVideo(p.opts.VideoPath)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	s := sampler.New(sampler.Config{
		DistanceInterval:    p.opts.DistanceInterval,
		FallbackIntervalSec: p.opts.FallbackIntervalSec,
		OutputDir:           p.opts.OutputDir,
		JPEGQuality:         p.opts.JPEGQuality,
	}, tr, p.log)

	meta, err := s.Extract(src, p.opts.VideoPath, p.opts.GPSPath != "")
	if err != nil {
		return nil, err
	}

	if p.metrics != nil {
		for _, f := range meta.Frames {
			p.metrics.FrameExtracted(ctx, f.GPS != nil)
		}
	}
	return meta, nil
}

func (p *Pipeline) detect(ctx context.Context, meta *core.ExtractionMetadata) ([]core.DetectionRecord, *core.ExtractionMetadata, error) {
	if p.detector == nil {
		return nil, nil, fmt.Errorf("detect stage requires a detector")
	}

	if meta == nil {
		var err error
		meta, err = sampler.LoadMetadata(p.opts.OutputDir)
		if err != nil {
			return nil, nil, err
		}
	}

	proc := detect.NewProcessor(p.detector, detect.Config{
		DetectionRadius: p.opts.DetectionRadius,
		SaveCrops:       p.opts.SaveCrops,
	}, p.log)

	records, err := proc.ProcessFrames(meta)
	if err != nil {
		return nil, nil, err
	}
	if err := proc.SaveDetectionsJSON(filepath.Join(p.opts.OutputDir, DetectionsFilename)); err != nil {
		return nil, nil, err
	}

	if p.metrics != nil {
		for _, r := range records {
			p.metrics.DetectionsFound(ctx, r.ClassName, 1)
		}
	}
	return records, meta, nil
}

func (p *Pipeline) export(ctx context.Context, records []core.DetectionRecord) (export.Result, store.Summary, error) {
	if records == nil {
		loaded, err := detect.LoadDetectionsJSON(filepath.Join(p.opts.OutputDir, DetectionsFilename))
		if err != nil {
			return export.Result{}, store.Summary{}, err
		}
		records = loaded.Detections
	}

	st, err := store.New(p.opts.OutputDir)
	if err != nil {
		return export.Result{}, store.Summary{}, err
	}
	st.AddDetections(records)

	w, err := export.NewLayerWriter(p.opts.WriterKind)
	if err != nil {
		return export.Result{}, store.Summary{}, err
	}

	e := export.New(st, w, p.opts.DetectionRadius, p.log)
	result, err := e.GenerateAll()
	if err != nil {
		return export.Result{}, store.Summary{}, err
	}

	summary := st.Summary()
	if p.metrics != nil {
		p.metrics.FeaturesExported(ctx, summary.Total)
	}
	return result, summary, nil
}

// loadTrack builds the GPS track from the configured source. No source means
// an empty track and time-driven sampling.
func (p *Pipeline) loadTrack() (*track.Track, error) {
	switch {
	case p.opts.GPSPath == "":
		return track.New(), nil
	case strings.EqualFold(filepath.Ext(p.opts.GPSPath), ".gpx"):
		return track.FromGPXFile(p.opts.GPSPath)
	default:
		return track.FromJSONFile(p.opts.GPSPath)
	}
}

func (p *Pipeline) detectorModel() string {
	if p.detector == nil {
		return ""
	}
	return p.detector.Model()
}

func (p *Pipeline) detectorConfidence() float64 {
	if p.detector == nil {
		return 0
	}
	return p.detector.Confidence()
}
