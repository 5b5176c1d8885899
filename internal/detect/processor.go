package detect

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"gocv.io/x/gocv"

	"github.com/video360/detector/internal/projector"
	"github.com/video360/detector/pkg/core"
)

// Config holds detection-stage parameters.
type Config struct {
	// DetectionRadius is the assumed object distance from the camera in
	// meters. It is a single per-run constant; true distance estimation is
	// out of scope.
	DetectionRadius float64
	// SaveCrops controls whether bounding-box crops are written next to the
	// frames.
	SaveCrops bool
	// CropsDir receives crops; defaults to <frames dir>/crops.
	CropsDir string
}

// Processor runs the detector over a directory of extracted frames and
// projects every detection to a geodesic position. It accumulates all
// records of a run in insertion order.
type Processor struct {
	detector Detector
	cfg      Config
	log      *slog.Logger

	records []core.DetectionRecord
}

// NewProcessor creates a processor around an external detector.
func NewProcessor(detector Detector, cfg Config, log *slog.Logger) *Processor {
	return &Processor{detector: detector, cfg: cfg, log: log}
}

// Records returns all detection records accumulated so far.
func (p *Processor) Records() []core.DetectionRecord {
	return p.records
}

// ProcessFrames runs detection on every frame in the extraction metadata, in
// frame-index order. Frames without a GPS position still produce records,
// just with a nil GeoPosition; geo-aware exports skip those while the raw
// detections output retains them.
func (p *Processor) ProcessFrames(meta *core.ExtractionMetadata) ([]core.DetectionRecord, error) {
	for _, frame := range meta.Frames {
		dets, err := p.ProcessFrame(frame)
		if err != nil {
			return nil, err
		}
		p.log.Debug("processed frame", "index", frame.Index, "detections", len(dets))
	}
	return p.records, nil
}

// ProcessFrame runs detection on a single persisted frame. An unreadable
// frame image is skippable: it is logged and yields no records.
func (p *Processor) ProcessFrame(frame core.FrameRecord) ([]core.DetectionRecord, error) {
	img := gocv.IMRead(frame.Filepath, gocv.IMReadColor)
	if img.Empty() {
		p.log.Warn("cannot read frame image, skipping", "path", frame.Filepath)
		return nil, nil
	}
	defer img.Close()

	width := img.Cols()
	height := img.Rows()

	raw, err := p.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("detector failed on frame %d: %w", frame.Index, err)
	}

	// Camera bearing is estimated per frame from that frame's own road
	// objects; frames with none keep the true-north convention.
	bearing := projector.EstimateBearing(raw, width, height)

	records := make([]core.DetectionRecord, 0, len(raw))
	for i, det := range raw {
		rec := core.DetectionRecord{
			RawDetection: det,
			FrameIndex:   frame.Index,
			FramePath:    frame.Filepath,
			TimestampStr: frame.TimestampStr,
			GPSPosition:  frame.GPS,
		}

		if frame.GPS != nil {
			geo := projector.Project(det.Center, *frame.GPS, bearing,
				p.cfg.DetectionRadius, width, height)
			rec.GeoPosition = &geo
		}

		if p.cfg.SaveCrops {
			rec.CropPath = p.saveCrop(img, det, frame, i)
		}

		records = append(records, rec)
		p.records = append(p.records, rec)
	}
	return records, nil
}

// saveCrop writes the bounding-box crop of a detection. Boxes are clamped to
// the image; degenerate boxes yield no crop. Failures are non-fatal.
func (p *Processor) saveCrop(img gocv.Mat, det core.RawDetection, frame core.FrameRecord, ordinal int) string {
	cropsDir := p.cfg.CropsDir
	if cropsDir == "" {
		cropsDir = filepath.Join(filepath.Dir(frame.Filepath), "crops")
	}
	if err := os.MkdirAll(cropsDir, 0755); err != nil {
		p.log.Warn("cannot create crops dir", "dir", cropsDir, "error", err)
		return ""
	}

	x1, y1 := max(0, det.Bbox.X1), max(0, det.Bbox.Y1)
	x2, y2 := min(img.Cols(), det.Bbox.X2), min(img.Rows(), det.Bbox.Y2)
	if x2 <= x1 || y2 <= y1 {
		return ""
	}

	region := img.Region(image.Rect(x1, y1, x2, y2))
	defer region.Close()

	filename := fmt.Sprintf("crop_%04d_%02d_%s_%.2f.jpg",
		frame.Index, ordinal, sanitizeClass(det.ClassName), det.Confidence)
	path := filepath.Join(cropsDir, filename)

	if ok := gocv.IMWrite(path, region); !ok {
		p.log.Warn("cannot write crop", "path", path)
		return ""
	}
	return path
}

func sanitizeClass(name string) string {
	out := make([]rune, 0, len(name))
	for _, r := range name {
		if r == ' ' || r == '/' {
			r = '_'
		}
		out = append(out, r)
	}
	return string(out)
}

// DetectionsFile is the raw detections artifact of a run.
type DetectionsFile struct {
	Model           string                 `json:"model"`
	Confidence      float64                `json:"confidence"`
	DetectionRadius float64                `json:"detection_radius"`
	TotalDetections int                    `json:"total_detections"`
	Detections      []core.DetectionRecord `json:"detections"`
}

// SaveDetectionsJSON writes all accumulated records, including ones without a
// geodesic position.
func (p *Processor) SaveDetectionsJSON(path string) error {
	out := DetectionsFile{
		Model:           p.detector.Model(),
		Confidence:      p.detector.Confidence(),
		DetectionRadius: p.cfg.DetectionRadius,
		TotalDetections: len(p.records),
		Detections:      p.records,
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling detections: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing detections file: %w", err)
	}
	return nil
}

// LoadDetectionsJSON reads a previously written detections file, letting the
// export stage run without re-detecting.
func LoadDetectionsJSON(path string) (*DetectionsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading detections file: %w", err)
	}
	var out DetectionsFile
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parsing detections file: %w", err)
	}
	return &out, nil
}
