package detect

import (
	"fmt"
	"image"
	"os"

	"gocv.io/x/gocv"

	"github.com/video360/detector/pkg/core"
)

// ONNXConfig configures the ONNX-backed detector. The model weights stay an
// external artifact; only the path to them is configured here.
type ONNXConfig struct {
	// Model is the model name reported in run artifacts, e.g. "yolo11s".
	Model string
	// ModelPath is the .onnx file; defaults to "<Model>.onnx".
	ModelPath string
	// Confidence is the minimum class score to keep a detection.
	Confidence float64
	// InputSize is the square network input; defaults to 640.
	InputSize int
	// NMSThreshold for overlap suppression; defaults to 0.45.
	NMSThreshold float64
}

// ONNXDetector runs a YOLO-family ONNX model through the OpenCV DNN module.
// The expected output layout is [1, 4+classes, anchors] with box centers in
// network input pixels.
type ONNXDetector struct {
	net gocv.Net
	cfg ONNXConfig
}

// NewONNXDetector loads the model. A missing or unreadable model file is a
// fatal input error.
func NewONNXDetector(cfg ONNXConfig) (*ONNXDetector, error) {
	if cfg.InputSize <= 0 {
		cfg.InputSize = 640
	}
	if cfg.NMSThreshold <= 0 {
		cfg.NMSThreshold = 0.45
	}
	path := cfg.ModelPath
	if path == "" {
		path = cfg.Model + ".onnx"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("model file %s: %w", path, err)
	}

	net := gocv.ReadNetFromONNX(path)
	if net.Empty() {
		return nil, fmt.Errorf("cannot load ONNX model %s", path)
	}
	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &ONNXDetector{net: net, cfg: cfg}, nil
}

// Model returns the configured model name.
func (d *ONNXDetector) Model() string { return d.cfg.Model }

// Confidence returns the configured score threshold.
func (d *ONNXDetector) Confidence() float64 { return d.cfg.Confidence }

// Close releases the network.
func (d *ONNXDetector) Close() error {
	return d.net.Close()
}

// Detect runs one inference pass and decodes the raw tensor into detections
// in source-image pixel coordinates.
func (d *ONNXDetector) Detect(img gocv.Mat) ([]core.RawDetection, error) {
	size := d.cfg.InputSize
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(size, size),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	out := d.net.Forward("")
	defer out.Close()

	dims := out.Size()
	if len(dims) != 3 {
		return nil, fmt.Errorf("unexpected output rank %d", len(dims))
	}
	attrs, anchors := dims[1], dims[2]
	if attrs < 5 {
		return nil, fmt.Errorf("unexpected output attributes %d", attrs)
	}
	numClasses := attrs - 4

	// The blob resize is a plain stretch, so decoding scales per axis.
	sx := float64(img.Cols()) / float64(size)
	sy := float64(img.Rows()) / float64(size)

	var boxes []image.Rectangle
	var scores []float32
	var classIDs []int

	for i := 0; i < anchors; i++ {
		bestClass, bestScore := 0, float32(0)
		for c := 0; c < numClasses; c++ {
			if s := out.GetFloatAt3(0, 4+c, i); s > bestScore {
				bestScore = s
				bestClass = c
			}
		}
		if float64(bestScore) < d.cfg.Confidence {
			continue
		}

		cx := float64(out.GetFloatAt3(0, 0, i)) * sx
		cy := float64(out.GetFloatAt3(0, 1, i)) * sy
		w := float64(out.GetFloatAt3(0, 2, i)) * sx
		h := float64(out.GetFloatAt3(0, 3, i)) * sy

		boxes = append(boxes, image.Rect(
			int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, bestScore)
		classIDs = append(classIDs, bestClass)
	}

	if len(boxes) == 0 {
		return nil, nil
	}

	keep := gocv.NMSBoxes(boxes, scores, float32(d.cfg.Confidence), float32(d.cfg.NMSThreshold))

	dets := make([]core.RawDetection, 0, len(keep))
	for _, idx := range keep {
		b := boxes[idx]
		dets = append(dets, core.RawDetection{
			ClassID:    classIDs[idx],
			ClassName:  ClassName(classIDs[idx]),
			Confidence: float64(scores[idx]),
			Bbox:       core.Rect{X1: b.Min.X, Y1: b.Min.Y, X2: b.Max.X, Y2: b.Max.Y},
			Center: core.Pixel{
				X: (b.Min.X + b.Max.X) / 2,
				Y: (b.Min.Y + b.Max.Y) / 2,
			},
		})
	}
	return dets, nil
}
