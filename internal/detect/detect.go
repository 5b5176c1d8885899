// Package detect runs a black-box object detector over extracted frames and
// turns its raw output into geo-referenced detection records. The detection
// model itself is external: anything that satisfies Detector plugs in.
package detect

import (
	"gocv.io/x/gocv"

	"github.com/video360/detector/pkg/core"
)

// Detector is the external classifier boundary. Implementations return one
// RawDetection per object found, already filtered by their own confidence
// threshold, with bounding boxes in pixel coordinates of the input image.
type Detector interface {
	Detect(img gocv.Mat) ([]core.RawDetection, error)
	// Model identifies the underlying model for the detections output.
	Model() string
	// Confidence is the threshold the detector applied.
	Confidence() float64
}
