package export

import (
	"fmt"

	geom "github.com/peterstace/simplefeatures/geom"
)

// NewLayerWriter creates a layer writer by name. Empty kind selects via
// capability probe.
func NewLayerWriter(kind string) (LayerWriter, error) {
	switch kind {
	case "":
		return Probe(), nil
	case "simplefeatures":
		return geomWriter{}, nil
	case "manual":
		return manualWriter{}, nil
	default:
		return nil, fmt.Errorf("unknown layer writer: %s", kind)
	}
}

// Probe selects the geometry-backed writer when a trial buffer geometry
// validates, otherwise the manual writer. The probe runs once at startup so
// business logic never checks backend availability.
func Probe() LayerWriter {
	ring := bufferRing(0, 0, 1)
	flat := make([]float64, 0, len(ring)*2)
	for _, v := range ring {
		flat = append(flat, v[0], v[1])
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	poly := geom.NewPolygon([]geom.LineString{geom.NewLineString(seq)})
	if err := poly.Validate(); err != nil {
		return manualWriter{}
	}
	return geomWriter{}
}
