package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/video360/detector/internal/store"
)

// geomWriter writes layers through the simplefeatures geometry library,
// validating every geometry before it is serialized.
type geomWriter struct{}

func (geomWriter) Name() string { return "simplefeatures" }

func (geomWriter) pointFeature(f store.Feature) geom.GeoJSONFeature {
	pt := geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: f.Lon, Y: f.Lat},
		Type: geom.DimXY,
	})
	return geom.GeoJSONFeature{
		Geometry:   pt.AsGeometry(),
		ID:         f.Props.ID,
		Properties: f.Props.Map(),
	}
}

func (w geomWriter) bufferFeature(f store.Feature, radiusM float64) (geom.GeoJSONFeature, error) {
	ring := bufferRing(f.Lat, f.Lon, radiusM)

	flat := make([]float64, 0, len(ring)*2)
	for _, v := range ring {
		flat = append(flat, v[0], v[1])
	}
	seq := geom.NewSequence(flat, geom.DimXY)
	poly := geom.NewPolygon([]geom.LineString{geom.NewLineString(seq)})
	if err := poly.Validate(); err != nil {
		return geom.GeoJSONFeature{}, fmt.Errorf("buffer polygon for feature %d: %w", f.Props.ID, err)
	}

	return geom.GeoJSONFeature{
		Geometry:   poly.AsGeometry(),
		ID:         f.Props.ID,
		Properties: f.Props.Map(),
	}, nil
}

func (w geomWriter) WritePoints(features []store.Feature, path string) error {
	var buf bytes.Buffer
	for _, f := range features {
		data, err := json.Marshal(w.pointFeature(f))
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (w geomWriter) WriteBuffers(features []store.Feature, radiusM float64, path string) error {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(features))
	for _, f := range features {
		feat, err := w.bufferFeature(f, radiusM)
		if err != nil {
			return err
		}
		fc = append(fc, feat)
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (w geomWriter) WriteGeoJSON(features []store.Feature, path string) error {
	fc := make(geom.GeoJSONFeatureCollection, 0, len(features))
	for _, f := range features {
		fc = append(fc, w.pointFeature(f))
	}
	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
