package export

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/video360/detector/internal/store"
)

// manualWriter builds GeoJSON documents by hand, with no geometry library.
// It produces the same layers as geomWriter, minus validation.
type manualWriter struct{}

func (manualWriter) Name() string { return "manual" }

func (manualWriter) pointFeature(f store.Feature) map[string]any {
	return map[string]any{
		"type": "Feature",
		"id":   f.Props.ID,
		"geometry": map[string]any{
			"type":        "Point",
			"coordinates": []float64{f.Lon, f.Lat},
		},
		"properties": f.Props.Map(),
	}
}

func (manualWriter) bufferFeature(f store.Feature, radiusM float64) map[string]any {
	return map[string]any{
		"type": "Feature",
		"id":   f.Props.ID,
		"geometry": map[string]any{
			"type":        "Polygon",
			"coordinates": [][][2]float64{bufferRing(f.Lat, f.Lon, radiusM)},
		},
		"properties": f.Props.Map(),
	}
}

func (w manualWriter) WritePoints(features []store.Feature, path string) error {
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

func (w manualWriter) WriteBuffers(features []store.Feature, radiusM float64, path string) error {
	feats := make([]map[string]any, 0, len(features))
	for _, f := range features {
		feats = append(feats, w.bufferFeature(f, radiusM))
	}
	return writeCollection(feats, path)
}

func (w manualWriter) WriteGeoJSON(features []store.Feature, path string) error {
	feats := make([]map[string]any, 0, len(features))
	for _, f := range features {
		feats = append(feats, w.pointFeature(f))
	}
	return writeCollection(feats, path)
}

func writeCollection(features []map[string]any, path string) error {
	doc := map[string]any{
		"type":     "FeatureCollection",
		"features": features,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
