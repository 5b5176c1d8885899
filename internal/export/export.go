// Package export serializes the accumulated feature set into the run's
// vector layers: a point layer, a buffer-polygon layer visualizing positional
// uncertainty, and a GeoJSON FeatureCollection, all in EPSG:4326 with
// identical feature ordering so ids line up across formats.
package export

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/video360/detector/internal/store"
)

// Default output filenames, mirroring the upstream layer names.
const (
	PointsFilename   = "detections_points.geojsonl"
	BufferFilename   = "detections_buffer.geojson"
	GeoJSONFilename  = "detections.geojson"
	MetadataFilename = "metadata.json"
)

// CRS is the coordinate reference system of every layer.
const CRS = "EPSG:4326"

// LayerWriter is the capability boundary over the geometry backend: anything
// that can write the three layer shapes serves. Two implementations exist,
// selected at startup by Probe, so layer generation never branches on backend
// availability.
type LayerWriter interface {
	// WritePoints writes one point feature per detection, newline-delimited
	// (GeoJSONSeq), the format QGIS and ogr2ogr consume as a point layer.
	WritePoints(features []store.Feature, path string) error
	// WriteBuffers writes a polygon layer where each point is replaced by a
	// geodesic disk of radiusM meters.
	WriteBuffers(features []store.Feature, radiusM float64, path string) error
	// WriteGeoJSON writes a FeatureCollection mirroring the point layer.
	WriteGeoJSON(features []store.Feature, path string) error
	// Name identifies the backend for the run metadata.
	Name() string
}

// Result holds the paths of the generated artifacts. All fields are empty
// when there were no features to export.
type Result struct {
	Points  string `json:"points,omitempty"`
	Buffer  string `json:"buffer,omitempty"`
	GeoJSON string `json:"geojson,omitempty"`
}

// Metadata is the companion summary written next to the layers.
type Metadata struct {
	TotalDetections int      `json:"total_detections"`
	CRS             string   `json:"crs"`
	DetectionRadius float64  `json:"detection_radius"`
	ClassesFound    []string `json:"classes_found"`
	Writer          string   `json:"writer"`
	Files           Result   `json:"files"`
}

// Exporter generates all output layers over one feature store.
type Exporter struct {
	store  *store.Store
	writer LayerWriter
	radius float64
	log    *slog.Logger
}

// New creates an exporter. radius is the buffer disk radius in meters.
func New(st *store.Store, writer LayerWriter, radius float64, log *slog.Logger) *Exporter {
	return &Exporter{store: st, writer: writer, radius: radius, log: log}
}

// GenerateAll produces the point, buffer and GeoJSON layers plus the
// companion metadata file over the identical feature set. With no features it
// returns an empty result and performs no I/O: a run over an empty GPS track
// still completes.
func (e *Exporter) GenerateAll() (Result, error) {
	features := e.store.Features()
	if len(features) == 0 {
		e.log.Info("no geo-tagged features, skipping layer generation")
		return Result{}, nil
	}

	dir := e.store.OutputDir()
	result := Result{
		Points:  filepath.Join(dir, PointsFilename),
		Buffer:  filepath.Join(dir, BufferFilename),
		GeoJSON: filepath.Join(dir, GeoJSONFilename),
	}

	if err := e.writer.WritePoints(features, result.Points); err != nil {
		return Result{}, fmt.Errorf("writing point layer: %w", err)
	}
	if err := e.writer.WriteBuffers(features, e.radius, result.Buffer); err != nil {
		return Result{}, fmt.Errorf("writing buffer layer: %w", err)
	}
	if err := e.writer.WriteGeoJSON(features, result.GeoJSON); err != nil {
		return Result{}, fmt.Errorf("writing geojson layer: %w", err)
	}

	meta := Metadata{
		TotalDetections: len(features),
		CRS:             CRS,
		DetectionRadius: e.radius,
		ClassesFound:    e.store.ClassNames(),
		Writer:          e.writer.Name(),
		Files:           result,
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("marshaling layer metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFilename), data, 0644); err != nil {
		return Result{}, fmt.Errorf("writing layer metadata: %w", err)
	}

	e.log.Info("layers generated",
		"features", len(features),
		"writer", e.writer.Name(),
		"dir", dir)
	return result, nil
}
