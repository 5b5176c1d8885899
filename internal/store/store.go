// Package store accumulates geo-tagged detections into the feature list the
// exporter serializes. It is an owned builder: one goroutine appends, nothing
// mutates a feature after creation.
package store

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/video360/detector/pkg/core"
)

// Properties is the flattened, rounded attribute bag exported with every
// feature. Field order matches the upstream layer schema.
type Properties struct {
	ID         int     `json:"id"`
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	FrameIdx   int     `json:"frame_idx"`
	FrameFile  string  `json:"frame_file"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	AltM       float64 `json:"alt_m"`
	DistM      float64 `json:"dist_m"`
	BearingDeg float64 `json:"bearing_deg"`
	Azimuth    float64 `json:"azimuth"`
	Elevation  float64 `json:"elevation"`
	CropPath   string  `json:"crop_path"`
	Timestamp  string  `json:"timestamp"`
}

// Map returns the properties as a generic map, the shape GeoJSON encoders
// consume. Key order is irrelevant to consumers.
func (p Properties) Map() map[string]any {
	return map[string]any{
		"id":          p.ID,
		"class_id":    p.ClassID,
		"class_name":  p.ClassName,
		"confidence":  p.Confidence,
		"frame_idx":   p.FrameIdx,
		"frame_file":  p.FrameFile,
		"lat":         p.Lat,
		"lon":         p.Lon,
		"alt_m":       p.AltM,
		"dist_m":      p.DistM,
		"bearing_deg": p.BearingDeg,
		"azimuth":     p.Azimuth,
		"elevation":   p.Elevation,
		"crop_path":   p.CropPath,
		"timestamp":   p.Timestamp,
	}
}

// Feature is the export-time projection of one geo-tagged detection: a point
// geometry in EPSG:4326 plus its property bag. One-to-one with a
// DetectionRecord that has a non-nil GeoPosition.
type Feature struct {
	Lon   float64
	Lat   float64
	Props Properties
}

// Summary is the class histogram over the accumulated features.
type Summary struct {
	Total     int            `json:"total"`
	ByClass   map[string]int `json:"by_class,omitempty"`
	WithCrops int            `json:"with_crops"`
}

// Store owns the feature list for one run. Feature ids are assigned in
// insertion order so they line up across every export format.
type Store struct {
	outputDir string
	cropsDir  string
	features  []Feature
}

// New creates a store rooted at outputDir; detection crops are copied into
// its crops/ subdirectory.
func New(outputDir string) (*Store, error) {
	cropsDir := filepath.Join(outputDir, "crops")
	if err := os.MkdirAll(cropsDir, 0755); err != nil {
		return nil, fmt.Errorf("creating store directories: %w", err)
	}
	return &Store{outputDir: outputDir, cropsDir: cropsDir}, nil
}

// OutputDir returns the directory the store (and its exports) live in.
func (s *Store) OutputDir() string {
	return s.outputDir
}

// AddDetection appends a feature derived from the record. Records without a
// geodesic position are silently skipped: missing geo data is a valid, common
// state, not an error. If the record carries an existing crop image, it is
// copied under the store and referenced by relative path.
func (s *Store) AddDetection(rec core.DetectionRecord) {
	if rec.GeoPosition == nil {
		return
	}
	geo := rec.GeoPosition

	relCrop := ""
	if rec.CropPath != "" {
		if _, err := os.Stat(rec.CropPath); err == nil {
			name := filepath.Base(rec.CropPath)
			dst := filepath.Join(s.cropsDir, name)
			if filepath.Clean(rec.CropPath) == filepath.Clean(dst) {
				// Crop was written into the store's own crops dir.
				relCrop = "crops/" + name
			} else if err := copyFile(rec.CropPath, dst); err == nil {
				relCrop = "crops/" + name
			}
		}
	}

	s.features = append(s.features, Feature{
		Lon: geo.Lon,
		Lat: geo.Lat,
		Props: Properties{
			ID:         len(s.features),
			ClassID:    rec.ClassID,
			ClassName:  rec.ClassName,
			Confidence: round(rec.Confidence, 3),
			FrameIdx:   rec.FrameIndex,
			FrameFile:  filepath.Base(rec.FramePath),
			Lat:        round(geo.Lat, 7),
			Lon:        round(geo.Lon, 7),
			AltM:       round(geo.Alt, 2),
			DistM:      round(geo.DistanceM, 2),
			BearingDeg: round(geo.BearingDeg, 2),
			Azimuth:    round(geo.AzimuthPixel, 2),
			Elevation:  round(geo.ElevationDeg, 2),
			CropPath:   relCrop,
			Timestamp:  rec.TimestampStr,
		},
	})
}

// AddDetections appends every record in order.
func (s *Store) AddDetections(recs []core.DetectionRecord) {
	for _, rec := range recs {
		s.AddDetection(rec)
	}
}

// Features returns the accumulated features in insertion order.
func (s *Store) Features() []Feature {
	return s.features
}

// Summary returns the class histogram. Pure read.
func (s *Store) Summary() Summary {
	sum := Summary{Total: len(s.features)}
	if len(s.features) == 0 {
		return sum
	}
	sum.ByClass = make(map[string]int)
	for _, f := range s.features {
		sum.ByClass[f.Props.ClassName]++
		if f.Props.CropPath != "" {
			sum.WithCrops++
		}
	}
	return sum
}

// ClassNames returns the distinct class names observed, in first-seen order.
func (s *Store) ClassNames() []string {
	seen := make(map[string]bool)
	var names []string
	for _, f := range s.features {
		if !seen[f.Props.ClassName] {
			seen[f.Props.ClassName] = true
			names = append(names, f.Props.ClassName)
		}
	}
	return names
}

// round rounds v to the given number of decimal places. Lat/lon use 7
// (~1 cm), distances and angles 2, confidence 3.
func round(v float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(v*p) / p
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}
