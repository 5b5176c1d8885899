// Package catalog persists run artifacts to the catalog database so past
// extractions stay queryable after their output directories are gone.
package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/video360/detector/pkg/core"
)

// Catalog writes runs, frames and detections to the catalog database.
type Catalog struct {
	db  *gorm.DB
	log zerolog.Logger
}

// New creates a catalog backed by an open gorm connection.
func New(db *gorm.DB, log zerolog.Logger) *Catalog {
	return &Catalog{db: db, log: log}
}

// Migrate creates or updates the catalog tables.
func (c *Catalog) Migrate() error {
	if err := c.db.AutoMigrate(DatabaseModels...); err != nil {
		return fmt.Errorf("catalog migration failed: %w", err)
	}
	return nil
}

// CreateRun records the start of a pipeline run and returns its id.
func (c *Catalog) CreateRun(run *Run) (uint, error) {
	run.StartedAt = time.Now().UTC()
	if err := c.db.Create(run).Error; err != nil {
		return 0, fmt.Errorf("failed to create run: %w", err)
	}
	c.log.Info().Uint("runId", run.ID).Str("video", run.VideoPath).Msg("Run registered")
	return run.ID, nil
}

// SaveFrames persists the extraction result for a run.
func (c *Catalog) SaveFrames(runID uint, meta *core.ExtractionMetadata) error {
	if meta == nil || len(meta.Frames) == 0 {
		return nil
	}

	rows := make([]Frame, 0, len(meta.Frames))
	for _, f := range meta.Frames {
		row := Frame{
			RunID:       runID,
			FrameIndex:  f.Index,
			Filename:    f.Filename,
			TimestampMS: f.TimestampMS,
		}
		if f.GPS != nil {
			row.HasGPS = true
			row.Lat = f.GPS.Lat
			row.Lon = f.GPS.Lon
			row.AltM = f.GPS.Alt
			row.PositionWKB = pointWKB(f.GPS.Lat, f.GPS.Lon)
		}
		rows = append(rows, row)
	}

	if err := c.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save frames: %w", err)
	}
	return nil
}

// SaveDetections persists geo-referenced detections for a run. Records
// without a geo position are stored too, with HasGPS semantics carried by
// the zero position and empty WKB.
func (c *Catalog) SaveDetections(runID uint, records []core.DetectionRecord) error {
	if len(records) == 0 {
		return nil
	}

	rows := make([]Detection, 0, len(records))
	for _, r := range records {
		bbox, err := json.Marshal(r.Bbox)
		if err != nil {
			return fmt.Errorf("failed to encode bbox: %w", err)
		}
		row := Detection{
			RunID:      runID,
			FrameIndex: r.FrameIndex,
			ClassID:    r.ClassID,
			ClassName:  r.ClassName,
			Confidence: r.Confidence,
			CropPath:   r.CropPath,
			Bbox:       datatypes.JSON(bbox),
		}
		if r.GeoPosition != nil {
			row.Lat = r.GeoPosition.Lat
			row.Lon = r.GeoPosition.Lon
			row.BearingDeg = r.GeoPosition.BearingDeg
			row.DistanceM = r.GeoPosition.DistanceM
			row.PositionWKB = pointWKB(r.GeoPosition.Lat, r.GeoPosition.Lon)
		}
		rows = append(rows, row)
	}

	if err := c.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("failed to save detections: %w", err)
	}
	return nil
}

// FinishRun stamps the run's end time and summary counters.
func (c *Catalog) FinishRun(runID uint, frameCount, detectionCount int, totalDistanceM float64) error {
	updates := map[string]interface{}{
		"finished_at":      time.Now().UTC(),
		"frame_count":      frameCount,
		"detection_count":  detectionCount,
		"total_distance_m": totalDistanceM,
	}
	if err := c.db.Model(&Run{}).Where("id = ?", runID).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	return nil
}

// RunDetections returns all stored detections for a run, oldest first.
func (c *Catalog) RunDetections(runID uint) ([]Detection, error) {
	var rows []Detection
	err := c.db.Where("run_id = ?", runID).Order("id asc").Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load detections: %w", err)
	}
	return rows, nil
}
