// Package sampler walks a video timeline and a GPS track together and
// extracts frames whenever accumulated travel distance crosses a threshold,
// falling back to uniform time sampling when no track is available. Each
// extracted frame is persisted with its timestamp and interpolated position.
package sampler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gocv.io/x/gocv"

	"github.com/video360/detector/internal/track"
	"github.com/video360/detector/internal/video"
	"github.com/video360/detector/pkg/core"
)

// MetadataFilename is the run-level metadata file written next to the frames.
const MetadataFilename = "extraction_metadata.json"

// Config holds sampling parameters.
type Config struct {
	// DistanceInterval is the travel distance in meters between frames in
	// distance-driven mode.
	DistanceInterval float64
	// FallbackIntervalSec is the video-time spacing in seconds used when no
	// GPS track is available.
	FallbackIntervalSec float64
	// OutputDir receives frame images and metadata.
	OutputDir string
	// JPEGQuality for persisted frames.
	JPEGQuality int
}

// Sampler extracts frames from a video source. One sampler runs one
// extraction; the frame index counter and the track's extraction state are
// single-writer by design.
type Sampler struct {
	cfg   Config
	track *track.Track
	log   *slog.Logger
}

// New creates a sampler over the given track. The track may be empty, in
// which case only time-driven extraction is possible.
func New(cfg Config, tr *track.Track, log *slog.Logger) *Sampler {
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = 95
	}
	return &Sampler{cfg: cfg, track: tr, log: log}
}

// Extract runs one extraction pass over the source. Distance-driven mode is
// used when useGPSDistance is set and the track has waypoints; otherwise one
// frame is taken every FallbackIntervalSec of video time. The two strategies
// are never mixed within a run.
func (s *Sampler) Extract(src video.Source, videoPath string, useGPSDistance bool) (*core.ExtractionMetadata, error) {
	if err := os.MkdirAll(s.cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	props := src.Properties()
	s.log.Info("starting frame extraction",
		"video", videoPath,
		"fps", props.FPS,
		"frames", props.FrameCount,
		"resolution", fmt.Sprintf("%dx%d", props.Width, props.Height),
		"duration_s", props.DurationMS()/1000)

	var frames []core.FrameRecord
	var err error
	if useGPSDistance && s.track.Len() > 0 {
		frames, err = s.extractByDistance(src, props)
	} else {
		frames, err = s.extractByTime(src, props)
	}
	if err != nil {
		return nil, err
	}

	meta := &core.ExtractionMetadata{
		VideoPath:        videoPath,
		DistanceInterval: s.cfg.DistanceInterval,
		TotalFrames:      len(frames),
		TotalDistance:    s.track.TotalDistanceM(),
		Frames:           frames,
		ExtractionTime:   time.Now().Format(time.RFC3339),
	}
	if err := writeJSON(filepath.Join(s.cfg.OutputDir, MetadataFilename), meta); err != nil {
		return nil, err
	}

	s.log.Info("extraction finished",
		"extracted", len(frames),
		"total_distance_m", meta.TotalDistance)
	return meta, nil
}

// extractByDistance walks a virtual clock across the video duration and fires
// an extraction whenever the interpolated position has moved DistanceInterval
// meters from the previous extraction point. The clock step adapts to the
// current GPS speed so sampling cost stays roughly independent of video
// length.
func (s *Sampler) extractByDistance(src video.Source, props video.Properties) ([]core.FrameRecord, error) {
	frames := make([]core.FrameRecord, 0)
	frameIdx := 0
	durationMS := props.DurationMS()

	img := gocv.NewMat()
	defer img.Close()

	for tMS := 0.0; tMS < durationMS; {
		pos := s.track.Interpolate(int64(tMS))

		shouldExtract := false
		if pos != nil {
			if last := s.track.LastExtractionPoint(); last != nil {
				if s.track.DistanceBetween(*last, *pos) >= s.cfg.DistanceInterval {
					shouldExtract = true
				}
			} else {
				// Always fire on the very first resolvable position.
				shouldExtract = true
			}
		}

		if shouldExtract {
			delta := s.track.MarkExtraction(*pos)

			src.SeekMillis(tMS)
			if src.Read(&img) {
				rec, err := s.saveFrame(img, frameIdx, pos, int64(tMS))
				if err != nil {
					return nil, err
				}
				frames = append(frames, rec)
				frameIdx++
				s.log.Debug("extracted frame",
					"index", rec.Index,
					"timestamp_ms", rec.TimestampMS,
					"lat", pos.Lat, "lon", pos.Lon,
					"delta_m", delta)
			} else {
				// Skippable: no index increment, no record, keep walking.
				s.log.Warn("frame read failed, skipping extraction",
					"timestamp_ms", int64(tMS))
			}
		}

		// Advance the clock: the time expected to cover one more interval at
		// current speed, floored at one video-frame duration; 1 s when the
		// speed is zero or no position resolves.
		if pos != nil && pos.Speed > 0 {
			step := s.cfg.DistanceInterval / pos.Speed * 1000
			if minStep := 1000 / props.FPS; step < minStep {
				step = minStep
			}
			tMS += step
		} else {
			tMS += 1000
		}
	}

	return frames, nil
}

// extractByTime takes one frame every FallbackIntervalSec of video time,
// irrespective of distance. Positions are still interpolated when a track is
// present so the frames stay geo-taggable.
func (s *Sampler) extractByTime(src video.Source, props video.Properties) ([]core.FrameRecord, error) {
	frames := make([]core.FrameRecord, 0)
	frameIdx := 0

	intervalFrames := int(props.FPS * s.cfg.FallbackIntervalSec)
	if intervalFrames < 1 {
		intervalFrames = 1
	}

	img := gocv.NewMat()
	defer img.Close()

	for i := 0; i < props.FrameCount; i += intervalFrames {
		src.SeekFrame(i)
		if !src.Read(&img) {
			s.log.Warn("frame read failed, skipping extraction", "frame", i)
			continue
		}

		frameMS := int64(float64(i) / props.FPS * 1000)
		pos := s.track.Interpolate(frameMS)

		rec, err := s.saveFrame(img, frameIdx, pos, frameMS)
		if err != nil {
			return nil, err
		}
		frames = append(frames, rec)
		frameIdx++
	}

	return frames, nil
}

// saveFrame persists the frame image and its per-frame metadata record. The
// filename is zero-padded and tied to the dense frame index.
func (s *Sampler) saveFrame(img gocv.Mat, index int, pos *core.Position, timestampMS int64) (core.FrameRecord, error) {
	filename := fmt.Sprintf("frame_%04d.jpg", index)
	path := filepath.Join(s.cfg.OutputDir, filename)

	params := []int{gocv.IMWriteJpegQuality, s.cfg.JPEGQuality}
	if ok := gocv.IMWriteWithParams(path, img, params); !ok {
		return core.FrameRecord{}, fmt.Errorf("writing frame image %s", path)
	}

	rec := core.FrameRecord{
		Index:        index,
		Filename:     filename,
		Filepath:     path,
		TimestampMS:  timestampMS,
		TimestampStr: FormatTimestamp(timestampMS),
		GPS:          pos,
	}

	jsonPath := filepath.Join(s.cfg.OutputDir, fmt.Sprintf("frame_%04d.json", index))
	if err := writeJSON(jsonPath, rec); err != nil {
		return core.FrameRecord{}, err
	}
	return rec, nil
}

// FormatTimestamp renders a millisecond offset as H:MM:SS, with a fractional
// part only when the millisecond remainder is nonzero.
func FormatTimestamp(ms int64) string {
	total := ms / 1000
	frac := ms % 1000
	str := fmt.Sprintf("%d:%02d:%02d", total/3600, (total/60)%60, total%60)
	if frac != 0 {
		str += fmt.Sprintf(".%03d", frac)
	}
	return str
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// LoadMetadata reads a previously written extraction metadata file, letting
// later stages run without re-extracting.
func LoadMetadata(outputDir string) (*core.ExtractionMetadata, error) {
	raw, err := os.ReadFile(filepath.Join(outputDir, MetadataFilename))
	if err != nil {
		return nil, fmt.Errorf("reading extraction metadata: %w", err)
	}
	var meta core.ExtractionMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, fmt.Errorf("parsing extraction metadata: %w", err)
	}
	return &meta, nil
}
