// pkg/core/frame.go
package core

// FrameRecord describes one extracted video frame after it has been persisted
// to disk. Position is nil when the GPS track could not resolve a location for
// the frame's timestamp.
type FrameRecord struct {
	Index        int       `json:"index"`
	Filename     string    `json:"filename"`
	Filepath     string    `json:"filepath"`
	TimestampMS  int64     `json:"timestamp_ms"`
	TimestampStr string    `json:"timestamp_str"`
	GPS          *Position `json:"gps"`
}

// ExtractionMetadata is the run-level record written next to the frames.
type ExtractionMetadata struct {
	VideoPath        string        `json:"video_path"`
	DistanceInterval float64       `json:"distance_interval"`
	TotalFrames      int           `json:"total_frames"`
	TotalDistance    float64       `json:"total_distance"`
	Frames           []FrameRecord `json:"frames"`
	ExtractionTime   string        `json:"extraction_time"`
}
