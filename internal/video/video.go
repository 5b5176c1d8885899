// Package video abstracts the frame source the sampler reads from. The only
// production implementation wraps a gocv VideoCapture; tests substitute a
// synthetic source.
package video

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrOpen is returned when a video file cannot be opened. This is a fatal
// input error: no partial extraction state is usable without a readable
// source.
var ErrOpen = errors.New("cannot open video")

// Properties describes a video source.
type Properties struct {
	FPS        float64
	FrameCount int
	Width      int
	Height     int
}

// DurationMS returns the video duration in milliseconds.
func (p Properties) DurationMS() float64 {
	if p.FPS <= 0 {
		return 0
	}
	return float64(p.FrameCount) / p.FPS * 1000
}

// Source is a seekable frame source. Read failures at a given seek point are
// non-fatal; the sampler skips that extraction attempt and keeps walking.
type Source interface {
	Properties() Properties
	// SeekMillis positions the source at the frame nearest the timestamp.
	SeekMillis(ms float64)
	// SeekFrame positions the source at a frame index.
	SeekFrame(index int)
	// Read decodes the frame at the current position into dst. Returns false
	// when the frame cannot be read.
	Read(dst *gocv.Mat) bool
	Close() error
}

// FileSource reads frames from a video file through gocv.
type FileSource struct {
	capture *gocv.VideoCapture
	props   Properties
}

// OpenFile opens a video file for random-access reads.
func OpenFile(path string) (*FileSource, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrOpen, path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("%w: %s", ErrOpen, path)
	}

	return &FileSource{
		capture: capture,
		props: Properties{
			FPS:        capture.Get(gocv.VideoCaptureFPS),
			FrameCount: int(capture.Get(gocv.VideoCaptureFrameCount)),
			Width:      int(capture.Get(gocv.VideoCaptureFrameWidth)),
			Height:     int(capture.Get(gocv.VideoCaptureFrameHeight)),
		},
	}, nil
}

// Properties returns the probed video properties.
func (s *FileSource) Properties() Properties {
	return s.props
}

// SeekMillis positions the capture at a timestamp.
func (s *FileSource) SeekMillis(ms float64) {
	s.capture.Set(gocv.VideoCapturePosMsec, ms)
}

// SeekFrame positions the capture at a frame index.
func (s *FileSource) SeekFrame(index int) {
	s.capture.Set(gocv.VideoCapturePosFrames, float64(index))
}

// Read decodes the frame at the current position.
func (s *FileSource) Read(dst *gocv.Mat) bool {
	if ok := s.capture.Read(dst); !ok {
		return false
	}
	return !dst.Empty()
}

// Close releases the underlying capture.
func (s *FileSource) Close() error {
	return s.capture.Close()
}
