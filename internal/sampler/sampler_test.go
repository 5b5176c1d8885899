package sampler

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/video360/detector/internal/geo"
	"github.com/video360/detector/internal/track"
	"github.com/video360/detector/internal/video"
	"github.com/video360/detector/pkg/core"
)

// fakeSource is a synthetic seekable video source. Reads produce a small
// solid frame; timestamps listed in failAt refuse to decode.
type fakeSource struct {
	props  video.Properties
	seekMS float64
	failAt map[int64]bool
}

func (f *fakeSource) Properties() video.Properties { return f.props }

func (f *fakeSource) SeekMillis(ms float64) { f.seekMS = ms }

func (f *fakeSource) SeekFrame(index int) {
	f.seekMS = float64(index) / f.props.FPS * 1000
}

func (f *fakeSource) Read(dst *gocv.Mat) bool {
	if f.failAt[int64(f.seekMS)] {
		return false
	}
	m := gocv.NewMatWithSize(f.props.Height, f.props.Width, gocv.MatTypeCV8UC3)
	defer m.Close()
	m.CopyTo(dst)
	return true
}

func (f *fakeSource) Close() error { return nil }

// straightLineTrack moves 0.0001 deg of latitude per second (~11 m/s) for
// the given number of seconds.
func straightLineTrack(seconds int) *track.Track {
	tr := track.New()
	for i := 0; i <= seconds; i++ {
		tr.AddWaypoint(19.4326+0.0001*float64(i), -99.1332, 2240, int64(i)*1000, 11.1)
	}
	return tr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func tenSecondSource() *fakeSource {
	return &fakeSource{
		props: video.Properties{FPS: 30, FrameCount: 300, Width: 32, Height: 16},
	}
}

func TestExtract_DistanceMode_FrameCountAndSpacing(t *testing.T) {
	dir := t.TempDir()
	tr := straightLineTrack(10)
	s := New(Config{DistanceInterval: 20, FallbackIntervalSec: 1, OutputDir: dir}, tr, testLogger())

	meta, err := s.Extract(tenSecondSource(), "synthetic.mp4", true)
	require.NoError(t, err)

	// ~110 m covered at a 20 m interval: on the order of 5-6 frames.
	assert.GreaterOrEqual(t, meta.TotalFrames, 5)
	assert.LessOrEqual(t, meta.TotalFrames, 6)
	assert.Len(t, meta.Frames, meta.TotalFrames)

	// Each extraction is at least the interval from the previous one.
	for i := 1; i < len(meta.Frames); i++ {
		prev := meta.Frames[i-1].GPS
		cur := meta.Frames[i].GPS
		require.NotNil(t, prev)
		require.NotNil(t, cur)
		d := geo.Distance(prev.LatLon(), cur.LatLon())
		assert.GreaterOrEqualf(t, d, 20.0, "frames %d and %d only %f m apart", i-1, i, d)
	}

	// Indexes are dense and zero-based, filenames zero-padded.
	for i, f := range meta.Frames {
		assert.Equal(t, i, f.Index)
		assert.FileExists(t, filepath.Join(dir, f.Filename))
	}
	assert.Greater(t, meta.TotalDistance, 80.0)
}

func TestExtract_DistanceMode_FirstFrameAtFirstPosition(t *testing.T) {
	dir := t.TempDir()
	tr := straightLineTrack(10)
	s := New(Config{DistanceInterval: 20, OutputDir: dir}, tr, testLogger())

	meta, err := s.Extract(tenSecondSource(), "synthetic.mp4", true)
	require.NoError(t, err)
	require.NotEmpty(t, meta.Frames)

	first := meta.Frames[0]
	assert.Equal(t, int64(0), first.TimestampMS)
	require.NotNil(t, first.GPS)
	assert.InDelta(t, 19.4326, first.GPS.Lat, 1e-9)
}

func TestExtract_DistanceMode_ReadFailureSkipsWithoutIndexGap(t *testing.T) {
	dir := t.TempDir()
	tr := straightLineTrack(10)
	src := tenSecondSource()
	src.failAt = map[int64]bool{0: true} // first extraction attempt fails

	s := New(Config{DistanceInterval: 20, OutputDir: dir}, tr, testLogger())
	meta, err := s.Extract(src, "synthetic.mp4", true)
	require.NoError(t, err)

	// One fewer frame than the clean run, but indexes stay dense from zero.
	require.NotEmpty(t, meta.Frames)
	for i, f := range meta.Frames {
		assert.Equal(t, i, f.Index)
	}
	assert.NotEqual(t, int64(0), meta.Frames[0].TimestampMS)
}

func TestExtract_TimeMode_UniformSpacing(t *testing.T) {
	dir := t.TempDir()
	s := New(Config{DistanceInterval: 20, FallbackIntervalSec: 1, OutputDir: dir}, track.New(), testLogger())

	meta, err := s.Extract(tenSecondSource(), "synthetic.mp4", true)
	require.NoError(t, err)

	// 300 frames at 30 fps, one per second.
	assert.Equal(t, 10, meta.TotalFrames)
	for i, f := range meta.Frames {
		assert.Equal(t, int64(i)*1000, f.TimestampMS)
		assert.Nil(t, f.GPS, "no track, so no position")
	}
	assert.Zero(t, meta.TotalDistance)
}

func TestExtract_WritesMetadataFiles(t *testing.T) {
	dir := t.TempDir()
	tr := straightLineTrack(10)
	s := New(Config{DistanceInterval: 20, OutputDir: dir}, tr, testLogger())

	_, err := s.Extract(tenSecondSource(), "synthetic.mp4", true)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, MetadataFilename))
	require.NoError(t, err)

	var meta core.ExtractionMetadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, "synthetic.mp4", meta.VideoPath)
	assert.Equal(t, 20.0, meta.DistanceInterval)
	assert.Equal(t, len(meta.Frames), meta.TotalFrames)
	assert.NotEmpty(t, meta.ExtractionTime)

	// Per-frame JSON written alongside each image.
	assert.FileExists(t, filepath.Join(dir, "frame_0000.json"))
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:00:05", FormatTimestamp(5000))
	assert.Equal(t, "0:01:05.500", FormatTimestamp(65500))
	assert.Equal(t, "1:00:00", FormatTimestamp(3600000))
	assert.Equal(t, "0:00:00", FormatTimestamp(0))
}
