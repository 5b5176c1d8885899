package export

import (
	"bufio"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/video360/detector/internal/geo"
	"github.com/video360/detector/internal/store"
	"github.com/video360/detector/pkg/core"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func populatedStore(t *testing.T, geoCount, nilCount int) *store.Store {
	t.Helper()
	s, err := store.New(t.TempDir())
	require.NoError(t, err)

	for i := 0; i < geoCount; i++ {
		s.AddDetection(core.DetectionRecord{
			RawDetection: core.RawDetection{ClassID: 2, ClassName: "car", Confidence: 0.9},
			FrameIndex:   i,
			FramePath:    "frame.jpg",
			GeoPosition: &core.GeoPosition{
				Lat: 19.4326 + float64(i)*1e-4, Lon: -99.1332,
				DistanceM: 10, BearingDeg: 0,
			},
		})
	}
	for i := 0; i < nilCount; i++ {
		s.AddDetection(core.DetectionRecord{
			RawDetection: core.RawDetection{ClassName: "person"},
		})
	}
	return s
}

type featureCollection struct {
	Type     string `json:"type"`
	Features []struct {
		Geometry struct {
			Type        string          `json:"type"`
			Coordinates json.RawMessage `json:"coordinates"`
		} `json:"geometry"`
		Properties map[string]any `json:"properties"`
	} `json:"features"`
}

func readCollection(t *testing.T, path string) featureCollection {
	t.Helper()
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var fc featureCollection
	require.NoError(t, json.Unmarshal(raw, &fc))
	return fc
}

func countLines(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	n := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)
	for scanner.Scan() {
		n++
	}
	require.NoError(t, scanner.Err())
	return n
}

func runGenerateAll(t *testing.T, writerKind string) {
	s := populatedStore(t, 4, 3)
	w, err := NewLayerWriter(writerKind)
	require.NoError(t, err)

	e := New(s, w, 10, testLogger())
	result, err := e.GenerateAll()
	require.NoError(t, err)

	// Exactly N=4 features in every format; the 3 nil-geo records never
	// reached the store.
	assert.Equal(t, 4, countLines(t, result.Points))

	points := readCollection(t, result.GeoJSON)
	assert.Equal(t, "FeatureCollection", points.Type)
	require.Len(t, points.Features, 4)
	assert.Equal(t, "Point", points.Features[0].Geometry.Type)

	buffers := readCollection(t, result.Buffer)
	require.Len(t, buffers.Features, 4)
	assert.Equal(t, "Polygon", buffers.Features[0].Geometry.Type)

	// Feature ordering lines up across formats.
	for i := range points.Features {
		assert.EqualValues(t, i, points.Features[i].Properties["id"])
		assert.EqualValues(t, i, buffers.Features[i].Properties["id"])
	}

	// Companion metadata.
	raw, err := os.ReadFile(filepath.Join(s.OutputDir(), MetadataFilename))
	require.NoError(t, err)
	var meta Metadata
	require.NoError(t, json.Unmarshal(raw, &meta))
	assert.Equal(t, 4, meta.TotalDetections)
	assert.Equal(t, CRS, meta.CRS)
	assert.Equal(t, 10.0, meta.DetectionRadius)
	assert.Equal(t, []string{"car"}, meta.ClassesFound)
}

func TestGenerateAll_GeomWriter(t *testing.T) {
	runGenerateAll(t, "simplefeatures")
}

func TestGenerateAll_ManualWriter(t *testing.T) {
	runGenerateAll(t, "manual")
}

func TestGenerateAll_EmptyStoreNoIO(t *testing.T) {
	s, err := store.New(t.TempDir())
	require.NoError(t, err)

	e := New(s, Probe(), 10, testLogger())
	result, err := e.GenerateAll()
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)

	assert.NoFileExists(t, filepath.Join(s.OutputDir(), GeoJSONFilename))
	assert.NoFileExists(t, filepath.Join(s.OutputDir(), MetadataFilename))
}

func TestBufferRing_MetricRadius(t *testing.T) {
	center := core.LatLon{Lat: 60, Lon: 25} // high latitude, where degree buffers distort

	ring := bufferRing(center.Lat, center.Lon, 10)
	require.Len(t, ring, bufferRingVertices+1)
	assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")

	for _, v := range ring[:bufferRingVertices] {
		d := geo.Distance(center, core.LatLon{Lat: v[1], Lon: v[0]})
		assert.InDelta(t, 10.0, d, 1e-3)
	}
}

func TestBufferRing_CounterclockwiseExterior(t *testing.T) {
	ring := bufferRing(60, 25, 10)

	// Shoelace sum over the closed ring; positive means counterclockwise,
	// the exterior orientation the GeoJSON right-hand rule requires.
	var area float64
	for i := 0; i < len(ring)-1; i++ {
		area += ring[i][0]*ring[i+1][1] - ring[i+1][0]*ring[i][1]
	}
	assert.Positive(t, area)
}

func TestNewLayerWriter(t *testing.T) {
	w, err := NewLayerWriter("")
	require.NoError(t, err)
	assert.Equal(t, "simplefeatures", w.Name())

	_, err = NewLayerWriter("shapefile")
	assert.Error(t, err)
}
