package monitor

import (
	"context"
	"os"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_NoopMeterIsSafe(t *testing.T) {
	m, err := NewMetrics()
	require.NoError(t, err)

	// No SDK installed: every recording path must be a safe no-op.
	ctx := context.Background()
	m.FrameExtracted(ctx, true)
	m.FrameExtracted(ctx, false)
	m.DetectionsFound(ctx, "car", 3)
	m.DetectionsFound(ctx, "person", 0)
	m.FeaturesExported(ctx, 12)
}

func TestInfluxConnect_Disabled(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", false)

	m := NewInfluxManager(zerolog.New(os.Stderr).Level(zerolog.Disabled))
	err := m.Connect(context.Background())
	assert.Error(t, err)
	assert.False(t, m.IsValid)
}

func TestInfluxConnect_UnreachableDegrades(t *testing.T) {
	t.Cleanup(viper.Reset)
	viper.Set("influx.enabled", true)
	viper.Set("influx.protocol", "http")
	viper.Set("influx.host", "127.0.0.1")
	viper.Set("influx.port", "1") // closed port

	m := NewInfluxManager(zerolog.New(os.Stderr).Level(zerolog.Disabled))
	err := m.Connect(context.Background())
	require.NoError(t, err, "unreachable server degrades, never fails the run")
	assert.False(t, m.IsValid)

	// Logging-only path must not panic without a writer.
	m.WriteRunStats(RunStats{VideoPath: "v.mp4", FramesExtracted: 5})
	m.Close()
}
