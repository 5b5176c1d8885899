package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// RunStats is the per-run summary shipped to InfluxDB.
type RunStats struct {
	VideoPath       string
	FramesExtracted int
	DetectionsTotal int
	FeaturesWritten int
	TotalDistanceM  float64
	Duration        time.Duration
}

// InfluxManager handles the optional InfluxDB connection for run stats.
// When disabled or unreachable it degrades to logging only.
type InfluxManager struct {
	Client  influxdb2.Client
	Writer  influxdb2_api.WriteAPI
	IsValid bool
	Logger  zerolog.Logger
}

// NewInfluxManager creates an InfluxDB manager for run statistics.
func NewInfluxManager(log zerolog.Logger) *InfluxManager {
	return &InfluxManager{Logger: log}
}

// Connect establishes the InfluxDB connection per the influx.* config keys.
func (m *InfluxManager) Connect(ctx context.Context) error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(100).
			SetFlushInterval(1000),
	)

	running, err := m.Client.Ping(ctx)
	if err != nil || !running {
		m.IsValid = false
		m.Logger.Warn().Err(err).Msg("InfluxDB unreachable, run stats will be logged only")
		return nil
	}

	m.IsValid = true
	m.Writer = m.Client.WriteAPI(
		viper.GetString("influx.org"),
		viper.GetString("influx.bucket"),
	)

	errorsCh := m.Writer.Errors()
	go func() {
		for writeErr := range errorsCh {
			m.Logger.Error().Err(writeErr).Msg("Error sending run stats to InfluxDB")
		}
	}()

	m.Logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// WriteRunStats records the summary of a finished run.
func (m *InfluxManager) WriteRunStats(stats RunStats) {
	if !m.IsValid {
		m.Logger.Info().
			Str("video", stats.VideoPath).
			Int("frames", stats.FramesExtracted).
			Int("detections", stats.DetectionsTotal).
			Int("features", stats.FeaturesWritten).
			Float64("distanceM", stats.TotalDistanceM).
			Dur("duration", stats.Duration).
			Msg("Run finished")
		return
	}

	point := influxdb2.NewPointWithMeasurement("pipeline_run").
		AddTag("video", stats.VideoPath).
		AddField("frames_extracted", stats.FramesExtracted).
		AddField("detections_total", stats.DetectionsTotal).
		AddField("features_written", stats.FeaturesWritten).
		AddField("total_distance_m", stats.TotalDistanceM).
		AddField("duration_ms", stats.Duration.Milliseconds()).
		SetTime(time.Now())
	m.Writer.WritePoint(point)
}

// Close flushes and shuts down the client.
func (m *InfluxManager) Close() {
	if m.Writer != nil {
		m.Writer.Flush()
	}
	if m.Client != nil {
		m.Client.Close()
	}
}
