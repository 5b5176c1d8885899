// Package monitor tracks pipeline counters via OpenTelemetry and optionally
// ships per-run statistics to InfluxDB.
package monitor

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/video360/detector/internal/monitor"

func meter() metric.Meter {
	return otel.Meter(instrumentationName)
}

// Metrics holds the pipeline's counters. With no SDK installed the global
// meter is a no-op, so recording is always safe.
type Metrics struct {
	framesExtracted  metric.Int64Counter
	detectionsTotal  metric.Int64Counter
	featuresExported metric.Int64Counter
}

// NewMetrics registers the pipeline counters on the global meter.
func NewMetrics() (*Metrics, error) {
	m := meter()
	var metrics Metrics
	var err error

	metrics.framesExtracted, err = m.Int64Counter(
		"pipeline.frames.extracted",
		metric.WithDescription("Total frames written during extraction"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}

	metrics.detectionsTotal, err = m.Int64Counter(
		"pipeline.detections.total",
		metric.WithDescription("Total object detections across processed frames"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating detections counter: %w", err)
	}

	metrics.featuresExported, err = m.Int64Counter(
		"pipeline.features.exported",
		metric.WithDescription("Total geo features written to export layers"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating features counter: %w", err)
	}

	return &metrics, nil
}

// FrameExtracted records one extracted frame.
func (m *Metrics) FrameExtracted(ctx context.Context, withGPS bool) {
	m.framesExtracted.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("gps", withGPS)))
}

// DetectionsFound records detections for a frame, tagged by class.
func (m *Metrics) DetectionsFound(ctx context.Context, class string, n int) {
	if n == 0 {
		return
	}
	m.detectionsTotal.Add(ctx, int64(n),
		metric.WithAttributes(attribute.String("class", class)))
}

// FeaturesExported records the size of a finished export.
func (m *Metrics) FeaturesExported(ctx context.Context, n int) {
	m.featuresExported.Add(ctx, int64(n))
}
