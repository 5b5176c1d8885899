// pkg/core/types.go
package core

// LatLon is a geographic coordinate in degrees (WGS84).
type LatLon struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Waypoint is a single timestamped GPS sample.
// Within a track, waypoints are kept in non-decreasing TimestampMS order;
// duplicate timestamps are permitted.
type Waypoint struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Alt         float64 `json:"alt"`
	TimestampMS int64   `json:"timestamp_ms"`
	Speed       float64 `json:"speed"` // m/s
}

// Position is an interpolated location on a GPS track. It carries the same
// fields a waypoint does minus the timestamp, which belongs to the frame.
type Position struct {
	Lat   float64 `json:"lat"`
	Lon   float64 `json:"lon"`
	Alt   float64 `json:"alt"`
	Speed float64 `json:"speed"`
}

// LatLon returns the horizontal component of the position.
func (p Position) LatLon() LatLon {
	return LatLon{Lat: p.Lat, Lon: p.Lon}
}

// GPSData holds GPS input as parallel arrays, the shape produced by most
// telemetry dumps. Alt, Timestamps and Speed may be shorter than Lat/Lon;
// missing entries default to zero.
type GPSData struct {
	Lat        []float64 `json:"lat"`
	Lon        []float64 `json:"lon"`
	Alt        []float64 `json:"alt"`
	Timestamps []int64   `json:"timestamps"`
	Speed      []float64 `json:"speed"`
}
