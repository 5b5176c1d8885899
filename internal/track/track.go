// Package track implements the GPS track the frame sampler walks: an ordered
// waypoint sequence with time-based linear interpolation, plus the running
// extraction state (last extraction point, accumulated distance) that only the
// sampler mutates.
package track

import (
	"errors"

	"github.com/video360/detector/internal/geo"
	"github.com/video360/detector/pkg/core"
)

// ErrMalformedGPS is returned when a GPS input file cannot be parsed.
var ErrMalformedGPS = errors.New("malformed GPS data")

// Track is an ordered sequence of waypoints. It is an owned builder: waypoints
// are appended once during load and the track is read-only afterwards, except
// for the extraction state which belongs to the frame sampler. Not safe for
// concurrent mutation.
type Track struct {
	waypoints []core.Waypoint

	lastExtractionPoint *core.Position
	totalDistanceM      float64
}

// New returns an empty track.
func New() *Track {
	return &Track{}
}

// FromData builds a track from parallel GPS arrays. Alt, Timestamps and Speed
// may be shorter than Lat/Lon; missing entries default to zero.
func FromData(data core.GPSData) *Track {
	t := New()
	n := len(data.Lat)
	if len(data.Lon) < n {
		n = len(data.Lon)
	}
	for i := 0; i < n; i++ {
		var alt, speed float64
		var ts int64
		if i < len(data.Alt) {
			alt = data.Alt[i]
		}
		if i < len(data.Timestamps) {
			ts = data.Timestamps[i]
		}
		if i < len(data.Speed) {
			speed = data.Speed[i]
		}
		t.AddWaypoint(data.Lat[i], data.Lon[i], alt, ts, speed)
	}
	return t
}

// AddWaypoint appends a waypoint. The caller is responsible for chronological
// order; the track does not sort, so insertion order breaks ties between
// duplicate timestamps.
func (t *Track) AddWaypoint(lat, lon, alt float64, timestampMS int64, speed float64) {
	t.waypoints = append(t.waypoints, core.Waypoint{
		Lat:         lat,
		Lon:         lon,
		Alt:         alt,
		TimestampMS: timestampMS,
		Speed:       speed,
	})
}

// Len returns the number of waypoints.
func (t *Track) Len() int {
	return len(t.waypoints)
}

// Interpolate returns the track position at timestampMS, or nil when the
// track is empty. Timestamps before the first waypoint clamp to the first,
// after the last clamp to the last. Between two distinct timestamps the
// position is linear in lat, lon, alt and speed.
func (t *Track) Interpolate(timestampMS int64) *core.Position {
	if len(t.waypoints) == 0 {
		return nil
	}

	var before, after *core.Waypoint
	for i := range t.waypoints {
		wp := &t.waypoints[i]
		if wp.TimestampMS <= timestampMS {
			before = wp
		}
		if wp.TimestampMS >= timestampMS && after == nil {
			after = wp
			break
		}
	}

	if before == nil {
		return positionOf(t.waypoints[0])
	}
	if after == nil {
		return positionOf(*before)
	}
	if before.TimestampMS == after.TimestampMS {
		return positionOf(*before)
	}

	ratio := float64(timestampMS-before.TimestampMS) /
		float64(after.TimestampMS-before.TimestampMS)

	return &core.Position{
		Lat:   before.Lat + ratio*(after.Lat-before.Lat),
		Lon:   before.Lon + ratio*(after.Lon-before.Lon),
		Alt:   before.Alt + ratio*(after.Alt-before.Alt),
		Speed: before.Speed + ratio*(after.Speed-before.Speed),
	}
}

// DistanceBetween returns the haversine distance in meters between two track
// positions.
func (t *Track) DistanceBetween(p1, p2 core.Position) float64 {
	return geo.Distance(p1.LatLon(), p2.LatLon())
}

// LastExtractionPoint returns the position at which the previous frame was
// extracted, or nil when no frame has been extracted yet.
func (t *Track) LastExtractionPoint() *core.Position {
	return t.lastExtractionPoint
}

// TotalDistanceM returns the cumulative distance between consecutive frame
// extraction positions (not between raw waypoints).
func (t *Track) TotalDistanceM() float64 {
	return t.totalDistanceM
}

// MarkExtraction records pos as the latest extraction point and accumulates
// the distance from the previous one. Returns the distance delta added; the
// first extraction contributes zero. Called only by the frame sampler.
func (t *Track) MarkExtraction(pos core.Position) float64 {
	var delta float64
	if t.lastExtractionPoint != nil {
		delta = t.DistanceBetween(*t.lastExtractionPoint, pos)
		t.totalDistanceM += delta
	}
	p := pos
	t.lastExtractionPoint = &p
	return delta
}

func positionOf(wp core.Waypoint) *core.Position {
	return &core.Position{Lat: wp.Lat, Lon: wp.Lon, Alt: wp.Alt, Speed: wp.Speed}
}
