// Package projector maps detections in an equirectangular 360° frame onto
// real-world coordinates. Horizontal pixel position maps linearly to azimuth
// (-180..180 degrees) and vertical position to elevation (-90..90); combined
// with the frame's GPS position, an estimated camera bearing and an assumed
// object distance, each detection projects to a geodesic point.
package projector

import (
	"github.com/video360/detector/internal/geo"
	"github.com/video360/detector/pkg/core"
)

const (
	fovHorizontal = 360.0
	fovVertical   = 180.0
)

// roadClasses are the detection classes used to estimate camera bearing:
// objects that sit on or near the road, so their azimuth distribution says
// something about where the camera points.
var roadClasses = map[string]bool{
	"person":     true,
	"bicycle":    true,
	"car":        true,
	"motorcycle": true,
	"bus":        true,
	"truck":      true,
}

// IsRoadClass reports whether a class participates in bearing estimation.
func IsRoadClass(name string) bool {
	return roadClasses[name]
}

// PixelToDirection converts a pixel coordinate into an (azimuth, elevation)
// pair in degrees. The remap is linear in both axes, which is exact for
// equirectangular frames, not an approximation of a spherical inverse. Frame
// dimensions are parameters on every call so mixed-resolution runs project
// correctly.
func PixelToDirection(x, y, width, height int) (azimuthDeg, elevationDeg float64) {
	nx := 2*float64(x)/float64(width) - 1
	ny := 2*float64(y)/float64(height) - 1

	return nx * (fovHorizontal / 2), ny * (fovVertical / 2)
}

// EstimateBearing approximates the camera heading from the cluster of nearby
// road objects (person, bicycle, car, motorcycle, bus, truck), assuming most
// of them sit ahead of the camera. Returns 0 (facing true north by
// convention) when no road objects are present.
//
// The result is the arithmetic mean of the pixel azimuths, which is only
// valid when the distribution does not wrap past ±180°: azimuths {170, -170}
// average to 0 instead of ~180. This matches the upstream behavior and is
// kept as a known approximation.
func EstimateBearing(detections []core.RawDetection, width, height int) float64 {
	var sum float64
	var n int
	for _, d := range detections {
		if !IsRoadClass(d.ClassName) {
			continue
		}
		az, _ := PixelToDirection(d.Center.X, d.Center.Y, width, height)
		sum += az
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Project converts a detection's pixel center into a geodesic position given
// the frame's GPS position, the camera bearing and the assumed object
// distance. Altitude is carried over from the frame position; the object's
// own height is not modeled.
func Project(center core.Pixel, framePos core.Position, cameraBearingDeg, assumedDistanceM float64, width, height int) core.GeoPosition {
	az, el := PixelToDirection(center.X, center.Y, width, height)
	bearing := cameraBearingDeg + az

	dest := geo.Destination(framePos.LatLon(), bearing, assumedDistanceM)

	return core.GeoPosition{
		Lat:          dest.Lat,
		Lon:          dest.Lon,
		Alt:          framePos.Alt,
		DistanceM:    assumedDistanceM,
		BearingDeg:   bearing,
		AzimuthPixel: az,
		ElevationDeg: el,
	}
}
