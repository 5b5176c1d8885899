package export

import (
	"github.com/video360/detector/internal/geo"
	"github.com/video360/detector/pkg/core"
)

// bufferRingVertices is the resolution of the buffer disk approximation.
const bufferRingVertices = 32

// bufferRing approximates a geodesic disk of radiusM meters around a point as
// a closed ring of lon/lat pairs, first vertex repeated at the end. The ring
// starts at north and is wound counterclockwise, the exterior orientation the
// GeoJSON right-hand rule (RFC 7946 §3.1.6) requires. Building the ring with
// destination-point geodesy keeps the radius metric; buffering in raw degrees
// would distort with latitude.
func bufferRing(lat, lon, radiusM float64) [][2]float64 {
	center := core.LatLon{Lat: lat, Lon: lon}
	ring := make([][2]float64, 0, bufferRingVertices+1)
	for i := 0; i < bufferRingVertices; i++ {
		bearing := 360 - float64(i)*360/bufferRingVertices
		p := geo.Destination(center, bearing, radiusM)
		ring = append(ring, [2]float64{p.Lon, p.Lat})
	}
	ring = append(ring, ring[0])
	return ring
}
