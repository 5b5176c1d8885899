// Package geo provides the spherical-earth math the pipeline is built on:
// great-circle distance (haversine) and the direct geodesic problem
// (destination point from origin, bearing and distance).
//
// Geometry persisted to the run catalog is stored as EPSG:3857 WKB, because
// SQLite has no spatial awareness and web-mercator keeps stored points
// directly usable by map frontends.
package geo

import (
	"math"

	"github.com/video360/detector/pkg/core"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wroge/wgs84"
)

// EarthRadiusM is the mean earth radius used for all spherical calculations.
const EarthRadiusM = 6371000.0

// Distance returns the haversine great-circle distance in meters between two
// WGS84 points. Symmetric; zero when a == b.
func Distance(a, b core.LatLon) float64 {
	lat1 := radians(a.Lat)
	lat2 := radians(b.Lat)
	dLat := radians(b.Lat - a.Lat)
	dLon := radians(b.Lon - a.Lon)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Asin(math.Sqrt(h))

	return EarthRadiusM * c
}

// Destination solves the direct geodesic problem on a sphere: starting at
// origin, travelling distanceM meters along bearingDeg (clockwise from true
// north), it returns the resulting point. For short distances it is the
// inverse of Distance plus bearing.
func Destination(origin core.LatLon, bearingDeg, distanceM float64) core.LatLon {
	lat1 := radians(origin.Lat)
	lon1 := radians(origin.Lon)
	brng := radians(bearingDeg)
	ad := distanceM / EarthRadiusM // angular distance

	lat2 := math.Asin(
		math.Sin(lat1)*math.Cos(ad) +
			math.Cos(lat1)*math.Sin(ad)*math.Cos(brng))

	lon2 := lon1 + math.Atan2(
		math.Sin(brng)*math.Sin(ad)*math.Cos(lat1),
		math.Cos(ad)-math.Sin(lat1)*math.Sin(lat2))

	return core.LatLon{Lat: degrees(lat2), Lon: degrees(lon2)}
}

// Point3857From4326 converts a WGS84 lon/lat pair into an EPSG:3857 point.
func Point3857From4326(longitude, latitude float64) geom.Point {
	epsg := wgs84.EPSG()
	f := epsg.Transform(4326, 3857)
	x, y, _ := f(longitude, latitude, 0)
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: x, Y: y},
		Type: geom.DimXY,
	})
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }

func degrees(rad float64) float64 { return rad * 180 / math.Pi }
