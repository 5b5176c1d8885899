package geo

import (
	"math"
	"math/rand"
	"testing"

	"github.com/video360/detector/pkg/core"
)

func TestDistance_Identity(t *testing.T) {
	p := core.LatLon{Lat: 19.4326, Lon: -99.1332}
	if d := Distance(p, p); d != 0 {
		t.Errorf("expected zero distance, got %f", d)
	}
}

func TestDistance_Symmetry(t *testing.T) {
	a := core.LatLon{Lat: 19.4326, Lon: -99.1332}
	b := core.LatLon{Lat: 19.4400, Lon: -99.1200}

	ab := Distance(a, b)
	ba := Distance(b, a)
	if ab != ba {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
	if ab <= 0 {
		t.Errorf("expected positive distance, got %f", ab)
	}
}

func TestDistance_KnownValue(t *testing.T) {
	// One degree of latitude along a meridian is ~111.19 km on a 6371 km sphere.
	a := core.LatLon{Lat: 0, Lon: 0}
	b := core.LatLon{Lat: 1, Lon: 0}

	d := Distance(a, b)
	want := EarthRadiusM * math.Pi / 180
	if math.Abs(d-want) > 1 {
		t.Errorf("expected ~%f m, got %f m", want, d)
	}
}

func TestDestination_RoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		origin := core.LatLon{
			Lat: rng.Float64()*160 - 80, // stay clear of the poles
			Lon: rng.Float64()*360 - 180,
		}
		bearing := rng.Float64() * 360
		dist := rng.Float64()*99999 + 1

		dest := Destination(origin, bearing, dist)
		got := Distance(origin, dest)

		if math.Abs(got-dist)/dist > 1e-3 {
			t.Fatalf("round trip failed: origin=%+v bearing=%f dist=%f got=%f",
				origin, bearing, dist, got)
		}
	}
}

func TestDestination_NorthwardDisplacement(t *testing.T) {
	origin := core.LatLon{Lat: 19.4326, Lon: -99.1332}
	dest := Destination(origin, 0, 10)

	// 10 m north is ~9e-5 degrees of latitude and no change in longitude.
	dLat := dest.Lat - origin.Lat
	if dLat < 8e-5 || dLat > 10e-5 {
		t.Errorf("expected ~9e-5 deg latitude shift, got %g", dLat)
	}
	if math.Abs(dest.Lon-origin.Lon) > 1e-9 {
		t.Errorf("expected unchanged longitude, got shift %g", dest.Lon-origin.Lon)
	}
}

func TestDestination_ZeroDistance(t *testing.T) {
	origin := core.LatLon{Lat: 45, Lon: 7}
	dest := Destination(origin, 123, 0)

	if math.Abs(dest.Lat-origin.Lat) > 1e-12 || math.Abs(dest.Lon-origin.Lon) > 1e-12 {
		t.Errorf("expected origin back, got %+v", dest)
	}
}

func TestPoint3857From4326(t *testing.T) {
	point := Point3857From4326(0, 0)

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if math.Abs(coords.X) > 1e-6 || math.Abs(coords.Y) > 1e-6 {
		t.Errorf("expected origin to map to (0,0), got (%f, %f)", coords.X, coords.Y)
	}
}
