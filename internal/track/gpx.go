package track

import (
	"encoding/xml"
	"fmt"
	"os"
	"time"
)

// gpxFile mirrors the subset of the GPX schema this pipeline consumes:
// track points with lat/lon attributes plus optional elevation, time and
// speed children. Extensions (heart rate, cadence, ...) are ignored.
type gpxFile struct {
	XMLName xml.Name `xml:"gpx"`
	Tracks  []struct {
		Segments []struct {
			Points []gpxPoint `xml:"trkpt"`
		} `xml:"trkseg"`
	} `xml:"trk"`
}

type gpxPoint struct {
	Lat       float64  `xml:"lat,attr"`
	Lon       float64  `xml:"lon,attr"`
	Elevation *float64 `xml:"ele"`
	Time      string   `xml:"time"`
	Speed     *float64 `xml:"speed"`
}

// FromGPXFile parses a GPX file into a track. Point timestamps become
// milliseconds relative to the first timestamped point, so they line up with
// the video clock. A file with no track points is malformed.
func FromGPXFile(path string) (*Track, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GPX file: %w", err)
	}

	var doc gpxFile
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedGPS, err)
	}

	t := New()
	var epoch *time.Time

	for _, trk := range doc.Tracks {
		for _, seg := range trk.Segments {
			for _, pt := range seg.Points {
				var alt, speed float64
				if pt.Elevation != nil {
					alt = *pt.Elevation
				}
				if pt.Speed != nil {
					speed = *pt.Speed
				}

				var ts int64
				if pt.Time != "" {
					parsed, err := time.Parse(time.RFC3339, pt.Time)
					if err != nil {
						return nil, fmt.Errorf("%w: bad trkpt time %q: %v",
							ErrMalformedGPS, pt.Time, err)
					}
					if epoch == nil {
						epoch = &parsed
					}
					ts = parsed.Sub(*epoch).Milliseconds()
				}

				t.AddWaypoint(pt.Lat, pt.Lon, alt, ts, speed)
			}
		}
	}

	if t.Len() == 0 {
		return nil, fmt.Errorf("%w: no track points in %s", ErrMalformedGPS, path)
	}
	return t, nil
}

// FromJSONFile parses a JSON file of parallel GPS arrays into a track.
func FromJSONFile(path string) (*Track, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading GPS file: %w", err)
	}
	data, err := parseGPSJSON(raw)
	if err != nil {
		return nil, err
	}
	return FromData(data), nil
}
