package track

import (
	"encoding/json"
	"fmt"

	"github.com/video360/detector/pkg/core"
)

// parseGPSJSON decodes the parallel-array GPS structure:
// {"lat": [...], "lon": [...], "alt": [...], "timestamps": [...], "speed": [...]}.
func parseGPSJSON(raw []byte) (core.GPSData, error) {
	var data core.GPSData
	if err := json.Unmarshal(raw, &data); err != nil {
		return core.GPSData{}, fmt.Errorf("%w: %v", ErrMalformedGPS, err)
	}
	if len(data.Lat) != len(data.Lon) {
		return core.GPSData{}, fmt.Errorf("%w: lat/lon length mismatch (%d vs %d)",
			ErrMalformedGPS, len(data.Lat), len(data.Lon))
	}
	return data, nil
}
