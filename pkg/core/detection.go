// pkg/core/detection.go
package core

// Rect is an integer pixel rectangle with X1 < X2 and Y1 < Y2.
type Rect struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

// Pixel is an integer pixel coordinate.
type Pixel struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// RawDetection is the contract the external detector fills in for each object
// found in a frame. It has no lifecycle of its own; it exists only as input to
// the projection step.
type RawDetection struct {
	ClassID    int     `json:"class_id"`
	ClassName  string  `json:"class_name"`
	Confidence float64 `json:"confidence"`
	Bbox       Rect    `json:"bbox"`
	Center     Pixel   `json:"center"`
}

// GeoPosition is the geodesic location derived for a detection.
type GeoPosition struct {
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	Alt          float64 `json:"alt"`
	DistanceM    float64 `json:"distance_m"`
	BearingDeg   float64 `json:"bearing_deg"`
	AzimuthPixel float64 `json:"azimuth_pixel"`
	ElevationDeg float64 `json:"elevation"`
}

// DetectionRecord couples a raw detection with the frame it came from and its
// derived geodesic position. GeoPosition is nil iff the owning frame had no
// resolvable GPS position; such records stay in the raw detections output but
// are skipped by geo-aware exports.
type DetectionRecord struct {
	RawDetection
	FrameIndex   int          `json:"frame_index"`
	FramePath    string       `json:"frame_path"`
	TimestampStr string       `json:"timestamp_str,omitempty"`
	GPSPosition  *Position    `json:"gps_position"`
	GeoPosition  *GeoPosition `json:"geo_position"`
	CropPath     string       `json:"crop_path,omitempty"`
}
