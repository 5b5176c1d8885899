package catalog

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/video360/detector/internal/geo"
)

// DatabaseModels lists the structs representing catalog tables.
var DatabaseModels = []interface{}{
	&Run{},
	&Frame{},
	&Detection{},
}

// Run is one pipeline execution over a single video.
type Run struct {
	gorm.Model
	VideoPath        string    `json:"videoPath" gorm:"size:512"`
	GPSSource        string    `json:"gpsSource" gorm:"size:512"`
	DistanceInterval float64   `json:"distanceInterval"`
	DetectionModel   string    `json:"detectionModel" gorm:"size:64"`
	Confidence       float64   `json:"confidence"`
	DetectionRadius  float64   `json:"detectionRadius"`
	StartedAt        time.Time `json:"startedAt"`
	FinishedAt       time.Time `json:"finishedAt"`
	FrameCount       int       `json:"frameCount"`
	DetectionCount   int       `json:"detectionCount"`
	TotalDistanceM   float64   `json:"totalDistanceM"`
}

func (*Run) TableName() string {
	return "runs"
}

// Frame is one extracted frame with its interpolated position.
type Frame struct {
	gorm.Model
	RunID       uint    `json:"runId" gorm:"index:idx_frame_run_id"`
	Run         Run     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FrameIndex  int     `json:"frameIndex"`
	Filename    string  `json:"filename" gorm:"size:255"`
	TimestampMS int64   `json:"timestampMs"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	AltM        float64 `json:"altM"`
	HasGPS      bool    `json:"hasGps"`
	// Web-mercator point as WKB, for map tooling that reads the catalog.
	PositionWKB []byte `json:"-"`
}

func (*Frame) TableName() string {
	return "frames"
}

// Detection is one geo-referenced object detection.
type Detection struct {
	gorm.Model
	RunID      uint           `json:"runId" gorm:"index:idx_detection_run_id"`
	Run        Run            `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:RunID;"`
	FrameIndex int            `json:"frameIndex"`
	ClassID    int            `json:"classId"`
	ClassName  string         `json:"className" gorm:"size:64;index:idx_detection_class"`
	Confidence float64        `json:"confidence"`
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	BearingDeg float64        `json:"bearingDeg"`
	DistanceM  float64        `json:"distanceM"`
	CropPath   string         `json:"cropPath" gorm:"size:512"`
	Bbox       datatypes.JSON `json:"bbox"`
	// Web-mercator point as WKB.
	PositionWKB []byte `json:"-"`
}

func (*Detection) TableName() string {
	return "detections"
}

// pointWKB encodes a WGS84 position as a web-mercator WKB point.
func pointWKB(lat, lon float64) []byte {
	p := geo.Point3857From4326(lon, lat)
	return p.AsBinary()
}

// decodePointWKB is the inverse of pointWKB, used by tests and readers.
func decodePointWKB(wkb []byte) (geom.Point, error) {
	g, err := geom.UnmarshalWKB(wkb)
	if err != nil {
		return geom.Point{}, err
	}
	return g.MustAsPoint(), nil
}
