package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// TravelProfile selects the directions profile, the road network type and
// the assumed speed used when deriving durations in the graph fallback.
type TravelProfile string

const (
	ProfileDriving TravelProfile = "driving"
	ProfileWalking TravelProfile = "walking"
)

func (p TravelProfile) Valid() bool {
	return p == ProfileDriving || p == ProfileWalking
}

// NetworkType maps the profile to the road network extract to query.
func (p TravelProfile) NetworkType() string {
	if p == ProfileWalking {
		return "walk"
	}
	return "drive"
}

// SpeedMS is the assumed travel speed in meters per second, used to derive
// leg durations when the graph fallback computed only a distance.
func (p TravelProfile) SpeedMS() float64 {
	kmh := 30.0
	if p == ProfileWalking {
		kmh = 4.5
	}
	return kmh * 1000.0 / 3600.0
}

// Stop is a named point location on one transit route. Coordinates are
// always finite WGS84 lon/lat; the extractor never emits anything else.
type Stop struct {
	Name    string  `json:"name"`
	RouteID string  `json:"routeId"`
	Lon     float64 `json:"lon"`
	Lat     float64 `json:"lat"`
}

// RouteInfo describes one transit route for the presentation layer.
type RouteInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	StopCount int    `json:"stopCount"`
}

// SegmentSource records which backend produced a resolved leg.
type SegmentSource string

const (
	SourceDirections SegmentSource = "directions"
	SourceGraph      SegmentSource = "graph"
)

// RouteSegment is one resolved leg between two consecutive requested stops.
// Duration and distance come from the leg's source; legs resolved by the
// graph fallback derive duration from distance and the profile speed.
type RouteSegment struct {
	LegIndex    int            `json:"legIndex"`
	From        string         `json:"from"`
	To          string         `json:"to"`
	Geometry    orb.LineString `json:"geometry"`
	DurationSec float64        `json:"durationSec"`
	DistanceM   float64        `json:"distanceM"`
	Source      SegmentSource  `json:"source"`
}

// ResolvedPath is the outcome of one resolve request: the ordered segments
// plus aggregate metrics. It is held in a single current-result slot until
// the next successful resolve or an explicit clear.
type ResolvedPath struct {
	RequestID   uint64         `json:"requestId"`
	RouteID     string         `json:"routeId"`
	StopNames   []string       `json:"stopNames"`
	Profile     TravelProfile  `json:"profile"`
	Segments    []RouteSegment `json:"segments"`
	DurationSec float64        `json:"durationSec"`
	DistanceM   float64        `json:"distanceM"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

// DurationMin and DistanceKM are presentation conveniences mirroring what
// the dashboard shows next to the map.
func (p *ResolvedPath) DurationMin() float64 { return p.DurationSec / 60.0 }
func (p *ResolvedPath) DistanceKM() float64  { return p.DistanceM / 1000.0 }
