package catalog

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/paulmach/orb"

	"drtnav/internal/domain"
	"drtnav/internal/geo"
	"drtnav/pkg/routegeo"
)

// routePalette mirrors the line colors of the original dashboard; routes
// beyond the palette cycle through it.
var routePalette = []string{"#4285f4", "#ea4335", "#34a853", "#fbbc04", "#a142f4"}

// Extractor converts raw route geometries into the stop catalog: flatten,
// drop invalid coordinates, dedup adjacent points, guarantee two stops per
// route.
type Extractor struct {
	minGapM         float64
	fallbackOffsetM float64
	logger          *slog.Logger
}

func NewExtractor(minGapM, fallbackOffsetM float64, logger *slog.Logger) *Extractor {
	return &Extractor{
		minGapM:         minGapM,
		fallbackOffsetM: fallbackOffsetM,
		logger:          logger.With("component", "stop_extractor"),
	}
}

// Extract builds a catalog from the loaded geometries. Routes are processed
// in sorted id order so repeated runs over identical input produce identical
// catalogs, stop names included.
func (e *Extractor) Extract(geoms map[string]*routegeo.RouteGeometry) *Catalog {
	ids := make([]string, 0, len(geoms))
	for id := range geoms {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	cat := newCatalog()
	for i, id := range ids {
		g := geoms[id]
		points := e.filterPoints(id, g.FlatCoords())

		stops := make([]domain.Stop, 0, len(points))
		for j, p := range points {
			stops = append(stops, domain.Stop{
				Name:    fmt.Sprintf("%s stop %d", displayName(id), j+1),
				RouteID: id,
				Lon:     p.Lon(),
				Lat:     p.Lat(),
			})
		}

		info := domain.RouteInfo{
			ID:    id,
			Name:  displayName(id),
			Color: routePalette[i%len(routePalette)],
		}
		cat.addRoute(info, g, stops)
		e.logger.Debug("extracted stops", "route_id", id, "raw_points", len(g.FlatCoords()), "stops", len(stops))
	}
	return cat
}

// filterPoints performs the single forward dedup pass and the minimum-count
// guarantee. Only the immediate predecessor among KEPT points is compared,
// so two far-apart survivors may still be near some earlier kept point.
func (e *Extractor) filterPoints(routeID string, raw []orb.Point) []orb.Point {
	var kept []orb.Point
	for _, p := range raw {
		if !geo.ValidLonLat(p.Lon(), p.Lat()) {
			continue
		}
		if len(kept) == 0 {
			kept = append(kept, p)
			continue
		}
		prev := kept[len(kept)-1]
		if geo.DistanceM(prev, p) > e.minGapM {
			kept = append(kept, p)
		}
	}

	switch len(kept) {
	case 0:
		// Empty or fully corrupt geometry: synthesize a pair at the anchor
		// so the route still renders with two selectable stops.
		e.logger.Warn("route produced no usable points, synthesizing anchor pair", "route_id", routeID)
		kept = []orb.Point{
			{AnchorLon, AnchorLat},
			{AnchorLon + 0.001, AnchorLat + 0.001},
		}
	case 1:
		// Single survivor: offset the second stop north by the configured
		// distance, longitude held fixed.
		dLat := e.fallbackOffsetM / geo.MetersPerDegreeLat
		kept = append(kept, orb.Point{kept[0].Lon(), kept[0].Lat() + dLat})
	}
	return kept
}

// displayName turns a route id like "drt-1" into "DRT-1".
func displayName(routeID string) string {
	return strings.ToUpper(routeID)
}
