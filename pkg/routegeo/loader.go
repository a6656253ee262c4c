package routegeo

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"drtnav/internal/domain"
)

// RouteGeometry is one route's physical path: the constituent polylines in
// feature order. Read-only once loaded.
type RouteGeometry struct {
	RouteID string
	Lines   []orb.LineString
}

// FlatCoords concatenates every polyline's coordinates in iteration order.
func (g *RouteGeometry) FlatCoords() []orb.Point {
	var coords []orb.Point
	for _, line := range g.Lines {
		coords = append(coords, line...)
	}
	return coords
}

type Loader struct {
	logger *slog.Logger
}

func NewLoader(logger *slog.Logger) *Loader {
	return &Loader{logger: logger.With("component", "routegeo_loader")}
}

// LoadFile reads one route's GeoJSON feature collection. LineString and
// MultiLineString features contribute geometry; other feature types are
// skipped. GeoJSON coordinates are WGS84 lon/lat per RFC 7946, so no
// reprojection happens here; out-of-range points are dropped later by the
// stop extractor.
func (l *Loader) LoadFile(routeID, path string) (*RouteGeometry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.GeometrySourceError{RouteID: routeID, Err: err}
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, &domain.GeometrySourceError{RouteID: routeID, Err: fmt.Errorf("parsing %s: %w", path, err)}
	}

	geom := &RouteGeometry{RouteID: routeID}
	skipped := 0
	for _, f := range fc.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			geom.Lines = append(geom.Lines, g)
		case orb.MultiLineString:
			for _, line := range g {
				geom.Lines = append(geom.Lines, line)
			}
		default:
			skipped++
		}
	}

	if skipped > 0 {
		l.logger.Debug("skipped non-line features", "route_id", routeID, "count", skipped)
	}
	if len(geom.Lines) == 0 {
		return nil, &domain.GeometrySourceError{
			RouteID: routeID,
			Err:     fmt.Errorf("%s contains no line features", path),
		}
	}

	return geom, nil
}

// LoadAll reads every configured route file. A single route failing to load
// is logged and excluded; LoadAll only errors when no route could be read
// at all, which callers must treat as fatal for the session.
func (l *Loader) LoadAll(files map[string]string) (map[string]*RouteGeometry, error) {
	ids := make([]string, 0, len(files))
	for id := range files {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := make(map[string]*RouteGeometry, len(files))
	for _, id := range ids {
		geom, err := l.LoadFile(id, files[id])
		if err != nil {
			l.logger.Warn("route geometry load failed", "route_id", id, "path", files[id], "error", err)
			continue
		}
		result[id] = geom
		l.logger.Info("loaded route geometry", "route_id", id, "lines", len(geom.Lines))
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("no route geometries could be loaded (%d configured)", len(files))
	}
	return result, nil
}
