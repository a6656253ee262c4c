package catalog

import (
	"github.com/paulmach/orb"

	"drtnav/internal/domain"
	"drtnav/internal/geo"
	"drtnav/pkg/routegeo"
)

// Anchor coordinate used when a route yields no usable points and as the
// map-center fallback. Chosen once for the original deployment area and
// kept stable so synthesized stops land somewhere meaningful.
const (
	AnchorLon = 127.1139
	AnchorLat = 36.8151
)

type nameKey struct {
	routeID string
	name    string
}

// Catalog is the ordered stop catalog plus derived per-route and per-name
// lookups. It is built once per load cycle and never mutated afterwards, so
// it is freely shareable across concurrent readers without locking.
type Catalog struct {
	stops   []domain.Stop
	routes  []domain.RouteInfo
	byRoute map[string][]int
	byName  map[nameKey]int
	shapes  map[string]*routegeo.RouteGeometry
}

func newCatalog() *Catalog {
	return &Catalog{
		byRoute: make(map[string][]int),
		byName:  make(map[nameKey]int),
		shapes:  make(map[string]*routegeo.RouteGeometry),
	}
}

func (c *Catalog) addRoute(info domain.RouteInfo, shape *routegeo.RouteGeometry, stops []domain.Stop) {
	for _, s := range stops {
		idx := len(c.stops)
		c.stops = append(c.stops, s)
		c.byRoute[s.RouteID] = append(c.byRoute[s.RouteID], idx)

		key := nameKey{routeID: s.RouteID, name: s.Name}
		if _, exists := c.byName[key]; !exists {
			c.byName[key] = idx
		}
	}
	info.StopCount = len(stops)
	c.routes = append(c.routes, info)
	if shape != nil {
		c.shapes[info.ID] = shape
	}
}

// Stops returns the full catalog in insertion order.
func (c *Catalog) Stops() []domain.Stop {
	out := make([]domain.Stop, len(c.stops))
	copy(out, c.stops)
	return out
}

// Routes returns the route registry in load order.
func (c *Catalog) Routes() []domain.RouteInfo {
	out := make([]domain.RouteInfo, len(c.routes))
	copy(out, c.routes)
	return out
}

// RouteStops returns the subsequence of stops owned by one route.
func (c *Catalog) RouteStops(routeID string) []domain.Stop {
	idxs := c.byRoute[routeID]
	out := make([]domain.Stop, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, c.stops[i])
	}
	return out
}

// HasRoute reports whether the catalog carries any stops for the route.
func (c *Catalog) HasRoute(routeID string) bool {
	return len(c.byRoute[routeID]) > 0
}

// StopByName looks a stop up by name within one route's scope. When the
// underlying geometry produced duplicate names, the first stop in insertion
// order wins.
func (c *Catalog) StopByName(routeID, name string) (domain.Stop, bool) {
	idx, ok := c.byName[nameKey{routeID: routeID, name: name}]
	if !ok {
		return domain.Stop{}, false
	}
	return c.stops[idx], true
}

// Shape returns the route's original polylines for map rendering, or nil.
func (c *Catalog) Shape(routeID string) *routegeo.RouteGeometry {
	return c.shapes[routeID]
}

// Center is the mean position of all stops, used to center the map. Falls
// back to the anchor when the catalog is empty.
func (c *Catalog) Center() orb.Point {
	points := make([]orb.Point, 0, len(c.stops))
	for _, s := range c.stops {
		points = append(points, orb.Point{s.Lon, s.Lat})
	}
	center, ok := geo.MeanCenter(points)
	if !ok || !geo.ValidLonLat(center.Lon(), center.Lat()) {
		return orb.Point{AnchorLon, AnchorLat}
	}
	return center
}

func (c *Catalog) Len() int { return len(c.stops) }
