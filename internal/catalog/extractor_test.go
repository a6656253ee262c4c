package catalog

import (
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"drtnav/internal/geo"
	"drtnav/pkg/routegeo"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func geomsFrom(routeID string, lines ...orb.LineString) map[string]*routegeo.RouteGeometry {
	return map[string]*routegeo.RouteGeometry{
		routeID: {RouteID: routeID, Lines: lines},
	}
}

func TestExtractDedupsAdjacentPoints(t *testing.T) {
	// Points roughly 3 m apart along a meridian. With a 10 m minimum gap
	// only the first survives the dedup pass, and the minimum-count
	// guarantee then synthesizes a second stop.
	step := 3.0 / geo.MetersPerDegreeLat
	line := orb.LineString{
		{127.0, 36.8},
		{127.0, 36.8 + step},
		{127.0, 36.8 + 2*step},
		{127.0, 36.8 + 3*step},
	}

	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-1", line))

	stops := cat.RouteStops("drt-1")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2 (one survivor plus synthesized)", len(stops))
	}
	if stops[0].Lon != 127.0 || stops[0].Lat != 36.8 {
		t.Errorf("first stop = (%v, %v), want (127.0, 36.8)", stops[0].Lon, stops[0].Lat)
	}

	wantLat := 36.8 + 15.0/geo.MetersPerDegreeLat
	if math.Abs(stops[1].Lat-wantLat) > 1e-12 {
		t.Errorf("synthesized stop lat = %v, want %v", stops[1].Lat, wantLat)
	}
	if stops[1].Lon != 127.0 {
		t.Errorf("synthesized stop lon = %v, want longitude unchanged", stops[1].Lon)
	}
}

func TestExtractKeepsSpacedPoints(t *testing.T) {
	// 20 m spacing clears the 10 m gap, so every point becomes a stop.
	step := 20.0 / geo.MetersPerDegreeLat
	line := orb.LineString{
		{127.0, 36.8},
		{127.0, 36.8 + step},
		{127.0, 36.8 + 2*step},
	}

	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-1", line))

	stops := cat.RouteStops("drt-1")
	if len(stops) != 3 {
		t.Fatalf("got %d stops, want 3", len(stops))
	}
	for i, s := range stops {
		if s.RouteID != "drt-1" {
			t.Errorf("stop %d route = %q, want drt-1", i, s.RouteID)
		}
	}
	if stops[0].Name != "DRT-1 stop 1" || stops[2].Name != "DRT-1 stop 3" {
		t.Errorf("unexpected stop names %q, %q", stops[0].Name, stops[2].Name)
	}
}

func TestExtractGapMeasuredAgainstKeptPredecessor(t *testing.T) {
	// The middle point is dropped, so the third point is measured against
	// the FIRST point, not its immediate raw neighbor. 6 m + 6 m jumps
	// accumulate past the 10 m gap and the third point is kept.
	step := 6.0 / geo.MetersPerDegreeLat
	line := orb.LineString{
		{127.0, 36.8},
		{127.0, 36.8 + step},
		{127.0, 36.8 + 2*step},
	}

	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-1", line))

	stops := cat.RouteStops("drt-1")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2", len(stops))
	}
	if math.Abs(stops[1].Lat-(36.8+2*step)) > 1e-12 {
		t.Errorf("second stop lat = %v, want the third raw point", stops[1].Lat)
	}
}

func TestExtractSinglePointRoute(t *testing.T) {
	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-2", orb.LineString{{127.000, 36.800}}))

	stops := cat.RouteStops("drt-2")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2", len(stops))
	}

	wantLat := 36.800 + 15.0/geo.MetersPerDegreeLat
	if stops[1].Lat != wantLat {
		t.Errorf("offset stop lat = %v, want %v", stops[1].Lat, wantLat)
	}
	if stops[1].Lon != 127.000 {
		t.Errorf("offset stop lon = %v, want 127.000", stops[1].Lon)
	}
}

func TestExtractSynthesizesAnchorPairForCorruptGeometry(t *testing.T) {
	line := orb.LineString{
		{math.NaN(), 36.8},
		{200.0, 36.8},
		{127.0, 95.0},
	}

	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-3", line))

	stops := cat.RouteStops("drt-3")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2 synthesized", len(stops))
	}
	if stops[0].Lon != AnchorLon || stops[0].Lat != AnchorLat {
		t.Errorf("first synthesized stop = (%v, %v), want anchor", stops[0].Lon, stops[0].Lat)
	}
	if stops[1].Lon != AnchorLon+0.001 || stops[1].Lat != AnchorLat+0.001 {
		t.Errorf("second synthesized stop = (%v, %v), want anchor offset", stops[1].Lon, stops[1].Lat)
	}
}

func TestExtractMultiLineFlattening(t *testing.T) {
	// Two polylines far apart each contribute their points in order.
	e := NewExtractor(10.0, 15.0, testLogger())
	cat := e.Extract(geomsFrom("drt-1",
		orb.LineString{{127.00, 36.80}},
		orb.LineString{{127.05, 36.85}},
	))

	stops := cat.RouteStops("drt-1")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2", len(stops))
	}
	if stops[0].Lon != 127.00 || stops[1].Lon != 127.05 {
		t.Errorf("stops not in polyline order: %v then %v", stops[0], stops[1])
	}
}

func TestExtractIdempotent(t *testing.T) {
	step := 25.0 / geo.MetersPerDegreeLat
	geoms := map[string]*routegeo.RouteGeometry{
		"drt-2": {RouteID: "drt-2", Lines: []orb.LineString{{{127.1, 36.81}, {127.1, 36.81 + step}}}},
		"drt-1": {RouteID: "drt-1", Lines: []orb.LineString{{{127.0, 36.80}, {127.0, 36.80 + step}}}},
	}

	e := NewExtractor(10.0, 15.0, testLogger())
	first := e.Extract(geoms)
	second := e.Extract(geoms)

	a, b := first.Stops(), second.Stops()
	if len(a) != len(b) {
		t.Fatalf("stop counts differ between runs: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("stop %d differs between runs: %+v vs %+v", i, a[i], b[i])
		}
	}

	// Sorted route order regardless of map iteration.
	routes := first.Routes()
	if len(routes) != 2 || routes[0].ID != "drt-1" || routes[1].ID != "drt-2" {
		t.Errorf("routes not in sorted id order: %+v", routes)
	}
}

func TestExtractRouteMetadata(t *testing.T) {
	step := 25.0 / geo.MetersPerDegreeLat
	geoms := map[string]*routegeo.RouteGeometry{
		"drt-1": {RouteID: "drt-1", Lines: []orb.LineString{{{127.0, 36.80}, {127.0, 36.80 + step}}}},
	}

	cat := NewExtractor(10.0, 15.0, testLogger()).Extract(geoms)

	routes := cat.Routes()
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(routes))
	}
	r := routes[0]
	if r.Name != "DRT-1" {
		t.Errorf("route name = %q, want DRT-1", r.Name)
	}
	if r.Color != routePalette[0] {
		t.Errorf("route color = %q, want first palette entry", r.Color)
	}
	if r.StopCount != 2 {
		t.Errorf("route stop count = %d, want 2", r.StopCount)
	}
	if cat.Shape("drt-1") == nil {
		t.Error("shape missing for loaded route")
	}
}
