package catalog

import (
	"math"
	"testing"

	"drtnav/internal/domain"
)

func buildTestCatalog() *Catalog {
	cat := newCatalog()
	cat.addRoute(domain.RouteInfo{ID: "drt-1", Name: "DRT-1"}, nil, []domain.Stop{
		{Name: "DRT-1 stop 1", RouteID: "drt-1", Lon: 127.00, Lat: 36.80},
		{Name: "DRT-1 stop 2", RouteID: "drt-1", Lon: 127.02, Lat: 36.82},
	})
	cat.addRoute(domain.RouteInfo{ID: "drt-2", Name: "DRT-2"}, nil, []domain.Stop{
		{Name: "DRT-2 stop 1", RouteID: "drt-2", Lon: 127.10, Lat: 36.90},
	})
	return cat
}

func TestStopByName(t *testing.T) {
	cat := buildTestCatalog()

	s, ok := cat.StopByName("drt-1", "DRT-1 stop 2")
	if !ok {
		t.Fatal("expected to find DRT-1 stop 2")
	}
	if s.Lon != 127.02 {
		t.Errorf("stop lon = %v, want 127.02", s.Lon)
	}

	// Names are scoped to a route.
	if _, ok := cat.StopByName("drt-2", "DRT-1 stop 2"); ok {
		t.Error("found a drt-1 stop name under drt-2")
	}
	if _, ok := cat.StopByName("drt-1", "missing"); ok {
		t.Error("found a stop that does not exist")
	}
}

func TestStopByNameFirstMatchWins(t *testing.T) {
	cat := newCatalog()
	cat.addRoute(domain.RouteInfo{ID: "drt-1"}, nil, []domain.Stop{
		{Name: "dup", RouteID: "drt-1", Lon: 127.00, Lat: 36.80},
		{Name: "dup", RouteID: "drt-1", Lon: 127.99, Lat: 36.99},
	})

	s, ok := cat.StopByName("drt-1", "dup")
	if !ok {
		t.Fatal("expected to find duplicated name")
	}
	if s.Lon != 127.00 {
		t.Errorf("duplicate lookup returned lon %v, want the first inserted stop", s.Lon)
	}
}

func TestHasRoute(t *testing.T) {
	cat := buildTestCatalog()
	if !cat.HasRoute("drt-1") {
		t.Error("HasRoute(drt-1) = false")
	}
	if cat.HasRoute("drt-9") {
		t.Error("HasRoute(drt-9) = true for unknown route")
	}
}

func TestRouteStopsOrder(t *testing.T) {
	cat := buildTestCatalog()
	stops := cat.RouteStops("drt-1")
	if len(stops) != 2 {
		t.Fatalf("got %d stops, want 2", len(stops))
	}
	if stops[0].Name != "DRT-1 stop 1" || stops[1].Name != "DRT-1 stop 2" {
		t.Errorf("stops out of order: %q, %q", stops[0].Name, stops[1].Name)
	}
}

func TestCenter(t *testing.T) {
	cat := newCatalog()
	cat.addRoute(domain.RouteInfo{ID: "drt-1"}, nil, []domain.Stop{
		{Name: "a", RouteID: "drt-1", Lon: 126.0, Lat: 36.0},
		{Name: "b", RouteID: "drt-1", Lon: 128.0, Lat: 38.0},
	})

	c := cat.Center()
	if math.Abs(c.Lon()-127.0) > 1e-9 || math.Abs(c.Lat()-37.0) > 1e-9 {
		t.Errorf("Center() = %v, want (127, 37)", c)
	}
}

func TestCenterEmptyCatalogFallsBackToAnchor(t *testing.T) {
	c := newCatalog().Center()
	if c.Lon() != AnchorLon || c.Lat() != AnchorLat {
		t.Errorf("empty catalog center = %v, want anchor", c)
	}
}

func TestStopsReturnsCopy(t *testing.T) {
	cat := buildTestCatalog()
	stops := cat.Stops()
	stops[0].Name = "mutated"
	if cat.Stops()[0].Name == "mutated" {
		t.Error("Stops() exposed internal slice")
	}
}
