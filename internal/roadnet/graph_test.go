package roadnet

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"drtnav/internal/geo"
	"drtnav/pkg/overpass"
)

// latAt returns the latitude that is m meters north of 36.8.
func latAt(m float64) float64 {
	return 36.8 + m/geo.MetersPerDegreeLat
}

func nodeAt(id int64, m float64) overpass.Node {
	return overpass.Node{ID: id, Lon: 127.0, Lat: latAt(m)}
}

// lineExtract is a single straight way through nodes 1..n spaced 100 m apart.
func lineExtract(tags map[string]string, ids ...int64) *overpass.Extract {
	ex := &overpass.Extract{Nodes: make(map[int64]overpass.Node)}
	for i, id := range ids {
		ex.Nodes[id] = nodeAt(id, float64(i)*100)
	}
	ex.Ways = []overpass.Way{{ID: 100, NodeIDs: ids, Tags: tags}}
	return ex
}

func TestBuildGraphSingleWay(t *testing.T) {
	g, err := BuildGraph(lineExtract(nil, 1, 2, 3), "drive")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}

	// Interior nodes of an uncrossed way stay inside the edge geometry,
	// so the graph carries only the two endpoints.
	if len(g.Nodes) != 2 {
		t.Fatalf("got %d graph nodes, want 2 endpoints", len(g.Nodes))
	}

	edges := g.Edges[1]
	if len(edges) != 1 {
		t.Fatalf("node 1 has %d outgoing edges, want 1", len(edges))
	}
	e := edges[0]
	if e.To != 3 {
		t.Errorf("edge target = %d, want 3", e.To)
	}
	if len(e.Geometry) != 3 {
		t.Errorf("edge geometry has %d points, want the full 3-point chain", len(e.Geometry))
	}
	if math.Abs(e.LengthM-200) > 1.0 {
		t.Errorf("edge length = %.2f, want ~200", e.LengthM)
	}

	// Bidirectional without a oneway tag.
	back := g.Edges[3]
	if len(back) != 1 || back[0].To != 1 {
		t.Fatalf("missing reverse edge from 3 to 1")
	}
	if back[0].Geometry[0] != e.Geometry[len(e.Geometry)-1] {
		t.Error("reverse edge geometry does not start at the forward edge's end")
	}
}

func TestBuildGraphSplitsAtIntersections(t *testing.T) {
	// Two ways crossing at node 2: way A is 1-2-3, way B is 4-2-5.
	ex := &overpass.Extract{Nodes: map[int64]overpass.Node{
		1: nodeAt(1, 0),
		2: nodeAt(2, 100),
		3: nodeAt(3, 200),
		4: {ID: 4, Lon: 127.001, Lat: latAt(100)},
		5: {ID: 5, Lon: 126.999, Lat: latAt(100)},
	}}
	ex.Ways = []overpass.Way{
		{ID: 100, NodeIDs: []int64{1, 2, 3}},
		{ID: 101, NodeIDs: []int64{4, 2, 5}},
	}

	g, err := BuildGraph(ex, "drive")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}

	// Node 2 is shared, so both ways split there and it becomes a vertex.
	if _, ok := g.Nodes[2]; !ok {
		t.Fatal("intersection node 2 missing from graph")
	}
	if len(g.Nodes) != 5 {
		t.Errorf("got %d graph nodes, want 5", len(g.Nodes))
	}

	// From node 2 every arm is reachable.
	targets := make(map[int64]bool)
	for _, e := range g.Edges[2] {
		targets[e.To] = true
	}
	for _, want := range []int64{1, 3, 4, 5} {
		if !targets[want] {
			t.Errorf("no edge from intersection to node %d", want)
		}
	}
}

func TestBuildGraphOneway(t *testing.T) {
	g, err := BuildGraph(lineExtract(map[string]string{"oneway": "yes"}, 1, 2), "drive")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if len(g.Edges[1]) != 1 {
		t.Errorf("forward edge missing")
	}
	if len(g.Edges[2]) != 0 {
		t.Errorf("oneway drive edge got a reverse edge")
	}

	// The walk network ignores oneway restrictions.
	g, err = BuildGraph(lineExtract(map[string]string{"oneway": "yes"}, 1, 2), "walk")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if len(g.Edges[2]) != 1 {
		t.Errorf("walk network should stay bidirectional on oneway streets")
	}
}

func TestBuildGraphRoundaboutIsOneway(t *testing.T) {
	g, err := BuildGraph(lineExtract(map[string]string{"junction": "roundabout"}, 1, 2), "drive")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}
	if len(g.Edges[2]) != 0 {
		t.Error("roundabout way should be implicitly one-way for driving")
	}
}

func TestBuildGraphSkipsMissingNodes(t *testing.T) {
	// Node 2 is referenced but absent from the extract. The chain is cut
	// there and both halves are single points, so nothing routable remains.
	ex := &overpass.Extract{Nodes: map[int64]overpass.Node{
		1: nodeAt(1, 0),
		3: nodeAt(3, 200),
	}}
	ex.Ways = []overpass.Way{{ID: 100, NodeIDs: []int64{1, 2, 3}}}

	if _, err := BuildGraph(ex, "drive"); err == nil {
		t.Fatal("expected error when no routable edge survives")
	}
}

func TestBuildGraphEmptyExtract(t *testing.T) {
	if _, err := BuildGraph(nil, "drive"); err == nil {
		t.Error("expected error for nil extract")
	}
	if _, err := BuildGraph(&overpass.Extract{Nodes: map[int64]overpass.Node{}}, "drive"); err == nil {
		t.Error("expected error for extract without ways")
	}
}

func TestNearestNode(t *testing.T) {
	g, err := BuildGraph(lineExtract(nil, 1, 2, 3), "drive")
	if err != nil {
		t.Fatalf("BuildGraph returned error: %v", err)
	}

	n, ok := g.NearestNode(orb.Point{127.0, latAt(10)})
	if !ok {
		t.Fatal("NearestNode found nothing")
	}
	if n.ID != 1 {
		t.Errorf("snapped to node %d, want 1", n.ID)
	}

	n, _ = g.NearestNode(orb.Point{127.0, latAt(190)})
	if n.ID != 3 {
		t.Errorf("snapped to node %d, want 3", n.ID)
	}
}

func TestNearestNodeDeterministicTieBreak(t *testing.T) {
	// Two nodes at identical coordinates: the lower id must win every time.
	g := &Graph{
		Network: "drive",
		Nodes: map[int64]Node{
			7: {ID: 7, Lon: 127.0, Lat: 36.8},
			3: {ID: 3, Lon: 127.0, Lat: 36.8},
		},
	}
	for i := 0; i < 20; i++ {
		n, ok := g.NearestNode(orb.Point{127.0, 36.8})
		if !ok || n.ID != 3 {
			t.Fatalf("iteration %d snapped to node %d, want 3", i, n.ID)
		}
	}
}
