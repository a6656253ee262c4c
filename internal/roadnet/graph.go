package roadnet

import (
	"fmt"

	"github.com/paulmach/orb"

	"drtnav/internal/geo"
	"drtnav/pkg/overpass"
)

// Node is a road-graph vertex at a real intersection or way endpoint.
type Node struct {
	ID  int64   `json:"id"`
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (n Node) Point() orb.Point { return orb.Point{n.Lon, n.Lat} }

// Edge connects two nodes along a road. Geometry carries the real curve of
// the road between the endpoints; it always includes both endpoint
// coordinates, so a geometry of exactly two points is the straight segment.
type Edge struct {
	From     int64          `json:"from"`
	To       int64          `json:"to"`
	LengthM  float64        `json:"lengthM"`
	Geometry orb.LineString `json:"geometry"`
}

// Graph is a directed weighted road graph over a bounded extent. It is
// never mutated after construction and safe for concurrent readers.
type Graph struct {
	Network string           `json:"network"`
	Nodes   map[int64]Node   `json:"nodes"`
	Edges   map[int64][]Edge `json:"edges"`
}

// BuildGraph converts a raw network extract into a routable graph. Ways are
// split at intersection nodes (nodes shared by more than one way) and at way
// endpoints; the node chain between two cuts becomes one edge carrying the
// chain as its curve geometry. One-way restrictions are honored for the
// drive network; the walk network is always bidirectional.
func BuildGraph(extract *overpass.Extract, networkType string) (*Graph, error) {
	if extract == nil || len(extract.Ways) == 0 {
		return nil, fmt.Errorf("empty network extract")
	}

	usage := make(map[int64]int)
	for _, way := range extract.Ways {
		for _, id := range way.NodeIDs {
			usage[id]++
		}
	}

	g := &Graph{
		Network: networkType,
		Nodes:   make(map[int64]Node),
		Edges:   make(map[int64][]Edge),
	}

	for _, way := range extract.Ways {
		oneway := networkType == "drive" && isOneway(way.Tags)

		var chain []overpass.Node
		for i, id := range way.NodeIDs {
			node, ok := extract.Nodes[id]
			if !ok {
				// Incomplete extract: cut the chain and keep going.
				g.addChain(chain, oneway)
				chain = chain[:0]
				continue
			}
			chain = append(chain, node)

			last := i == len(way.NodeIDs)-1
			if len(chain) >= 2 && (last || usage[id] > 1) {
				g.addChain(chain, oneway)
				chain = append(chain[:0], node)
			}
		}
	}

	if len(g.Nodes) == 0 || len(g.Edges) == 0 {
		return nil, fmt.Errorf("extract yielded no routable edges")
	}
	return g, nil
}

func (g *Graph) addChain(chain []overpass.Node, oneway bool) {
	if len(chain) < 2 {
		return
	}

	line := make(orb.LineString, 0, len(chain))
	for _, n := range chain {
		line = append(line, orb.Point{n.Lon, n.Lat})
	}
	length := geo.LineLengthM(line)
	if length <= 0 {
		return
	}

	from, to := chain[0], chain[len(chain)-1]
	g.Nodes[from.ID] = Node{ID: from.ID, Lon: from.Lon, Lat: from.Lat}
	g.Nodes[to.ID] = Node{ID: to.ID, Lon: to.Lon, Lat: to.Lat}

	g.Edges[from.ID] = append(g.Edges[from.ID], Edge{
		From:     from.ID,
		To:       to.ID,
		LengthM:  length,
		Geometry: line,
	})

	if !oneway {
		reversed := make(orb.LineString, len(line))
		for i, p := range line {
			reversed[len(line)-1-i] = p
		}
		g.Edges[to.ID] = append(g.Edges[to.ID], Edge{
			From:     to.ID,
			To:       from.ID,
			LengthM:  length,
			Geometry: reversed,
		})
	}
}

func isOneway(tags map[string]string) bool {
	switch tags["oneway"] {
	case "yes", "true", "1":
		return true
	}
	// Roundabouts are implicitly one-way.
	return tags["junction"] == "roundabout"
}

// NearestNode snaps a coordinate to the closest graph node. Ties on equal
// distance resolve to the lowest node id so snapping is deterministic for a
// fixed graph.
func (g *Graph) NearestNode(p orb.Point) (Node, bool) {
	var (
		best     Node
		bestDist float64
		found    bool
	)
	for _, n := range g.Nodes {
		d := geo.DistanceM(p, n.Point())
		if !found || d < bestDist || (d == bestDist && n.ID < best.ID) {
			best, bestDist, found = n, d, true
		}
	}
	return best, found
}
