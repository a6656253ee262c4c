package roadnet

import (
	"container/heap"
	"fmt"

	"github.com/paulmach/orb"
)

// ShortestPath runs Dijkstra between two graph nodes, weighted by edge
// length, and returns the traversed edges in order. A start equal to the
// goal yields an empty path.
func (g *Graph) ShortestPath(startID, goalID int64) ([]Edge, error) {
	if _, ok := g.Nodes[startID]; !ok {
		return nil, fmt.Errorf("start node %d not in graph", startID)
	}
	if _, ok := g.Nodes[goalID]; !ok {
		return nil, fmt.Errorf("goal node %d not in graph", goalID)
	}
	if startID == goalID {
		return nil, nil
	}

	dist := map[int64]float64{startID: 0}
	cameBy := make(map[int64]Edge)
	settled := make(map[int64]bool)

	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &pqItem{node: startID, priority: 0})

	for pq.Len() > 0 {
		item := heap.Pop(pq).(*pqItem)
		current := item.node
		if settled[current] {
			continue
		}
		settled[current] = true

		if current == goalID {
			return reconstructEdges(cameBy, startID, goalID), nil
		}

		for _, e := range g.Edges[current] {
			tentative := dist[current] + e.LengthM
			if old, ok := dist[e.To]; !ok || tentative < old {
				dist[e.To] = tentative
				cameBy[e.To] = e
				heap.Push(pq, &pqItem{node: e.To, priority: tentative})
			}
		}
	}

	return nil, fmt.Errorf("no path from %d to %d", startID, goalID)
}

func reconstructEdges(cameBy map[int64]Edge, startID, goalID int64) []Edge {
	var path []Edge
	for current := goalID; current != startID; {
		e := cameBy[current]
		path = append([]Edge{e}, path...)
		current = e.From
	}
	return path
}

// StitchPath joins the traversed edges' geometries into one coordinate
// sequence, dropping the duplicated joint point between consecutive edges,
// and returns the summed edge length.
func StitchPath(edges []Edge) (orb.LineString, float64) {
	var (
		line  orb.LineString
		total float64
	)
	for _, e := range edges {
		geom := e.Geometry
		if len(geom) == 0 {
			continue
		}
		if len(line) > 0 && line[len(line)-1] == geom[0] {
			geom = geom[1:]
		}
		line = append(line, geom...)
		total += e.LengthM
	}
	return line, total
}

type pqItem struct {
	node     int64
	priority float64
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int           { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool { return pq[i].priority < pq[j].priority }
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*pqItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}
