// Package simcore implements the discrete-event ride-hailing simulation engine:
// the road network, order and vehicle entities, matching and repositioning
// strategies, and the tick-driven simulator that connects them.
package simcore

import (
	"container/heap"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// Coord is a point on the plane used for spatial strategies. The road network
// itself is the authority on travel time; coordinates only feed Euclidean
// distance computations (nearest_node, clustering, farthest-point selection).
type Coord struct {
	X, Y float64
}

// RouteStep is one hop of a planned route: the node reached and the
// simulated-time timestamp of arrival.
type RouteStep struct {
	Node        int
	ArrivalTime int
}

type edge struct {
	to     int
	length float64
	time   int
}

// Edge describes one undirected connection supplied at construction time.
type Edge struct {
	From, To int
	Length   float64
	Time     int
}

// RoadNetwork is an immutable undirected weighted graph over dense integer
// node ids, each carrying a plane coordinate. It is read-only after
// construction and safe for concurrent reads from multiple goroutines (see
// SPEC_FULL.md §5 / §4.7.1: RunBatch replications share one network).
type RoadNetwork struct {
	adj    map[int][]edge
	coords map[int]Coord
	nodes  []int // sorted ascending, the node's deterministic iteration order

	kdOnce sync.Once
	kdtree *kdNode // lazily built, cached nearest-node index
}

// NewRoadNetwork builds a graph from the given coordinate map and edge list.
// Edges are added to both endpoints' adjacency lists (the graph is undirected).
func NewRoadNetwork(coords map[int]Coord, edges []Edge) *RoadNetwork {
	n := &RoadNetwork{
		adj:    make(map[int][]edge, len(coords)),
		coords: make(map[int]Coord, len(coords)),
	}
	for id, c := range coords {
		n.coords[id] = c
		if _, ok := n.adj[id]; !ok {
			n.adj[id] = nil
		}
	}
	for _, e := range edges {
		n.adj[e.From] = append(n.adj[e.From], edge{to: e.To, length: e.Length, time: e.Time})
		n.adj[e.To] = append(n.adj[e.To], edge{to: e.From, length: e.Length, time: e.Time})
	}
	n.nodes = make([]int, 0, len(n.coords))
	for id := range n.coords {
		n.nodes = append(n.nodes, id)
	}
	sort.Ints(n.nodes)
	return n
}

// NodeCount returns the number of nodes in the graph.
func (n *RoadNetwork) NodeCount() int { return len(n.nodes) }

// Coord returns the plane coordinate of a node.
func (n *RoadNetwork) Coord(node int) (Coord, bool) {
	c, ok := n.coords[node]
	return c, ok
}

// RandomNode returns a uniformly random node, drawn from the supplied source.
func (n *RoadNetwork) RandomNode(rng randSource) int {
	return n.nodes[rng.Intn(len(n.nodes))]
}

// NodesWithin returns the set of nodes reachable from origin with cumulative
// travel time <= budget, excluding origin itself, mapped to that travel time.
// This is a Dijkstra-equivalent relaxation since all edge times are positive.
func (n *RoadNetwork) NodesWithin(origin int, budget int) map[int]int {
	dist := map[int]int{origin: 0}
	pq := &pathQueue{{node: origin, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pathItem)
		if d, ok := dist[item.node]; ok && item.dist > d {
			continue
		}
		for _, e := range n.adj[item.node] {
			nd := item.dist + e.time
			if nd > budget {
				continue
			}
			if d, ok := dist[e.to]; !ok || nd < d {
				dist[e.to] = nd
				heap.Push(pq, pathItem{node: e.to, dist: nd})
			}
		}
	}
	delete(dist, origin)
	return dist
}

// RandomNodeWithin returns a node reachable from origin within budget, chosen
// uniformly from the reachable set (excluding origin). ok is false when the
// set is empty.
func (n *RoadNetwork) RandomNodeWithin(origin int, budget int, rng *rand.Rand) (node int, ok bool) {
	reachable := n.NodesWithin(origin, budget)
	if len(reachable) == 0 {
		return 0, false
	}
	ids := make([]int, 0, len(reachable))
	for id := range reachable {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids[rng.Intn(len(ids))], true
}

// ShortestTravelTime returns the minimum cumulative time from source to
// target, and false if no path exists.
func (n *RoadNetwork) ShortestTravelTime(source, target int) (int, bool) {
	if source == target {
		return 0, true
	}
	dist := n.dijkstra(source)
	d, ok := dist[target]
	return d, ok
}

// ShortestPath returns the full path from source to target as a sequence of
// (node, arrival_time) pairs, with the first entry (source, startTime) and
// arrival timestamps accumulating monotonically. Returns an empty slice if no
// path exists (defensive: the connectivity invariant guarantees this never
// happens in a well-formed network).
func (n *RoadNetwork) ShortestPath(source, target, startTime int) []RouteStep {
	if source == target {
		return []RouteStep{{Node: source, ArrivalTime: startTime}}
	}

	dist := map[int]int{source: 0}
	prev := map[int]int{}
	pq := &pathQueue{{node: source, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		item := heap.Pop(pq).(pathItem)
		if d, ok := dist[item.node]; ok && item.dist > d {
			continue
		}
		if item.node == target {
			break
		}
		for _, e := range n.adj[item.node] {
			nd := item.dist + e.time
			if d, ok := dist[e.to]; !ok || nd < d {
				dist[e.to] = nd
				prev[e.to] = item.node
				heap.Push(pq, pathItem{node: e.to, dist: nd})
			}
		}
	}

	if _, ok := dist[target]; !ok {
		return nil
	}

	// Reconstruct the node sequence by walking prev back to source.
	nodes := []int{target}
	cur := target
	for cur != source {
		p, ok := prev[cur]
		if !ok {
			return nil
		}
		nodes = append(nodes, p)
		cur = p
	}
	for i, j := 0, len(nodes)-1; i < j; i, j = i+1, j-1 {
		nodes[i], nodes[j] = nodes[j], nodes[i]
	}

	steps := make([]RouteStep, len(nodes))
	steps[0] = RouteStep{Node: nodes[0], ArrivalTime: startTime}
	for i := 1; i < len(nodes); i++ {
		steps[i] = RouteStep{Node: nodes[i], ArrivalTime: startTime + dist[nodes[i]]}
	}
	return steps
}

func (n *RoadNetwork) dijkstra(source int) map[int]int {
	dist := map[int]int{source: 0}
	pq := &pathQueue{{node: source, dist: 0}}
	heap.Init(pq)
	for pq.Len() > 0 {
		item := heap.Pop(pq).(pathItem)
		if d, ok := dist[item.node]; ok && item.dist > d {
			continue
		}
		for _, e := range n.adj[item.node] {
			nd := item.dist + e.time
			if d, ok := dist[e.to]; !ok || nd < d {
				dist[e.to] = nd
				heap.Push(pq, pathItem{node: e.to, dist: nd})
			}
		}
	}
	return dist
}

// pathItem/pathQueue implement a binary min-heap over cumulative travel
// time, the same shape as a jump-count priority queue generalized from unit
// weights to the network's time-valued edges.
type pathItem struct {
	node int
	dist int
}

type pathQueue []pathItem

func (q pathQueue) Len() int            { return len(q) }
func (q pathQueue) Less(i, j int) bool  { return q[i].dist < q[j].dist }
func (q pathQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *pathQueue) Push(x interface{}) { *q = append(*q, x.(pathItem)) }
func (q *pathQueue) Pop() interface{} {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// euclidean returns the straight-line distance between two coordinates.
func euclidean(a, b Coord) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// --- nearest_node: lazily built, cached 2-D k-d tree ---

type kdNode struct {
	node        int
	coord       Coord
	left, right *kdNode
}

// NearestNode returns the node with minimum Euclidean distance to (x, y).
// The index is built on first call and cached for subsequent lookups,
// mirroring the lazy-build-and-cache pattern of the source's KD-tree.
func (n *RoadNetwork) NearestNode(x, y float64) (int, bool) {
	if len(n.nodes) == 0 {
		return 0, false
	}
	n.kdOnce.Do(func() {
		pts := make([]kdPoint, 0, len(n.nodes))
		for _, id := range n.nodes {
			pts = append(pts, kdPoint{node: id, coord: n.coords[id]})
		}
		n.kdtree = buildKDTree(pts, 0)
	})
	best, _ := n.kdtree.nearest(Coord{X: x, Y: y}, 0, nil, math.Inf(1))
	return best.node, true
}

type kdPoint struct {
	node  int
	coord Coord
}

func buildKDTree(pts []kdPoint, depth int) *kdNode {
	if len(pts) == 0 {
		return nil
	}
	axis := depth % 2
	sort.Slice(pts, func(i, j int) bool {
		if axis == 0 {
			return pts[i].coord.X < pts[j].coord.X
		}
		return pts[i].coord.Y < pts[j].coord.Y
	})
	mid := len(pts) / 2
	node := &kdNode{node: pts[mid].node, coord: pts[mid].coord}
	node.left = buildKDTree(pts[:mid], depth+1)
	node.right = buildKDTree(pts[mid+1:], depth+1)
	return node
}

func (k *kdNode) nearest(target Coord, depth int, best *kdPoint, bestDist float64) (kdPoint, float64) {
	if k == nil {
		if best == nil {
			return kdPoint{}, bestDist
		}
		return *best, bestDist
	}
	d := euclidean(target, k.coord)
	if best == nil || d < bestDist {
		p := kdPoint{node: k.node, coord: k.coord}
		best = &p
		bestDist = d
	}

	axis := depth % 2
	var diff float64
	var near, far *kdNode
	if axis == 0 {
		diff = target.X - k.coord.X
	} else {
		diff = target.Y - k.coord.Y
	}
	if diff < 0 {
		near, far = k.left, k.right
	} else {
		near, far = k.right, k.left
	}

	*best, bestDist = near.nearest(target, depth+1, best, bestDist)
	if math.Abs(diff) < bestDist {
		*best, bestDist = far.nearest(target, depth+1, best, bestDist)
	}
	return *best, bestDist
}
