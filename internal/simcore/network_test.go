package simcore_test

import (
	"math/rand"
	"testing"

	"github.com/ubi-africa/ridesim/internal/simcore"
)

// grid4x5 builds the 4x5 reference grid used throughout the scenario tests:
// nodes 0..19 laid out row-major, unit spacing, every adjacent pair connected
// by an edge with length 1 and time 60 (one simulated minute per hop).
func grid4x5(t *testing.T) *simcore.RoadNetwork {
	t.Helper()
	coords := make(map[int]simcore.Coord, 20)
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			id := row*5 + col
			coords[id] = simcore.Coord{X: float64(col), Y: float64(row)}
		}
	}
	var edges []simcore.Edge
	for row := 0; row < 4; row++ {
		for col := 0; col < 5; col++ {
			id := row*5 + col
			if col < 4 {
				edges = append(edges, simcore.Edge{From: id, To: id + 1, Length: 1, Time: 60})
			}
			if row < 3 {
				edges = append(edges, simcore.Edge{From: id, To: id + 5, Length: 1, Time: 60})
			}
		}
	}
	return simcore.NewRoadNetwork(coords, edges)
}

func TestShortestPathAdjacent(t *testing.T) {
	n := grid4x5(t)
	steps := n.ShortestPath(0, 1, 100)
	if len(steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(steps))
	}
	if steps[0] != (simcore.RouteStep{Node: 0, ArrivalTime: 100}) {
		t.Errorf("unexpected first step: %+v", steps[0])
	}
	if steps[1] != (simcore.RouteStep{Node: 1, ArrivalTime: 160}) {
		t.Errorf("unexpected second step: %+v", steps[1])
	}
}

func TestShortestPathSameNode(t *testing.T) {
	n := grid4x5(t)
	steps := n.ShortestPath(7, 7, 42)
	if len(steps) != 1 || steps[0].ArrivalTime != 42 {
		t.Fatalf("expected single-step zero-cost path, got %+v", steps)
	}
}

func TestShortestPathCorner(t *testing.T) {
	n := grid4x5(t)
	// 0 -> 19 is 3 rows + 4 cols = 7 hops minimum on this grid.
	steps := n.ShortestPath(0, 19, 0)
	if len(steps) != 8 {
		t.Fatalf("expected 8 nodes on the shortest path, got %d: %+v", len(steps), steps)
	}
	if steps[len(steps)-1].Node != 19 {
		t.Fatalf("path does not end at target: %+v", steps)
	}
	if steps[len(steps)-1].ArrivalTime != 7*60 {
		t.Fatalf("expected arrival at t=420, got %d", steps[len(steps)-1].ArrivalTime)
	}
}

func TestShortestTravelTimeSymmetric(t *testing.T) {
	n := grid4x5(t)
	fwd, ok := n.ShortestTravelTime(3, 16)
	if !ok {
		t.Fatal("expected a path")
	}
	back, ok := n.ShortestTravelTime(16, 3)
	if !ok {
		t.Fatal("expected a path")
	}
	if fwd != back {
		t.Errorf("expected symmetric travel time on undirected graph, got %d vs %d", fwd, back)
	}
}

func TestNodesWithinBudget(t *testing.T) {
	n := grid4x5(t)
	reachable := n.NodesWithin(0, 60)
	// node 0's only neighbors within one hop (60s) are 1 and 5.
	if len(reachable) != 2 {
		t.Fatalf("expected 2 nodes reachable within one hop, got %d: %+v", len(reachable), reachable)
	}
	if _, ok := reachable[0]; ok {
		t.Error("origin should not appear in its own reachable set")
	}
}

func TestNodesWithinZeroBudget(t *testing.T) {
	n := grid4x5(t)
	reachable := n.NodesWithin(5, 0)
	if len(reachable) != 0 {
		t.Fatalf("expected empty reachable set at zero budget, got %+v", reachable)
	}
}

func TestRandomNodeWithinEmptyWhenUnreachable(t *testing.T) {
	n := grid4x5(t)
	rng := rand.New(rand.NewSource(1))
	if _, ok := n.RandomNodeWithin(0, 0, rng); ok {
		t.Error("expected no candidate within a zero budget")
	}
}

func TestNearestNode(t *testing.T) {
	n := grid4x5(t)
	id, ok := n.NearestNode(2.1, 1.9)
	if !ok {
		t.Fatal("expected a nearest node")
	}
	if id != 12 { // row 2, col 2
		t.Errorf("expected nearest node 12, got %d", id)
	}
}

func TestRandomNodeWithinGraph(t *testing.T) {
	n := grid4x5(t)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 50; i++ {
		id := n.RandomNode(rng)
		if id < 0 || id >= 20 {
			t.Fatalf("random node %d out of range", id)
		}
	}
}
