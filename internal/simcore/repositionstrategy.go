package simcore

import (
	"math"
	"math/rand"
	"sort"
)

const (
	defaultMaxRepositionTime = 60
	defaultClusterCount      = 5
	defaultDemandFraction    = 0.2
)

// RepositionStrategy is a pure function from idle vehicles and network state
// to a (possibly empty) plan of reposition orders, at most one per vehicle.
type RepositionStrategy interface {
	Plan(idle []*Vehicle, network *RoadNetwork, currentTime int, rng *rand.Rand) []RepositionOrder
}

// RepositionConfig carries the tunables shared by the strategies.
type RepositionConfig struct {
	MaxRepositionTime int
	ClusterCount      int
	DemandFraction    float64
	HistoricalDemand  map[int]int64 // node -> pickup count, used by "demand"
}

func (c RepositionConfig) normalized() RepositionConfig {
	if c.MaxRepositionTime <= 0 {
		c.MaxRepositionTime = defaultMaxRepositionTime
	}
	if c.ClusterCount <= 0 {
		c.ClusterCount = defaultClusterCount
	}
	if c.DemandFraction <= 0 {
		c.DemandFraction = defaultDemandFraction
	}
	return c
}

// NewRepositionStrategy resolves a strategy by its configured name.
func NewRepositionStrategy(name string, cfg RepositionConfig) (RepositionStrategy, error) {
	cfg = cfg.normalized()
	switch name {
	case "random":
		return randomReposition{cfg: cfg}, nil
	case "cluster":
		return clusterReposition{cfg: cfg}, nil
	case "demand":
		return demandReposition{cfg: cfg}, nil
	case "balanced":
		return balancedReposition{cfg: cfg}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}

// candidates returns the full reachable set for a vehicle, as node ids in
// ascending order (§4.6 expansion: enumerated, not sampled with replacement).
func candidates(v *Vehicle, network *RoadNetwork, maxRepositionTime int) []int {
	reachable := network.NodesWithin(v.PositionNode, maxRepositionTime)
	ids := make([]int, 0, len(reachable))
	for id := range reachable {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func planFor(v *Vehicle, dest int, network *RoadNetwork, currentTime int) RepositionOrder {
	route := network.ShortestPath(v.PositionNode, dest, currentTime)
	return RepositionOrder{TaxiID: v.ID, Dest: dest, Route: route}
}

// --- random ---

type randomReposition struct{ cfg RepositionConfig }

func (s randomReposition) Plan(idle []*Vehicle, network *RoadNetwork, currentTime int, rng *rand.Rand) []RepositionOrder {
	var plan []RepositionOrder
	for _, v := range idle {
		cands := candidates(v, network, s.cfg.MaxRepositionTime)
		if len(cands) == 0 {
			continue
		}
		dest := cands[rng.Intn(len(cands))]
		plan = append(plan, planFor(v, dest, network, currentTime))
	}
	return plan
}

// --- cluster ---

type clusterReposition struct{ cfg RepositionConfig }

func (s clusterReposition) Plan(idle []*Vehicle, network *RoadNetwork, currentTime int, rng *rand.Rand) []RepositionOrder {
	if len(idle) < s.cfg.ClusterCount {
		return randomReposition{cfg: s.cfg}.Plan(idle, network, currentTime, rng)
	}

	perVehicleCandidates := make([][]int, len(idle))
	var allNodes []int
	seen := make(map[int]bool)
	for i, v := range idle {
		cands := candidates(v, network, s.cfg.MaxRepositionTime)
		perVehicleCandidates[i] = cands
		for _, n := range cands {
			if !seen[n] {
				seen[n] = true
				allNodes = append(allNodes, n)
			}
		}
	}
	if len(allNodes) == 0 {
		return nil
	}
	sort.Ints(allNodes)

	points := make([]Coord, len(allNodes))
	for i, n := range allNodes {
		c, _ := network.Coord(n)
		points[i] = c
	}
	labels := kmeans(points, s.cfg.ClusterCount, rng)
	clusterOf := make(map[int]int, len(allNodes))
	clusterNodes := make(map[int][]int)
	for i, n := range allNodes {
		clusterOf[n] = labels[i]
		clusterNodes[labels[i]] = append(clusterNodes[labels[i]], n)
	}

	var plan []RepositionOrder
	for i, v := range idle {
		cluster := i % s.cfg.ClusterCount
		cands := perVehicleCandidates[i]
		if len(cands) == 0 {
			continue
		}
		var inCluster []int
		for _, n := range cands {
			if clusterOf[n] == cluster {
				inCluster = append(inCluster, n)
			}
		}
		var dest int
		if len(inCluster) > 0 {
			dest = inCluster[rng.Intn(len(inCluster))]
		} else {
			dest = cands[rng.Intn(len(cands))]
		}
		plan = append(plan, planFor(v, dest, network, currentTime))
	}
	return plan
}

// kmeans runs Lloyd's algorithm over the given points, returning a cluster
// label per point. Centroids are seeded from k evenly spaced input points.
func kmeans(points []Coord, k int, rng *rand.Rand) []int {
	if len(points) < k {
		k = len(points)
	}
	centroids := make([]Coord, k)
	step := len(points) / k
	for i := 0; i < k; i++ {
		centroids[i] = points[i*step]
	}

	labels := make([]int, len(points))
	const maxIterations = 20
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		for i, p := range points {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := euclidean(p, centroid)
				if d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				changed = true
			}
			labels[i] = best
		}
		if !changed && iter > 0 {
			break
		}
		sums := make([]Coord, k)
		counts := make([]int, k)
		for i, p := range points {
			sums[labels[i]].X += p.X
			sums[labels[i]].Y += p.Y
			counts[labels[i]]++
		}
		for c := range centroids {
			if counts[c] > 0 {
				centroids[c] = Coord{X: sums[c].X / float64(counts[c]), Y: sums[c].Y / float64(counts[c])}
			}
		}
	}
	return labels
}

// --- demand ---

type demandReposition struct{ cfg RepositionConfig }

func (s demandReposition) Plan(idle []*Vehicle, network *RoadNetwork, currentTime int, rng *rand.Rand) []RepositionOrder {
	highDemand := topDemandNodes(s.cfg.HistoricalDemand, s.cfg.DemandFraction)

	var plan []RepositionOrder
	for _, v := range idle {
		cands := candidates(v, network, s.cfg.MaxRepositionTime)
		if len(cands) == 0 {
			continue
		}
		var inDemand []int
		for _, n := range cands {
			if highDemand[n] {
				inDemand = append(inDemand, n)
			}
		}
		var dest int
		if len(inDemand) > 0 {
			dest = inDemand[rng.Intn(len(inDemand))]
		} else {
			dest = cands[rng.Intn(len(cands))]
		}
		plan = append(plan, planFor(v, dest, network, currentTime))
	}
	return plan
}

func topDemandNodes(demand map[int]int64, fraction float64) map[int]bool {
	if len(demand) == 0 {
		return nil
	}
	type pair struct {
		node  int
		count int64
	}
	pairs := make([]pair, 0, len(demand))
	for n, c := range demand {
		pairs = append(pairs, pair{node: n, count: c})
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].count != pairs[j].count {
			return pairs[i].count > pairs[j].count
		}
		return pairs[i].node < pairs[j].node
	})
	n := int(math.Ceil(float64(len(pairs)) * fraction))
	if n < 1 {
		n = 1
	}
	if n > len(pairs) {
		n = len(pairs)
	}
	out := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		out[pairs[i].node] = true
	}
	return out
}

// --- balanced ---

type balancedReposition struct{ cfg RepositionConfig }

func (s balancedReposition) Plan(idle []*Vehicle, network *RoadNetwork, currentTime int, rng *rand.Rand) []RepositionOrder {
	var plan []RepositionOrder
	var chosen []Coord

	for i, v := range idle {
		cands := candidates(v, network, s.cfg.MaxRepositionTime)
		if len(cands) == 0 {
			continue
		}
		var dest int
		if i == 0 || len(chosen) == 0 {
			dest = cands[rng.Intn(len(cands))]
		} else {
			dest = farthestFrom(cands, chosen, network)
		}
		c, ok := network.Coord(dest)
		if ok {
			chosen = append(chosen, c)
		}
		plan = append(plan, planFor(v, dest, network, currentTime))
	}
	return plan
}

// farthestFrom picks the candidate maximizing the minimum distance to any
// already-chosen destination (greedy farthest-point selection).
func farthestFrom(cands []int, chosen []Coord, network *RoadNetwork) int {
	best := cands[0]
	bestMinDist := -1.0
	for _, n := range cands {
		c, ok := network.Coord(n)
		if !ok {
			continue
		}
		minDist := math.Inf(1)
		for _, sel := range chosen {
			d := euclidean(c, sel)
			if d < minDist {
				minDist = d
			}
		}
		if minDist > bestMinDist {
			bestMinDist = minDist
			best = n
		}
	}
	return best
}
