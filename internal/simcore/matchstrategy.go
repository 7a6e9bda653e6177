package simcore

import (
	"math/rand"
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultMaxPickupTime = 300

// CostMatrix is keyed by idle vehicle id; each value maps candidate order id
// to travel time from that vehicle's position to the order's pickup node.
// Unreachable pairs are simply absent (§3 Cost matrix).
type CostMatrix map[int]map[int]int

// Match is one matched (vehicle, order) pair.
type Match struct {
	TaxiID  int
	OrderID int
}

// MatchStrategy is a pure function from a cost matrix to a set of matches.
// Implementations must not retain state across ticks beyond what is passed
// in (§9 strategies-as-plugins).
type MatchStrategy interface {
	Match(costs CostMatrix, rng *rand.Rand) []Match
}

// NewMatchStrategy resolves a strategy by its configured name.
func NewMatchStrategy(name string, maxPickupTime int) (MatchStrategy, error) {
	if maxPickupTime <= 0 {
		maxPickupTime = defaultMaxPickupTime
	}
	switch name {
	case "random":
		return randomMatch{}, nil
	case "nearest":
		return nearestMatch{maxPickupTime: maxPickupTime}, nil
	case "batch":
		return &batchMatch{inner: nearestMatch{maxPickupTime: maxPickupTime}}, nil
	default:
		return nil, ErrUnknownStrategy
	}
}

// randomMatch shuffles vehicle and order ids, then greedily assigns each
// vehicle (in shuffled order) to the first still-unassigned order present in
// that vehicle's cost-matrix row.
type randomMatch struct{}

func (randomMatch) Match(costs CostMatrix, rng *rand.Rand) []Match {
	vehicleIDs := sortedKeys(costs)
	rng.Shuffle(len(vehicleIDs), func(i, j int) {
		vehicleIDs[i], vehicleIDs[j] = vehicleIDs[j], vehicleIDs[i]
	})

	assignedOrders := make(map[int]bool)
	var matches []Match
	for _, vID := range vehicleIDs {
		orderIDs := sortedKeys(costs[vID])
		rng.Shuffle(len(orderIDs), func(i, j int) {
			orderIDs[i], orderIDs[j] = orderIDs[j], orderIDs[i]
		})
		for _, oID := range orderIDs {
			if assignedOrders[oID] {
				continue
			}
			matches = append(matches, Match{TaxiID: vID, OrderID: oID})
			assignedOrders[oID] = true
			break
		}
	}
	return matches
}

// nearestMatch iterates orders in ascending id order, assigning each to the
// cheapest still-unassigned vehicle under maxPickupTime, ties broken by
// vehicle id.
type nearestMatch struct {
	maxPickupTime int
}

func (m nearestMatch) Match(costs CostMatrix, rng *rand.Rand) []Match {
	orderIDs := make(map[int]bool)
	for _, row := range costs {
		for oID := range row {
			orderIDs[oID] = true
		}
	}
	orders := make([]int, 0, len(orderIDs))
	for oID := range orderIDs {
		orders = append(orders, oID)
	}
	sort.Ints(orders)

	vehicleIDs := sortedKeys(costs)
	usedVehicle := make(map[int]bool)

	var matches []Match
	for _, oID := range orders {
		bestVehicle := -1
		bestCost := m.maxPickupTime + 1
		for _, vID := range vehicleIDs {
			if usedVehicle[vID] {
				continue
			}
			cost, ok := costs[vID][oID]
			if !ok || cost > m.maxPickupTime {
				continue
			}
			if cost < bestCost || (cost == bestCost && vID < bestVehicle) {
				bestCost = cost
				bestVehicle = vID
			}
		}
		if bestVehicle >= 0 {
			matches = append(matches, Match{TaxiID: bestVehicle, OrderID: oID})
			usedVehicle[bestVehicle] = true
		}
	}
	return matches
}

// batchMatch is documented as "not yet implemented" in the source and
// aliases to nearest; it logs a one-time warning per instance on first use
// rather than silently pretending to be a global-optimum assignment.
type batchMatch struct {
	inner nearestMatch
	once  sync.Once
}

func (b *batchMatch) Match(costs CostMatrix, rng *rand.Rand) []Match {
	b.once.Do(func() {
		log.Warn().Str("component", "matchstrategy").Str("strategy", "batch").
			Msg("batch matching is an alias for nearest, not a global-optimum assignment")
	})
	return b.inner.Match(costs, rng)
}

func sortedKeys(m map[int]map[int]int) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
