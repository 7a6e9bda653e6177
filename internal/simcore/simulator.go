package simcore

import (
	"context"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// SimulatorConfig enumerates every tunable named in §4.7.
type SimulatorConfig struct {
	StartTime          int
	TimeWindow         int
	TaxiCount          int
	MatchStrategy      string
	RepositionStrategy string
	WaitingThreshold   int
	MaxPickupTime      int
	MaxRepositionTime  int
	ExportOrders       bool
	ExportFleet        bool
	Seed               int64

	ClusterCount     int
	DemandFraction   float64
	HistoricalDemand map[int]int64
}

// RunResult is the direct output of one Simulator.Run call: a uuid-stamped
// record of a single replication's exports. internal/simrun wraps this with
// computed metrics to build its own persisted Run record.
type RunResult struct {
	ID          uuid.UUID
	Seed        int64
	StartedAt   time.Time
	FinishedAt  time.Time
	CurrentTime int
	Orders      map[string]OrderExport
	Fleet       FleetExportDoc
}

// Simulator owns the RoadNetwork, Fleet, OrderBook and both strategies, and
// drives the tick loop (§2 control flow, §4.7).
type Simulator struct {
	network            *RoadNetwork
	fleet              *Fleet
	orderBook          *OrderBook
	matchStrategy      MatchStrategy
	repositionStrategy RepositionStrategy
	rng                *rand.Rand
	config             SimulatorConfig
	currentTime        int
}

// NewSimulator validates the configuration, constructs the RoadNetwork's
// collaborators, places the fleet at random nodes, and loads the order
// table, discarding any order with ot < start_time.
func NewSimulator(network *RoadNetwork, orders []OrderRecord, config SimulatorConfig) (*Simulator, error) {
	if network.NodeCount() == 0 {
		return nil, ErrEmptyGraph
	}
	if config.TaxiCount <= 0 {
		return nil, ErrInvalidConfig
	}
	if config.TimeWindow <= 0 {
		return nil, ErrInvalidConfig
	}

	rng := rand.New(rand.NewSource(config.Seed))

	matchStrategy, err := NewMatchStrategy(config.MatchStrategy, config.MaxPickupTime)
	if err != nil {
		return nil, err
	}
	repositionStrategy, err := NewRepositionStrategy(config.RepositionStrategy, RepositionConfig{
		MaxRepositionTime: config.MaxRepositionTime,
		ClusterCount:      config.ClusterCount,
		DemandFraction:    config.DemandFraction,
		HistoricalDemand:  config.HistoricalDemand,
	})
	if err != nil {
		return nil, err
	}

	fleet := NewFleet(network, config.TaxiCount, rng)
	orderBook := NewOrderBook(orders, config.StartTime, config.WaitingThreshold)

	log.Info().Str("component", "simulator").Str("match_strategy", config.MatchStrategy).
		Str("reposition_strategy", config.RepositionStrategy).Int("taxi_count", config.TaxiCount).
		Int64("seed", config.Seed).Msg("simulator initialized")

	return &Simulator{
		network:            network,
		fleet:              fleet,
		orderBook:          orderBook,
		matchStrategy:      matchStrategy,
		repositionStrategy: repositionStrategy,
		rng:                rng,
		config:             config,
		currentTime:        config.StartTime,
	}, nil
}

// Tick executes the six-step sequence in §4.7 exactly once.
func (s *Simulator) Tick() {
	// 1. Advance the clock.
	s.currentTime += s.config.TimeWindow

	// 2. Advance every vehicle; apply resulting order transitions.
	events := s.fleet.AdvanceAll(s.currentTime)
	s.orderBook.ApplyTransitions(events)

	// 3. Gather idle vehicles and waiting orders.
	idle := s.fleet.IdleVehicles()
	waiting := s.orderBook.WaitingOrders(s.currentTime)
	if len(idle) == 0 || len(waiting) == 0 {
		s.replan(idle)
		return
	}

	// 4. Build the sparse cost matrix.
	costs := make(CostMatrix, len(idle))
	for _, v := range idle {
		row := make(map[int]int, len(waiting))
		for _, o := range waiting {
			if t, ok := s.network.ShortestTravelTime(v.PositionNode, o.PickupNode); ok {
				row[o.ID] = t
			}
		}
		if len(row) > 0 {
			costs[v.ID] = row
		}
	}

	// 5. Match, then assign both the order and the vehicle.
	matches := s.matchStrategy.Match(costs, s.rng)
	for _, m := range matches {
		v, ok := s.fleet.Get(m.TaxiID)
		if !ok {
			continue
		}
		o, ok := s.orderBook.Get(m.OrderID)
		if !ok {
			continue
		}
		if !s.orderBook.Assign(o.ID, v.ID, s.currentTime) {
			continue
		}
		leg1 := s.network.ShortestPath(v.PositionNode, o.PickupNode, s.currentTime)
		leg1End := s.currentTime
		if len(leg1) > 0 {
			leg1End = leg1[len(leg1)-1].ArrivalTime
		}
		leg2 := s.network.ShortestPath(o.PickupNode, o.DropoffNode, leg1End)
		route := combineLegs(leg1, leg2)
		s.fleet.Assign(v.ID, o.ID, o.PickupNode, route)
	}

	// 6. Reposition whatever is still idle.
	s.replan(s.fleet.IdleVehicles())
}

// replan runs the repositioning strategy over the given idle set and
// applies the resulting plan. Extracted so both the early-exit path (no
// waiting orders) and the post-assignment path (step 6) share it.
func (s *Simulator) replan(idle []*Vehicle) {
	if len(idle) == 0 {
		return
	}
	plan := s.repositionStrategy.Plan(idle, s.network, s.currentTime, s.rng)
	s.fleet.Reposition(plan)
}

// combineLegs concatenates a pickup leg and a delivery leg into one route.
// leg2's first entry duplicates leg1's last (both are the pickup node at
// the same arrival time) and is dropped.
func combineLegs(leg1, leg2 []RouteStep) []RouteStep {
	if len(leg2) == 0 {
		return leg1
	}
	if len(leg1) == 0 {
		return leg2
	}
	combined := make([]RouteStep, 0, len(leg1)+len(leg2)-1)
	combined = append(combined, leg1...)
	combined = append(combined, leg2[1:]...)
	return combined
}

// Run executes untilStep ticks and returns a uuid-stamped export record.
// Cancellation is only observed between ticks, never mid-tick (§5).
func (s *Simulator) Run(ctx context.Context, untilStep int) (RunResult, error) {
	started := time.Now()
	for i := 0; i < untilStep; i++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		s.Tick()
	}
	finished := time.Now()

	result := RunResult{
		ID:          uuid.New(),
		Seed:        s.config.Seed,
		StartedAt:   started,
		FinishedAt:  finished,
		CurrentTime: s.currentTime,
	}
	if s.config.ExportOrders {
		result.Orders = s.orderBook.Export(s.config.StartTime, s.currentTime)
	}
	if s.config.ExportFleet {
		result.Fleet = s.fleet.ExportHistory(finished)
	}

	log.Info().Str("component", "simulator").Str("run_id", result.ID.String()).
		Int("ticks", untilStep).Int("final_time", s.currentTime).Msg("run complete")

	return result, nil
}

// RunBatch runs `replications` independent Simulator instances concurrently,
// one per derived seed, via golang.org/x/sync/errgroup. Each replication's
// own tick loop remains single-threaded; concurrency exists only across
// whole replications, which share no mutable state (§4.7.1, §5).
func (s *Simulator) RunBatch(ctx context.Context, untilStep, replications int, network *RoadNetwork, orders []OrderRecord) ([]RunResult, error) {
	results := make([]RunResult, replications)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < replications; i++ {
		i := i
		g.Go(func() error {
			cfg := s.config
			cfg.Seed = s.config.Seed + int64(i)
			sim, err := NewSimulator(network, orders, cfg)
			if err != nil {
				return err
			}
			result, err := sim.Run(gctx, untilStep)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
