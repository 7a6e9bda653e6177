package simcore_test

import (
	"math/rand"
	"testing"

	"github.com/ubi-africa/ridesim/internal/simcore"
)

func TestRandomRepositionWithinBudget(t *testing.T) {
	n := grid4x5(t)
	strat, err := simcore.NewRepositionStrategy("random", simcore.RepositionConfig{MaxRepositionTime: 120})
	if err != nil {
		t.Fatal(err)
	}
	v := simcore.NewVehicle(1, 0)
	plan := strat.Plan([]*simcore.Vehicle{v}, n, 0, rand.New(rand.NewSource(1)))
	if len(plan) != 1 {
		t.Fatalf("expected a single plan entry, got %d", len(plan))
	}
	if plan[0].TaxiID != 1 {
		t.Errorf("expected taxi id 1, got %d", plan[0].TaxiID)
	}
	if len(plan[0].Route) == 0 {
		t.Error("expected a non-empty route")
	}
}

func TestRandomRepositionNoCandidatesSkipsVehicle(t *testing.T) {
	n := grid4x5(t)
	strat, _ := simcore.NewRepositionStrategy("random", simcore.RepositionConfig{MaxRepositionTime: 0})
	v := simcore.NewVehicle(1, 0)
	plan := strat.Plan([]*simcore.Vehicle{v}, n, 0, rand.New(rand.NewSource(1)))
	if len(plan) != 0 {
		t.Fatalf("expected no plan when no candidates are reachable, got %+v", plan)
	}
}

func TestClusterFallsBackToRandomWhenFewVehicles(t *testing.T) {
	n := grid4x5(t)
	strat, _ := simcore.NewRepositionStrategy("cluster", simcore.RepositionConfig{MaxRepositionTime: 120, ClusterCount: 5})
	v := simcore.NewVehicle(1, 0)
	plan := strat.Plan([]*simcore.Vehicle{v}, n, 0, rand.New(rand.NewSource(1)))
	if len(plan) != 1 {
		t.Fatalf("expected fallback plan for one vehicle, got %+v", plan)
	}
}

func TestDemandRepositionTargetsHighDemandNodes(t *testing.T) {
	n := grid4x5(t)
	cfg := simcore.RepositionConfig{
		MaxRepositionTime: 420, // node 19 is 7 hops (420s) from node 0
		DemandFraction:    0.1,
		HistoricalDemand:  map[int]int64{19: 1000, 0: 1},
	}
	strat, _ := simcore.NewRepositionStrategy("demand", cfg)
	v := simcore.NewVehicle(1, 0)
	plan := strat.Plan([]*simcore.Vehicle{v}, n, 0, rand.New(rand.NewSource(1)))
	if len(plan) != 1 {
		t.Fatalf("expected a plan entry, got %+v", plan)
	}
	if plan[0].Dest != 19 {
		t.Errorf("expected vehicle to target the single high-demand node 19, got %d", plan[0].Dest)
	}
}

func TestBalancedRepositionSpreadsVehicles(t *testing.T) {
	n := grid4x5(t)
	strat, _ := simcore.NewRepositionStrategy("balanced", simcore.RepositionConfig{MaxRepositionTime: 600})
	vehicles := []*simcore.Vehicle{simcore.NewVehicle(1, 0), simcore.NewVehicle(2, 0)}
	plan := strat.Plan(vehicles, n, 0, rand.New(rand.NewSource(1)))
	if len(plan) != 2 {
		t.Fatalf("expected 2 plan entries, got %d", len(plan))
	}
	if plan[0].Dest == plan[1].Dest {
		t.Error("balanced strategy should spread vehicles to distinct destinations when candidates allow it")
	}
}

func TestUnknownRepositionStrategy(t *testing.T) {
	if _, err := simcore.NewRepositionStrategy("bogus", simcore.RepositionConfig{}); err != simcore.ErrUnknownStrategy {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}
