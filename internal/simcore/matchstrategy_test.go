package simcore_test

import (
	"math/rand"
	"testing"

	"github.com/ubi-africa/ridesim/internal/simcore"
)

func TestNearestMatchPicksCheapest(t *testing.T) {
	strat, err := simcore.NewMatchStrategy("nearest", 300)
	if err != nil {
		t.Fatal(err)
	}
	costs := simcore.CostMatrix{
		1: {100: 5, 101: 2},
		2: {100: 1, 101: 9},
	}
	matches := strat.Match(costs, rand.New(rand.NewSource(1)))
	byOrder := map[int]int{}
	for _, m := range matches {
		byOrder[m.OrderID] = m.TaxiID
	}
	if byOrder[100] != 2 {
		t.Errorf("expected order 100 matched to vehicle 2 (cost 1), got %d", byOrder[100])
	}
	if byOrder[101] != 1 {
		t.Errorf("expected order 101 matched to vehicle 1 (cost 2), got %d", byOrder[101])
	}
}

func TestNearestMatchRespectsMaxPickupTime(t *testing.T) {
	strat, err := simcore.NewMatchStrategy("nearest", 5)
	if err != nil {
		t.Fatal(err)
	}
	costs := simcore.CostMatrix{1: {100: 6}}
	matches := strat.Match(costs, rand.New(rand.NewSource(1)))
	if len(matches) != 0 {
		t.Fatalf("expected no match above max_pickup_time, got %+v", matches)
	}
}

func TestNearestMatchEachIDOnce(t *testing.T) {
	strat, _ := simcore.NewMatchStrategy("nearest", 300)
	costs := simcore.CostMatrix{
		1: {100: 1, 101: 2},
		2: {100: 1, 101: 2},
	}
	matches := strat.Match(costs, rand.New(rand.NewSource(1)))
	seenV, seenO := map[int]bool{}, map[int]bool{}
	for _, m := range matches {
		if seenV[m.TaxiID] || seenO[m.OrderID] {
			t.Fatalf("duplicate id in matches: %+v", matches)
		}
		seenV[m.TaxiID] = true
		seenO[m.OrderID] = true
	}
}

func TestBatchAliasesNearest(t *testing.T) {
	batch, _ := simcore.NewMatchStrategy("batch", 300)
	nearest, _ := simcore.NewMatchStrategy("nearest", 300)
	costs := simcore.CostMatrix{1: {100: 3}, 2: {100: 9}}
	mb := batch.Match(costs, rand.New(rand.NewSource(1)))
	mn := nearest.Match(costs, rand.New(rand.NewSource(1)))
	if len(mb) != 1 || len(mn) != 1 || mb[0] != mn[0] {
		t.Fatalf("expected batch to alias nearest, got %+v vs %+v", mb, mn)
	}
}

func TestUnknownMatchStrategy(t *testing.T) {
	if _, err := simcore.NewMatchStrategy("bogus", 300); err != simcore.ErrUnknownStrategy {
		t.Fatalf("expected ErrUnknownStrategy, got %v", err)
	}
}

func TestRandomMatchEachIDOnce(t *testing.T) {
	strat, _ := simcore.NewMatchStrategy("random", 300)
	costs := simcore.CostMatrix{
		1: {100: 1, 101: 2},
		2: {100: 1, 101: 2},
		3: {100: 1, 101: 2},
	}
	matches := strat.Match(costs, rand.New(rand.NewSource(42)))
	seenO := map[int]bool{}
	for _, m := range matches {
		if seenO[m.OrderID] {
			t.Fatalf("order matched twice: %+v", matches)
		}
		seenO[m.OrderID] = true
	}
	if len(matches) > 2 {
		t.Fatalf("expected at most 2 matches (2 orders), got %d", len(matches))
	}
}
