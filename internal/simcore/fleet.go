package simcore

import (
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// RepositionOrder is one entry of a reposition plan produced by a
// RepositionStrategy: assign vehicle taxiID to travel dest along route.
type RepositionOrder struct {
	TaxiID int
	Dest   int
	Route  []RouteStep
}

// Fleet owns every Vehicle. All mutation happens through its methods; no
// caller ever reaches into a Vehicle directly.
type Fleet struct {
	mu       sync.RWMutex
	vehicles map[int]*Vehicle
	order    []int // ascending vehicle id, fixed at construction
}

// NewFleet places count vehicles at uniformly random nodes, ids starting at
// 1 (§4.7 initialization).
func NewFleet(network *RoadNetwork, count int, rng randSource) *Fleet {
	f := &Fleet{vehicles: make(map[int]*Vehicle, count)}
	f.order = make([]int, 0, count)
	for i := 1; i <= count; i++ {
		start := network.RandomNode(rng)
		f.vehicles[i] = NewVehicle(i, start)
		f.order = append(f.order, i)
	}
	return f
}

// randSource is the narrow slice of *rand.Rand the fleet needs, so tests can
// supply any seeded source without importing math/rand here directly.
type randSource interface {
	Intn(n int) int
}

// IdleVehicles returns every idle vehicle, in ascending id order.
func (f *Fleet) IdleVehicles() []*Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()

	out := make([]*Vehicle, 0, len(f.order))
	for _, id := range f.order {
		if v := f.vehicles[id]; v.Status == VehicleIdle {
			out = append(out, v)
		}
	}
	return out
}

// Assign delegates to the named vehicle's AssignOrder. No-op if the id is
// unknown.
func (f *Fleet) Assign(taxiID, orderID, pickupNode int, route []RouteStep) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, ok := f.vehicles[taxiID]
	if !ok {
		log.Warn().Int("taxi_id", taxiID).Str("component", "fleet").
			Msg("assign requested for unknown taxi id")
		return false
	}
	return v.AssignOrder(orderID, pickupNode, route)
}

// Reposition applies a reposition plan: for each entry, if the vehicle
// exists and is idle, starts it repositioning.
func (f *Fleet) Reposition(plan []RepositionOrder) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range plan {
		v, ok := f.vehicles[p.TaxiID]
		if !ok {
			log.Warn().Int("taxi_id", p.TaxiID).Str("component", "fleet").
				Msg("reposition requested for unknown taxi id")
			continue
		}
		v.StartRepositioning(p.Dest, p.Route)
	}
}

// AdvanceAll calls Advance on every vehicle in ascending id order and
// returns the concatenated list of order-lifecycle events.
func (f *Fleet) AdvanceAll(currentTime int) []OrderEvent {
	f.mu.Lock()
	defer f.mu.Unlock()

	var events []OrderEvent
	for _, id := range f.order {
		if e := f.vehicles[id].Advance(currentTime); e != nil {
			events = append(events, *e)
		}
	}
	return events
}

// Get returns the vehicle with the given id.
func (f *Fleet) Get(taxiID int) (*Vehicle, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.vehicles[taxiID]
	return v, ok
}

// All returns every vehicle in ascending id order.
func (f *Fleet) All() []*Vehicle {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*Vehicle, len(f.order))
	for i, id := range f.order {
		out[i] = f.vehicles[id]
	}
	return out
}

// FleetExportDoc is the §6 fleet export document shape.
type FleetExportDoc struct {
	Metadata  FleetExportMetadata    `json:"metadata"`
	FleetData map[string]FleetExport `json:"fleet_data"`
}

// FleetExportMetadata carries the export timestamp and taxi count.
type FleetExportMetadata struct {
	GeneratedTime string `json:"generated_time"`
	TotalTaxis    int    `json:"total_taxis"`
}

// ExportHistory returns the per-vehicle order/route history records.
// generated_time is wall-clock (matching the original's datetime.now()
// stamp), not simulated time — it is run metadata, not simulation output,
// and is excluded from the §8 S6 determinism guarantee: fleet_data is
// byte-identical across identical-seed runs, generated_time is not.
func (f *Fleet) ExportHistory(now time.Time) FleetExportDoc {
	f.mu.RLock()
	defer f.mu.RUnlock()

	data := make(map[string]FleetExport, len(f.order))
	for _, id := range f.order {
		data[strconv.Itoa(id)] = f.vehicles[id].export()
	}
	return FleetExportDoc{
		Metadata: FleetExportMetadata{
			GeneratedTime: now.UTC().Format(time.RFC3339),
			TotalTaxis:    len(f.order),
		},
		FleetData: data,
	}
}
