package simcore

// VehicleStatus is the operating state of a taxi entity.
type VehicleStatus string

const (
	VehicleIdle          VehicleStatus = "idle"
	VehicleEnroutePickup VehicleStatus = "enroute_pickup"
	VehicleOccupied      VehicleStatus = "occupied"
	VehicleRepositioning VehicleStatus = "repositioning"
)

// RouteHistoryEntry is one recorded (position, timestamp) pair appended to a
// vehicle's route_history as it advances.
type RouteHistoryEntry struct {
	Position  int
	Timestamp int
}

// Vehicle is a taxi entity. It never holds a reference to an Order, only an
// id (CurrentOrder); Fleet is its exclusive owner and the only caller of its
// mutating methods.
type Vehicle struct {
	ID                 int
	PositionNode       int
	Status             VehicleStatus
	CurrentOrder       *int
	CurrentDestination *int
	CurrentRoute       []RouteStep
	OrderHistory       []int
	RouteHistory       []RouteHistoryEntry

	pickupNode int // valid only while enroute_pickup; the route's pickup leg boundary
}

// NewVehicle constructs an idle vehicle at the given starting node.
func NewVehicle(id, startNode int) *Vehicle {
	return &Vehicle{
		ID:           id,
		PositionNode: startNode,
		Status:       VehicleIdle,
	}
}

// AssignOrder requires idle; transitions to enroute_pickup with the supplied
// combined route (pickup leg ++ delivery leg). Returns false, no-op, if the
// vehicle is not idle.
func (v *Vehicle) AssignOrder(orderID, pickupNode int, route []RouteStep) bool {
	if v.Status != VehicleIdle {
		return false
	}
	v.Status = VehicleEnroutePickup
	v.CurrentOrder = intPtr(orderID)
	v.CurrentDestination = intPtr(pickupNode)
	v.CurrentRoute = route
	v.pickupNode = pickupNode
	v.OrderHistory = append(v.OrderHistory, orderID)
	for _, s := range route {
		v.RouteHistory = append(v.RouteHistory, RouteHistoryEntry{Position: s.Node, Timestamp: s.ArrivalTime})
	}
	return true
}

// StartRepositioning requires idle; transitions to repositioning.
func (v *Vehicle) StartRepositioning(dest int, route []RouteStep) bool {
	if v.Status != VehicleIdle {
		return false
	}
	v.Status = VehicleRepositioning
	v.CurrentDestination = intPtr(dest)
	v.CurrentRoute = route
	for _, s := range route {
		v.RouteHistory = append(v.RouteHistory, RouteHistoryEntry{Position: s.Node, Timestamp: s.ArrivalTime})
	}
	return true
}

// Advance walks the vehicle's route up to currentTime, updating position and
// status, and returns at most one order-lifecycle event (§4.3). Calling it
// twice with the same currentTime is idempotent: once the route is fully
// consumed CurrentRoute is cleared, so a second call finds nothing to do.
func (v *Vehicle) Advance(currentTime int) *OrderEvent {
	if v.Status == VehicleIdle || len(v.CurrentRoute) == 0 {
		return nil
	}

	last := v.CurrentRoute[len(v.CurrentRoute)-1]

	// Advance position through every route node whose arrival_time <=
	// currentTime, checking for the enroute_pickup -> occupied transition at
	// each intermediate node (not just the final one reached this call) —
	// otherwise a single advance that walks past the pickup node to a later
	// node would never detect the pickup.
	var pickupEvent *OrderEvent
	for _, step := range v.CurrentRoute {
		if step.ArrivalTime > currentTime {
			break
		}
		v.PositionNode = step.Node
		if v.Status == VehicleEnroutePickup && step.Node == v.pickupNode {
			v.Status = VehicleOccupied
			v.CurrentDestination = intPtr(last.Node)
			if orderID := v.CurrentOrder; orderID != nil {
				pickupEvent = &OrderEvent{OrderID: *orderID, NewStatus: OrderPickedUp, Timestamp: step.ArrivalTime}
			}
		}
	}

	reachedEnd := currentTime >= last.ArrivalTime

	if !reachedEnd {
		return pickupEvent
	}

	// Route fully consumed this call: the vehicle reaches its final node.
	// If pickup and dropoff both fall within this single advance, only the
	// terminal (completed) event is emitted — the pickup timestamp is lost,
	// per the preserved terminal-wins behavior.
	v.PositionNode = last.Node

	var event *OrderEvent
	switch v.Status {
	case VehicleEnroutePickup, VehicleOccupied:
		orderID := v.CurrentOrder
		v.Status = VehicleIdle
		v.CurrentOrder = nil
		v.CurrentDestination = nil
		v.CurrentRoute = nil
		v.pickupNode = 0
		if orderID != nil {
			event = &OrderEvent{OrderID: *orderID, NewStatus: OrderCompleted, Timestamp: last.ArrivalTime}
		}
	case VehicleRepositioning:
		v.Status = VehicleIdle
		v.CurrentDestination = nil
		v.CurrentRoute = nil
	}

	return event
}

// FleetExport is the per-vehicle §6 fleet export shape.
type FleetExport struct {
	TaxiID       int                      `json:"taxi_id"`
	OrderHistory []OrderHistoryEntry      `json:"order_history"`
	RouteHistory []RouteHistoryExportItem `json:"route_history"`
}

// OrderHistoryEntry wraps one order id in the shape the export schema
// requires ({"order_id": n}).
type OrderHistoryEntry struct {
	OrderID int `json:"order_id"`
}

// RouteHistoryExportItem is one (position, timestamp) entry in the export.
type RouteHistoryExportItem struct {
	Position  int `json:"position"`
	Timestamp int `json:"timestamp"`
}

func (v *Vehicle) export() FleetExport {
	orders := make([]OrderHistoryEntry, len(v.OrderHistory))
	for i, id := range v.OrderHistory {
		orders[i] = OrderHistoryEntry{OrderID: id}
	}
	route := make([]RouteHistoryExportItem, len(v.RouteHistory))
	for i, r := range v.RouteHistory {
		route[i] = RouteHistoryExportItem{Position: r.Position, Timestamp: r.Timestamp}
	}
	return FleetExport{TaxiID: v.ID, OrderHistory: orders, RouteHistory: route}
}
