package simcore

import (
	"sort"
	"strconv"
	"sync"

	"github.com/rs/zerolog/log"
)

const defaultWaitingThreshold = 300

// OrderEvent is a lifecycle transition produced by Fleet.AdvanceAll, to be
// applied in a batch by OrderBook.ApplyTransitions.
type OrderEvent struct {
	OrderID   int
	NewStatus OrderStatus
	Timestamp int
}

// OrderBook owns every Order and enforces the waiting-timeout policy. It is
// mutated only through its own methods, matching the repository-owns-entity
// ownership discipline used throughout the teacher's service layer.
type OrderBook struct {
	mu               sync.RWMutex
	orders           map[int]*Order
	waitingThreshold int
}

// NewOrderBook constructs an OrderBook from an input record set, discarding
// any order whose request time precedes startTime (§4.7 initialization,
// §6 order input). waitingThreshold <= 0 falls back to the default.
func NewOrderBook(records []OrderRecord, startTime int, waitingThreshold int) *OrderBook {
	if waitingThreshold <= 0 {
		waitingThreshold = defaultWaitingThreshold
	}
	ob := &OrderBook{
		orders:           make(map[int]*Order, len(records)),
		waitingThreshold: waitingThreshold,
	}
	for _, r := range records {
		if r.RequestTime < startTime {
			continue
		}
		ob.orders[r.ID] = NewOrder(r.ID, r.PickupNode, r.DropoffNode, r.RequestTime)
	}
	return ob
}

// OrderRecord is the external input shape for one order row (§6).
type OrderRecord struct {
	ID          int
	PickupNode  int
	DropoffNode int
	RequestTime int
}

// WaitingOrders returns orders with status waiting and request_time <=
// currentTime, after applying timeout cancellation to any order that has
// waited beyond the threshold. Cancelled orders are excluded from the
// result. Iteration order is by ascending order id for determinism.
func (ob *OrderBook) WaitingOrders(currentTime int) []*Order {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	ids := make([]int, 0, len(ob.orders))
	for id := range ob.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	waiting := make([]*Order, 0, len(ids))
	for _, id := range ids {
		o := ob.orders[id]
		if o.Status != OrderWaiting || o.RequestTime > currentTime {
			continue
		}
		if currentTime-o.RequestTime > ob.waitingThreshold {
			o.cancel(currentTime)
			continue
		}
		waiting = append(waiting, o)
	}
	return waiting
}

// ApplyTransitions applies a batch of order-lifecycle events produced during
// Fleet.AdvanceAll. Unknown order ids are ignored and logged.
func (ob *OrderBook) ApplyTransitions(events []OrderEvent) {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	for _, e := range events {
		o, ok := ob.orders[e.OrderID]
		if !ok {
			log.Warn().Int("order_id", e.OrderID).Str("component", "orderbook").
				Msg("ignoring transition for unknown order id")
			continue
		}
		switch e.NewStatus {
		case OrderPickedUp:
			o.pickup(e.Timestamp)
		case OrderCompleted:
			o.complete(e.Timestamp)
		}
	}
}

// Assign transitions a waiting order to assigned. Returns whether the
// transition occurred.
func (ob *OrderBook) Assign(orderID, taxiID, t int) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	o, ok := ob.orders[orderID]
	if !ok {
		log.Warn().Int("order_id", orderID).Str("component", "orderbook").
			Msg("assign requested for unknown order id")
		return false
	}
	return o.assign(taxiID, t)
}

// Get returns the order with the given id, if any.
func (ob *OrderBook) Get(orderID int) (*Order, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	o, ok := ob.orders[orderID]
	return o, ok
}

// Export returns the §6 order export shape, restricted to orders with
// startTime <= request_time <= endTime.
func (ob *OrderBook) Export(startTime, endTime int) map[string]OrderExport {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	out := make(map[string]OrderExport, len(ob.orders))
	for _, o := range ob.orders {
		if o.RequestTime < startTime || o.RequestTime > endTime {
			continue
		}
		out[strconv.Itoa(o.ID)] = o.export()
	}
	return out
}

// All returns every order, in ascending id order. Used by the metrics
// computation (internal/simreport) and by export, not by the tick loop.
func (ob *OrderBook) All() []*Order {
	ob.mu.RLock()
	defer ob.mu.RUnlock()

	ids := make([]int, 0, len(ob.orders))
	for id := range ob.orders {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	out := make([]*Order, len(ids))
	for i, id := range ids {
		out[i] = ob.orders[id]
	}
	return out
}
