// Resupply workflow: Requested -> Dispatched -> EnRoute(to supply point) ->
// Loading -> EnRoute(to requester) -> Delivered. A single dispatch may batch
// several pending requests at the same node when vehicle capacity allows;
// batching eligibility is evaluated only at dispatch time.

package sim

import (
	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// SupplyRequest tracks one resupply demand through fulfilment.
type SupplyRequest struct {
	ID       string
	Node     string
	Quantity int64
	Reported int64

	Vehicle *Vehicle
	// Delivered is the quantity planned at dispatch; the head request of a
	// batch may be partially served when it alone exceeds capacity.
	Delivered int64
}

// ResupplyArrivalEvent is the demand-side appearance of a resupply request.
type ResupplyArrivalEvent struct {
	time     int64
	Node     string
	Quantity int64
}

func (ev *ResupplyArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *ResupplyArrivalEvent) Execute(e *Engine) error {
	return e.reportResupply(ev.Node, ev.Quantity)
}

func (e *Engine) reportResupply(node string, quantity int64) error {
	if quantity <= 0 {
		quantity = 1
	}
	r := &SupplyRequest{
		ID:       e.nextID("REQ"),
		Node:     node,
		Quantity: quantity,
		Reported: e.Clock,
	}
	e.requests[r.ID] = r
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemResupply,
		Kind:      eventlog.KindReported,
		EntityID:  r.ID,
		NodeID:    r.Node,
		Value:     r.Quantity,
	}); err != nil {
		return err
	}
	return e.dispatchResupply(r)
}

func (e *Engine) dispatchResupply(r *SupplyRequest) error {
	granted, err := e.Pool.RequestVehicle(e, &VehicleRequest{
		Role:   scenario.RoleResupply,
		Origin: r.Node,
		Supply: r,
		Start: func(e *Engine, v *Vehicle) error {
			return e.startResupply(r, v)
		},
	})
	if err != nil {
		return err
	}
	if !granted {
		return e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindWaitlisted,
			EntityID:  r.ID,
			NodeID:    r.Node,
		})
	}
	return nil
}

// resupplyMission is one dispatch serving a batch of requests at one node.
type resupplyMission struct {
	vehicle *Vehicle
	batch   []*SupplyRequest
	supply  string
	dest    string
}

// startResupply forms the batch and launches the mission. The head request
// is served first (partially when it exceeds capacity alone); further
// waiting requests at the same node join while they fit.
func (e *Engine) startResupply(head *SupplyRequest, v *Vehicle) error {
	capacity := v.Type.CargoCapacity
	head.Delivered = min(head.Quantity, capacity)
	remaining := capacity - head.Delivered

	batch := []*SupplyRequest{head}
	for _, r := range e.Pool.takeWaitingResupply(head.Node, &remaining) {
		r.Delivered = r.Quantity
		batch = append(batch, r)
	}

	supply := e.Network.NearestSupply(v.Location)
	if supply == "" {
		return e.stockout(batch, v)
	}

	for _, r := range batch {
		r.Vehicle = v
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindDispatched,
			EntityID:  r.ID,
			VehicleID: v.ID,
			NodeID:    v.Location,
			Value:     e.Clock - r.Reported,
		}); err != nil {
			return err
		}
	}

	m := &resupplyMission{vehicle: v, batch: batch, supply: supply, dest: head.Node}
	travel, ok := e.Network.TravelTicks(v.Location, supply, v.Type.UnladenKmh)
	if !ok {
		return e.stockout(batch, v)
	}
	v.State = VehicleEnRoute
	return e.Schedule(&resupplySupplyArrivalEvent{time: e.Clock + travel, m: m})
}

// stockout terminates a batch that cannot be served from any reachable
// supply point. A modelled outcome, not an error.
func (e *Engine) stockout(batch []*SupplyRequest, v *Vehicle) error {
	for _, r := range batch {
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindStockout,
			EntityID:  r.ID,
			NodeID:    r.Node,
		}); err != nil {
			return err
		}
		delete(e.requests, r.ID)
		r.Vehicle = nil
	}
	return e.ReleaseVehicle(v)
}

// failBatch terminates a batch whose delivery leg is unreachable. Logged as
// unmet, not as a stockout: supply existed but the requester could not be
// reached.
func (e *Engine) failBatch(batch []*SupplyRequest, v *Vehicle) error {
	for _, r := range batch {
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindUnmet,
			EntityID:  r.ID,
			NodeID:    r.Node,
		}); err != nil {
			return err
		}
		delete(e.requests, r.ID)
		r.Vehicle = nil
	}
	return e.ReleaseVehicle(v)
}

type resupplySupplyArrivalEvent struct {
	time int64
	m    *resupplyMission
}

func (ev *resupplySupplyArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *resupplySupplyArrivalEvent) Execute(e *Engine) error {
	m := ev.m
	v := m.vehicle
	v.Location = m.supply
	v.State = VehicleServicing
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemResupply,
		Kind:      eventlog.KindLoadingStarted,
		VehicleID: v.ID,
		NodeID:    m.supply,
	}); err != nil {
		return err
	}
	return e.Schedule(&resupplyLoadedEvent{time: e.Clock + v.Type.LoadTicks(), m: m})
}

type resupplyLoadedEvent struct {
	time int64
	m    *resupplyMission
}

func (ev *resupplyLoadedEvent) Timestamp() int64 { return ev.time }

func (ev *resupplyLoadedEvent) Execute(e *Engine) error {
	m := ev.m
	v := m.vehicle
	var total int64
	for _, r := range m.batch {
		total += r.Delivered
	}
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemResupply,
		Kind:      eventlog.KindLoaded,
		VehicleID: v.ID,
		NodeID:    m.supply,
		Value:     total,
	}); err != nil {
		return err
	}
	travel, ok := e.Network.TravelTicks(m.supply, m.dest, v.Type.LadenKmh)
	if !ok {
		return e.failBatch(m.batch, v)
	}
	v.State = VehicleEnRoute
	return e.Schedule(&resupplyDeliveredEvent{time: e.Clock + travel + v.Type.UnloadTicks(), m: m})
}

type resupplyDeliveredEvent struct {
	time int64
	m    *resupplyMission
}

func (ev *resupplyDeliveredEvent) Timestamp() int64 { return ev.time }

func (ev *resupplyDeliveredEvent) Execute(e *Engine) error {
	m := ev.m
	v := m.vehicle
	v.Location = m.dest
	v.State = VehicleServicing
	for _, r := range m.batch {
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindDelivered,
			EntityID:  r.ID,
			VehicleID: v.ID,
			NodeID:    m.dest,
			Value:     r.Delivered,
		}); err != nil {
			return err
		}
		delete(e.requests, r.ID)
		r.Vehicle = nil
	}
	return e.ReleaseVehicle(v)
}
