// CASEVAC workflow: Reported -> Dispatched -> EnRoute(to casualty) ->
// OnScene -> EnRoute(to facility) -> Handoff(bay acquired) -> Treated.
// Every transition is a scheduled event; waiting for a vehicle or a
// treatment bay happens on a FIFO wait-list, never by blocking the loop.

package sim

import (
	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// Casualty tracks one casualty through the evacuation chain.
type Casualty struct {
	ID       string
	Node     string
	Priority int
	Reported int64

	Vehicle  *Vehicle
	Facility string
}

// CasualtyArrivalEvent is the demand-side appearance of a casualty.
type CasualtyArrivalEvent struct {
	time     int64
	Node     string
	Priority int
}

func (ev *CasualtyArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *CasualtyArrivalEvent) Execute(e *Engine) error {
	return e.reportCasualty(ev.Node, ev.Priority)
}

// reportCasualty creates the casualty record, logs Reported, and attempts
// dispatch.
func (e *Engine) reportCasualty(node string, priority int) error {
	c := &Casualty{
		ID:       e.nextID("CAS"),
		Node:     node,
		Priority: priority,
		Reported: e.Clock,
	}
	e.casualties[c.ID] = c
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindReported,
		EntityID:  c.ID,
		NodeID:    c.Node,
		Value:     int64(c.Priority),
	}); err != nil {
		return err
	}
	return e.dispatchCasevac(c)
}

// dispatchCasevac requests an ambulance. An unavailable fleet queues the
// casualty FIFO; the Dispatched transition fires when a vehicle is released.
func (e *Engine) dispatchCasevac(c *Casualty) error {
	granted, err := e.Pool.RequestVehicle(e, &VehicleRequest{
		Role:   scenario.RoleAmbulance,
		Origin: c.Node,
		Start: func(e *Engine, v *Vehicle) error {
			return e.startCasevac(c, v)
		},
	})
	if err != nil {
		return err
	}
	if !granted {
		return e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemCasevac,
			Kind:      eventlog.KindWaitlisted,
			EntityID:  c.ID,
			NodeID:    c.Node,
		})
	}
	return nil
}

func (e *Engine) startCasevac(c *Casualty, v *Vehicle) error {
	c.Vehicle = v
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindDispatched,
		EntityID:  c.ID,
		VehicleID: v.ID,
		NodeID:    v.Location,
		Value:     e.Clock - c.Reported,
	}); err != nil {
		return err
	}
	travel, ok := e.Network.TravelTicks(v.Location, c.Node, v.Type.UnladenKmh)
	if !ok {
		return e.failCasualty(c, v)
	}
	v.State = VehicleEnRoute
	return e.Schedule(&casevacSceneArrivalEvent{time: e.Clock + travel, c: c})
}

// failCasualty records an unmet casualty (no reachable vehicle path or
// facility). A modelled outcome, not an error.
func (e *Engine) failCasualty(c *Casualty, v *Vehicle) error {
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindUnmet,
		EntityID:  c.ID,
		NodeID:    c.Node,
	}); err != nil {
		return err
	}
	delete(e.casualties, c.ID)
	if v != nil {
		c.Vehicle = nil
		return e.ReleaseVehicle(v)
	}
	return nil
}

type casevacSceneArrivalEvent struct {
	time int64
	c    *Casualty
}

func (ev *casevacSceneArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *casevacSceneArrivalEvent) Execute(e *Engine) error {
	c, v := ev.c, ev.c.Vehicle
	v.Location = c.Node
	v.State = VehicleServicing
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindArrivedScene,
		EntityID:  c.ID,
		VehicleID: v.ID,
		NodeID:    c.Node,
	}); err != nil {
		return err
	}
	return e.Schedule(&casevacSceneDepartureEvent{time: e.Clock + v.Type.LoadTicks(), c: c})
}

type casevacSceneDepartureEvent struct {
	time int64
	c    *Casualty
}

func (ev *casevacSceneDepartureEvent) Timestamp() int64 { return ev.time }

func (ev *casevacSceneDepartureEvent) Execute(e *Engine) error {
	c, v := ev.c, ev.c.Vehicle
	facility := e.Network.NearestMedical(c.Node)
	if facility == "" {
		return e.failCasualty(c, v)
	}
	c.Facility = facility
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindSceneDeparted,
		EntityID:  c.ID,
		VehicleID: v.ID,
		NodeID:    c.Node,
	}); err != nil {
		return err
	}
	travel, ok := e.Network.TravelTicks(c.Node, facility, v.Type.LadenKmh)
	if !ok {
		return e.failCasualty(c, v)
	}
	v.State = VehicleEnRoute
	return e.Schedule(&casevacFacilityArrivalEvent{time: e.Clock + travel, c: c})
}

type casevacFacilityArrivalEvent struct {
	time int64
	c    *Casualty
}

func (ev *casevacFacilityArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *casevacFacilityArrivalEvent) Execute(e *Engine) error {
	c, v := ev.c, ev.c.Vehicle
	v.Location = c.Facility
	v.State = VehicleServicing
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindArrivedFacility,
		EntityID:  c.ID,
		VehicleID: v.ID,
		NodeID:    c.Facility,
	}); err != nil {
		return err
	}
	// The handoff needs a treatment bay; the vehicle holds the casualty on
	// the facility wait-list until one frees.
	return e.Pool.AcquireBay(e, c.Facility, BayMedical, func(e *Engine) error {
		return e.Schedule(&casevacHandoffEvent{time: e.Clock + v.Type.UnloadTicks(), c: c})
	})
}

type casevacHandoffEvent struct {
	time int64
	c    *Casualty
}

func (ev *casevacHandoffEvent) Timestamp() int64 { return ev.time }

func (ev *casevacHandoffEvent) Execute(e *Engine) error {
	c, v := ev.c, ev.c.Vehicle
	// Response time Reported -> Handoff, the headline CASEVAC KPI.
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindHandoff,
		EntityID:  c.ID,
		VehicleID: v.ID,
		NodeID:    c.Facility,
		Value:     e.Clock - c.Reported,
	}); err != nil {
		return err
	}
	c.Vehicle = nil
	if err := e.ReleaseVehicle(v); err != nil {
		return err
	}
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindTreatmentStarted,
		EntityID:  c.ID,
		NodeID:    c.Facility,
	}); err != nil {
		return err
	}
	node := e.Scenario.NodeByID(c.Facility)
	return e.Schedule(&casevacTreatedEvent{time: e.Clock + node.TreatmentTicks(), c: c})
}

type casevacTreatedEvent struct {
	time int64
	c    *Casualty
}

func (ev *casevacTreatedEvent) Timestamp() int64 { return ev.time }

func (ev *casevacTreatedEvent) Execute(e *Engine) error {
	c := ev.c
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemCasevac,
		Kind:      eventlog.KindTreated,
		EntityID:  c.ID,
		NodeID:    c.Facility,
		Value:     e.Clock - c.Reported,
	}); err != nil {
		return err
	}
	delete(e.casualties, c.ID)
	return e.Pool.ReleaseBay(e, c.Facility, BayMedical)
}
