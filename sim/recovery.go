// Recovery workflow: Reported -> Dispatched -> EnRoute -> OnScene repair
// attempts. Repair outcome is a seeded draw against the recovery type's
// success probability; failures retry after a fixed delay up to the attempt
// cap, then the broken vehicle is Stranded -- a terminal modelled outcome
// surfaced in the log, not a system error.

package sim

import (
	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// Breakdown tracks one broken vehicle through recovery.
type Breakdown struct {
	ID        string
	VehicleID string
	Class     scenario.VehicleClass
	Node      string
	Reported  int64

	Recovery *Vehicle
	Attempts int
}

// BreakdownArrivalEvent is the demand-side report of a vehicle breakdown.
// VehicleID may be empty for rate-based demand; a subject is then chosen
// deterministically among idle vehicles at the node.
type BreakdownArrivalEvent struct {
	time      int64
	Node      string
	VehicleID string
}

func (ev *BreakdownArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *BreakdownArrivalEvent) Execute(e *Engine) error {
	vid := ev.VehicleID
	if vid == "" {
		vid = e.pickBreakdownSubject(ev.Node)
		if vid == "" {
			// No vehicle present to break; the draw is dropped.
			return nil
		}
	}
	v := e.Vehicles[vid]
	if v == nil {
		return nil
	}
	switch v.State {
	case VehicleIdle:
		return e.breakVehicle(v)
	case VehicleEnRoute, VehicleServicing:
		// Breaks at the end of the current assignment; the vehicle is
		// already outside the free pool.
		v.breakdownPending = true
		return nil
	default:
		return nil
	}
}

// pickBreakdownSubject selects the lowest-ID idle non-recovery vehicle
// located at the node.
func (e *Engine) pickBreakdownSubject(node string) string {
	for _, id := range e.vehicleIDs {
		v := e.Vehicles[id]
		if v.State == VehicleIdle && v.Location == node && v.Type.Role != scenario.RoleRecovery {
			return id
		}
	}
	return ""
}

// reportBreakdown creates the breakdown record, logs Reported, and attempts
// dispatch of a recovery vehicle.
func (e *Engine) reportBreakdown(node, vehicleID string) error {
	subject := e.Vehicles[vehicleID]
	b := &Breakdown{
		ID:        e.nextID("BRK"),
		VehicleID: vehicleID,
		Class:     subject.Type.Class,
		Node:      node,
		Reported:  e.Clock,
	}
	e.breakdowns[b.ID] = b
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindReported,
		EntityID:  b.ID,
		VehicleID: vehicleID,
		NodeID:    node,
	}); err != nil {
		return err
	}
	return e.dispatchRecovery(b)
}

func (e *Engine) dispatchRecovery(b *Breakdown) error {
	granted, err := e.Pool.RequestVehicle(e, &VehicleRequest{
		Role:     scenario.RoleRecovery,
		TowClass: b.Class,
		Origin:   b.Node,
		Start: func(e *Engine, v *Vehicle) error {
			return e.startRecovery(b, v)
		},
	})
	if err != nil {
		return err
	}
	if !granted {
		return e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemRecovery,
			Kind:      eventlog.KindWaitlisted,
			EntityID:  b.ID,
			NodeID:    b.Node,
		})
	}
	return nil
}

func (e *Engine) startRecovery(b *Breakdown, v *Vehicle) error {
	b.Recovery = v
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindDispatched,
		EntityID:  b.ID,
		VehicleID: v.ID,
		NodeID:    v.Location,
		Value:     e.Clock - b.Reported,
	}); err != nil {
		return err
	}
	travel, ok := e.Network.TravelTicks(v.Location, b.Node, v.Type.UnladenKmh)
	if !ok {
		return e.failBreakdown(b, v)
	}
	v.State = VehicleEnRoute
	return e.Schedule(&recoveryArrivalEvent{time: e.Clock + travel, b: b})
}

// failBreakdown records an unmet breakdown (unreachable scene). The broken
// vehicle stays Broken; the recovery vehicle returns to the pool.
func (e *Engine) failBreakdown(b *Breakdown, v *Vehicle) error {
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindUnmet,
		EntityID:  b.ID,
		NodeID:    b.Node,
	}); err != nil {
		return err
	}
	delete(e.breakdowns, b.ID)
	if v != nil {
		b.Recovery = nil
		return e.ReleaseVehicle(v)
	}
	return nil
}

type recoveryArrivalEvent struct {
	time int64
	b    *Breakdown
}

func (ev *recoveryArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *recoveryArrivalEvent) Execute(e *Engine) error {
	b, v := ev.b, ev.b.Recovery
	v.Location = b.Node
	v.State = VehicleServicing
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindArrivedScene,
		EntityID:  b.ID,
		VehicleID: v.ID,
		NodeID:    b.Node,
	}); err != nil {
		return err
	}
	return e.Schedule(&repairAttemptEvent{time: e.Clock + v.Type.RepairTicks(), b: b})
}

type repairAttemptEvent struct {
	time int64
	b    *Breakdown
}

func (ev *repairAttemptEvent) Timestamp() int64 { return ev.time }

func (ev *repairAttemptEvent) Execute(e *Engine) error {
	b, v := ev.b, ev.b.Recovery
	b.Attempts++
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindRepairAttempt,
		EntityID:  b.ID,
		VehicleID: v.ID,
		NodeID:    b.Node,
		Value:     int64(b.Attempts),
	}); err != nil {
		return err
	}

	if e.RNG.ForSubsystem(SubsystemRepairDraws).Float64() < v.Type.RepairSuccessProb {
		return e.finishRepair(b)
	}

	if b.Attempts >= v.Type.MaxRepairAttempts {
		return e.strandVehicle(b)
	}
	return e.Schedule(&repairAttemptEvent{time: e.Clock + v.Type.RetryTicks(), b: b})
}

// finishRepair returns both the recovery vehicle and the repaired vehicle to
// the idle pool.
func (e *Engine) finishRepair(b *Breakdown) error {
	v := b.Recovery
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindRepaired,
		EntityID:  b.ID,
		VehicleID: b.VehicleID,
		NodeID:    b.Node,
		Value:     e.Clock - b.Reported,
	}); err != nil {
		return err
	}
	delete(e.breakdowns, b.ID)
	b.Recovery = nil
	if err := e.ReleaseVehicle(v); err != nil {
		return err
	}
	repaired := e.Vehicles[b.VehicleID]
	return e.returnToService(repaired)
}

// strandVehicle marks the broken vehicle as a terminal loss after the retry
// cap is exhausted.
func (e *Engine) strandVehicle(b *Breakdown) error {
	v := b.Recovery
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemRecovery,
		Kind:      eventlog.KindStranded,
		EntityID:  b.ID,
		VehicleID: b.VehicleID,
		NodeID:    b.Node,
		Value:     int64(b.Attempts),
	}); err != nil {
		return err
	}
	e.Vehicles[b.VehicleID].State = VehicleStranded
	delete(e.breakdowns, b.ID)
	b.Recovery = nil
	return e.ReleaseVehicle(v)
}
