// Extended-operations modifiers: crew fatigue, stochastic vehicle breakdowns
// and scheduled maintenance windows. All are disabled by default and schedule
// nothing when off.

package sim

import (
	"math"

	"github.com/sirupsen/logrus"

	"github.com/fieldsim/fieldsim/sim/eventlog"
)

// fatigueCrossingEvent fires when a vehicle's accumulated duty time is
// projected to cross the fatigue threshold mid-assignment. The projection is
// made at assignment start, so by the time the event fires the vehicle may
// already have been released and rested; the event re-checks before acting.
type fatigueCrossingEvent struct {
	time      int64
	vehicleID string
}

func (ev *fatigueCrossingEvent) Timestamp() int64 { return ev.time }

func (ev *fatigueCrossingEvent) Execute(e *Engine) error {
	if !e.Scenario.Config.EnableFatigue {
		return nil
	}
	v, ok := e.Vehicles[ev.vehicleID]
	if !ok {
		return nil
	}
	switch v.State {
	case VehicleFatigued, VehicleMaintenance, VehicleBroken, VehicleStranded:
		return nil
	}

	duty := v.DutyTicks
	if v.Busy() {
		duty += e.Clock - v.busySince
	}
	if duty < e.Scenario.Config.FatigueThresholdTicks() {
		// Released early and the running total reset the projection;
		// a fresh crossing event was scheduled at the next assignment.
		return nil
	}

	if v.Busy() {
		// Finish the current assignment; ReleaseVehicle sends the crew
		// to rest instead of back into the pool.
		if v.fatiguePending {
			return nil
		}
		v.fatiguePending = true
		return e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemFleet,
			Kind:      eventlog.KindFatigued,
			VehicleID: v.ID,
			NodeID:    v.Location,
			Value:     duty,
		})
	}

	v.State = VehicleFatigued
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemFleet,
		Kind:      eventlog.KindFatigued,
		VehicleID: v.ID,
		NodeID:    v.Location,
		Value:     duty,
	}); err != nil {
		return err
	}
	logrus.WithFields(logrus.Fields{"vehicle": v.ID, "duty_ticks": duty}).Debug("crew fatigued")
	return e.Schedule(&restCompleteEvent{
		time:      e.Clock + e.Scenario.Config.RestTicks(),
		vehicleID: v.ID,
	})
}

// restCompleteEvent returns a rested crew to service.
type restCompleteEvent struct {
	time      int64
	vehicleID string
}

func (ev *restCompleteEvent) Timestamp() int64 { return ev.time }

func (ev *restCompleteEvent) Execute(e *Engine) error {
	v, ok := e.Vehicles[ev.vehicleID]
	if !ok || v.State != VehicleFatigued {
		return nil
	}
	v.DutyTicks = 0
	v.fatiguePending = false
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemFleet,
		Kind:      eventlog.KindRested,
		VehicleID: v.ID,
		NodeID:    v.Location,
	}); err != nil {
		return err
	}
	return e.returnToService(v)
}

// breakdownDrawEvent is one exponential failure draw for one vehicle. On
// firing it breaks the vehicle if possible and always schedules the next
// draw, so each vehicle consumes its slice of the breakdown stream in a
// fixed order regardless of what the draws hit.
type breakdownDrawEvent struct {
	time      int64
	vehicleID string
}

func (ev *breakdownDrawEvent) Timestamp() int64 { return ev.time }

func (ev *breakdownDrawEvent) Execute(e *Engine) error {
	v, ok := e.Vehicles[ev.vehicleID]
	if ok {
		switch v.State {
		case VehicleIdle:
			if err := e.breakVehicle(v); err != nil {
				return err
			}
		case VehicleEnRoute, VehicleServicing:
			v.breakdownPending = true
		}
	}
	return e.scheduleBreakdownDraw(ev.vehicleID)
}

// setupBreakdownDraws seeds one draw per vehicle, in ID order so the stream
// is consumed deterministically.
func (e *Engine) setupBreakdownDraws() error {
	for _, id := range e.vehicleIDs {
		if err := e.scheduleBreakdownDraw(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scheduleBreakdownDraw(vehicleID string) error {
	rng := e.RNG.ForSubsystem(SubsystemBreakdowns)
	gap := int64(math.Round(rng.ExpFloat64() * float64(e.Scenario.Config.MTBFTicks())))
	at := e.Clock + gap
	if at > e.Horizon {
		return nil
	}
	return e.Schedule(&breakdownDrawEvent{time: at, vehicleID: vehicleID})
}

// setupMaintenance schedules the first service window per vehicle, in ID
// order. Windows are fixed offsets; no RNG stream is consumed.
func (e *Engine) setupMaintenance() error {
	for _, id := range e.vehicleIDs {
		if err := e.scheduleMaintenanceDue(id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) scheduleMaintenanceDue(vehicleID string) error {
	at := e.Clock + e.Scenario.Config.MaintenanceIntervalTicks()
	if at > e.Horizon {
		return nil
	}
	return e.Schedule(&maintenanceDueEvent{time: at, vehicleID: vehicleID})
}

// maintenanceDueEvent marks a vehicle due for its periodic service window.
// A vehicle that is on assignment, resting or broken is flagged and enters
// the window when it next comes free; a stranded vehicle never does.
type maintenanceDueEvent struct {
	time      int64
	vehicleID string
}

func (ev *maintenanceDueEvent) Timestamp() int64 { return ev.time }

func (ev *maintenanceDueEvent) Execute(e *Engine) error {
	if !e.Scenario.Config.EnableMaintenance {
		return nil
	}
	v, ok := e.Vehicles[ev.vehicleID]
	if !ok {
		return nil
	}
	switch v.State {
	case VehicleIdle:
		return e.startMaintenance(v)
	case VehicleStranded, VehicleMaintenance:
		return nil
	default:
		v.maintenancePending = true
		return nil
	}
}

// startMaintenance pulls an idle vehicle out of the free pool for its
// service window. The vehicle moves to the nearest workshop and queues on
// one of its repair bays; with no workshop reachable it is serviced in place.
func (e *Engine) startMaintenance(v *Vehicle) error {
	v.maintenancePending = false
	v.State = VehicleMaintenance
	workshop := e.Network.NearestWorkshop(v.Location)
	if workshop == "" || workshop == v.Location {
		return e.enterMaintenanceBay(v, v.Location)
	}
	travel, ok := e.Network.TravelTicks(v.Location, workshop, v.Type.UnladenKmh)
	if !ok {
		return e.enterMaintenanceBay(v, v.Location)
	}
	return e.Schedule(&maintenanceArrivalEvent{time: e.Clock + travel, vehicleID: v.ID, node: workshop})
}

type maintenanceArrivalEvent struct {
	time      int64
	vehicleID string
	node      string
}

func (ev *maintenanceArrivalEvent) Timestamp() int64 { return ev.time }

func (ev *maintenanceArrivalEvent) Execute(e *Engine) error {
	v, ok := e.Vehicles[ev.vehicleID]
	if !ok || v.State != VehicleMaintenance {
		return nil
	}
	return e.enterMaintenanceBay(v, ev.node)
}

// enterMaintenanceBay queues the vehicle on the node's repair bays. The
// window starts when a bay is granted; nodes without repair bays service
// the vehicle immediately.
func (e *Engine) enterMaintenanceBay(v *Vehicle, node string) error {
	v.Location = node
	return e.Pool.AcquireBay(e, node, BayRepair, func(e *Engine) error {
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemFleet,
			Kind:      eventlog.KindMaintenanceStarted,
			VehicleID: v.ID,
			NodeID:    node,
		}); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{"vehicle": v.ID, "node": node}).Debug("maintenance window opened")
		return e.Schedule(&maintenanceDoneEvent{
			time:      e.Clock + e.Scenario.Config.MaintenanceDurationTicks(),
			vehicleID: v.ID,
			node:      node,
		})
	})
}

// maintenanceDoneEvent closes a service window: the bay is released, any
// pending fault is considered fixed, and the next window is scheduled
// relative to completion.
type maintenanceDoneEvent struct {
	time      int64
	vehicleID string
	node      string
}

func (ev *maintenanceDoneEvent) Timestamp() int64 { return ev.time }

func (ev *maintenanceDoneEvent) Execute(e *Engine) error {
	v, ok := e.Vehicles[ev.vehicleID]
	if !ok || v.State != VehicleMaintenance {
		return nil
	}
	if err := e.Pool.ReleaseBay(e, ev.node, BayRepair); err != nil {
		return err
	}
	v.breakdownPending = false
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemFleet,
		Kind:      eventlog.KindMaintenanceDone,
		VehicleID: v.ID,
		NodeID:    ev.node,
	}); err != nil {
		return err
	}
	if err := e.scheduleMaintenanceDue(v.ID); err != nil {
		return err
	}
	return e.returnToService(v)
}
