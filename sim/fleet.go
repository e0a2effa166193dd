// Vehicle lifecycle within the engine: assignment, release, and return to
// service. Release is the single funnel through which every workflow hands a
// vehicle back, so duty accounting, pending breakdowns and fatigue all hook
// in here.

package sim

import (
	"github.com/fieldsim/fieldsim/sim/eventlog"
)

// assignVehicle marks a vehicle as entering an assignment. Fatigue crossing
// is scheduled from the current accumulated duty so exclusion happens at the
// threshold instant, independent of the in-flight assignment.
func (e *Engine) assignVehicle(v *Vehicle) error {
	v.busySince = e.Clock
	if e.Scenario.Config.EnableFatigue && !v.fatiguePending {
		remaining := e.Scenario.Config.FatigueThresholdTicks() - v.DutyTicks
		if remaining > 0 {
			return e.Schedule(&fatigueCrossingEvent{time: e.Clock + remaining, vehicleID: v.ID})
		}
	}
	return nil
}

// ReleaseVehicle ends a vehicle's assignment at its current location. The
// vehicle returns to the free pool unless a pending breakdown or fatigue
// intercepts it. Every released vehicle is offered to its role's wait-list.
func (e *Engine) ReleaseVehicle(v *Vehicle) error {
	span := e.Clock - v.busySince
	v.DutyTicks += span
	v.Missions++
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemFleet,
		Kind:      eventlog.KindVehicleReleased,
		VehicleID: v.ID,
		NodeID:    v.Location,
		Value:     span,
	}); err != nil {
		return err
	}

	if v.breakdownPending {
		v.breakdownPending = false
		return e.breakVehicle(v)
	}

	if e.Scenario.Config.EnableFatigue {
		crossed := v.DutyTicks >= e.Scenario.Config.FatigueThresholdTicks()
		if v.fatiguePending || crossed {
			// The crossing event already logged the transition when it fired
			// mid-assignment; only an un-flagged crossing logs here.
			if !v.fatiguePending {
				if err := e.logEntry(eventlog.Entry{
					Subsystem: eventlog.SubsystemFleet,
					Kind:      eventlog.KindFatigued,
					VehicleID: v.ID,
					NodeID:    v.Location,
					Value:     v.DutyTicks,
				}); err != nil {
					return err
				}
			}
			v.fatiguePending = false
			v.State = VehicleFatigued
			return e.Schedule(&restCompleteEvent{
				time:      e.Clock + e.Scenario.Config.RestTicks(),
				vehicleID: v.ID,
			})
		}
	}

	if v.maintenancePending {
		return e.startMaintenance(v)
	}

	v.State = VehicleIdle
	return e.Pool.serveWaiters(e, v)
}

// returnToService puts a repaired, rested or serviced vehicle back in the
// free pool and offers it to waiting demand. A vehicle that came due for
// maintenance while out of service enters its window first.
func (e *Engine) returnToService(v *Vehicle) error {
	if v.maintenancePending {
		return e.startMaintenance(v)
	}
	v.State = VehicleIdle
	return e.Pool.serveWaiters(e, v)
}

// breakVehicle transitions a vehicle to Broken and raises the synthetic
// recovery demand for it.
func (e *Engine) breakVehicle(v *Vehicle) error {
	v.State = VehicleBroken
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemFleet,
		Kind:      eventlog.KindVehicleBroken,
		VehicleID: v.ID,
		NodeID:    v.Location,
	}); err != nil {
		return err
	}
	return e.reportBreakdown(v.Location, v.ID)
}
