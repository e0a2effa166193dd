// Defines the runtime Vehicle owned exclusively by the engine during a run.
// Scenario fleet definitions are immutable; all mutable per-run state lives
// here and is mutated only by workflow steps within the event loop.

package sim

import (
	"fmt"

	"github.com/fieldsim/fieldsim/sim/scenario"
)

// VehicleState is the operational state of a vehicle during a run.
type VehicleState string

const (
	VehicleIdle        VehicleState = "idle"
	VehicleEnRoute     VehicleState = "en_route"
	VehicleServicing   VehicleState = "servicing"
	VehicleFatigued    VehicleState = "fatigued"
	VehicleMaintenance VehicleState = "maintenance"
	VehicleBroken      VehicleState = "broken"
	VehicleStranded    VehicleState = "stranded"
)

// Vehicle is the runtime state of one fleet member.
type Vehicle struct {
	ID       string
	Callsign string
	Type     *scenario.VehicleType
	Home     string

	// Location is the current node; while en-route it is the departure node
	// until the arrival event fires.
	Location string
	State    VehicleState

	// DutyTicks accumulates busy time across assignments for the crew
	// fatigue modifier.
	DutyTicks int64
	Missions  int

	busySince          int64
	fatiguePending     bool
	breakdownPending   bool
	maintenancePending bool
}

// Busy reports whether the vehicle is on an assignment. A vehicle is in at
// most one active workflow step at any instant.
func (v *Vehicle) Busy() bool {
	return v.State == VehicleEnRoute || v.State == VehicleServicing
}

func (v *Vehicle) String() string {
	return fmt.Sprintf("Vehicle(%s %s/%s state=%s at=%s duty=%d)",
		v.ID, v.Type.Role, v.Type.Class, v.State, v.Location, v.DutyTicks)
}
