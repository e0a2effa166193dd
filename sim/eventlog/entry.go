// Package eventlog provides the append-only simulation event log. It stores
// pure data types and has no dependency on the engine, so stored logs can be
// re-analysed offline without re-simulating.
package eventlog

// Subsystem scopes a log entry to one operational workflow.
type Subsystem string

const (
	SubsystemCasevac  Subsystem = "casevac"
	SubsystemRecovery Subsystem = "recovery"
	SubsystemResupply Subsystem = "resupply"
	SubsystemFleet    Subsystem = "fleet"
	SubsystemSystem   Subsystem = "system"
)

// Kind identifies the state transition an entry records.
type Kind string

const (
	// System lifecycle
	KindRunStarted Kind = "run_started"
	KindRunEnded   Kind = "run_ended"

	// Demand and dispatch
	KindReported   Kind = "reported"
	KindWaitlisted Kind = "waitlisted"
	KindDispatched Kind = "dispatched"

	// Movement and service
	KindArrivedScene    Kind = "arrived_scene"
	KindSceneDeparted   Kind = "scene_departed"
	KindArrivedFacility Kind = "arrived_facility"

	// CASEVAC terminal chain
	KindHandoff          Kind = "handoff"
	KindTreatmentStarted Kind = "treatment_started"
	KindTreated          Kind = "treated"

	// Recovery
	KindRepairAttempt Kind = "repair_attempt"
	KindRepaired      Kind = "repaired"
	KindStranded      Kind = "stranded"

	// Resupply
	KindLoadingStarted Kind = "loading_started"
	KindLoaded         Kind = "loaded"
	KindDelivered      Kind = "delivered"
	KindStockout       Kind = "stockout"

	// Fleet availability
	KindVehicleReleased Kind = "vehicle_released"
	KindVehicleBroken   Kind = "vehicle_broken"
	KindFatigued        Kind = "fatigued"
	KindRested          Kind = "rested"

	// Scheduled maintenance windows
	KindMaintenanceStarted Kind = "maintenance_started"
	KindMaintenanceDone    Kind = "maintenance_completed"

	// Demand that could not reach a terminal state
	KindUnmet        Kind = "unmet"
	KindOpenAtCutoff Kind = "open_at_cutoff"
)

// Entry is one immutable record of a state transition. Value carries the
// entry's single numeric payload: a duration in ticks for handoff/delivery
// style entries, a quantity for resupply entries, an attempt index for
// repair attempts.
type Entry struct {
	Time      int64     `json:"t"`
	Seq       int64     `json:"seq"`
	Subsystem Subsystem `json:"subsystem"`
	Kind      Kind      `json:"kind"`
	EntityID  string    `json:"entity_id,omitempty"`
	VehicleID string    `json:"vehicle_id,omitempty"`
	NodeID    string    `json:"node_id,omitempty"`
	Value     int64     `json:"value,omitempty"`
}
