package sim

import (
	"testing"

	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// testScenario builds the standard four-node fixture used across the engine
// tests:
//
//	base (combat) --30km-- hosp (medical, 1 bay)
//	base --15km-- depot (supply)
//	wksp (workshop) --10km-- depot
//
// All vehicles move at 60 km/h so distances map 1:1 to minutes.
func testScenario() *scenario.Scenario {
	return &scenario.Scenario{
		Config: scenario.Config{Seed: 42, HorizonHours: 24},
		Nodes: []scenario.Node{
			{ID: "base", Type: scenario.NodeCombat},
			{ID: "hosp", Type: scenario.NodeMedical,
				Capacity:          scenario.Capacity{TreatmentBays: 1},
				TreatmentTimeMins: 30},
			{ID: "depot", Type: scenario.NodeSupply},
			{ID: "wksp", Type: scenario.NodeWorkshop,
				Capacity: scenario.Capacity{RepairBays: 1}},
		},
		Edges: []scenario.Edge{
			{From: "base", To: "hosp", DistanceKm: 30},
			{From: "base", To: "depot", DistanceKm: 15},
			{From: "wksp", To: "depot", DistanceKm: 10},
		},
		VehicleTypes: []scenario.VehicleType{
			{ID: "amb", Class: scenario.ClassLight, Role: scenario.RoleAmbulance,
				UnladenKmh: 60, LadenKmh: 60,
				LoadTimeMins: 10, UnloadTimeMins: 5},
			{ID: "wrecker", Class: scenario.ClassHeavy, Role: scenario.RoleRecovery,
				UnladenKmh: 60, LadenKmh: 60,
				RepairTimeMins: 20, RepairSuccessProb: 1.0,
				MaxRepairAttempts: 3, RetryDelayMins: 15},
			{ID: "truck", Class: scenario.ClassMedium, Role: scenario.RoleResupply,
				UnladenKmh: 60, LadenKmh: 60,
				LoadTimeMins: 15, UnloadTimeMins: 10, CargoCapacity: 100},
		},
		Vehicles: []scenario.Vehicle{
			{ID: "AMB-1", TypeID: "amb", Home: "hosp"},
			{ID: "REC-1", TypeID: "wrecker", Home: "wksp"},
			{ID: "TRK-1", TypeID: "truck", Home: "depot"},
		},
		Demand: scenario.DemandSpec{Mode: scenario.ModeManual},
	}
}

func mustEngine(t *testing.T, sc *scenario.Scenario) *Engine {
	t.Helper()
	if err := sc.Validate(); err != nil {
		t.Fatalf("fixture scenario invalid: %v", err)
	}
	e, err := NewEngine(sc)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return e
}

func mustRun(t *testing.T, sc *scenario.Scenario) *eventlog.Log {
	t.Helper()
	log, err := mustEngine(t, sc).Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return log
}

// findEntries filters the log by kind.
func findEntries(log *eventlog.Log, kind eventlog.Kind) []eventlog.Entry {
	var out []eventlog.Entry
	for _, en := range log.Entries() {
		if en.Kind == kind {
			out = append(out, en)
		}
	}
	return out
}

func findOne(t *testing.T, log *eventlog.Log, kind eventlog.Kind) eventlog.Entry {
	t.Helper()
	matches := findEntries(log, kind)
	if len(matches) != 1 {
		t.Fatalf("expected exactly one %q entry, got %d", kind, len(matches))
	}
	return matches[0]
}
