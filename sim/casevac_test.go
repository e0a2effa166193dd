package sim

import (
	"testing"

	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// TestCasevac_SingleCasualtyTimeline walks one casualty through the whole
// evacuation chain and checks every transition time.
//
// Given: a casualty at base at t=0, one ambulance idle at hosp 30 km away,
// all speeds 60 km/h
// When: the run completes
// Then: dispatch t=0, on scene t=1800, depart t=2400 (10 min load), at
// facility t=4200, handoff t=4500 (5 min unload), treated t=6300 (30 min)
func TestCasevac_SingleCasualtyTimeline(t *testing.T) {
	sc := testScenario()
	sc.Demand.Manual = []scenario.DemandEvent{
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base", Priority: 1},
	}
	log := mustRun(t, sc)

	steps := []struct {
		kind eventlog.Kind
		time int64
	}{
		{eventlog.KindReported, 0},
		{eventlog.KindDispatched, 0},
		{eventlog.KindArrivedScene, 1800},
		{eventlog.KindSceneDeparted, 2400},
		{eventlog.KindArrivedFacility, 4200},
		{eventlog.KindHandoff, 4500},
		{eventlog.KindTreatmentStarted, 4500},
		{eventlog.KindTreated, 6300},
	}
	for _, step := range steps {
		en := findOne(t, log, step.kind)
		if en.Time != step.time {
			t.Errorf("%s at t=%d, want t=%d", step.kind, en.Time, step.time)
		}
		if en.EntityID != "CAS-0001" {
			t.Errorf("%s entity = %q, want CAS-0001", step.kind, en.EntityID)
		}
	}

	handoff := findOne(t, log, eventlog.KindHandoff)
	if handoff.Value != 4500 {
		t.Errorf("handoff response time = %d ticks, want 4500", handoff.Value)
	}
	if handoff.NodeID != "hosp" {
		t.Errorf("handoff facility = %q, want hosp", handoff.NodeID)
	}
	reported := findOne(t, log, eventlog.KindReported)
	if reported.Value != 1 {
		t.Errorf("reported priority = %d, want 1", reported.Value)
	}
	if n := len(findEntries(log, eventlog.KindOpenAtCutoff)); n != 0 {
		t.Errorf("open_at_cutoff entries = %d, want 0 for a completed run", n)
	}
}

// TestCasevac_SecondCasualtyWaits verifies FIFO vehicle contention: with one
// ambulance, the second casualty is waitlisted until the handoff releases it.
func TestCasevac_SecondCasualtyWaits(t *testing.T) {
	sc := testScenario()
	sc.Demand.Manual = []scenario.DemandEvent{
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base"},
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base"},
	}
	log := mustRun(t, sc)

	waitlisted := findOne(t, log, eventlog.KindWaitlisted)
	if waitlisted.EntityID != "CAS-0002" || waitlisted.Time != 0 {
		t.Fatalf("waitlisted = %+v, want CAS-0002 at t=0", waitlisted)
	}

	// The ambulance frees at the first handoff (t=4500) and is re-dispatched
	// in the same instant.
	var second []eventlog.Entry
	for _, en := range findEntries(log, eventlog.KindDispatched) {
		if en.EntityID == "CAS-0002" {
			second = append(second, en)
		}
	}
	if len(second) != 1 {
		t.Fatalf("CAS-0002 dispatched %d times, want 1", len(second))
	}
	if second[0].Time != 4500 {
		t.Errorf("CAS-0002 dispatched at t=%d, want 4500", second[0].Time)
	}
	if second[0].Value != 4500 {
		t.Errorf("CAS-0002 dispatch wait = %d ticks, want 4500", second[0].Value)
	}

	treated := findEntries(log, eventlog.KindTreated)
	if len(treated) != 2 {
		t.Fatalf("treated entries = %d, want both casualties treated", len(treated))
	}
}

// TestCasevac_QuantityExpansion verifies a manual event with quantity N
// reports N distinct casualties.
func TestCasevac_QuantityExpansion(t *testing.T) {
	sc := testScenario()
	sc.Demand.Manual = []scenario.DemandEvent{
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base", Quantity: 3},
	}
	log := mustRun(t, sc)

	reported := findEntries(log, eventlog.KindReported)
	if len(reported) != 3 {
		t.Fatalf("reported entries = %d, want 3", len(reported))
	}
	seen := map[string]bool{}
	for _, en := range reported {
		seen[en.EntityID] = true
	}
	if len(seen) != 3 {
		t.Errorf("distinct casualty IDs = %d, want 3", len(seen))
	}
}

// TestCasevac_NoReachableFacility verifies a casualty with no medical node
// reachable is logged unmet, not treated as an error.
func TestCasevac_NoReachableFacility(t *testing.T) {
	sc := testScenario()
	// Strip hosp's bays so no node qualifies as a treatment facility.
	for i := range sc.Nodes {
		sc.Nodes[i].Capacity.TreatmentBays = 0
	}
	sc.Demand.Manual = []scenario.DemandEvent{
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base"},
	}
	log := mustRun(t, sc)

	unmet := findOne(t, log, eventlog.KindUnmet)
	if unmet.EntityID != "CAS-0001" {
		t.Errorf("unmet entity = %q, want CAS-0001", unmet.EntityID)
	}
	if n := len(findEntries(log, eventlog.KindHandoff)); n != 0 {
		t.Errorf("handoff entries = %d, want 0", n)
	}
	// The ambulance must return to the pool, not leak.
	if n := len(findEntries(log, eventlog.KindVehicleReleased)); n != 1 {
		t.Errorf("vehicle_released entries = %d, want 1", n)
	}
}
