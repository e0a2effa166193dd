package sim

import (
	"errors"
	"testing"

	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// recordingEvent appends its tag to a shared slice when executed.
type recordingEvent struct {
	time int64
	tag  string
	out  *[]string
}

func (e *recordingEvent) Timestamp() int64 { return e.time }

func (e *recordingEvent) Execute(*Engine) error {
	*e.out = append(*e.out, e.tag)
	return nil
}

// TestRun_ExecutesInTimeOrder verifies events fire by ascending timestamp
// regardless of scheduling order.
func TestRun_ExecutesInTimeOrder(t *testing.T) {
	e := mustEngine(t, testScenario())
	var got []string
	for _, ev := range []*recordingEvent{
		{time: 300, tag: "c", out: &got},
		{time: 100, tag: "a", out: &got},
		{time: 200, tag: "b", out: &got},
	} {
		if err := e.Schedule(ev); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("execution order = %v, want %v", got, want)
		}
	}
}

// TestRun_SameTimeFIFO verifies same-timestamp events execute in insertion
// order, the engine's tie-break guarantee.
func TestRun_SameTimeFIFO(t *testing.T) {
	e := mustEngine(t, testScenario())
	var got []string
	for _, tag := range []string{"first", "second", "third"} {
		if err := e.Schedule(&recordingEvent{time: 500, tag: tag, out: &got}); err != nil {
			t.Fatalf("Schedule: %v", err)
		}
	}
	if _, err := e.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got[0] != "first" || got[1] != "second" || got[2] != "third" {
		t.Fatalf("same-time execution order = %v, want insertion order", got)
	}
}

// TestSchedule_PastTimeFails verifies scheduling before the current clock is
// rejected with InvalidTimeError.
func TestSchedule_PastTimeFails(t *testing.T) {
	e := mustEngine(t, testScenario())
	e.Clock = 1000

	var out []string
	err := e.Schedule(&recordingEvent{time: 999, tag: "late", out: &out})
	var ite *InvalidTimeError
	if !errors.As(err, &ite) {
		t.Fatalf("Schedule into the past = %v, want InvalidTimeError", err)
	}
	if ite.Op != "schedule" || ite.At != 999 || ite.Clock != 1000 {
		t.Errorf("InvalidTimeError = %+v, want op=schedule at=999 clock=1000", ite)
	}
}

// TestRun_HorizonCutoff verifies events past the horizon are discarded and
// in-flight work is marked open_at_cutoff.
//
// Given: a 1-hour horizon and a casualty reported at t=0 whose evacuation
// chain extends past 3600 ticks
// When: the run completes
// Then: no entry after t=3600 except the cutoff markers, and the casualty
// plus its busy ambulance are both marked open
func TestRun_HorizonCutoff(t *testing.T) {
	sc := testScenario()
	sc.Config.HorizonHours = 1
	sc.Demand.Manual = []scenario.DemandEvent{
		{TimeMins: 0, Type: scenario.DemandCasualty, Location: "base"},
	}
	log := mustRun(t, sc)

	for _, en := range log.Entries() {
		if en.Time > 3600 {
			t.Fatalf("entry %+v past the 3600-tick horizon", en)
		}
	}
	if n := len(findEntries(log, eventlog.KindHandoff)); n != 0 {
		t.Fatalf("handoff fired despite horizon, got %d", n)
	}
	open := findEntries(log, eventlog.KindOpenAtCutoff)
	if len(open) != 2 {
		t.Fatalf("open_at_cutoff entries = %d, want 2 (casualty + busy vehicle)", len(open))
	}
	if open[0].EntityID != "CAS-0001" {
		t.Errorf("first open marker entity = %q, want CAS-0001", open[0].EntityID)
	}
	if open[1].VehicleID != "AMB-1" {
		t.Errorf("second open marker vehicle = %q, want AMB-1", open[1].VehicleID)
	}
	ended := findOne(t, log, eventlog.KindRunEnded)
	if ended.Time != 3600 {
		t.Errorf("run_ended at t=%d, want 3600", ended.Time)
	}
}

// TestRun_EmptyDemand verifies a demand-free run produces only the lifecycle
// entries.
func TestRun_EmptyDemand(t *testing.T) {
	log := mustRun(t, testScenario())
	if log.Len() != 2 {
		t.Fatalf("log length = %d, want 2 (run_started, run_ended)", log.Len())
	}
	if log.Entries()[0].Kind != eventlog.KindRunStarted {
		t.Errorf("first entry kind = %q", log.Entries()[0].Kind)
	}
	if log.Entries()[1].Kind != eventlog.KindRunEnded {
		t.Errorf("last entry kind = %q", log.Entries()[1].Kind)
	}
}

// TestNextID_SequentialPerPrefix verifies entity IDs count independently per
// prefix.
func TestNextID_SequentialPerPrefix(t *testing.T) {
	e := mustEngine(t, testScenario())
	if id := e.nextID("CAS"); id != "CAS-0001" {
		t.Errorf("first CAS id = %q", id)
	}
	if id := e.nextID("CAS"); id != "CAS-0002" {
		t.Errorf("second CAS id = %q", id)
	}
	if id := e.nextID("REQ"); id != "REQ-0001" {
		t.Errorf("first REQ id = %q, prefixes must count independently", id)
	}
}

// TestNewEngine_UnknownVehicleType verifies construction fails fast on a
// dangling type reference.
func TestNewEngine_UnknownVehicleType(t *testing.T) {
	sc := testScenario()
	sc.Vehicles = append(sc.Vehicles, scenario.Vehicle{ID: "X-1", TypeID: "nope", Home: "base"})
	if _, err := NewEngine(sc); err == nil {
		t.Fatal("NewEngine accepted a vehicle with an unknown type")
	}
}
