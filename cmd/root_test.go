package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fieldsim/fieldsim/sim/eventlog"
)

const testScenarioYAML = `
config:
  seed: 11
  horizon_hours: 8
nodes:
  - {id: fob, type: combat}
  - {id: med, type: medical, capacity: {treatment_bays: 1}, treatment_time_mins: 30}
edges:
  - {from: fob, to: med, distance_km: 30}
vehicle_types:
  - id: amb
    class: light
    role: ambulance
    unladen_kmh: 60
    laden_kmh: 60
    load_time_mins: 10
    unload_time_mins: 5
vehicles:
  - {id: A1, type_id: amb, home: med}
demand:
  mode: manual
  manual:
    - {time_mins: 0, type: casualty, location: fob, priority: 1}
`

func writeTestScenario(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(testScenarioYAML), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("Execute(%v): %v", args, err)
	}
	return out.String()
}

// TestRunCommand_WritesArtifacts drives the CLI end to end and checks both
// output files plus the printed summary.
func TestRunCommand_WritesArtifacts(t *testing.T) {
	scenarioFile := writeTestScenario(t)
	outDir := filepath.Join(t.TempDir(), "out")

	summary := execute(t, "run", "-s", scenarioFile, "-o", outDir)
	if !strings.Contains(summary, "casevac") {
		t.Errorf("summary missing casevac line:\n%s", summary)
	}
	if !strings.Contains(summary, "1 reported, 1 completed") {
		t.Errorf("summary missing completion counts:\n%s", summary)
	}

	f, err := os.Open(filepath.Join(outDir, "events.jsonl"))
	if err != nil {
		t.Fatalf("events.jsonl missing: %v", err)
	}
	defer f.Close()
	log, err := eventlog.ReadJSONL(f)
	if err != nil {
		t.Fatalf("events.jsonl unreadable: %v", err)
	}
	if log.Len() == 0 {
		t.Fatal("events.jsonl is empty")
	}

	kpis, err := os.ReadFile(filepath.Join(outDir, "kpis.yaml"))
	if err != nil {
		t.Fatalf("kpis.yaml missing: %v", err)
	}
	if !strings.Contains(string(kpis), "response_time") {
		t.Errorf("kpis.yaml missing response_time section:\n%s", kpis)
	}
}

// TestRunCommand_SeedOverride verifies the --seed flag overrides the
// scenario seed in the run record.
func TestRunCommand_SeedOverride(t *testing.T) {
	scenarioFile := writeTestScenario(t)
	outDir := filepath.Join(t.TempDir(), "out")

	execute(t, "run", "-s", scenarioFile, "-o", outDir, "--seed", "777")

	f, err := os.Open(filepath.Join(outDir, "events.jsonl"))
	if err != nil {
		t.Fatalf("events.jsonl missing: %v", err)
	}
	defer f.Close()
	log, err := eventlog.ReadJSONL(f)
	if err != nil {
		t.Fatalf("events.jsonl unreadable: %v", err)
	}
	started := log.Entries()[0]
	if started.Kind != eventlog.KindRunStarted || started.Value != 777 {
		t.Errorf("run_started = %+v, want seed 777 recorded", started)
	}
}

func TestValidateCommand_AcceptsScenario(t *testing.T) {
	scenarioFile := writeTestScenario(t)
	out := execute(t, "validate", "-s", scenarioFile)
	if !strings.Contains(out, "scenario ok") {
		t.Errorf("validate output = %q", out)
	}
}
