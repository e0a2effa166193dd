package cmd

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/fieldsim/fieldsim/sim"
	"github.com/fieldsim/fieldsim/sim/analysis"
	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

var (
	scenarioPath string  // Path to the scenario YAML
	outDir       string  // Directory for events.jsonl and kpis.yaml
	logLevel     string  // Log verbosity level
	seedOverride int64   // Overrides the scenario seed when >= 0
	horizonHours float64 // Overrides the scenario horizon when > 0
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "fieldsim",
	Short: "Discrete-event simulator for field logistics operations",
}

// runCmd executes one simulation run from a scenario file
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario and write the event log and KPIs",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		sc, err := scenario.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("unable to load scenario: %v", err)
		}
		if seedOverride >= 0 {
			sc.Config.Seed = seedOverride
		}
		if horizonHours > 0 {
			sc.Config.HorizonHours = horizonHours
		}

		logrus.Infof("Starting run: scenario=%s seed=%d horizon=%.1fh",
			scenarioPath, sc.Config.Seed, sc.Config.HorizonHours)
		startTime := time.Now()

		engine, err := sim.NewEngine(sc)
		if err != nil {
			logrus.Fatalf("unable to build engine: %v", err)
		}
		log, err := engine.Run()
		if err != nil {
			logrus.Fatalf("run failed: %v", err)
		}
		logrus.Infof("Run complete: %d log entries in %v", log.Len(), time.Since(startTime))

		report, err := analysis.Compute(log)
		if err != nil {
			logrus.Fatalf("KPI extraction failed: %v", err)
		}

		if err := os.MkdirAll(outDir, 0o755); err != nil {
			logrus.Fatalf("unable to create output dir %s: %v", outDir, err)
		}
		if err := writeEvents(filepath.Join(outDir, "events.jsonl"), log); err != nil {
			logrus.Fatalf("unable to write event log: %v", err)
		}
		if err := writeReport(filepath.Join(outDir, "kpis.yaml"), report); err != nil {
			logrus.Fatalf("unable to write KPI report: %v", err)
		}

		cmd.Print(report.Summary())
	},
}

// validateCmd checks a scenario file without running it
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a scenario file",
	Run: func(cmd *cobra.Command, args []string) {
		sc, err := scenario.LoadScenario(scenarioPath)
		if err != nil {
			logrus.Fatalf("scenario invalid: %v", err)
		}
		cmd.Printf("scenario ok: %d nodes, %d edges, %d vehicles\n",
			len(sc.Nodes), len(sc.Edges), len(sc.Vehicles))
	},
}

func writeEvents(path string, log *eventlog.Log) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return log.WriteJSONL(f)
}

func writeReport(path string, report *analysis.Report) error {
	data, err := yaml.Marshal(report)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "scenario.yaml", "Path to the scenario YAML file")
	runCmd.Flags().StringVarP(&outDir, "out", "o", "out", "Directory for events.jsonl and kpis.yaml")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().Int64Var(&seedOverride, "seed", -1, "Override the scenario seed (negative keeps the scenario value)")
	runCmd.Flags().Float64Var(&horizonHours, "horizon-hours", 0, "Override the run horizon in hours (0 keeps the scenario value)")

	validateCmd.Flags().StringVarP(&scenarioPath, "scenario", "s", "scenario.yaml", "Path to the scenario YAML file")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
