// Package analysis extracts run KPIs from an event log. It operates purely
// on the recorded entries, so a log written to disk and read back yields the
// same report as the in-memory log it came from.
package analysis

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/fieldsim/fieldsim/sim/eventlog"
)

// DurationStats summarises a set of tick durations.
type DurationStats struct {
	Count  int     `yaml:"count"`
	Mean   float64 `yaml:"mean_ticks"`
	Median float64 `yaml:"median_ticks"`
	P90    float64 `yaml:"p90_ticks"`
	Max    int64   `yaml:"max_ticks"`
}

// CasevacReport covers the casualty evacuation workflow.
type CasevacReport struct {
	Reported     int           `yaml:"reported"`
	Completed    int           `yaml:"completed"`
	Unmet        int           `yaml:"unmet"`
	OpenAtCutoff int           `yaml:"open_at_cutoff"`
	ResponseTime DurationStats `yaml:"response_time"`
}

// RecoveryReport covers vehicle recovery and repair.
type RecoveryReport struct {
	Reported     int           `yaml:"reported"`
	Repaired     int           `yaml:"repaired"`
	Stranded     int           `yaml:"stranded"`
	Unmet        int           `yaml:"unmet"`
	OpenAtCutoff int           `yaml:"open_at_cutoff"`
	Downtime     DurationStats `yaml:"downtime"`
}

// ResupplyReport covers supply requests.
type ResupplyReport struct {
	Reported          int           `yaml:"reported"`
	Delivered         int           `yaml:"delivered"`
	QuantityRequested int64         `yaml:"quantity_requested"`
	QuantityDelivered int64         `yaml:"quantity_delivered"`
	Stockouts         int           `yaml:"stockouts"`
	Unmet             int           `yaml:"unmet"`
	OpenAtCutoff      int           `yaml:"open_at_cutoff"`
	CycleTime         DurationStats `yaml:"cycle_time"`
}

// VehicleReport is one vehicle's share of the run.
type VehicleReport struct {
	VehicleID   string  `yaml:"vehicle_id"`
	BusyTicks   int64   `yaml:"busy_ticks"`
	Missions    int     `yaml:"missions"`
	Utilisation float64 `yaml:"utilisation"`
	Breakdowns  int     `yaml:"breakdowns"`
	RestPeriods int     `yaml:"rest_periods"`
	Maintenance int     `yaml:"maintenance_windows"`
}

// FleetReport aggregates vehicle activity.
type FleetReport struct {
	Vehicles        []VehicleReport `yaml:"vehicles"`
	MeanUtilisation float64         `yaml:"mean_utilisation"`
	Breakdowns      int             `yaml:"breakdowns"`
	FatigueEpisodes int             `yaml:"fatigue_episodes"`
	Maintenance     int             `yaml:"maintenance_windows"`
}

// Report is the full KPI extract of one run.
type Report struct {
	EndTicks int64          `yaml:"end_ticks"`
	Casevac  CasevacReport  `yaml:"casevac"`
	Recovery RecoveryReport `yaml:"recovery"`
	Resupply ResupplyReport `yaml:"resupply"`
	Fleet    FleetReport    `yaml:"fleet"`
}

// Compute builds a Report from a finished run's log. The log is validated
// first; a malformed log yields a MalformedLogError and no report.
func Compute(l *eventlog.Log) (*Report, error) {
	if err := l.Validate(); err != nil {
		return nil, err
	}
	entries := l.Entries()

	r := &Report{}
	var responseTimes, downtimes, cycleTimes []float64
	resupplyReportedAt := map[string]int64{}
	busy := map[string]int64{}
	missions := map[string]int{}
	breakdowns := map[string]int{}
	rests := map[string]int{}
	maint := map[string]int{}

	for i, en := range entries {
		switch en.Kind {
		case eventlog.KindRunEnded:
			r.EndTicks = en.Time
		case eventlog.KindReported:
			switch en.Subsystem {
			case eventlog.SubsystemCasevac:
				r.Casevac.Reported++
			case eventlog.SubsystemRecovery:
				r.Recovery.Reported++
			case eventlog.SubsystemResupply:
				r.Resupply.Reported++
				r.Resupply.QuantityRequested += en.Value
				resupplyReportedAt[en.EntityID] = en.Time
			}
		case eventlog.KindHandoff:
			r.Casevac.Completed++
			responseTimes = append(responseTimes, float64(en.Value))
			r.Casevac.ResponseTime.Max = max(r.Casevac.ResponseTime.Max, en.Value)
		case eventlog.KindRepaired:
			if en.Subsystem == eventlog.SubsystemRecovery {
				r.Recovery.Repaired++
				downtimes = append(downtimes, float64(en.Value))
				r.Recovery.Downtime.Max = max(r.Recovery.Downtime.Max, en.Value)
			}
		case eventlog.KindStranded:
			r.Recovery.Stranded++
		case eventlog.KindDelivered:
			reported, ok := resupplyReportedAt[en.EntityID]
			if !ok {
				return nil, &eventlog.MalformedLogError{
					Index: i,
					Msg:   fmt.Sprintf("delivery for unreported request %s", en.EntityID),
				}
			}
			r.Resupply.Delivered++
			r.Resupply.QuantityDelivered += en.Value
			cycle := en.Time - reported
			cycleTimes = append(cycleTimes, float64(cycle))
			r.Resupply.CycleTime.Max = max(r.Resupply.CycleTime.Max, cycle)
		case eventlog.KindStockout:
			r.Resupply.Stockouts++
		case eventlog.KindUnmet:
			switch en.Subsystem {
			case eventlog.SubsystemCasevac:
				r.Casevac.Unmet++
			case eventlog.SubsystemRecovery:
				r.Recovery.Unmet++
			case eventlog.SubsystemResupply:
				r.Resupply.Unmet++
			}
		case eventlog.KindOpenAtCutoff:
			switch en.Subsystem {
			case eventlog.SubsystemCasevac:
				r.Casevac.OpenAtCutoff++
			case eventlog.SubsystemRecovery:
				r.Recovery.OpenAtCutoff++
			case eventlog.SubsystemResupply:
				r.Resupply.OpenAtCutoff++
			}
		case eventlog.KindVehicleReleased:
			busy[en.VehicleID] += en.Value
			missions[en.VehicleID]++
		case eventlog.KindVehicleBroken:
			breakdowns[en.VehicleID]++
			r.Fleet.Breakdowns++
		case eventlog.KindFatigued:
			rests[en.VehicleID]++
			r.Fleet.FatigueEpisodes++
		case eventlog.KindMaintenanceDone:
			maint[en.VehicleID]++
			r.Fleet.Maintenance++
		}
	}

	fillStats(&r.Casevac.ResponseTime, responseTimes)
	fillStats(&r.Recovery.Downtime, downtimes)
	fillStats(&r.Resupply.CycleTime, cycleTimes)
	r.Fleet.Vehicles = fleetRows(r.EndTicks, busy, missions, breakdowns, rests, maint)
	if n := len(r.Fleet.Vehicles); n > 0 {
		total := 0.0
		for _, v := range r.Fleet.Vehicles {
			total += v.Utilisation
		}
		r.Fleet.MeanUtilisation = total / float64(n)
	}
	return r, nil
}

func fillStats(s *DurationStats, samples []float64) {
	s.Count = len(samples)
	if len(samples) == 0 {
		return
	}
	sort.Float64s(samples)
	s.Mean = stat.Mean(samples, nil)
	s.Median = stat.Quantile(0.5, stat.Empirical, samples, nil)
	s.P90 = stat.Quantile(0.9, stat.Empirical, samples, nil)
}

func fleetRows(end int64, busy map[string]int64, missions, breakdowns, rests, maint map[string]int) []VehicleReport {
	ids := make([]string, 0, len(busy))
	for id := range busy {
		ids = append(ids, id)
	}
	for id := range breakdowns {
		if _, ok := busy[id]; !ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	rows := make([]VehicleReport, 0, len(ids))
	for _, id := range ids {
		row := VehicleReport{
			VehicleID:   id,
			BusyTicks:   busy[id],
			Missions:    missions[id],
			Breakdowns:  breakdowns[id],
			RestPeriods: rests[id],
			Maintenance: maint[id],
		}
		if end > 0 {
			row.Utilisation = float64(busy[id]) / float64(end)
		}
		rows = append(rows, row)
	}
	return rows
}

// Summary renders a short human-readable digest of the report.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "run ended at tick %d\n", r.EndTicks)
	fmt.Fprintf(&b, "casevac:  %d reported, %d completed, %d unmet, %d open; mean response %.0f ticks (p90 %.0f)\n",
		r.Casevac.Reported, r.Casevac.Completed, r.Casevac.Unmet, r.Casevac.OpenAtCutoff,
		r.Casevac.ResponseTime.Mean, r.Casevac.ResponseTime.P90)
	fmt.Fprintf(&b, "recovery: %d reported, %d repaired, %d stranded, %d unmet, %d open; mean downtime %.0f ticks\n",
		r.Recovery.Reported, r.Recovery.Repaired, r.Recovery.Stranded, r.Recovery.Unmet,
		r.Recovery.OpenAtCutoff, r.Recovery.Downtime.Mean)
	fmt.Fprintf(&b, "resupply: %d requests, %d delivered (%d/%d units), %d stockouts, %d unmet, %d open\n",
		r.Resupply.Reported, r.Resupply.Delivered, r.Resupply.QuantityDelivered,
		r.Resupply.QuantityRequested, r.Resupply.Stockouts, r.Resupply.Unmet, r.Resupply.OpenAtCutoff)
	fmt.Fprintf(&b, "fleet:    %d breakdowns, %d fatigue episodes, mean utilisation %.1f%%\n",
		r.Fleet.Breakdowns, r.Fleet.FatigueEpisodes, r.Fleet.MeanUtilisation*100)
	return b.String()
}
