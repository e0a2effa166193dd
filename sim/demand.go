// Demand generation. Manual schedules are injected verbatim; rate-based
// demand pre-generates Poisson arrivals at setup from the per-subsystem
// seeded streams, so the sequence each subsystem consumes is independent of
// every other subsystem and of execution interleaving.

package sim

import (
	"math"
	"sort"

	"github.com/fieldsim/fieldsim/sim/scenario"
)

func (e *Engine) setupDemand() error {
	switch e.Scenario.Demand.Mode {
	case scenario.ModeManual:
		return e.setupManualDemand()
	case scenario.ModeRateBased:
		return e.setupRateBasedDemand()
	}
	return nil
}

func (e *Engine) setupManualDemand() error {
	events := make([]scenario.DemandEvent, len(e.Scenario.Demand.Manual))
	copy(events, e.Scenario.Demand.Manual)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].TimeMins < events[j].TimeMins
	})

	for _, ev := range events {
		at := scenario.MinutesToTicks(ev.TimeMins)
		qty := ev.Quantity
		if qty <= 0 {
			qty = 1
		}
		switch ev.Type {
		case scenario.DemandCasualty:
			for i := int64(0); i < qty; i++ {
				if err := e.Schedule(&CasualtyArrivalEvent{
					time:     at,
					Node:     ev.Location,
					Priority: priorityOrDefault(ev.Priority),
				}); err != nil {
					return err
				}
			}
		case scenario.DemandBreakdown:
			if err := e.Schedule(&BreakdownArrivalEvent{
				time:      at,
				Node:      ev.Location,
				VehicleID: ev.VehicleID,
			}); err != nil {
				return err
			}
		case scenario.DemandResupply:
			if err := e.Schedule(&ResupplyArrivalEvent{
				time:     at,
				Node:     ev.Location,
				Quantity: qty,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}

func (e *Engine) setupRateBasedDemand() error {
	for _, spec := range e.Scenario.Demand.Rates {
		if err := e.generateArrivals(spec); err != nil {
			return err
		}
	}
	return nil
}

// generateArrivals walks one Poisson stream across its active window,
// scheduling an arrival event per draw. Each demand type consumes its own
// RNG sub-stream.
func (e *Engine) generateArrivals(spec scenario.RateSpec) error {
	rng := e.RNG.ForSubsystem(arrivalSubsystem(spec.Type))
	meanTicks := 3600.0 / spec.RatePerHour

	t := scenario.MinutesToTicks(spec.ActiveFromMins)
	end := e.Horizon
	if spec.ActiveUntilMins > 0 {
		end = min(end, scenario.MinutesToTicks(spec.ActiveUntilMins))
	}

	for {
		t += int64(math.Round(rng.ExpFloat64() * meanTicks))
		if t >= end {
			return nil
		}
		qty := int64(1)
		if spec.MaxQuantity > 0 {
			qty = spec.MinQuantity
			if span := spec.MaxQuantity - spec.MinQuantity; span > 0 {
				qty += rng.Int63n(span + 1)
			}
		}
		switch spec.Type {
		case scenario.DemandCasualty:
			priority := samplePriority(rng.Float64(), spec.PriorityWeights)
			for i := int64(0); i < qty; i++ {
				if err := e.Schedule(&CasualtyArrivalEvent{time: t, Node: spec.Location, Priority: priority}); err != nil {
					return err
				}
			}
		case scenario.DemandBreakdown:
			if err := e.Schedule(&BreakdownArrivalEvent{time: t, Node: spec.Location}); err != nil {
				return err
			}
		case scenario.DemandResupply:
			if err := e.Schedule(&ResupplyArrivalEvent{time: t, Node: spec.Location, Quantity: qty}); err != nil {
				return err
			}
		}
	}
}

func arrivalSubsystem(t scenario.DemandType) string {
	switch t {
	case scenario.DemandCasualty:
		return SubsystemCasevacArrivals
	case scenario.DemandBreakdown:
		return SubsystemRecoveryArrivals
	default:
		return SubsystemResupplyArrivals
	}
}

func priorityOrDefault(p int) int {
	if p <= 0 {
		return 3
	}
	return p
}

// samplePriority maps a uniform draw onto the weight distribution, walking
// priorities in ascending order for determinism. Defaults to priority 3 when
// no weights are configured.
func samplePriority(u float64, weights map[int]float64) int {
	if len(weights) == 0 {
		return 3
	}
	priorities := make([]int, 0, len(weights))
	for p := range weights {
		priorities = append(priorities, p)
	}
	sort.Ints(priorities)
	// Sum in sorted order: float addition is order-sensitive, and map
	// iteration order is randomized.
	total := 0.0
	for _, p := range priorities {
		total += weights[p]
	}
	acc := 0.0
	for _, p := range priorities {
		acc += weights[p] / total
		if u < acc {
			return p
		}
	}
	return priorities[len(priorities)-1]
}
