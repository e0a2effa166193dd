// sim/engine.go
package sim

import (
	"container/heap"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/fieldsim/fieldsim/sim/eventlog"
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// Engine is the core object that holds simulation time, system state, and the
// event loop. One Engine owns one run; independent runs (parameter sweeps,
// Monte Carlo replications) use separate Engine instances and share no state.
type Engine struct {
	Clock   int64
	Horizon int64

	Scenario *scenario.Scenario
	Network  *scenario.Network
	Log      *eventlog.Log
	RNG      *PartitionedRNG
	Pool     *ResourcePool

	// Vehicles holds runtime state keyed by vehicle ID; vehicleIDs fixes a
	// deterministic iteration order.
	Vehicles   map[string]*Vehicle
	vehicleIDs []string

	// Active workflow trackers, removed on terminal transitions. Anything
	// still here at cutoff gets an explicit open_at_cutoff marker.
	casualties map[string]*Casualty
	breakdowns map[string]*Breakdown
	requests   map[string]*SupplyRequest

	queue    eventQueue
	seq      uint64
	counters map[string]int
}

// NewEngine builds an engine for a validated scenario: routing network,
// vehicle runtime states, resource pool, partitioned RNG, and the demand
// schedule (manual events injected verbatim, rate-based arrivals
// pre-generated from the seeded streams).
func NewEngine(sc *scenario.Scenario) (*Engine, error) {
	e := &Engine{
		Clock:      0,
		Horizon:    sc.Config.HorizonTicks(),
		Scenario:   sc,
		Network:    scenario.NewNetwork(sc),
		Log:        eventlog.New(),
		RNG:        NewPartitionedRNG(NewSimulationKey(sc.Config.Seed)),
		Vehicles:   make(map[string]*Vehicle, len(sc.Vehicles)),
		casualties: make(map[string]*Casualty),
		breakdowns: make(map[string]*Breakdown),
		requests:   make(map[string]*SupplyRequest),
		queue:      make(eventQueue, 0),
		counters:   make(map[string]int),
	}
	e.Pool = NewResourcePool(sc)

	for i := range sc.Vehicles {
		v := &sc.Vehicles[i]
		vt := sc.VehicleTypeByID(v.TypeID)
		if vt == nil {
			return nil, fmt.Errorf("vehicle %q references unknown type %q", v.ID, v.TypeID)
		}
		e.Vehicles[v.ID] = &Vehicle{
			ID:       v.ID,
			Callsign: v.Callsign,
			Type:     vt,
			Home:     v.Home,
			Location: v.Home,
			State:    VehicleIdle,
		}
		e.vehicleIDs = append(e.vehicleIDs, v.ID)
	}
	sort.Strings(e.vehicleIDs)

	if err := e.setupDemand(); err != nil {
		return nil, err
	}
	if sc.Config.EnableBreakdowns {
		if err := e.setupBreakdownDraws(); err != nil {
			return nil, err
		}
	}
	if sc.Config.EnableMaintenance {
		if err := e.setupMaintenance(); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Schedule enqueues an event. Scheduling into the past is an engine bug and
// returns InvalidTimeError.
func (e *Engine) Schedule(ev Event) error {
	if ev.Timestamp() < e.Clock {
		return &InvalidTimeError{Op: "schedule", At: ev.Timestamp(), Clock: e.Clock}
	}
	e.seq++
	heap.Push(&e.queue, scheduledEvent{ev: ev, seq: e.seq})
	return nil
}

// Run drives the event loop until the queue drains or the horizon is
// reached, whichever comes first. Events beyond the horizon are discarded
// silently. On completion every in-flight workflow and held resource is
// marked open_at_cutoff so nothing is silently dropped.
func (e *Engine) Run() (*eventlog.Log, error) {
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemSystem,
		Kind:      eventlog.KindRunStarted,
		Value:     e.Scenario.Config.Seed,
	}); err != nil {
		return nil, err
	}

	for e.queue.Len() > 0 {
		item := heap.Pop(&e.queue).(scheduledEvent)
		t := item.ev.Timestamp()
		if t > e.Horizon {
			// The heap yields events in time order, so everything left is
			// beyond the horizon too. Dropped, not executed.
			e.Clock = e.Horizon
			break
		}
		if t < e.Clock {
			return nil, &InvalidTimeError{Op: "advance", At: t, Clock: e.Clock}
		}
		e.Clock = t
		logrus.Debugf("[tick %07d] executing %T", e.Clock, item.ev)
		if err := item.ev.Execute(e); err != nil {
			return nil, err
		}
	}

	if err := e.markOpenAtCutoff(); err != nil {
		return nil, err
	}
	if err := e.logEntry(eventlog.Entry{
		Subsystem: eventlog.SubsystemSystem,
		Kind:      eventlog.KindRunEnded,
		Value:     int64(e.Log.Len()) + 1,
	}); err != nil {
		return nil, err
	}
	logrus.Infof("[tick %07d] simulation ended with %d log entries", e.Clock, e.Log.Len())
	return e.Log, nil
}

// logEntry stamps an entry with the current clock and appends it.
func (e *Engine) logEntry(en eventlog.Entry) error {
	en.Time = e.Clock
	if err := e.Log.Append(en); err != nil {
		return err
	}
	logrus.Debugf("[tick %07d] %s/%s entity=%s vehicle=%s node=%s value=%d",
		e.Clock, en.Subsystem, en.Kind, en.EntityID, en.VehicleID, en.NodeID, en.Value)
	return nil
}

// nextID produces sequential entity IDs per prefix (CAS-0001, BRK-0001, ...).
// Deterministic: creation order is fixed by the event loop.
func (e *Engine) nextID(prefix string) string {
	e.counters[prefix]++
	return fmt.Sprintf("%s-%04d", prefix, e.counters[prefix])
}

// markOpenAtCutoff records every workflow that never reached a terminal state
// and every resource still held when the run ended.
func (e *Engine) markOpenAtCutoff() error {
	for _, id := range sortedKeys(e.casualties) {
		c := e.casualties[id]
		en := eventlog.Entry{
			Subsystem: eventlog.SubsystemCasevac,
			Kind:      eventlog.KindOpenAtCutoff,
			EntityID:  c.ID,
			NodeID:    c.Node,
		}
		if c.Vehicle != nil {
			en.VehicleID = c.Vehicle.ID
		}
		if err := e.logEntry(en); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(e.breakdowns) {
		b := e.breakdowns[id]
		en := eventlog.Entry{
			Subsystem: eventlog.SubsystemRecovery,
			Kind:      eventlog.KindOpenAtCutoff,
			EntityID:  b.ID,
			NodeID:    b.Node,
		}
		if b.Recovery != nil {
			en.VehicleID = b.Recovery.ID
		}
		if err := e.logEntry(en); err != nil {
			return err
		}
	}
	for _, id := range sortedKeys(e.requests) {
		r := e.requests[id]
		en := eventlog.Entry{
			Subsystem: eventlog.SubsystemResupply,
			Kind:      eventlog.KindOpenAtCutoff,
			EntityID:  r.ID,
			NodeID:    r.Node,
		}
		if r.Vehicle != nil {
			en.VehicleID = r.Vehicle.ID
		}
		if err := e.logEntry(en); err != nil {
			return err
		}
	}
	for _, id := range e.vehicleIDs {
		v := e.Vehicles[id]
		if !v.Busy() {
			continue
		}
		if err := e.logEntry(eventlog.Entry{
			Subsystem: eventlog.SubsystemFleet,
			Kind:      eventlog.KindOpenAtCutoff,
			VehicleID: v.ID,
			NodeID:    v.Location,
			Value:     e.Clock - v.busySince,
		}); err != nil {
			return err
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
