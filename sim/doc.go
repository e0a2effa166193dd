// Package sim provides the core discrete-event simulation engine for
// field logistics runs.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - event.go: the Event interface and the time-then-insertion-ordered queue
//   - engine.go: the event loop, clock, horizon cutoff, and run bookkeeping
//   - resource.go: service bays and the vehicle pool with FIFO wait-lists
//
// The three workflows sit on top of the kernel, one file each:
//   - casevac.go: casualty evacuation (report → dispatch → load → transport
//     → handoff → treatment)
//   - recovery.go: vehicle recovery with capped on-scene repair attempts
//   - resupply.go: supply runs with opportunistic same-node batching
//
// Cross-cutting pieces:
//   - fleet.go: vehicle assignment and release, the single funnel where duty
//     accounting, pending breakdowns and fatigue hook in
//   - demand.go: manual schedules and pre-generated Poisson arrival streams
//   - extended.go: the optional fatigue, random-breakdown and scheduled
//     maintenance modifiers
//   - rng.go: partitioned random streams, one per stochastic subsystem
//
// Sub-packages:
//   - sim/scenario/: YAML scenario model, validation, and the road network
//   - sim/eventlog/: the append-only structured run record
//   - sim/analysis/: KPI extraction from a finished run's log
//
// # Determinism
//
// A run is a pure function of (scenario, seed). Same-time events execute in
// insertion order, vehicle and node scans iterate in sorted ID order, and
// each stochastic subsystem draws from its own seeded stream, so editing one
// subsystem's parameters never perturbs another's draws.
package sim
