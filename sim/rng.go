package sim

import (
	"hash/fnv"
	"math/rand"
)

// === SimulationKey ===

// SimulationKey uniquely identifies a reproducible simulation run.
// Two simulations with the same SimulationKey and identical scenario
// MUST produce bit-for-bit identical event logs.
type SimulationKey int64

// NewSimulationKey creates a SimulationKey from a seed value.
func NewSimulationKey(seed int64) SimulationKey {
	return SimulationKey(seed)
}

// === Subsystem Constants ===

// Each stochastic concern draws from its own sub-stream so that enabling or
// disabling one subsystem does not perturb the sequence consumed by another.
// Required for reproducible comparative runs.
const (
	// SubsystemCasevacArrivals feeds rate-based casualty generation.
	SubsystemCasevacArrivals = "casevac_arrivals"

	// SubsystemRecoveryArrivals feeds rate-based breakdown generation.
	SubsystemRecoveryArrivals = "recovery_arrivals"

	// SubsystemResupplyArrivals feeds rate-based resupply-request generation.
	SubsystemResupplyArrivals = "resupply_arrivals"

	// SubsystemRepairDraws feeds repair success/failure draws.
	SubsystemRepairDraws = "repair_draws"

	// SubsystemBreakdowns feeds the random-breakdown extended-ops modifier.
	SubsystemBreakdowns = "breakdowns"
)

// === PartitionedRNG ===

// PartitionedRNG provides deterministic, isolated RNG instances per subsystem.
//
// Derivation formula: masterSeed XOR fnv1a64(subsystemName).
//
// Thread-safety: NOT thread-safe. Must be called from single goroutine; the
// engine's cooperative loop is the only consumer during a run.
type PartitionedRNG struct {
	key        SimulationKey
	subsystems map[string]*rand.Rand
}

// NewPartitionedRNG creates a PartitionedRNG from a SimulationKey.
func NewPartitionedRNG(key SimulationKey) *PartitionedRNG {
	return &PartitionedRNG{
		key:        key,
		subsystems: make(map[string]*rand.Rand),
	}
}

// ForSubsystem returns a deterministically-seeded RNG for the named subsystem.
// The same subsystem name always returns the same *rand.Rand instance (cached).
// Never returns nil.
func (p *PartitionedRNG) ForSubsystem(name string) *rand.Rand {
	if rng, ok := p.subsystems[name]; ok {
		return rng
	}
	rng := rand.New(rand.NewSource(int64(p.key) ^ fnv1a64(name)))
	p.subsystems[name] = rng
	return rng
}

// Key returns the SimulationKey used to create this PartitionedRNG.
func (p *PartitionedRNG) Key() SimulationKey {
	return p.key
}

// fnv1a64 computes a 64-bit FNV-1a hash of the input string.
func fnv1a64(s string) int64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return int64(h.Sum64())
}
