// Package scenario defines the validated, immutable scenario description the
// engine consumes: the node/edge network, vehicle fleets, demand specification
// and run configuration. Loaded from YAML via LoadScenario(path).
package scenario

import (
	"fmt"
	"math"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// NodeType is the functional category of a network node.
type NodeType string

const (
	NodeCombat   NodeType = "combat"
	NodeMedical  NodeType = "medical"
	NodeWorkshop NodeType = "workshop"
	NodeSupply   NodeType = "supply"
	NodeHQ       NodeType = "hq"
	NodeWaypoint NodeType = "waypoint"
)

// VehicleClass is the weight classification used for recovery matching.
type VehicleClass string

const (
	ClassLight  VehicleClass = "light"
	ClassMedium VehicleClass = "medium"
	ClassHeavy  VehicleClass = "heavy"
)

// classOrder ranks vehicle classes for tow-capability matching.
var classOrder = map[VehicleClass]int{
	ClassLight:  0,
	ClassMedium: 1,
	ClassHeavy:  2,
}

// CanTow reports whether a recovery vehicle of class r can tow a broken
// vehicle of class b. A vehicle can tow its own class and anything lighter.
func CanTow(r, b VehicleClass) bool {
	return classOrder[r] >= classOrder[b]
}

// VehicleRole determines which workflow a vehicle serves.
type VehicleRole string

const (
	RoleAmbulance VehicleRole = "ambulance"
	RoleRecovery  VehicleRole = "recovery"
	RoleResupply  VehicleRole = "resupply"
)

// DemandType identifies the subsystem a demand event feeds.
type DemandType string

const (
	DemandCasualty  DemandType = "casualty"
	DemandBreakdown DemandType = "breakdown"
	DemandResupply  DemandType = "resupply"
)

// DemandMode selects how demand is produced.
type DemandMode string

const (
	ModeManual    DemandMode = "manual"
	ModeRateBased DemandMode = "rate_based"
)

// Capacity holds per-node bay counts. Zero means the node offers no bays of
// that kind.
type Capacity struct {
	TreatmentBays int `yaml:"treatment_bays,omitempty"`
	RepairBays    int `yaml:"repair_bays,omitempty"`
}

// Node is a location in the field network. Immutable after scenario load.
type Node struct {
	ID       string   `yaml:"id"`
	Name     string   `yaml:"name,omitempty"`
	Type     NodeType `yaml:"type"`
	X        float64  `yaml:"x"`
	Y        float64  `yaml:"y"`
	Capacity Capacity `yaml:"capacity,omitempty"`

	// TreatmentTimeMins is the fixed service time per casualty at a medical
	// node. Ignored for non-medical nodes.
	TreatmentTimeMins float64 `yaml:"treatment_time_mins,omitempty"`
}

// Edge connects two nodes. Traversal cost is distance scaled by the terrain
// factor; all edges are bidirectional.
type Edge struct {
	From          string  `yaml:"from"`
	To            string  `yaml:"to"`
	DistanceKm    float64 `yaml:"distance_km"`
	TerrainFactor float64 `yaml:"terrain_factor,omitempty"`
}

// EffectiveKm is the routing weight of the edge.
func (e Edge) EffectiveKm() float64 {
	tf := e.TerrainFactor
	if tf <= 0 {
		tf = 1.0
	}
	return e.DistanceKm * tf
}

// VehicleType describes a fleet class: speeds, service times and, for
// recovery types, repair behaviour.
type VehicleType struct {
	ID    string       `yaml:"id"`
	Name  string       `yaml:"name,omitempty"`
	Class VehicleClass `yaml:"class"`
	Role  VehicleRole  `yaml:"role"`

	UnladenKmh float64 `yaml:"unladen_kmh"`
	LadenKmh   float64 `yaml:"laden_kmh"`

	LoadTimeMins   float64 `yaml:"load_time_mins"`
	UnloadTimeMins float64 `yaml:"unload_time_mins"`

	// Resupply only: cargo units a single dispatch can carry.
	CargoCapacity int64 `yaml:"cargo_capacity,omitempty"`

	// Recovery only: field repair parameters.
	RepairTimeMins    float64 `yaml:"repair_time_mins,omitempty"`
	RepairSuccessProb float64 `yaml:"repair_success_prob,omitempty"`
	MaxRepairAttempts int     `yaml:"max_repair_attempts,omitempty"`
	RetryDelayMins    float64 `yaml:"retry_delay_mins,omitempty"`
}

// Vehicle is a single fleet member.
type Vehicle struct {
	ID       string `yaml:"id"`
	Callsign string `yaml:"callsign,omitempty"`
	TypeID   string `yaml:"type_id"`
	Home     string `yaml:"home"`
}

// DemandEvent is one entry of a manual demand schedule.
type DemandEvent struct {
	TimeMins float64    `yaml:"time_mins"`
	Type     DemandType `yaml:"type"`
	Location string     `yaml:"location"`
	Quantity int64      `yaml:"quantity,omitempty"`
	Priority int        `yaml:"priority,omitempty"`

	// Breakdown only: the vehicle that fails.
	VehicleID string `yaml:"vehicle_id,omitempty"`
}

// RateSpec parameterises a Poisson demand stream for one subsystem at one
// node.
type RateSpec struct {
	Type            DemandType      `yaml:"type"`
	Location        string          `yaml:"location"`
	RatePerHour     float64         `yaml:"rate_per_hour"`
	ActiveFromMins  float64         `yaml:"active_from_mins,omitempty"`
	ActiveUntilMins float64         `yaml:"active_until_mins,omitempty"`
	MinQuantity     int64           `yaml:"min_quantity,omitempty"`
	MaxQuantity     int64           `yaml:"max_quantity,omitempty"`
	PriorityWeights map[int]float64 `yaml:"priority_weights,omitempty"`
}

// DemandSpec selects the demand mode and carries its parameters.
type DemandSpec struct {
	Mode   DemandMode    `yaml:"mode"`
	Manual []DemandEvent `yaml:"manual,omitempty"`
	Rates  []RateSpec    `yaml:"rates,omitempty"`
}

// Config holds run-level parameters, including the extended-operations
// modifiers. All modifiers default off and must be zero-cost when disabled.
type Config struct {
	Seed         int64   `yaml:"seed"`
	HorizonHours float64 `yaml:"horizon_hours"`

	EnableFatigue         bool    `yaml:"enable_fatigue,omitempty"`
	FatigueThresholdHours float64 `yaml:"fatigue_threshold_hours,omitempty"`
	RestDurationHours     float64 `yaml:"rest_duration_hours,omitempty"`

	EnableBreakdowns bool    `yaml:"enable_breakdowns,omitempty"`
	MTBFHours        float64 `yaml:"mtbf_hours,omitempty"`

	EnableMaintenance        bool    `yaml:"enable_maintenance,omitempty"`
	MaintenanceIntervalHours float64 `yaml:"maintenance_interval_hours,omitempty"`
	MaintenanceDurationHours float64 `yaml:"maintenance_duration_hours,omitempty"`
}

// Metadata identifies a scenario for reporting.
type Metadata struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// Scenario is the complete validated scenario description. The engine treats
// it as read-only; nothing here is mutated after LoadScenario returns.
type Scenario struct {
	Metadata     Metadata      `yaml:"metadata,omitempty"`
	Config       Config        `yaml:"config"`
	Nodes        []Node        `yaml:"nodes"`
	Edges        []Edge        `yaml:"edges"`
	VehicleTypes []VehicleType `yaml:"vehicle_types"`
	Vehicles     []Vehicle     `yaml:"vehicles"`
	Demand       DemandSpec    `yaml:"demand"`
}

// LoadScenario reads and validates a scenario YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// NodeByID returns the node with the given ID, or nil.
func (s *Scenario) NodeByID(id string) *Node {
	for i := range s.Nodes {
		if s.Nodes[i].ID == id {
			return &s.Nodes[i]
		}
	}
	return nil
}

// VehicleTypeByID returns the vehicle type with the given ID, or nil.
func (s *Scenario) VehicleTypeByID(id string) *VehicleType {
	for i := range s.VehicleTypes {
		if s.VehicleTypes[i].ID == id {
			return &s.VehicleTypes[i]
		}
	}
	return nil
}

// Validate checks referential integrity and parameter sanity. It returns the
// first problem found.
func (s *Scenario) Validate() error {
	if s.Config.HorizonHours <= 0 {
		return fmt.Errorf("config: horizon_hours must be positive, got %v", s.Config.HorizonHours)
	}
	if s.Config.EnableFatigue {
		if s.Config.FatigueThresholdHours <= 0 {
			return fmt.Errorf("config: fatigue_threshold_hours must be positive when fatigue is enabled")
		}
		if s.Config.RestDurationHours <= 0 {
			return fmt.Errorf("config: rest_duration_hours must be positive when fatigue is enabled")
		}
	}
	if s.Config.EnableBreakdowns && s.Config.MTBFHours <= 0 {
		return fmt.Errorf("config: mtbf_hours must be positive when breakdowns are enabled")
	}
	if s.Config.EnableMaintenance {
		if s.Config.MaintenanceIntervalHours <= 0 && s.Config.MTBFHours <= 0 {
			return fmt.Errorf("config: maintenance_interval_hours (or mtbf_hours) must be positive when maintenance is enabled")
		}
		if s.Config.MaintenanceIntervalHours < 0 || s.Config.MaintenanceDurationHours < 0 {
			return fmt.Errorf("config: maintenance parameters must not be negative")
		}
	}

	if len(s.Nodes) == 0 {
		return fmt.Errorf("scenario has no nodes")
	}
	nodeIDs := make(map[string]bool, len(s.Nodes))
	for _, n := range s.Nodes {
		if n.ID == "" {
			return fmt.Errorf("node with empty id")
		}
		if nodeIDs[n.ID] {
			return fmt.Errorf("duplicate node id %q", n.ID)
		}
		nodeIDs[n.ID] = true
		if n.Capacity.TreatmentBays < 0 || n.Capacity.RepairBays < 0 {
			return fmt.Errorf("node %q: negative bay capacity", n.ID)
		}
	}

	for i, e := range s.Edges {
		if !nodeIDs[e.From] || !nodeIDs[e.To] {
			return fmt.Errorf("edge %d references unknown node (%q -> %q)", i, e.From, e.To)
		}
		if e.From == e.To {
			return fmt.Errorf("edge %d is a self-loop at %q", i, e.From)
		}
		if e.DistanceKm <= 0 || math.IsNaN(e.DistanceKm) {
			return fmt.Errorf("edge %d (%q -> %q): distance_km must be positive", i, e.From, e.To)
		}
	}

	typeIDs := make(map[string]*VehicleType, len(s.VehicleTypes))
	for i := range s.VehicleTypes {
		vt := &s.VehicleTypes[i]
		if vt.ID == "" {
			return fmt.Errorf("vehicle type with empty id")
		}
		if _, dup := typeIDs[vt.ID]; dup {
			return fmt.Errorf("duplicate vehicle type id %q", vt.ID)
		}
		typeIDs[vt.ID] = vt
		switch vt.Role {
		case RoleAmbulance, RoleRecovery, RoleResupply:
		default:
			return fmt.Errorf("vehicle type %q: unknown role %q", vt.ID, vt.Role)
		}
		switch vt.Class {
		case ClassLight, ClassMedium, ClassHeavy:
		default:
			return fmt.Errorf("vehicle type %q: unknown class %q", vt.ID, vt.Class)
		}
		if vt.UnladenKmh <= 0 || vt.LadenKmh <= 0 {
			return fmt.Errorf("vehicle type %q: speeds must be positive", vt.ID)
		}
		if vt.Role == RoleRecovery {
			if vt.RepairSuccessProb < 0 || vt.RepairSuccessProb > 1 {
				return fmt.Errorf("vehicle type %q: repair_success_prob must be in [0,1]", vt.ID)
			}
			if vt.MaxRepairAttempts <= 0 {
				return fmt.Errorf("vehicle type %q: max_repair_attempts must be positive", vt.ID)
			}
		}
		if vt.Role == RoleResupply && vt.CargoCapacity <= 0 {
			return fmt.Errorf("vehicle type %q: cargo_capacity must be positive", vt.ID)
		}
	}

	vehicleIDs := make(map[string]bool, len(s.Vehicles))
	for _, v := range s.Vehicles {
		if v.ID == "" {
			return fmt.Errorf("vehicle with empty id")
		}
		if vehicleIDs[v.ID] {
			return fmt.Errorf("duplicate vehicle id %q", v.ID)
		}
		vehicleIDs[v.ID] = true
		if _, ok := typeIDs[v.TypeID]; !ok {
			return fmt.Errorf("vehicle %q references unknown type %q", v.ID, v.TypeID)
		}
		if !nodeIDs[v.Home] {
			return fmt.Errorf("vehicle %q home %q is not a node", v.ID, v.Home)
		}
	}

	switch s.Demand.Mode {
	case ModeManual:
		for i, ev := range s.Demand.Manual {
			if err := validateDemandType(ev.Type); err != nil {
				return fmt.Errorf("manual event %d: %w", i, err)
			}
			if ev.TimeMins < 0 {
				return fmt.Errorf("manual event %d: negative time", i)
			}
			if !nodeIDs[ev.Location] {
				return fmt.Errorf("manual event %d: unknown location %q", i, ev.Location)
			}
			if ev.Type == DemandBreakdown && ev.VehicleID != "" && !vehicleIDs[ev.VehicleID] {
				return fmt.Errorf("manual event %d: unknown vehicle %q", i, ev.VehicleID)
			}
		}
	case ModeRateBased:
		for i, r := range s.Demand.Rates {
			if err := validateDemandType(r.Type); err != nil {
				return fmt.Errorf("rate spec %d: %w", i, err)
			}
			if r.RatePerHour <= 0 {
				return fmt.Errorf("rate spec %d: rate_per_hour must be positive", i)
			}
			if !nodeIDs[r.Location] {
				return fmt.Errorf("rate spec %d: unknown location %q", i, r.Location)
			}
			if r.MaxQuantity < r.MinQuantity {
				return fmt.Errorf("rate spec %d: max_quantity < min_quantity", i)
			}
		}
	default:
		return fmt.Errorf("demand: unknown mode %q", s.Demand.Mode)
	}

	return nil
}

func validateDemandType(t DemandType) error {
	switch t {
	case DemandCasualty, DemandBreakdown, DemandResupply:
		return nil
	}
	return fmt.Errorf("unknown demand type %q", t)
}

// SortedNodeIDs returns all node IDs in lexical order. Deterministic
// iteration order for dispatch and nearest-facility scans.
func (s *Scenario) SortedNodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, n := range s.Nodes {
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)
	return ids
}

// MinutesToTicks converts scenario minutes to simulation ticks (seconds).
func MinutesToTicks(mins float64) int64 {
	return int64(math.Round(mins * 60))
}

// HoursToTicks converts scenario hours to simulation ticks (seconds).
func HoursToTicks(hours float64) int64 {
	return int64(math.Round(hours * 3600))
}
