// Implements the ResourcePool, the single owner of all contested capacity:
// vehicles and node bays. No component outside it mutates availability; all
// mutation happens synchronously within the cooperative event loop, so no
// locking is needed.

package sim

import (
	"github.com/fieldsim/fieldsim/sim/scenario"
)

// BayKind identifies a countable bay resource at a node.
type BayKind string

const (
	BayMedical BayKind = "medical"
	BayRepair  BayKind = "repair"
)

// bayState tracks one (node, kind) capacity with its FIFO wait-list.
// Waiters are continuations invoked when a slot is handed over.
type bayState struct {
	capacity int
	inUse    int
	waiters  []func(*Engine) error
}

// VehicleRequest asks the pool for a role-compatible vehicle. When none is
// available the request joins the role's FIFO wait-list; Start fires when a
// vehicle is granted, at the simulated time of the grant. No priority
// preemption: a later, more urgent request never jumps the queue.
type VehicleRequest struct {
	Role scenario.VehicleRole

	// TowClass restricts recovery requests to vehicles able to tow the
	// broken vehicle's class. Empty means any class.
	TowClass scenario.VehicleClass

	// Origin is the demand location; dispatch picks the nearest available
	// vehicle by traversal time to it, ties broken by lowest vehicle ID.
	Origin string

	// Supply links a resupply request so dispatch-time batching can inspect
	// waiting demand. Nil for other roles.
	Supply *SupplyRequest

	Start func(*Engine, *Vehicle) error
}

// ResourcePool tracks availability of vehicles and bay resources and serves
// FIFO wait-lists on release.
type ResourcePool struct {
	bays    map[string]*bayState // keyed node + "/" + kind
	waiters map[scenario.VehicleRole][]*VehicleRequest
}

// NewResourcePool builds bay states from node capacities.
func NewResourcePool(sc *scenario.Scenario) *ResourcePool {
	p := &ResourcePool{
		bays:    make(map[string]*bayState),
		waiters: make(map[scenario.VehicleRole][]*VehicleRequest),
	}
	for _, n := range sc.Nodes {
		if n.Capacity.TreatmentBays > 0 {
			p.bays[bayKey(n.ID, BayMedical)] = &bayState{capacity: n.Capacity.TreatmentBays}
		}
		if n.Capacity.RepairBays > 0 {
			p.bays[bayKey(n.ID, BayRepair)] = &bayState{capacity: n.Capacity.RepairBays}
		}
	}
	return p
}

func bayKey(node string, kind BayKind) string {
	return node + "/" + string(kind)
}

// HeldBays returns the in-use count for a (node, kind). Nodes without
// configured capacity report zero.
func (p *ResourcePool) HeldBays(node string, kind BayKind) int {
	if st := p.bays[bayKey(node, kind)]; st != nil {
		return st.inUse
	}
	return 0
}

// AcquireBay grants a bay immediately when capacity is available, otherwise
// enqueues grant on the (node, kind) FIFO wait-list. Nodes without configured
// capacity are uncapacitated: the grant fires immediately. Unavailable bays
// queue, they never fail.
func (p *ResourcePool) AcquireBay(e *Engine, node string, kind BayKind, grant func(*Engine) error) error {
	st := p.bays[bayKey(node, kind)]
	if st == nil {
		return grant(e)
	}
	if st.inUse < st.capacity {
		st.inUse++
		return grant(e)
	}
	st.waiters = append(st.waiters, grant)
	return nil
}

// ReleaseBay returns a bay. The slot passes directly to the head of the
// wait-list when one exists, otherwise the free count is restored. A release
// without a matching acquire is fatal.
func (p *ResourcePool) ReleaseBay(e *Engine, node string, kind BayKind) error {
	st := p.bays[bayKey(node, kind)]
	if st == nil {
		return nil
	}
	if st.inUse <= 0 {
		return &ResourceInvariantError{
			Time: e.Clock, Node: node, Kind: string(kind),
			Msg: "release without matching acquire",
		}
	}
	if len(st.waiters) > 0 {
		grant := st.waiters[0]
		st.waiters = st.waiters[1:]
		return grant(e)
	}
	st.inUse--
	return nil
}

// RequestVehicle grants the nearest available role-compatible vehicle, or
// enqueues the request FIFO. The boolean reports whether a vehicle was
// granted immediately.
func (p *ResourcePool) RequestVehicle(e *Engine, req *VehicleRequest) (bool, error) {
	v := p.selectVehicle(e, req)
	if v == nil {
		p.waiters[req.Role] = append(p.waiters[req.Role], req)
		return false, nil
	}
	if err := e.assignVehicle(v); err != nil {
		return false, err
	}
	return true, req.Start(e, v)
}

// selectVehicle picks the idle vehicle compatible with req that is nearest to
// req.Origin by traversal time at its unladen speed. Ties break on lowest
// vehicle ID via the sorted iteration order. Fatigued, broken and stranded
// vehicles are not in the free pool.
func (p *ResourcePool) selectVehicle(e *Engine, req *VehicleRequest) *Vehicle {
	var best *Vehicle
	var bestTravel int64
	for _, id := range e.vehicleIDs {
		v := e.Vehicles[id]
		if v.State != VehicleIdle || !compatible(v, req) {
			continue
		}
		travel, ok := e.Network.TravelTicks(v.Location, req.Origin, v.Type.UnladenKmh)
		if !ok {
			continue
		}
		if best == nil || travel < bestTravel {
			best = v
			bestTravel = travel
		}
	}
	return best
}

func compatible(v *Vehicle, req *VehicleRequest) bool {
	if v.Type.Role != req.Role {
		return false
	}
	if req.TowClass != "" && !scenario.CanTow(v.Type.Class, req.TowClass) {
		return false
	}
	return true
}

// serveWaiters offers a newly freed vehicle to the first compatible,
// reachable waiter in its role's FIFO wait-list. FIFO within compatibility:
// earlier waiters the vehicle cannot serve are skipped, not reordered.
func (p *ResourcePool) serveWaiters(e *Engine, v *Vehicle) error {
	queue := p.waiters[v.Type.Role]
	for i, req := range queue {
		if !compatible(v, req) {
			continue
		}
		if _, ok := e.Network.TravelTicks(v.Location, req.Origin, v.Type.UnladenKmh); !ok {
			continue
		}
		p.waiters[v.Type.Role] = append(queue[:i:i], queue[i+1:]...)
		if err := e.assignVehicle(v); err != nil {
			return err
		}
		return req.Start(e, v)
	}
	return nil
}

// takeWaitingResupply removes waiting resupply requests at the given node
// whose quantity fits within *remaining, in FIFO order, decrementing
// *remaining as it goes. Used for dispatch-time batching; eligibility is
// evaluated only here, never retroactively.
func (p *ResourcePool) takeWaitingResupply(node string, remaining *int64) []*SupplyRequest {
	var batch []*SupplyRequest
	queue := p.waiters[scenario.RoleResupply]
	kept := queue[:0:0]
	for _, req := range queue {
		if req.Supply != nil && req.Supply.Node == node && req.Supply.Quantity <= *remaining {
			*remaining -= req.Supply.Quantity
			batch = append(batch, req.Supply)
			continue
		}
		kept = append(kept, req)
	}
	p.waiters[scenario.RoleResupply] = kept
	return batch
}

// WaitingCount returns the number of queued requests for a role. Test and
// KPI-free introspection helper.
func (p *ResourcePool) WaitingCount(role scenario.VehicleRole) int {
	return len(p.waiters[role])
}
