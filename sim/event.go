package sim

// Event defines the interface for all simulation events.
// Each event has a Timestamp (in ticks) and an Execute method that advances
// simulation state when invoked. Execute returns an error only for engine
// invariant violations; domain failures are log entries, never errors.
type Event interface {
	Timestamp() int64
	Execute(*Engine) error
}

// scheduledEvent pairs an event with its insertion sequence number. Two
// events at the same timestamp execute in the order they were scheduled;
// this FIFO tie-break is the engine's sole determinism guarantee for
// simultaneous events.
type scheduledEvent struct {
	ev  Event
	seq uint64
}

// eventQueue implements heap.Interface ordered by (timestamp, sequence).
// See canonical Golang example here: https://pkg.go.dev/container/heap#example-package-IntHeap
type eventQueue []scheduledEvent

func (eq eventQueue) Len() int { return len(eq) }

func (eq eventQueue) Less(i, j int) bool {
	ti, tj := eq[i].ev.Timestamp(), eq[j].ev.Timestamp()
	if ti != tj {
		return ti < tj
	}
	return eq[i].seq < eq[j].seq
}

func (eq eventQueue) Swap(i, j int) { eq[i], eq[j] = eq[j], eq[i] }

func (eq *eventQueue) Push(x any) {
	*eq = append(*eq, x.(scheduledEvent))
}

func (eq *eventQueue) Pop() any {
	old := *eq
	n := len(old)
	item := old[n-1]
	*eq = old[0 : n-1]
	return item
}
