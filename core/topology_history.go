package core

// DefaultHistoryDepth is the number of topologies kept for routing policies.
const DefaultHistoryDepth = 10

// TopologyHistory is a fixed-capacity ring of recent topologies. Pushing
// beyond capacity evicts the oldest entry.
type TopologyHistory struct {
	slots []*Topology
	head  int // next write position
	size  int
}

// NewTopologyHistory returns a ring holding up to depth topologies. A
// non-positive depth selects DefaultHistoryDepth.
func NewTopologyHistory(depth int) *TopologyHistory {
	if depth <= 0 {
		depth = DefaultHistoryDepth
	}
	return &TopologyHistory{slots: make([]*Topology, depth)}
}

// Push appends t as the newest entry.
func (h *TopologyHistory) Push(t *Topology) {
	h.slots[h.head] = t
	h.head = (h.head + 1) % len(h.slots)
	if h.size < len(h.slots) {
		h.size++
	}
}

// Len returns the number of stored topologies.
func (h *TopologyHistory) Len() int { return h.size }

// Capacity returns the maximum number of stored topologies.
func (h *TopologyHistory) Capacity() int { return len(h.slots) }

// Latest returns the newest topology, or nil when empty.
func (h *TopologyHistory) Latest() *Topology {
	if h.size == 0 {
		return nil
	}
	return h.slots[(h.head-1+len(h.slots))%len(h.slots)]
}

// Snapshots returns the stored topologies ordered oldest to newest. The
// slice is freshly allocated; the topologies themselves are shared and must
// be treated as read-only.
func (h *TopologyHistory) Snapshots() []*Topology {
	out := make([]*Topology, 0, h.size)
	start := (h.head - h.size + len(h.slots)) % len(h.slots)
	for i := 0; i < h.size; i++ {
		out = append(out, h.slots[(start+i)%len(h.slots)])
	}
	return out
}
