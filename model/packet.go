package model

// PacketState is the lifecycle state of a packet.
type PacketState int

const (
	PacketActive PacketState = iota
	PacketDelivered
	PacketDropped
)

func (s PacketState) String() string {
	switch s {
	case PacketActive:
		return "active"
	case PacketDelivered:
		return "delivered"
	case PacketDropped:
		return "dropped"
	default:
		return "unknown"
	}
}

// DropReason explains why a packet was dropped. The empty value means unset.
type DropReason string

const (
	DropTTLExpired       DropReason = "ttl_expired"
	DropNoPathAvailable  DropReason = "no_path_available"
	dropReasonUnsetLabel            = "unknown"
)

// Label returns the reason as reported in metrics; an unset reason is "unknown".
func (r DropReason) Label() string {
	if r == "" {
		return dropReasonUnsetLabel
	}
	return string(r)
}

// Packet is a unit of traffic travelling hop by hop through the topology.
//
// The lifecycle fields are unexported so a copy handed to a routing policy
// cannot alter the engine's packet. Once delivered or dropped every mutator
// is a no-op that returns false.
type Packet struct {
	ID        int
	Src       NodeID
	Dst       NodeID
	CreatedAt float64

	ttlRemaining float64
	currentNode  NodeID
	deliveredAt  float64
	delivered    bool
	dropReason   DropReason
}

// NewPacket creates an active packet sitting at its source.
func NewPacket(id int, src, dst NodeID, createdAt, ttl float64) *Packet {
	return &Packet{
		ID:           id,
		Src:          src,
		Dst:          dst,
		CreatedAt:    createdAt,
		ttlRemaining: ttl,
		currentNode:  src,
	}
}

// State derives the lifecycle state from the delivery and drop fields.
func (p *Packet) State() PacketState {
	switch {
	case p.delivered:
		return PacketDelivered
	case p.dropReason != "":
		return PacketDropped
	default:
		return PacketActive
	}
}

func (p *Packet) IsActive() bool    { return p.State() == PacketActive }
func (p *Packet) IsDelivered() bool { return p.State() == PacketDelivered }
func (p *Packet) IsDropped() bool   { return p.State() == PacketDropped }

// CurrentNode is the node currently holding the packet.
func (p *Packet) CurrentNode() NodeID { return p.currentNode }

// TTLRemaining is the remaining lifetime in seconds.
func (p *Packet) TTLRemaining() float64 { return p.ttlRemaining }

// DeliveredAt returns the delivery time, if the packet was delivered.
func (p *Packet) DeliveredAt() (float64, bool) { return p.deliveredAt, p.delivered }

// DropReason returns the reason the packet was dropped, or "" if it was not.
func (p *Packet) DropReason() DropReason { return p.dropReason }

// Latency is DeliveredAt - CreatedAt for delivered packets.
func (p *Packet) Latency() (float64, bool) {
	if !p.delivered {
		return 0, false
	}
	return p.deliveredAt - p.CreatedAt, true
}

// MoveTo relocates an active packet.
func (p *Packet) MoveTo(node NodeID) bool {
	if !p.IsActive() {
		return false
	}
	p.currentNode = node
	return true
}

// MarkDelivered records delivery at time at.
func (p *Packet) MarkDelivered(at float64) bool {
	if !p.IsActive() {
		return false
	}
	p.deliveredAt = at
	p.delivered = true
	return true
}

// Drop terminates an active packet with the given reason. An empty reason
// is recorded as "unknown" so the packet still leaves the active state.
func (p *Packet) Drop(reason DropReason) bool {
	if !p.IsActive() {
		return false
	}
	if reason == "" {
		reason = dropReasonUnsetLabel
	}
	p.dropReason = reason
	return true
}

// DecrementTTL consumes dt seconds of lifetime and drops the packet with
// DropTTLExpired once the remainder reaches zero. It reports whether the
// packet expired on this call.
func (p *Packet) DecrementTTL(dt float64) bool {
	if !p.IsActive() {
		return false
	}
	p.ttlRemaining -= dt
	if p.ttlRemaining <= 0 {
		p.dropReason = DropTTLExpired
		return true
	}
	return false
}
