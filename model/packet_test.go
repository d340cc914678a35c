package model

import "testing"

func TestPacketStartsActiveAtSource(t *testing.T) {
	p := NewPacket(7, GroundNodeID, SatelliteNodeID(0, 0), 10, 120)

	if p.State() != PacketActive {
		t.Fatalf("State() = %v, want active", p.State())
	}
	if p.CurrentNode() != GroundNodeID {
		t.Fatalf("CurrentNode() = %q, want %q", p.CurrentNode(), GroundNodeID)
	}
	if _, ok := p.DeliveredAt(); ok {
		t.Fatalf("new packet should not report a delivery time")
	}
	if p.DropReason() != "" {
		t.Fatalf("DropReason() = %q, want empty", p.DropReason())
	}
}

func TestPacketDeliveredIsImmutable(t *testing.T) {
	p := NewPacket(0, "A", "B", 3, 100)
	if !p.MoveTo("B") {
		t.Fatalf("MoveTo on active packet returned false")
	}
	if !p.MarkDelivered(4) {
		t.Fatalf("MarkDelivered on active packet returned false")
	}

	if p.MoveTo("C") {
		t.Fatalf("MoveTo after delivery should be rejected")
	}
	if p.Drop(DropTTLExpired) {
		t.Fatalf("Drop after delivery should be rejected")
	}
	if p.DecrementTTL(1000) {
		t.Fatalf("DecrementTTL after delivery should be rejected")
	}
	if p.MarkDelivered(99) {
		t.Fatalf("second MarkDelivered should be rejected")
	}

	at, ok := p.DeliveredAt()
	if !ok || at != 4 {
		t.Fatalf("DeliveredAt() = %v, %v, want 4, true", at, ok)
	}
	if p.CurrentNode() != "B" {
		t.Fatalf("CurrentNode() = %q, want B", p.CurrentNode())
	}
	if p.State() != PacketDelivered {
		t.Fatalf("State() = %v, want delivered", p.State())
	}
	if latency, _ := p.Latency(); latency != 1 {
		t.Fatalf("Latency() = %v, want 1", latency)
	}
}

func TestPacketTTLExpiry(t *testing.T) {
	p := NewPacket(0, "A", "B", 0, 3)

	for i := 0; i < 2; i++ {
		if p.DecrementTTL(1) {
			t.Fatalf("packet expired early at decrement %d", i+1)
		}
	}
	if !p.DecrementTTL(1) {
		t.Fatalf("packet should expire when ttl reaches zero")
	}
	if p.State() != PacketDropped || p.DropReason() != DropTTLExpired {
		t.Fatalf("state = %v reason = %q, want dropped ttl_expired", p.State(), p.DropReason())
	}
	if p.Drop(DropNoPathAvailable) {
		t.Fatalf("dropped packet accepted a second drop")
	}
	if p.DropReason() != DropTTLExpired {
		t.Fatalf("drop reason changed to %q", p.DropReason())
	}
}

func TestPacketCopyDoesNotAliasLifecycle(t *testing.T) {
	p := NewPacket(1, "A", "C", 0, 10)
	cp := *p
	cp.MoveTo("B")
	cp.Drop(DropTTLExpired)

	if p.CurrentNode() != "A" || !p.IsActive() {
		t.Fatalf("mutating a copy changed the original: node=%q state=%v", p.CurrentNode(), p.State())
	}
}

func TestDropReasonLabel(t *testing.T) {
	if got := DropReason("").Label(); got != "unknown" {
		t.Fatalf("Label() = %q, want unknown", got)
	}
	if got := DropNoPathAvailable.Label(); got != "no_path_available" {
		t.Fatalf("Label() = %q, want no_path_available", got)
	}
}
