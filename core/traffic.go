package core

import (
	"math"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// periodTolerance absorbs float error in i*dt when testing tick % period.
const periodTolerance = 1e-9

// TrafficGenerator emits one packet from Src to Dst every PeriodSec of
// simulation time, starting at t = 0. IDs increase from zero. It keeps
// every packet it has emitted, in creation order.
type TrafficGenerator struct {
	cfg     model.TrafficConfig
	nextID  int
	packets []*model.Packet
}

// NewTrafficGenerator returns a generator for a resolved traffic config.
func NewTrafficGenerator(cfg model.TrafficConfig) *TrafficGenerator {
	return &TrafficGenerator{cfg: cfg}
}

// Config returns the traffic parameters in use.
func (g *TrafficGenerator) Config() model.TrafficConfig { return g.cfg }

// Generated returns the number of packets emitted so far.
func (g *TrafficGenerator) Generated() int { return g.nextID }

// Due reports whether a packet is scheduled at tick.
func (g *TrafficGenerator) Due(tick float64) bool {
	if g.cfg.PeriodSec <= 0 {
		return false
	}
	rem := math.Mod(tick, g.cfg.PeriodSec)
	return rem < periodTolerance || g.cfg.PeriodSec-rem < periodTolerance
}

// Generate returns the packets created at tick, at most one, and adds them
// to the generator's packet list.
func (g *TrafficGenerator) Generate(tick float64) []*model.Packet {
	if !g.Due(tick) {
		return nil
	}
	p := model.NewPacket(g.nextID, g.cfg.Src, g.cfg.Dst, tick, g.cfg.TTLSec)
	g.nextID++
	g.packets = append(g.packets, p)
	return []*model.Packet{p}
}

// Packets returns every packet emitted so far, in creation order. The
// pointers are live: the engine advances them in place.
func (g *TrafficGenerator) Packets() []*model.Packet { return g.packets }
