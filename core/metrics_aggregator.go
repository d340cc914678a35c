package core

import (
	"sort"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

// MetricsSnapshot summarises the outcome of a run.
type MetricsSnapshot struct {
	TotalSent      int            `json:"total_sent"`
	TotalDelivered int            `json:"total_delivered"`
	TotalDropped   int            `json:"total_dropped"`
	DeliveryRate   float64        `json:"delivery_rate"`
	LatencyMean    float64        `json:"latency_mean"`
	LatencyMedian  float64        `json:"latency_median"`
	LatencyP95     float64        `json:"latency_p95"`
	DropReasons    map[string]int `json:"drop_reasons"`
}

// ComputeMetrics aggregates packet outcomes. Empty inputs yield zeros and an
// empty, non-nil reason map.
func ComputeMetrics(packets []*model.Packet) MetricsSnapshot {
	m := MetricsSnapshot{
		TotalSent:   len(packets),
		DropReasons: make(map[string]int),
	}

	latencies := make([]float64, 0, len(packets))
	for _, p := range packets {
		switch p.State() {
		case model.PacketDelivered:
			m.TotalDelivered++
			if l, ok := p.Latency(); ok {
				latencies = append(latencies, l)
			}
		case model.PacketDropped:
			m.TotalDropped++
			m.DropReasons[p.DropReason().Label()]++
		}
	}

	if m.TotalSent > 0 {
		m.DeliveryRate = float64(m.TotalDelivered) / float64(m.TotalSent)
	}
	if len(latencies) > 0 {
		sort.Float64s(latencies)
		var sum float64
		for _, l := range latencies {
			sum += l
		}
		m.LatencyMean = sum / float64(len(latencies))
		m.LatencyMedian = Percentile(latencies, 50)
		m.LatencyP95 = Percentile(latencies, 95)
	}
	return m
}

// Percentile returns the q-th percentile (0..100) of sorted values using
// linear interpolation between the closest ranks. It returns 0 for an empty
// slice.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 100 {
		return sorted[n-1]
	}
	rank := q / 100 * float64(n-1)
	lo := int(rank)
	if lo+1 >= n {
		return sorted[n-1]
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[lo+1]-sorted[lo])*frac
}
