package core

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/signalsfoundry/constellation-routing-sim/model"
)

func TestComputeMetricsEmpty(t *testing.T) {
	m := ComputeMetrics(nil)
	if m.TotalSent != 0 || m.DeliveryRate != 0 || m.LatencyMean != 0 || m.LatencyP95 != 0 {
		t.Fatalf("empty metrics = %+v, want zeros", m)
	}
	if m.DropReasons == nil || len(m.DropReasons) != 0 {
		t.Fatalf("DropReasons = %v, want empty map", m.DropReasons)
	}
}

func TestComputeMetricsMixedOutcomes(t *testing.T) {
	var pkts []*model.Packet
	for i, latency := range []float64{1, 2, 3, 4} {
		p := model.NewPacket(i, "ground", "sat_0_0", 10, 100)
		p.MarkDelivered(10 + latency)
		pkts = append(pkts, p)
	}
	expired := model.NewPacket(4, "ground", "sat_0_0", 0, 1)
	expired.DecrementTTL(1)
	noPath := model.NewPacket(5, "ground", "sat_0_0", 0, 1)
	noPath.Drop(model.DropNoPathAvailable)
	unknown := model.NewPacket(6, "ground", "sat_0_0", 0, 1)
	unknown.Drop("")
	active := model.NewPacket(7, "ground", "sat_0_0", 0, 1)
	pkts = append(pkts, expired, noPath, unknown, active)

	m := ComputeMetrics(pkts)
	if m.TotalSent != 8 || m.TotalDelivered != 4 || m.TotalDropped != 3 {
		t.Fatalf("counts = %d/%d/%d, want 8/4/3", m.TotalSent, m.TotalDelivered, m.TotalDropped)
	}
	if m.DeliveryRate != 0.5 {
		t.Fatalf("DeliveryRate = %v, want 0.5", m.DeliveryRate)
	}
	if m.LatencyMean != 2.5 || m.LatencyMedian != 2.5 {
		t.Fatalf("mean/median = %v/%v, want 2.5/2.5", m.LatencyMean, m.LatencyMedian)
	}
	if math.Abs(m.LatencyP95-3.85) > 1e-9 {
		t.Fatalf("LatencyP95 = %v, want 3.85", m.LatencyP95)
	}
	want := map[string]int{"ttl_expired": 1, "no_path_available": 1, "unknown": 1}
	for k, v := range want {
		if m.DropReasons[k] != v {
			t.Fatalf("DropReasons[%s] = %d, want %d", k, m.DropReasons[k], v)
		}
	}
}

func TestPercentileLinearInterpolation(t *testing.T) {
	cases := []struct {
		values []float64
		q      float64
		want   float64
	}{
		{[]float64{7}, 95, 7},
		{[]float64{1, 2}, 50, 1.5},
		{[]float64{1, 2, 3, 4, 5}, 50, 3},
		{[]float64{0, 10}, 95, 9.5},
		{[]float64{1, 2, 3}, 0, 1},
		{[]float64{1, 2, 3}, 100, 3},
	}
	for _, tc := range cases {
		if got := Percentile(tc.values, tc.q); math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("Percentile(%v, %v) = %v, want %v", tc.values, tc.q, got, tc.want)
		}
	}
}

func TestMetricsSnapshotJSONFieldNames(t *testing.T) {
	data, err := json.Marshal(ComputeMetrics(nil))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"total_sent", "total_delivered", "total_dropped", "delivery_rate", "latency_mean", "latency_median", "latency_p95", "drop_reasons"} {
		if _, ok := fields[key]; !ok {
			t.Fatalf("missing JSON field %q in %s", key, data)
		}
	}
}
