// Package kb keeps completed run records in memory and fans them out to
// subscribers such as persistence sinks.
package kb

import (
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/constellation-routing-sim/internal/results"
)

// EventType indicates what kind of change happened in the KB.
type EventType int

const (
	EventRunAdded EventType = iota
)

// Event is emitted to subscribers when something interesting happens.
type Event struct {
	Type EventType
	Run  results.Record
}

// KnowledgeBase is an in-memory, thread-safe store of run records.
type KnowledgeBase struct {
	mu sync.RWMutex

	runs map[string]results.Record

	nextSub int
	subIDs  []int
	subs    map[int]func(Event)
}

// NewKnowledgeBase constructs an empty KB.
func NewKnowledgeBase() *KnowledgeBase {
	return &KnowledgeBase{
		runs: make(map[string]results.Record),
		subs: make(map[int]func(Event)),
	}
}

// AddRun stores rec and notifies subscribers. It returns an error if the run
// ID is empty or already present.
func (kb *KnowledgeBase) AddRun(rec results.Record) error {
	if rec.RunID == "" {
		return fmt.Errorf("run record has no ID")
	}

	kb.mu.Lock()
	if _, exists := kb.runs[rec.RunID]; exists {
		kb.mu.Unlock()
		return fmt.Errorf("run with ID %q already exists", rec.RunID)
	}
	kb.runs[rec.RunID] = rec
	subs := kb.subscribersLocked()
	kb.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	event := Event{Type: EventRunAdded, Run: rec}
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// GetRun returns the record with the given ID.
func (kb *KnowledgeBase) GetRun(id string) (results.Record, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	rec, ok := kb.runs[id]
	return rec, ok
}

// ListRuns returns every record ordered by completion time, then ID.
func (kb *KnowledgeBase) ListRuns() []results.Record {
	kb.mu.RLock()
	res := make([]results.Record, 0, len(kb.runs))
	for _, r := range kb.runs {
		res = append(res, r)
	}
	kb.mu.RUnlock()

	sort.Slice(res, func(i, j int) bool {
		if !res[i].CompletedAt.Equal(res[j].CompletedAt) {
			return res[i].CompletedAt.Before(res[j].CompletedAt)
		}
		return res[i].RunID < res[j].RunID
	})
	return res
}

// ListByScenario returns the records of one scenario in ListRuns order.
func (kb *KnowledgeBase) ListByScenario(scenario string) []results.Record {
	var res []results.Record
	for _, r := range kb.ListRuns() {
		if r.Scenario == scenario {
			res = append(res, r)
		}
	}
	return res
}

// BestRun returns the record of scenario with the highest delivery rate,
// breaking ties by lower mean latency and then router name.
func (kb *KnowledgeBase) BestRun(scenario string) (results.Record, bool) {
	runs := kb.ListByScenario(scenario)
	if len(runs) == 0 {
		return results.Record{}, false
	}
	best := runs[0]
	for _, r := range runs[1:] {
		if better(r, best) {
			best = r
		}
	}
	return best, true
}

func better(a, b results.Record) bool {
	if a.Metrics.DeliveryRate != b.Metrics.DeliveryRate {
		return a.Metrics.DeliveryRate > b.Metrics.DeliveryRate
	}
	if a.Metrics.LatencyMean != b.Metrics.LatencyMean {
		return a.Metrics.LatencyMean < b.Metrics.LatencyMean
	}
	return a.Router < b.Router
}

// Subscribe registers a callback for KB events. It returns an unsubscribe function.
func (kb *KnowledgeBase) Subscribe(fn func(Event)) (unsubscribe func()) {
	kb.mu.Lock()
	defer kb.mu.Unlock()
	id := kb.nextSub
	kb.nextSub++
	kb.subs[id] = fn
	kb.subIDs = append(kb.subIDs, id)

	return func() {
		kb.mu.Lock()
		defer kb.mu.Unlock()
		if _, ok := kb.subs[id]; !ok {
			return
		}
		delete(kb.subs, id)
		for i, sid := range kb.subIDs {
			if sid == id {
				kb.subIDs = append(kb.subIDs[:i], kb.subIDs[i+1:]...)
				break
			}
		}
	}
}

// subscribersLocked returns subscribers in registration order. Caller holds mu.
func (kb *KnowledgeBase) subscribersLocked() []func(Event) {
	out := make([]func(Event), 0, len(kb.subIDs))
	for _, id := range kb.subIDs {
		out = append(out, kb.subs[id])
	}
	return out
}
