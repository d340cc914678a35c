// Package routing provides the routing policies the simulator ships with.
package routing

import (
	"fmt"
	"sort"
	"strings"

	"github.com/signalsfoundry/constellation-routing-sim/core"
)

// Policy names accepted by New.
const (
	NameBaseline   = "baseline"
	NameRandom     = "random"
	NamePersistent = "persistent"

	// NameAdaptive is kept for result files produced under the older name.
	NameAdaptive = "adaptive"
)

var constructors = map[string]func(seed int64) core.RoutingPolicy{
	NameBaseline:   func(int64) core.RoutingPolicy { return NewShortestPathPolicy() },
	NameRandom:     func(seed int64) core.RoutingPolicy { return NewRandomNeighborPolicy(seed) },
	NamePersistent: func(int64) core.RoutingPolicy { return NewPersistentLinkPolicy() },
	NameAdaptive:   func(int64) core.RoutingPolicy { return NewPersistentLinkPolicy() },
}

// New builds a fresh policy instance by name. seed only affects randomised
// policies; zero selects DefaultRandomSeed.
func New(name string, seed int64) (core.RoutingPolicy, error) {
	ctor, ok := constructors[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown router %q (valid: %s)", name, strings.Join(Names(), ", "))
	}
	if seed == 0 {
		seed = DefaultRandomSeed
	}
	return ctor(seed), nil
}

// Names lists the accepted policy names in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for n := range constructors {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
