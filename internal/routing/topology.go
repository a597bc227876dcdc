// Package routing models the daemon's custom routing topology and hosts
// the mock delegated-routing server the adversarial scenarios run against.
package routing

import (
	"fmt"
	"sort"
	"time"
)

// Method is a logical routing method the daemon dispatches to a router.
type Method string

// The five methods kubo requires bindings for when Routing.Type=custom.
const (
	MethodFindPeers     Method = "find-peers"
	MethodFindProviders Method = "find-providers"
	MethodGetIPNS       Method = "get-ipns"
	MethodProvide       Method = "provide"
	MethodPutIPNS       Method = "put-ipns"
)

// RouterType discriminates leaf and composite routers.
type RouterType string

const (
	RouterTypeHTTP     RouterType = "http"
	RouterTypeParallel RouterType = "parallel"
)

// ChildRef is one member of a composite router: a named child with its
// own per-call timeout and an ignore-errors policy.
type ChildRef struct {
	RouterName   string
	Timeout      time.Duration
	IgnoreErrors bool
}

// Router is either an HTTP leaf (Endpoint set) or a parallel composite
// (Children set), matching the daemon's Routing.Routers entries.
type Router struct {
	Type     RouterType
	Endpoint string
	Children []ChildRef
}

// Topology is a named graph of routers plus the method-to-router
// bindings. It is built once per scenario and never mutated afterwards.
type Topology struct {
	Routers map[string]Router
	Methods map[Method]string
}

// Validate checks that every method binding and every composite child
// reference resolves to a declared router and that composite references
// form no cycle.
func (t Topology) Validate() error {
	for method, name := range t.Methods {
		if _, ok := t.Routers[name]; !ok {
			return fmt.Errorf("method %q bound to undeclared router %q", method, name)
		}
	}

	for name, r := range t.Routers {
		for _, child := range r.Children {
			if _, ok := t.Routers[child.RouterName]; !ok {
				return fmt.Errorf("router %q references undeclared child %q", name, child.RouterName)
			}
		}
	}

	// Cycle detection over composite references, visiting routers in a
	// stable order so the reported cycle member is deterministic.
	names := make([]string, 0, len(t.Routers))
	for name := range t.Routers {
		names = append(names, name)
	}
	sort.Strings(names)

	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)
	state := make(map[string]int, len(t.Routers))

	var walk func(name string) error
	walk = func(name string) error {
		switch state[name] {
		case visiting:
			return fmt.Errorf("cycle through router %q", name)
		case visited:
			return nil
		}
		state[name] = visiting
		for _, child := range t.Routers[name].Children {
			if err := walk(child.RouterName); err != nil {
				return err
			}
		}
		state[name] = visited
		return nil
	}

	for _, name := range names {
		if err := walk(name); err != nil {
			return err
		}
	}
	return nil
}

const (
	parallelRouterName = "delegated-parallel"
	childCallTimeout   = 10 * time.Second
)

// DualRouterTopology builds the scenario graph: two HTTP leaf routers on
// the given local ports behind one parallel router, with every routing
// method bound to the parallel router. Whether the ports refuse
// connections or answer "no providers" is decided by the scenario, not
// the topology.
func DualRouterTopology(host string, portA, portB int) Topology {
	routers := map[string]Router{
		"http-router-a": {
			Type:     RouterTypeHTTP,
			Endpoint: fmt.Sprintf("http://%s:%d", host, portA),
		},
		"http-router-b": {
			Type:     RouterTypeHTTP,
			Endpoint: fmt.Sprintf("http://%s:%d", host, portB),
		},
		parallelRouterName: {
			Type: RouterTypeParallel,
			Children: []ChildRef{
				{RouterName: "http-router-a", Timeout: childCallTimeout, IgnoreErrors: true},
				{RouterName: "http-router-b", Timeout: childCallTimeout, IgnoreErrors: true},
			},
		},
	}

	methods := map[Method]string{
		MethodFindPeers:     parallelRouterName,
		MethodFindProviders: parallelRouterName,
		MethodGetIPNS:       parallelRouterName,
		MethodProvide:       parallelRouterName,
		MethodPutIPNS:       parallelRouterName,
	}

	return Topology{Routers: routers, Methods: methods}
}
