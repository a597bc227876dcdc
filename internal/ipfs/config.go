package ipfs

import (
	"fmt"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/routing"
)

// AddressOverrides pins the daemon's listen addresses to local ports so
// a run never collides with another node on the host.
type AddressOverrides struct {
	Host        string
	SwarmPort   int
	APIPort     int
	GatewayPort int
}

// BuildConfig derives a new configuration value from a base template, a
// routing topology and address overrides. It is a pure function: the
// base is never mutated, and the Routing, Addresses and Discovery
// sections of the result are replaced wholesale.
func BuildConfig(base map[string]any, topo routing.Topology, addrs AddressOverrides) map[string]any {
	cfg := make(map[string]any, len(base)+3)
	for k, v := range base {
		cfg[k] = v
	}

	cfg["Routing"] = routingSection(topo)
	cfg["Addresses"] = addressesSection(addrs)
	// Local peer discovery defeats the point of isolated routing.
	cfg["Discovery"] = map[string]any{
		"MDNS": map[string]any{
			"Enabled": false,
		},
	}
	return cfg
}

func routingSection(topo routing.Topology) map[string]any {
	routers := make(map[string]any, len(topo.Routers))
	for name, r := range topo.Routers {
		switch r.Type {
		case routing.RouterTypeHTTP:
			routers[name] = map[string]any{
				"Type": string(routing.RouterTypeHTTP),
				"Parameters": map[string]any{
					"Endpoint": r.Endpoint,
				},
			}
		case routing.RouterTypeParallel:
			children := make([]any, 0, len(r.Children))
			for _, child := range r.Children {
				children = append(children, map[string]any{
					"RouterName":   child.RouterName,
					"Timeout":      child.Timeout.String(),
					"IgnoreErrors": child.IgnoreErrors,
				})
			}
			routers[name] = map[string]any{
				"Type": string(routing.RouterTypeParallel),
				"Parameters": map[string]any{
					"Routers": children,
				},
			}
		}
	}

	methods := make(map[string]any, len(topo.Methods))
	for method, name := range topo.Methods {
		methods[string(method)] = map[string]any{
			"RouterName": name,
		}
	}

	return map[string]any{
		"Type":    "custom",
		"Routers": routers,
		"Methods": methods,
	}
}

func addressesSection(addrs AddressOverrides) map[string]any {
	host := addrs.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return map[string]any{
		"Swarm": []any{
			fmt.Sprintf("/ip4/%s/tcp/%d", host, addrs.SwarmPort),
		},
		"API":     fmt.Sprintf("/ip4/%s/tcp/%d", host, addrs.APIPort),
		"Gateway": fmt.Sprintf("/ip4/%s/tcp/%d", host, addrs.GatewayPort),
	}
}
