// Package harness wires the pieces together: for each scenario it
// provisions a fresh repository, brings the daemon up, fires one bounded
// fetch probe at the test CID and classifies what happened. Teardown is
// unconditional.
package harness

import (
	"fmt"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

// Scenario describes one adversarial provider-discovery setup. Both
// scenarios share the same routing topology; they differ only in what
// sits behind the router ports.
type Scenario struct {
	Name        string
	Description string
	// StartMockRouters starts "no providers found" servers on the router
	// ports. When false the ports stay unbound and every provider query
	// gets connection refused.
	StartMockRouters bool
}

var (
	// ScenarioOfflineRouters: both routing backends are unreachable.
	ScenarioOfflineRouters = Scenario{
		Name:             "offline-routers",
		Description:      "both routing backends refuse connections",
		StartMockRouters: false,
	}

	// ScenarioEmptyRouters: both routing backends deterministically
	// answer 404 "no providers found". A probe that never terminates
	// here is the hang regression this harness exists to catch.
	ScenarioEmptyRouters = Scenario{
		Name:             "empty-routers",
		Description:      "both routing backends answer 404 no-providers",
		StartMockRouters: true,
	}
)

// ScenarioByName resolves a CLI scenario argument.
func ScenarioByName(name string) (Scenario, error) {
	switch name {
	case ScenarioOfflineRouters.Name:
		return ScenarioOfflineRouters, nil
	case ScenarioEmptyRouters.Name:
		return ScenarioEmptyRouters, nil
	default:
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
}

// Report is the outcome of one scenario run.
type Report struct {
	Scenario Scenario
	Version  string
	Result   models.ProbeResult
	Verdict  models.Verdict
	// Note is the optional human-readable annotation about recognizable
	// stderr wording. It never influences the verdict.
	Note string
}
