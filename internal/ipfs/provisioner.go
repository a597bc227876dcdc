package ipfs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/routing"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

const configFileName = "config"

// Provisioner materializes a fresh daemon repository and injects the
// routing topology into its persisted configuration.
type Provisioner struct {
	cli *CLI
}

func NewProvisioner(cli *CLI) *Provisioner {
	return &Provisioner{cli: cli}
}

// Provision destructively resets the repository directory, runs the init
// command, then rewrites the persisted configuration through BuildConfig.
func (p *Provisioner) Provision(ctx context.Context, topo routing.Topology, addrs AddressOverrides) error {
	repoPath := p.cli.RepoPath()

	if err := os.RemoveAll(repoPath); err != nil {
		return srvErrors.NewProvisionError("reset", err)
	}

	res, err := p.cli.Init(ctx)
	if err != nil {
		return srvErrors.NewProvisionError("init", err)
	}
	if res.ExitCode != 0 {
		return srvErrors.NewProvisionError("init",
			fmt.Errorf("exit code %d: %s", res.ExitCode, res.Stderr))
	}
	zap.S().Infow("repository initialized", "path", repoPath)

	base, err := p.readConfig()
	if err != nil {
		return srvErrors.NewProvisionError("read-config", err)
	}

	cfg := BuildConfig(base, topo, addrs)

	if err := p.writeConfig(cfg); err != nil {
		return srvErrors.NewProvisionError("write-config", err)
	}
	zap.S().Infow("routing topology persisted",
		"routers", len(topo.Routers), "methods", len(topo.Methods))
	return nil
}

// Verify re-reads the configuration the daemon will actually see and
// asserts it matches the requested topology field for field. This guards
// against silent serialization drift between provisioning and startup.
func (p *Provisioner) Verify(ctx context.Context, topo routing.Topology) error {
	cfg, err := p.cli.ConfigShow(ctx)
	if err != nil {
		return srvErrors.NewProvisionError("config-show", err)
	}
	return VerifyConfig(cfg, topo)
}

// VerifyConfig asserts that a parsed configuration carries the requested
// topology: router endpoints, method bindings, and per-child timeout and
// ignore-errors flags. Every mismatch is reported, not just the first.
func VerifyConfig(cfg map[string]any, topo routing.Topology) error {
	var mismatches []string

	routingCfg, ok := asMap(cfg["Routing"])
	if !ok {
		return srvErrors.NewConfigVerificationError([]string{"Routing section missing"})
	}

	if typ, _ := routingCfg["Type"].(string); typ != "custom" {
		mismatches = append(mismatches, fmt.Sprintf("Routing.Type is %q, want \"custom\"", typ))
	}

	routers, _ := asMap(routingCfg["Routers"])
	for name, want := range topo.Routers {
		got, ok := asMap(routers[name])
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("router %q missing", name))
			continue
		}
		mismatches = append(mismatches, verifyRouter(name, got, want)...)
	}

	methods, _ := asMap(routingCfg["Methods"])
	for method, wantName := range topo.Methods {
		binding, ok := asMap(methods[string(method)])
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("method %q binding missing", method))
			continue
		}
		if gotName, _ := binding["RouterName"].(string); gotName != wantName {
			mismatches = append(mismatches,
				fmt.Sprintf("method %q bound to %q, want %q", method, gotName, wantName))
		}
	}

	if len(mismatches) > 0 {
		return srvErrors.NewConfigVerificationError(mismatches)
	}
	return nil
}

func verifyRouter(name string, got map[string]any, want routing.Router) []string {
	var mismatches []string

	if typ, _ := got["Type"].(string); typ != string(want.Type) {
		mismatches = append(mismatches,
			fmt.Sprintf("router %q type is %q, want %q", name, typ, want.Type))
		return mismatches
	}
	params, _ := asMap(got["Parameters"])

	switch want.Type {
	case routing.RouterTypeHTTP:
		if endpoint, _ := params["Endpoint"].(string); endpoint != want.Endpoint {
			mismatches = append(mismatches,
				fmt.Sprintf("router %q endpoint is %q, want %q", name, endpoint, want.Endpoint))
		}
	case routing.RouterTypeParallel:
		children, _ := params["Routers"].([]any)
		if len(children) != len(want.Children) {
			mismatches = append(mismatches,
				fmt.Sprintf("router %q has %d children, want %d", name, len(children), len(want.Children)))
			return mismatches
		}
		for i, wantChild := range want.Children {
			child, ok := asMap(children[i])
			if !ok {
				mismatches = append(mismatches,
					fmt.Sprintf("router %q child %d is not an object", name, i))
				continue
			}
			if childName, _ := child["RouterName"].(string); childName != wantChild.RouterName {
				mismatches = append(mismatches,
					fmt.Sprintf("router %q child %d is %q, want %q", name, i, childName, wantChild.RouterName))
			}
			if timeout, _ := child["Timeout"].(string); timeout != wantChild.Timeout.String() {
				mismatches = append(mismatches,
					fmt.Sprintf("router %q child %q timeout is %q, want %q",
						name, wantChild.RouterName, timeout, wantChild.Timeout.String()))
			}
			if ignore, _ := child["IgnoreErrors"].(bool); ignore != wantChild.IgnoreErrors {
				mismatches = append(mismatches,
					fmt.Sprintf("router %q child %q ignore-errors is %v, want %v",
						name, wantChild.RouterName, ignore, wantChild.IgnoreErrors))
			}
		}
	}
	return mismatches
}

func (p *Provisioner) configPath() string {
	return filepath.Join(p.cli.RepoPath(), configFileName)
}

func (p *Provisioner) readConfig() (map[string]any, error) {
	data, err := os.ReadFile(p.configPath())
	if err != nil {
		return nil, err
	}
	var cfg map[string]any
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", p.configPath(), err)
	}
	return cfg, nil
}

func (p *Provisioner) writeConfig(cfg map[string]any) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p.configPath(), append(data, '\n'), 0o600)
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}
