package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

// TestCID is the fixed content identifier fetched in every scenario.
// Nothing provides it, which is the point.
const TestCID = "QmYjtig7VJQ6XsnUjqqJvj7QaMcCAwtrgNdahSiFofrE7o"

// Daemon groups everything about the kubo process under test.
type Daemon struct {
	Bin             string        `mapstructure:"bin" default:"ipfs" debugmap:"visible"`
	RepoPath        string        `mapstructure:"repo_path" debugmap:"visible"`
	ExpectedVersion string        `mapstructure:"expected_version" debugmap:"visible"`
	ReadyTimeout    time.Duration `mapstructure:"ready_timeout" default:"0s" debugmap:"visible"`
}

// Ports fixes the local ports one run owns exclusively.
type Ports struct {
	Host    string `mapstructure:"host" default:"127.0.0.1" debugmap:"visible"`
	RouterA int    `mapstructure:"router_a" default:"9998" debugmap:"visible"`
	RouterB int    `mapstructure:"router_b" default:"9999" debugmap:"visible"`
	Swarm   int    `mapstructure:"swarm" default:"4101" debugmap:"visible"`
	API     int    `mapstructure:"api" default:"5101" debugmap:"visible"`
	Gateway int    `mapstructure:"gateway" default:"8180" debugmap:"visible"`
}

// Configuration is the harness configuration, loaded from defaults, an
// optional config file, REPROD_* environment variables and CLI flags.
type Configuration struct {
	Daemon        Daemon        `mapstructure:"daemon"`
	Ports         Ports         `mapstructure:"ports"`
	ProbeDeadline time.Duration `mapstructure:"probe_deadline" default:"120s" debugmap:"visible"`
	DataFolder    string        `mapstructure:"data_folder" debugmap:"visible"`
	LogLevel      string        `mapstructure:"log_level" default:"info" debugmap:"visible"`
	LogFormat     string        `mapstructure:"log_format" default:"console" debugmap:"visible"`
}

// Load builds the configuration from the given viper instance, applying
// struct defaults first so unset keys keep their documented values.
func Load(v *viper.Viper) (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling configuration: %w", err)
	}
	if cfg.Daemon.RepoPath == "" {
		cfg.Daemon.RepoPath = filepath.Join("/tmp", "kubo-offline-repro")
	}
	return cfg, nil
}

func (c *Configuration) Validate() error {
	if c.Daemon.Bin == "" {
		return fmt.Errorf("daemon binary path is empty")
	}
	if c.ProbeDeadline <= 0 {
		return fmt.Errorf("probe deadline must be positive, got %s", c.ProbeDeadline)
	}
	seen := map[int]string{}
	for role, port := range map[string]int{
		"router-a": c.Ports.RouterA,
		"router-b": c.Ports.RouterB,
		"swarm":    c.Ports.Swarm,
		"api":      c.Ports.API,
		"gateway":  c.Ports.Gateway,
	} {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid %s port %d", role, port)
		}
		if other, dup := seen[port]; dup {
			return fmt.Errorf("port %d assigned to both %s and %s", port, other, role)
		}
		seen[port] = role
	}
	return nil
}

// PortSpecs lists every port a scenario needs free before it starts.
func (c *Configuration) PortSpecs() []models.PortSpec {
	host := c.Ports.Host
	return []models.PortSpec{
		{Host: host, Port: c.Ports.RouterA, Role: "router-a", ExpectedFree: true},
		{Host: host, Port: c.Ports.RouterB, Role: "router-b", ExpectedFree: true},
		{Host: host, Port: c.Ports.Swarm, Role: "swarm", ExpectedFree: true},
		{Host: host, Port: c.Ports.API, Role: "api", ExpectedFree: true},
		{Host: host, Port: c.Ports.Gateway, Role: "gateway", ExpectedFree: true},
	}
}
