// Package ipfs drives the kubo binary as an opaque collaborator: every
// interaction goes through a subprocess invocation observed only via
// exit code, stdout and stderr.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// RepoPathEnv is the environment variable carrying the repository path
// into every kubo invocation.
const RepoPathEnv = "IPFS_PATH"

// CmdResult is the observable outcome of one CLI invocation.
type CmdResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CLI invokes the kubo binary against a fixed repository path.
type CLI struct {
	bin      string
	repoPath string
}

func NewCLI(bin, repoPath string) *CLI {
	return &CLI{bin: bin, repoPath: repoPath}
}

// Env returns the process environment for a kubo invocation, with the
// repository path injected.
func (c *CLI) Env() []string {
	return append(os.Environ(), fmt.Sprintf("%s=%s", RepoPathEnv, c.repoPath))
}

// Bin returns the kubo binary path.
func (c *CLI) Bin() string { return c.bin }

// RepoPath returns the repository path the CLI is bound to.
func (c *CLI) RepoPath() string { return c.repoPath }

// Run executes one kubo command to completion. A non-zero exit is not an
// error here; callers decide what exit codes mean.
func (c *CLI) Run(ctx context.Context, args ...string) (CmdResult, error) {
	cmd := exec.CommandContext(ctx, c.bin, args...)
	cmd.Env = c.Env()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	zap.S().Debugw("running ipfs command", "args", args)
	err := cmd.Run()

	result := CmdResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return result, fmt.Errorf("running %s %s: %w", c.bin, strings.Join(args, " "), err)
		}
		result.ExitCode = exitErr.ExitCode()
	}
	return result, nil
}

// Init initializes a fresh repository at the configured path.
func (c *CLI) Init(ctx context.Context) (CmdResult, error) {
	return c.Run(ctx, "init")
}

// Version reports the daemon's version string, e.g. "0.24.0".
func (c *CLI) Version(ctx context.Context) (string, error) {
	res, err := c.Run(ctx, "version", "--number")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("ipfs version exited with code %d: %s", res.ExitCode, res.Stderr)
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ConfigShow returns the daemon's effective configuration as parsed JSON.
func (c *CLI) ConfigShow(ctx context.Context) (map[string]any, error) {
	res, err := c.Run(ctx, "config", "show")
	if err != nil {
		return nil, err
	}
	if res.ExitCode != 0 {
		return nil, fmt.Errorf("ipfs config show exited with code %d: %s", res.ExitCode, res.Stderr)
	}
	var cfg map[string]any
	if err := json.Unmarshal([]byte(res.Stdout), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config show output: %w", err)
	}
	return cfg, nil
}

// FindProvs asks the routing system for providers of the given content
// identifier. Diagnostic only: the result never affects a verdict.
func (c *CLI) FindProvs(ctx context.Context, cid string) (CmdResult, error) {
	return c.Run(ctx, "routing", "findprovs", "--timeout=10s", cid)
}
