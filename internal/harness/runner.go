package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/config"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/daemon"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/ipfs"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/ports"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/probe"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/routing"
	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/store"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

const stderrExcerptLimit = 512

// Runner executes scenarios one at a time. It owns the repository
// directory, the configured ports and the daemon process for the
// duration of a run; concurrent invocations against the same resources
// are not supported and not guarded against.
type Runner struct {
	cfg   *config.Configuration
	store *store.Store // nil disables run history
}

func NewRunner(cfg *config.Configuration, st *store.Store) *Runner {
	return &Runner{cfg: cfg, store: st}
}

// Run executes one scenario end to end: port check → provision → mock
// routers (scenario-dependent) → daemon start and readiness → config
// round-trip verification → one bounded probe → classification.
// Setup-phase errors abort the run; once the daemon is up, teardown is
// guaranteed to run whatever happens after.
func (r *Runner) Run(ctx context.Context, scenario Scenario) (*Report, error) {
	log := zap.S().With("scenario", scenario.Name)
	log.Infow("starting scenario", "description", scenario.Description)

	if err := ports.Check(r.cfg.PortSpecs()); err != nil {
		return nil, err
	}

	cli := ipfs.NewCLI(r.cfg.Daemon.Bin, r.cfg.Daemon.RepoPath)

	version, err := cli.Version(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading daemon version: %w", err)
	}
	if want := r.cfg.Daemon.ExpectedVersion; want != "" && version != want {
		return nil, srvErrors.NewVersionMismatchError(want, version)
	}
	log.Infow("daemon binary", "version", version)

	topo := routing.DualRouterTopology(r.cfg.Ports.Host, r.cfg.Ports.RouterA, r.cfg.Ports.RouterB)
	if err := topo.Validate(); err != nil {
		return nil, fmt.Errorf("invalid topology: %w", err)
	}

	provisioner := ipfs.NewProvisioner(cli)
	addrs := ipfs.AddressOverrides{
		Host:        r.cfg.Ports.Host,
		SwarmPort:   r.cfg.Ports.Swarm,
		APIPort:     r.cfg.Ports.API,
		GatewayPort: r.cfg.Ports.Gateway,
	}
	if err := provisioner.Provision(ctx, topo, addrs); err != nil {
		return nil, err
	}

	var mocks []*routing.MockServer
	defer func() {
		for _, m := range mocks {
			if err := m.Stop(); err != nil {
				log.Warnw("stopping mock router", "error", err)
			}
		}
	}()
	if scenario.StartMockRouters {
		for _, port := range []int{r.cfg.Ports.RouterA, r.cfg.Ports.RouterB} {
			m, err := routing.NewMockServer(fmt.Sprintf("%s:%d", r.cfg.Ports.Host, port))
			if err != nil {
				return nil, fmt.Errorf("starting mock router: %w", err)
			}
			mocks = append(mocks, m)
		}
	}

	supervisor := daemon.NewSupervisor(daemon.Config{
		Bin:          r.cfg.Daemon.Bin,
		Args:         []string{"daemon"},
		Env:          cli.Env(),
		ReadyTimeout: r.cfg.Daemon.ReadyTimeout,
	})
	handle, err := supervisor.Start(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		// Teardown must run even when the probe or classification fails,
		// so shutdown gets its own context.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := supervisor.Shutdown(shutdownCtx, handle); err != nil {
			log.Warnw("daemon shutdown", "error", err)
		}
	}()

	if err := supervisor.WaitReady(ctx, handle); err != nil {
		return nil, err
	}

	if err := provisioner.Verify(ctx, topo); err != nil {
		return nil, err
	}
	log.Info("persisted config matches requested topology")

	// Diagnostic only: what does the routing system itself say?
	if res, err := cli.FindProvs(ctx, config.TestCID); err == nil {
		log.Infow("findprovs diagnostic",
			"exit_code", res.ExitCode,
			"stdout_len", len(res.Stdout),
			"stderr", strings.TrimSpace(res.Stderr))
	} else {
		log.Warnw("findprovs diagnostic failed", "error", err)
	}

	result, err := probe.NewRunner().Run(ctx,
		r.cfg.Daemon.Bin,
		[]string{"cat", config.TestCID},
		cli.Env(),
		r.cfg.ProbeDeadline,
	)
	if err != nil {
		log.Errorw("probe failed to run", "error", err)
		return nil, err
	}

	report := &Report{
		Scenario: scenario,
		Version:  version,
		Result:   result,
		Verdict:  probe.Classify(result),
		Note:     probe.Annotate(result),
	}
	log.Infow("scenario finished",
		"verdict", report.Verdict,
		"exit_code", result.ExitCode,
		"timed_out", result.TimedOut,
		"elapsed", result.Elapsed)

	r.persist(ctx, report)
	return report, nil
}

// RunAll executes the given scenarios in order, printing each report.
// Every scenario runs even if an earlier one errored; the first error is
// returned alongside the reports that were produced.
func (r *Runner) RunAll(ctx context.Context, scenarios []Scenario) ([]*Report, error) {
	var (
		reports  []*Report
		firstErr error
	)
	for _, scenario := range scenarios {
		report, err := r.Run(ctx, scenario)
		if err != nil {
			zap.S().Errorw("scenario failed", "scenario", scenario.Name, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("scenario %s: %w", scenario.Name, err)
			}
			continue
		}
		PrintReport(report)
		reports = append(reports, report)
	}
	return reports, firstErr
}

// persist appends the run to the history store when one is configured.
// History is best-effort: a storage error never fails the run.
func (r *Runner) persist(ctx context.Context, report *Report) {
	if r.store == nil {
		return
	}
	excerpt := report.Result.StderrText
	if len(excerpt) > stderrExcerptLimit {
		excerpt = excerpt[:stderrExcerptLimit]
	}
	rec := &models.RunRecord{
		ID:            uuid.New(),
		Scenario:      report.Scenario.Name,
		Verdict:       report.Verdict,
		ExitCode:      report.Result.ExitCode,
		TimedOut:      report.Result.TimedOut,
		ElapsedMs:     report.Result.Elapsed.Milliseconds(),
		StderrExcerpt: excerpt,
	}
	if err := r.store.Runs().Save(ctx, rec); err != nil {
		zap.S().Warnw("saving run record", "error", err)
	}
}
