// Package probe runs the bounded content-fetch command and classifies
// its outcome.
package probe

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

const killDrainPeriod = 500 * time.Millisecond

// Runner executes exactly one probe attempt per scenario. Retry
// semantics, if any, belong to the daemon under test, not the harness.
type Runner struct{}

func NewRunner() *Runner {
	return &Runner{}
}

// Run spawns the probe command and races its exit event against the
// deadline. On deadline the subprocess is force-killed and the result
// carries TimedOut=true; a timeout is a first-class outcome, never an
// error. Run only errors when the command cannot be spawned at all.
func (r *Runner) Run(ctx context.Context, bin string, args, env []string, deadline time.Duration) (models.ProbeResult, error) {
	cmd := exec.Command(bin, args...)
	cmd.Env = env

	stdout := models.NewOutputSink()
	stderr := models.NewOutputSink()
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	exit, fulfill := models.Completable[int](nil)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return models.ProbeResult{}, fmt.Errorf("starting probe %s: %w", bin, err)
	}
	zap.S().Infow("probe started", "bin", bin, "args", args, "deadline", deadline)

	go func() {
		_ = cmd.Wait()
		stdout.Finalize()
		stderr.Finalize()
		fulfill(cmd.ProcessState.ExitCode())
	}()

	timer := time.NewTimer(deadline)
	defer timer.Stop()

	select {
	case code := <-exit.C():
		elapsed := time.Since(start)
		zap.S().Infow("probe exited", "code", code, "elapsed", elapsed)
		return models.ProbeResult{
			ExitCode:     code,
			StderrText:   stderr.Finalize(),
			StdoutLength: stdout.Len(),
			TimedOut:     false,
			Elapsed:      elapsed,
		}, nil

	case <-timer.C:
		zap.S().Warnw("probe deadline elapsed, killing", "deadline", deadline)
		_ = cmd.Process.Kill()
		// Give the waiter a short drain period to reap the process and
		// finalize the sinks; if even that stalls, finalize what we have.
		drain := time.NewTimer(killDrainPeriod)
		defer drain.Stop()
		select {
		case <-exit.C():
		case <-drain.C:
		}
		return models.ProbeResult{
			ExitCode:     -1,
			StderrText:   stderr.Finalize(),
			StdoutLength: stdout.Len(),
			TimedOut:     true,
			Elapsed:      time.Since(start),
		}, nil

	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return models.ProbeResult{}, ctx.Err()
	}
}
