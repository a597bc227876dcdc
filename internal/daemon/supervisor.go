// Package daemon supervises the long-running kubo subprocess under test:
// start, readiness detection from its output stream, and
// graceful-then-forced shutdown.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
	srvErrors "github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/pkg/errors"
)

// ReadyMarker is the substring in the daemon's output that signals it is
// ready to serve requests.
const ReadyMarker = "Daemon is ready"

const (
	shutdownPollInterval = 500 * time.Millisecond
	shutdownPollTries    = 10 // ~5s of graceful waiting before SIGKILL
	killDrainPeriod      = time.Second
)

// ExitStatus is the single value the exit future is fulfilled with.
type ExitStatus struct {
	Code int
}

// Handle tracks one daemon subprocess. It transitions running → exited
// exactly once; output accumulates only while running and is finalized
// by the exit event.
type Handle struct {
	cmd      *exec.Cmd
	stdout   *models.OutputSink
	stderr   *models.OutputSink
	exit     *models.Future[ExitStatus]
	exited   atomic.Bool
	exitCode atomic.Int32
}

// Exited reports whether the process has exited.
func (h *Handle) Exited() bool {
	return h.exited.Load()
}

// ExitCode returns the exit code once the process has exited.
func (h *Handle) ExitCode() (int, bool) {
	if !h.exited.Load() {
		return 0, false
	}
	return int(h.exitCode.Load()), true
}

// Exit returns the one-shot future fulfilled by the process exit event.
func (h *Handle) Exit() *models.Future[ExitStatus] {
	return h.exit
}

// StderrText returns the stderr accumulated so far, or the finalized
// text after exit.
func (h *Handle) StderrText() string {
	if h.exited.Load() {
		return h.stderr.Finalize()
	}
	return ""
}

// Config describes the subprocess to supervise.
type Config struct {
	Bin  string
	Args []string
	Env  []string
	// ReadyMarker defaults to the kubo daemon banner.
	ReadyMarker string
	// ReadyTimeout bounds WaitReady. Zero preserves the source behavior:
	// readiness has no deadline of its own and only a process exit bails
	// the wait out.
	ReadyTimeout time.Duration
}

// Supervisor starts and stops the daemon subprocess.
type Supervisor struct {
	cfg Config
}

func NewSupervisor(cfg Config) *Supervisor {
	if cfg.ReadyMarker == "" {
		cfg.ReadyMarker = ReadyMarker
	}
	return &Supervisor{cfg: cfg}
}

// Start spawns the daemon. Output streams are accumulated asynchronously
// into the handle; a waiter goroutine finalizes both sinks and fulfills
// the exit future exactly once when the process exits.
func (s *Supervisor) Start(ctx context.Context) (*Handle, error) {
	cmd := exec.CommandContext(ctx, s.cfg.Bin, s.cfg.Args...)
	cmd.Env = s.cfg.Env
	// Let the harness own signal escalation instead of exec's default
	// kill-on-context-cancel.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}

	h := &Handle{
		cmd:    cmd,
		stdout: models.NewOutputSink(),
		stderr: models.NewOutputSink(),
	}
	cmd.Stdout = h.stdout
	cmd.Stderr = h.stderr

	exit, fulfill := models.Completable[ExitStatus](nil)
	h.exit = exit

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", s.cfg.Bin, err)
	}
	zap.S().Infow("daemon started", "bin", s.cfg.Bin, "pid", cmd.Process.Pid)

	go func() {
		err := cmd.Wait()
		code := cmd.ProcessState.ExitCode()
		h.stdout.Finalize()
		h.stderr.Finalize()
		h.exitCode.Store(int32(code))
		h.exited.Store(true)
		fulfill(ExitStatus{Code: code})
		zap.S().Infow("daemon exited", "code", code, "wait_err", err)
	}()

	return h, nil
}

// WaitReady blocks until the readiness marker appears in the daemon's
// output. A process exit before the marker is a fatal startup failure.
// With ReadyTimeout zero the wait is unbounded: a daemon that neither
// becomes ready nor exits keeps WaitReady blocked, by design.
func (s *Supervisor) WaitReady(ctx context.Context, h *Handle) error {
	ready := h.stdout.WatchFor(s.cfg.ReadyMarker)

	var timeout <-chan time.Time
	if s.cfg.ReadyTimeout > 0 {
		timer := time.NewTimer(s.cfg.ReadyTimeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case <-ready.C():
		zap.S().Info("daemon is ready")
		return nil
	case st := <-h.exit.C():
		return srvErrors.NewDaemonCrashError(st.Code, h.stderr.Finalize())
	case <-timeout:
		return fmt.Errorf("daemon not ready within %s", s.cfg.ReadyTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown sends SIGTERM, polls for exit for about five seconds, then
// escalates to SIGKILL and waits a fixed drain period. Calling it on an
// already-exited handle is a no-op, so a second Shutdown never signals a
// dead process.
func (s *Supervisor) Shutdown(ctx context.Context, h *Handle) error {
	if h == nil || h.Exited() {
		return nil
	}

	zap.S().Infow("stopping daemon", "pid", h.cmd.Process.Pid)
	if err := h.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		// The process may have exited between the check and the signal.
		if h.Exited() {
			return nil
		}
		return fmt.Errorf("signaling daemon: %w", err)
	}

	stillRunning := errors.New("daemon still running")
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		if h.Exited() {
			return struct{}{}, nil
		}
		return struct{}{}, stillRunning
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(shutdownPollInterval)),
		backoff.WithMaxTries(shutdownPollTries),
	)
	if err == nil {
		return nil
	}

	zap.S().Warn("daemon did not exit gracefully, escalating to SIGKILL")
	if err := h.cmd.Process.Kill(); err != nil && !h.Exited() {
		return fmt.Errorf("killing daemon: %w", err)
	}
	time.Sleep(killDrainPeriod)
	return nil
}
