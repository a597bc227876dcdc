package models

import (
	"time"

	"github.com/google/uuid"
)

// PortSpec describes one TCP port whose state is checked before a run
// starts. ExpectedFree is true for ports the harness itself will bind
// (mock routers) or that the daemon will claim, false for ports that
// must already be served by a collaborator.
type PortSpec struct {
	Host         string
	Port         int
	Role         string
	ExpectedFree bool
}

// Verdict is the classifier's terminal label for one probe run.
type Verdict string

const (
	// VerdictHangBug marks a probe that hit its wall-clock deadline.
	// This is the regression signal the harness exists to catch.
	VerdictHangBug Verdict = "hang-bug"
	// VerdictExpectedFailure marks a non-zero exit with diagnostics on
	// stderr, the behavior a healthy daemon shows when no providers exist.
	VerdictExpectedFailure Verdict = "expected-failure"
	// VerdictSilentFailure marks a non-zero exit with an empty stderr.
	VerdictSilentFailure Verdict = "silent-failure"
	// VerdictUnexpectedSuccess marks a zero exit: the probe fetched
	// content that no router should have been able to locate.
	VerdictUnexpectedSuccess Verdict = "unexpected-success"
)

// ProbeResult captures one bounded probe invocation. TimedOut is true
// iff no exit was observed before the configured deadline.
type ProbeResult struct {
	ExitCode     int
	StderrText   string
	StdoutLength int
	TimedOut     bool
	Elapsed      time.Duration
}

// RunRecord is the persisted summary of one completed scenario run.
type RunRecord struct {
	ID            uuid.UUID
	Scenario      string
	Verdict       Verdict
	ExitCode      int
	TimedOut      bool
	ElapsedMs     int64
	StderrExcerpt string
	CreatedAt     time.Time
}
