// Package errors defines the typed errors surfaced by the harness setup
// phases. A probe timeout is never an error: it is classified as a
// verdict by the probe package.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// PortConflict describes a single port whose observed state disagrees
// with the expected one.
type PortConflict struct {
	Host         string
	Port         int
	Role         string
	ExpectedFree bool
}

func (c PortConflict) String() string {
	state := "occupied"
	if c.ExpectedFree {
		state = "free"
	}
	return fmt.Sprintf("%s:%d (%s) expected %s", c.Host, c.Port, c.Role, state)
}

// PortConflictError aggregates every mismatched port found by the
// availability check, not just the first one.
type PortConflictError struct {
	Conflicts []PortConflict
}

func NewPortConflictError(conflicts []PortConflict) *PortConflictError {
	return &PortConflictError{Conflicts: conflicts}
}

func (e *PortConflictError) Error() string {
	descs := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		descs = append(descs, c.String())
	}
	return fmt.Sprintf("port conflicts: %s", strings.Join(descs, ", "))
}

func IsPortConflictError(err error) bool {
	var e *PortConflictError
	return errors.As(err, &e)
}

// ProvisionError reports a failed repository provisioning: either the
// init command exited non-zero or the resulting configuration could not
// be parsed.
type ProvisionError struct {
	Stage string
	Err   error
}

func NewProvisionError(stage string, err error) *ProvisionError {
	return &ProvisionError{Stage: stage, Err: err}
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning failed at %s: %v", e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }

func IsProvisionError(err error) bool {
	var e *ProvisionError
	return errors.As(err, &e)
}

// VersionMismatchError reports a daemon binary whose reported version
// differs from the one the run was pinned to.
type VersionMismatchError struct {
	Expected string
	Actual   string
}

func NewVersionMismatchError(expected, actual string) *VersionMismatchError {
	return &VersionMismatchError{Expected: expected, Actual: actual}
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("version mismatch: expected %q, got %q", e.Expected, e.Actual)
}

func IsVersionMismatchError(err error) bool {
	var e *VersionMismatchError
	return errors.As(err, &e)
}

// ConfigVerificationError reports that the persisted daemon
// configuration does not match the requested routing topology.
type ConfigVerificationError struct {
	Mismatches []string
}

func NewConfigVerificationError(mismatches []string) *ConfigVerificationError {
	return &ConfigVerificationError{Mismatches: mismatches}
}

func (e *ConfigVerificationError) Error() string {
	return fmt.Sprintf("persisted config does not match requested topology: %s",
		strings.Join(e.Mismatches, "; "))
}

func IsConfigVerificationError(err error) bool {
	var e *ConfigVerificationError
	return errors.As(err, &e)
}

// DaemonCrashError reports a daemon process that exited before emitting
// its readiness marker.
type DaemonCrashError struct {
	ExitCode int
	Stderr   string
}

func NewDaemonCrashError(exitCode int, stderr string) *DaemonCrashError {
	return &DaemonCrashError{ExitCode: exitCode, Stderr: stderr}
}

func (e *DaemonCrashError) Error() string {
	return fmt.Sprintf("daemon exited before readiness (exit code %d): %s",
		e.ExitCode, strings.TrimSpace(e.Stderr))
}

func IsDaemonCrashError(err error) bool {
	var e *DaemonCrashError
	return errors.As(err, &e)
}
