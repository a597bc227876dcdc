package probe

import (
	"strings"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

// Classify maps a probe result to a verdict. It is a total deterministic
// function of (TimedOut, ExitCode, StderrText) and never looks at
// elapsed time or stdout content. The rows are checked in order:
//
//  1. timed out                          → HangBug
//  2. exit code 0                        → UnexpectedSuccess
//  3. non-zero exit, empty stderr        → SilentFailure
//  4. non-zero exit, non-empty stderr    → ExpectedFailure
func Classify(result models.ProbeResult) models.Verdict {
	switch {
	case result.TimedOut:
		return models.VerdictHangBug
	case result.ExitCode == 0:
		return models.VerdictUnexpectedSuccess
	case result.StderrText == "":
		return models.VerdictSilentFailure
	default:
		return models.VerdictExpectedFailure
	}
}

// Annotate returns a human-readable note about recognizable failure
// wording in stderr. Reporting only: the note never changes a verdict.
func Annotate(result models.ProbeResult) string {
	stderr := strings.ToLower(result.StderrText)
	switch {
	case strings.Contains(stderr, "connection refused"):
		return "stderr mentions connection refused (routers unreachable)"
	case strings.Contains(stderr, "no providers"):
		return "stderr mentions no providers (routers answered empty)"
	default:
		return ""
	}
}
