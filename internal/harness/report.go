package harness

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/Rinse12/kubo-fetch-cid-not-throwing-if-providers-offline/internal/models"
)

var verdictColors = map[models.Verdict]*color.Color{
	models.VerdictHangBug:           color.New(color.FgRed, color.Bold),
	models.VerdictExpectedFailure:   color.New(color.FgGreen),
	models.VerdictSilentFailure:     color.New(color.FgYellow),
	models.VerdictUnexpectedSuccess: color.New(color.FgMagenta),
}

// PrintReport writes a human-readable summary of one scenario run to
// stdout. The structured log carries the same data; this is the part a
// maintainer reads when triaging the issue.
func PrintReport(r *Report) {
	header := color.New(color.Bold)
	header.Printf("\n=== %s ===\n", r.Scenario.Name)
	fmt.Printf("  %s\n", r.Scenario.Description)
	fmt.Printf("  daemon version: %s\n", r.Version)

	c, ok := verdictColors[r.Verdict]
	if !ok {
		c = color.New()
	}
	fmt.Printf("  verdict:        ")
	c.Printf("%s\n", r.Verdict)

	fmt.Printf("  exit code:      %d\n", r.Result.ExitCode)
	fmt.Printf("  timed out:      %v\n", r.Result.TimedOut)
	fmt.Printf("  elapsed:        %s\n", r.Result.Elapsed.Round(10*time.Millisecond))
	fmt.Printf("  stdout bytes:   %d\n", r.Result.StdoutLength)
	if stderr := strings.TrimSpace(r.Result.StderrText); stderr != "" {
		fmt.Printf("  stderr:         %s\n", firstLine(stderr))
	}
	if r.Note != "" {
		fmt.Printf("  note:           %s\n", r.Note)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " […]"
	}
	return s
}
