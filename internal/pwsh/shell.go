// Package pwsh wraps the PowerShell cmdlets aiprune uses to query and change
// Appx packages and optional Windows features. Every call runs in its own
// powershell.exe process bounded by a per-operation timeout.
package pwsh

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/blackwell-systems/aiprune/internal/errdefs"
)

// Runner executes a PowerShell script and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, script string) (stdout, stderr []byte, err error)
}

// Shell runs scripts through powershell.exe.
type Shell struct {
	// Exe is the PowerShell executable; "powershell" when empty.
	Exe string
}

// Run executes script with -NoProfile -NonInteractive. A context deadline is
// reported as errdefs.ErrTimeout.
func (s *Shell) Run(ctx context.Context, script string) ([]byte, []byte, error) {
	exe := s.Exe
	if exe == "" {
		exe = "powershell"
	}

	cmd := exec.CommandContext(ctx, exe, "-NoProfile", "-NonInteractive", "-Command", script)
	hideWindow(cmd)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("powershell: %w", errdefs.ErrTimeout)
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); ok {
			return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("powershell failed: %w (stderr: %s)", err, strings.TrimSpace(stderr.String()))
		}
		return stdout.Bytes(), stderr.Bytes(), fmt.Errorf("powershell failed: %w", err)
	}
	return stdout.Bytes(), stderr.Bytes(), nil
}

// quote renders s as a single-quoted PowerShell string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// mentionsNotFound reports whether PowerShell output describes a missing
// package or feature.
func mentionsNotFound(out []byte) bool {
	lower := strings.ToLower(string(out))
	return strings.Contains(lower, "not found") ||
		strings.Contains(lower, "unknown feature") ||
		strings.Contains(lower, "feature name") && strings.Contains(lower, "is unknown")
}
