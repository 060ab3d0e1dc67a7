// Package extract runs the external tree extraction tool over point-cloud
// files. Each invocation is time-boxed and its exit status always checked.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/banshee-data/treevolume/internal/monitoring"
	"github.com/banshee-data/treevolume/internal/security"
)

// DefaultTimeout bounds a single extraction when the Runner has none set.
const DefaultTimeout = 10 * time.Minute

// maxOutputBytes caps the tool output retained in a Result or error.
const maxOutputBytes = 64 * 1024

// SubprocessFailureError reports an extraction that could not be started,
// exited non-zero or ran past its deadline.
type SubprocessFailureError struct {
	Path     string
	TimedOut bool
	ExitCode int // -1 when the process never produced an exit status
	Output   string
	Err      error
}

func (e *SubprocessFailureError) Error() string {
	switch {
	case e.TimedOut:
		return fmt.Sprintf("extract %s: timed out: %v", e.Path, e.Err)
	case e.ExitCode >= 0:
		return fmt.Sprintf("extract %s: exit status %d: %s", e.Path, e.ExitCode, lastLine(e.Output))
	default:
		return fmt.Sprintf("extract %s: %v", e.Path, e.Err)
	}
}

func (e *SubprocessFailureError) Unwrap() error { return e.Err }

// Result describes a successful extraction.
type Result struct {
	Path     string
	ExitCode int
	Output   string
	Duration time.Duration
}

// Runner invokes Command with Args followed by the point-cloud path.
type Runner struct {
	Command string
	Args    []string
	Timeout time.Duration

	// Root, when set, rejects inputs that resolve outside this directory.
	Root string
}

// NewRunner creates a runner for command with the default timeout.
func NewRunner(command string, args ...string) *Runner {
	return &Runner{Command: command, Args: args, Timeout: DefaultTimeout}
}

// Run extracts trees from the point cloud at plyPath. The tool writes its
// outputs next to the input; only the exit status and combined output are
// observed here.
func (r *Runner) Run(ctx context.Context, plyPath string) (Result, error) {
	if r.Root != "" {
		if err := security.ValidatePathWithinDirectory(plyPath, r.Root); err != nil {
			return Result{}, &SubprocessFailureError{Path: plyPath, ExitCode: -1, Err: err}
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string(nil), r.Args...), plyPath)
	cmd := exec.CommandContext(ctx, r.Command, args...)
	// Give a killed tool a moment to release its pipes.
	cmd.WaitDelay = 2 * time.Second

	start := time.Now()
	out, err := cmd.CombinedOutput()
	elapsed := time.Since(start)
	output := truncate(out)

	if err == nil {
		monitoring.Logf("Extracted %s in %v", plyPath, elapsed.Round(time.Millisecond))
		return Result{Path: plyPath, ExitCode: 0, Output: output, Duration: elapsed}, nil
	}

	failure := &SubprocessFailureError{Path: plyPath, ExitCode: -1, Output: output, Err: err}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) {
		failure.TimedOut = true
		failure.Err = fmt.Errorf("after %v: %w", timeout, ctxErr)
	} else if ctxErr != nil {
		failure.Err = ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && !failure.TimedOut {
		failure.ExitCode = exitErr.ExitCode()
	}
	return Result{}, failure
}

func truncate(out []byte) string {
	out = bytes.TrimSpace(out)
	if len(out) > maxOutputBytes {
		out = out[len(out)-maxOutputBytes:]
	}
	return string(out)
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
