package mediaprobe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"
)

// RunResult captures what the probe process reported.
type RunResult struct {
	ExitCode int
	Stderr   string
}

// Runner executes the probe binary. Injectable for tests.
type Runner func(ctx context.Context, binary string, args ...string) (RunResult, error)

// Prober shells out to a media integrity tool (ffprobe by default) with a
// bounded timeout.
type Prober struct {
	binary  string
	timeout time.Duration
	run     Runner
}

// New creates a Prober for the given binary and timeout.
func New(binary string, timeout time.Duration) *Prober {
	if binary == "" {
		binary = "ffprobe"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Prober{binary: binary, timeout: timeout, run: runCommand}
}

// WithRunner sets a custom command runner (for testing).
func (p *Prober) WithRunner(run Runner) {
	p.run = run
}

// Check probes the file at path and returns nil only when the tool exits
// zero with an empty error stream. The tool sometimes emits warnings on
// stderr without a non-zero exit; any such output fails the check.
func (p *Prober) Check(ctx context.Context, path string) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.run(ctx, p.binary, "-v", "error", "-i", path)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("probe timed out after %s", p.timeout)
		}
		return fmt.Errorf("probe failed to run: %w", err)
	}

	stderr := strings.TrimSpace(res.Stderr)
	switch {
	case res.ExitCode != 0 && stderr != "":
		return fmt.Errorf("exit status %d: %s", res.ExitCode, stderr)
	case res.ExitCode != 0:
		return fmt.Errorf("exit status %d", res.ExitCode)
	case stderr != "":
		return errors.New(stderr)
	}
	return nil
}

func runCommand(ctx context.Context, binary string, args ...string) (RunResult, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := RunResult{Stderr: stderr.String()}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
