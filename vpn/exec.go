package vpn

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/sveliz/nordctl/common"
)

// Executor abstracts subprocess execution (osascript, pgrep, open) so
// tests can substitute a deterministic double.
type Executor interface {
	// Run executes a command, discarding its output.
	Run(ctx context.Context, name string, args ...string) error
	// Output executes a command and returns trimmed stdout and stderr.
	Output(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)
}

type osExec struct{}

// NewExecutor returns the Executor backed by os/exec.
func NewExecutor() Executor {
	return osExec{}
}

func (osExec) Run(ctx context.Context, name string, args ...string) error {
	common.LogDebug("exec: %s %v", name, args)
	return exec.CommandContext(ctx, name, args...).Run()
}

func (osExec) Output(ctx context.Context, name string, args ...string) (string, string, error) {
	var out, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &out
	cmd.Stderr = &errBuf
	err := cmd.Run()
	stdout := strings.TrimSpace(out.String())
	stderr := strings.TrimSpace(errBuf.String())
	common.LogDebug("exec: %s %v -> err=%v", name, args, err)
	return stdout, stderr, err
}

// IsNotFound reports whether err indicates the binary does not exist.
func IsNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}
