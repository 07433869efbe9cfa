package mount

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// Runner executes external commands. The production implementation shells
// out; tests substitute a fake.
type Runner interface {
	// Run executes name with args, feeding stdin when non-empty, and
	// returns captured stdout and stderr. A non-zero exit is returned
	// as the error.
	Run(ctx context.Context, name string, args []string, stdin string) (stdout, stderr string, err error)
	// LookPath reports whether the binary is present on PATH
	LookPath(name string) error
}

// ExecRunner runs commands via os/exec
type ExecRunner struct{}

// NewExecRunner creates the default runner
func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args []string, stdin string) (string, string, error) {
	var outBuf, errBuf bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}

	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

func (r *ExecRunner) LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}

// IsExitError reports whether err is a non-zero exit rather than a
// failure to start the command at all.
func IsExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}
