package sync

import (
	"bufio"
	"context"
	"io"
	"os/exec"
)

// ProcessRunner starts a subprocess and forwards its combined output
// line by line. The production implementation execs; tests substitute
// a fake that scripts output and exit status.
type ProcessRunner interface {
	Run(ctx context.Context, name string, args []string, onLine func(string)) error
}

// ExecProcessRunner runs subprocesses via os/exec, streaming stdout and
// stderr incrementally instead of buffering the whole transfer log.
type ExecProcessRunner struct{}

// NewExecProcessRunner creates the default process runner
func NewExecProcessRunner() *ExecProcessRunner {
	return &ExecProcessRunner{}
}

func (r *ExecProcessRunner) Run(ctx context.Context, name string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, name, args...)

	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		pr.Close()
		return err
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 64*1024), 1024*1024)
		for scanner.Scan() {
			if onLine != nil {
				onLine(scanner.Text())
			}
		}
		// An oversized line stops the scanner but must not stop the
		// drain: the process blocks on a full pipe and Wait would never
		// return.
		if scanner.Err() != nil {
			_, _ = io.Copy(io.Discard, pr)
		}
	}()

	err := cmd.Wait()
	pw.Close()
	<-done
	pr.Close()
	return err
}

// LookPath reports whether the binary is present on PATH
func LookPath(name string) error {
	_, err := exec.LookPath(name)
	return err
}
