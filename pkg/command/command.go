// Package command runs external processes for packtest. It is the single
// place that touches os/exec: virtualenv creation, pip installs and the
// test runner all go through a Runner, so tests can substitute a recorder.
package command

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"

	"github.com/rs/zerolog"

	pkgerrors "github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// Spec describes one external command invocation.
type Spec struct {
	// Name is the executable, looked up on the child's PATH.
	Name string

	// Args are the command arguments.
	Args []string

	// Dir is the working directory; empty means inherit.
	Dir string

	// Env is the complete child environment. Nil means inherit the
	// process environment.
	Env []string

	// Stream connects the child directly to our stdout/stderr so users
	// see its output live. When false, output is captured into Result.
	Stream bool
}

// Result is the outcome of a completed command.
type Result struct {
	// ExitCode is the child's exit status. Zero on success.
	ExitCode int

	// Stdout and Stderr hold captured output when Spec.Stream is false.
	Stdout string
	Stderr string
}

// Runner executes commands. The returned error is reserved for failures to
// run at all (binary missing, spawn error); a child that ran and exited
// non-zero yields a Result with its status and a nil error.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ExecRunner is the os/exec backed Runner.
type ExecRunner struct {
	logger zerolog.Logger
}

// NewRunner creates an ExecRunner.
func NewRunner() *ExecRunner {
	return &ExecRunner{
		logger: logging.GetLogger("command"),
	}
}

// Run executes the spec to completion.
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if spec.Name == "" {
		return Result{ExitCode: -1}, pkgerrors.New(pkgerrors.ErrInvalidInput, "command name is required")
	}

	r.logger.Debug().
		Str("command", spec.Name).
		Strs("args", spec.Args).
		Str("workingDir", spec.Dir).
		Bool("stream", spec.Stream).
		Msg("Executing command")

	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Dir = spec.Dir
	if spec.Env != nil {
		cmd.Env = spec.Env
	}

	var stdout, stderr bytes.Buffer
	if spec.Stream {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	} else {
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr
	}

	err := cmd.Run()

	result := Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The child ran and failed; its status is the caller's to
			// interpret, not an error of ours.
			result.ExitCode = exitErr.ExitCode()
			r.logger.Debug().
				Str("command", spec.Name).
				Int("exitCode", result.ExitCode).
				Msg("Command exited non-zero")
			return result, nil
		}

		result.ExitCode = -1
		return result, pkgerrors.Wrapf(err, pkgerrors.ErrInternal, "failed to run %s", spec.Name)
	}

	if !spec.Stream && stdout.Len() > 0 {
		r.logger.Trace().Str("output", result.Stdout).Msg("Command stdout")
	}

	return result, nil
}
