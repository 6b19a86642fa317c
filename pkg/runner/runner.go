// Package runner invokes the discovery-based test runner over a pack's
// tests directory. The runner's exit status is captured into an explicit
// Result so later teardown steps cannot clobber it; it is the sole
// determinant of the run's success.
package runner

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// Options configures an Executor.
type Options struct {
	// Binary is the test runner executable, already resolved against the
	// active environment.
	Binary string

	// Args precede the tests directory on the command line.
	Args []string

	// JUnitXML, when non-empty, asks the runner for an XML report at
	// that path.
	JUnitXML string

	// Runner executes the command.
	Runner command.Runner

	// Env is the child environment, including the composed PYTHONPATH.
	Env []string

	// Logger overrides the default component logger. Nil selects it.
	Logger *zerolog.Logger
}

// Result is the outcome of a test run.
type Result struct {
	// ExitCode is the runner's exit status, captured immediately.
	ExitCode int

	// Report holds parsed JUnit counts when a report was requested and
	// could be read. Nil otherwise; a missing report never fails the run.
	Report *Report
}

// Passed reports whether the test run succeeded.
func (r Result) Passed() bool {
	return r.ExitCode == 0
}

// Executor runs one pack's test suite.
type Executor struct {
	binary   string
	args     []string
	junitXML string
	runner   command.Runner
	env      []string
	logger   zerolog.Logger
}

// New creates an Executor.
func New(opts Options) *Executor {
	logger := logging.GetLogger("runner")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	binary := opts.Binary
	if binary == "" {
		binary = "nosetests"
	}

	cmdRunner := opts.Runner
	if cmdRunner == nil {
		cmdRunner = command.NewRunner()
	}

	return &Executor{
		binary:   binary,
		args:     opts.Args,
		junitXML: opts.JUnitXML,
		runner:   cmdRunner,
		env:      opts.Env,
		logger:   logger,
	}
}

// Run executes the test runner over testsDir with streaming output and
// captures its exit status. The error return is reserved for failing to
// start the runner at all; test failures are a Result, not an error.
func (e *Executor) Run(ctx context.Context, testsDir string) (Result, error) {
	args := append([]string(nil), e.args...)
	if e.junitXML != "" {
		args = append(args, "--with-xunit", "--xunit-file="+e.junitXML)
	}
	args = append(args, testsDir)

	e.logger.Info().
		Str("runner", e.binary).
		Str("tests", testsDir).
		Msg("Running test suite")

	cmdResult, err := e.runner.Run(ctx, command.Spec{
		Name:   e.binary,
		Args:   args,
		Env:    e.env,
		Stream: true,
	})
	if err != nil {
		return Result{ExitCode: -1}, errors.Wrapf(err, errors.ErrRunnerFailed,
			"failed to start test runner %s", e.binary)
	}

	result := Result{ExitCode: cmdResult.ExitCode}

	if e.junitXML != "" {
		report, perr := ParseReport(e.junitXML)
		if perr != nil {
			e.logger.Warn().Err(perr).Str("path", e.junitXML).Msg("Could not parse test report")
		} else {
			result.Report = report
		}
	}

	e.logger.Info().
		Int("exitCode", result.ExitCode).
		Bool("passed", result.Passed()).
		Msg("Test run finished")

	return result, nil
}
