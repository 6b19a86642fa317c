package runner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/runner"
	"github.com/arthur-debert/packtest/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunBuildsDiscoveryCommand(t *testing.T) {
	cmdRunner := testutil.NewScriptedRunner()
	exec := runner.New(runner.Options{
		Binary: "/env/bin/nosetests",
		Args:   []string{"-s", "-v"},
		Runner: cmdRunner,
		Env:    []string{"PYTHONPATH=/p/sensors:/p/actions:/p/etc"},
	})

	result, err := exec.Run(context.Background(), "/pack/tests")
	require.NoError(t, err)
	assert.Equal(t, 0, result.ExitCode)
	assert.True(t, result.Passed())

	require.Len(t, cmdRunner.Calls, 1)
	call := cmdRunner.Calls[0]
	assert.Equal(t, "/env/bin/nosetests", call.Name)
	assert.Equal(t, []string{"-s", "-v", "/pack/tests"}, call.Args)
	assert.True(t, call.Stream, "test output must stream to the user")
	assert.Equal(t, []string{"PYTHONPATH=/p/sensors:/p/actions:/p/etc"}, call.Env)
}

func TestRunCapturesFailureStatus(t *testing.T) {
	cmdRunner := testutil.NewScriptedRunner()
	cmdRunner.Results["nosetests"] = command.Result{ExitCode: 1}

	exec := runner.New(runner.Options{Binary: "nosetests", Runner: cmdRunner})

	result, err := exec.Run(context.Background(), "/pack/tests")
	require.NoError(t, err, "test failures are results, not errors")
	assert.Equal(t, 1, result.ExitCode)
	assert.False(t, result.Passed())
}

func TestRunAddsXunitFlags(t *testing.T) {
	cmdRunner := testutil.NewScriptedRunner()
	reportPath := filepath.Join(t.TempDir(), "report.xml")

	exec := runner.New(runner.Options{
		Binary:   "nosetests",
		Args:     []string{"-v"},
		JUnitXML: reportPath,
		Runner:   cmdRunner,
	})

	_, err := exec.Run(context.Background(), "/pack/tests")
	require.NoError(t, err)

	require.Len(t, cmdRunner.Calls, 1)
	assert.Equal(t,
		[]string{"-v", "--with-xunit", "--xunit-file=" + reportPath, "/pack/tests"},
		cmdRunner.Calls[0].Args)
}

func TestRunParsesReportWhenPresent(t *testing.T) {
	cmdRunner := testutil.NewScriptedRunner()
	reportPath := filepath.Join(t.TempDir(), "report.xml")
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<testsuite name="nosetests" tests="8" errors="1" failures="2" skip="1"/>`
	require.NoError(t, os.WriteFile(reportPath, []byte(xml), 0644))

	exec := runner.New(runner.Options{
		Binary:   "nosetests",
		JUnitXML: reportPath,
		Runner:   cmdRunner,
	})

	result, err := exec.Run(context.Background(), "/pack/tests")
	require.NoError(t, err)
	require.NotNil(t, result.Report)
	assert.Equal(t, 8, result.Report.Tests)
	assert.Equal(t, 2, result.Report.Failures)
	assert.Equal(t, 1, result.Report.Errors)
	assert.Equal(t, 1, result.Report.Skipped)
	assert.Equal(t, 3, result.Report.Problems())
}

func TestRunMissingReportDoesNotFailRun(t *testing.T) {
	cmdRunner := testutil.NewScriptedRunner()
	exec := runner.New(runner.Options{
		Binary:   "nosetests",
		JUnitXML: filepath.Join(t.TempDir(), "never-written.xml"),
		Runner:   cmdRunner,
	})

	result, err := exec.Run(context.Background(), "/pack/tests")
	require.NoError(t, err)
	assert.Nil(t, result.Report)
	assert.Equal(t, 0, result.ExitCode)
}
