package runner_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/packtest/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeReport(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "report.xml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestParseReportNoseFormat(t *testing.T) {
	path := writeReport(t, `<?xml version="1.0"?>
<testsuite name="nosetests" tests="12" errors="0" failures="1" skip="2"/>`)

	report, err := runner.ParseReport(path)
	require.NoError(t, err)
	assert.Equal(t, 12, report.Tests)
	assert.Equal(t, 1, report.Failures)
	assert.Equal(t, 0, report.Errors)
	assert.Equal(t, 2, report.Skipped)
}

func TestParseReportTestsuitesWrapper(t *testing.T) {
	path := writeReport(t, `<?xml version="1.0"?>
<testsuites>
  <testsuite tests="3" errors="0" failures="0" skipped="1"/>
  <testsuite tests="4" errors="1" failures="2" skipped="0"/>
</testsuites>`)

	report, err := runner.ParseReport(path)
	require.NoError(t, err)
	assert.Equal(t, 7, report.Tests)
	assert.Equal(t, 2, report.Failures)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 3, report.Problems())
}

func TestParseReportMissingFile(t *testing.T) {
	_, err := runner.ParseReport(filepath.Join(t.TempDir(), "nope.xml"))
	assert.Error(t, err)
}

func TestParseReportUnexpectedRoot(t *testing.T) {
	path := writeReport(t, `<coverage lines="10"/>`)
	_, err := runner.ParseReport(path)
	assert.Error(t, err)
}
