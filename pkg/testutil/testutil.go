// Package testutil provides fixture builders for packtest's own tests:
// throwaway pack directories, platform repository skeletons, and fake
// executables that record how they were invoked.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// PackFixture builds a pack directory tree under a temp dir.
type PackFixture struct {
	// Name is the pack directory name.
	Name string

	// WithTests creates the tests/ directory with a placeholder test file.
	WithTests bool

	// WithSensors / WithActions / WithEtc create the import directories.
	WithSensors bool
	WithActions bool
	WithEtc     bool

	// Requirements / TestRequirements are written verbatim when non-empty.
	Requirements     string
	TestRequirements string

	// Metadata is written to pack.yaml when non-empty.
	Metadata string

	// Override is written to .packtest.toml when non-empty.
	Override string
}

// CreatePack materializes the fixture and returns the pack path.
func CreatePack(t *testing.T, fixture PackFixture) string {
	t.Helper()

	name := fixture.Name
	if name == "" {
		name = "testpack"
	}
	packPath := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.MkdirAll(packPath, 0755))

	if fixture.WithTests {
		testsDir := filepath.Join(packPath, "tests")
		require.NoError(t, os.MkdirAll(testsDir, 0755))
		testFile := filepath.Join(testsDir, "test_placeholder.py")
		require.NoError(t, os.WriteFile(testFile, []byte("def test_ok():\n    pass\n"), 0644))
	}

	for dir, wanted := range map[string]bool{
		"sensors": fixture.WithSensors,
		"actions": fixture.WithActions,
		"etc":     fixture.WithEtc,
	} {
		if wanted {
			require.NoError(t, os.MkdirAll(filepath.Join(packPath, dir), 0755))
		}
	}

	files := map[string]string{
		"requirements.txt":       fixture.Requirements,
		"requirements-tests.txt": fixture.TestRequirements,
		"pack.yaml":              fixture.Metadata,
		".packtest.toml":         fixture.Override,
	}
	for name, content := range files {
		if content != "" {
			require.NoError(t, os.WriteFile(filepath.Join(packPath, name), []byte(content), 0644))
		}
	}

	return packPath
}

// CreatePlatformRepo builds a platform repository skeleton: requirement
// manifests plus component directories named with the given prefix.
func CreatePlatformRepo(t *testing.T, prefix string, components ...string) string {
	t.Helper()

	repo := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repo, "requirements.txt"), []byte("six\n"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(repo, "test-requirements.txt"), []byte("coverage\n"), 0644))

	for _, comp := range components {
		require.NoError(t, os.MkdirAll(filepath.Join(repo, prefix+comp), 0755))
	}
	// A non-component sibling that discovery must skip
	require.NoError(t, os.MkdirAll(filepath.Join(repo, "tools"), 0755))

	return repo
}

// FakeExecutable writes a shell script named name into dir that appends its
// argv to a log file and exits with exitCode. Returns the log file path.
// Callers prepend dir to PATH for the command under test.
func FakeExecutable(t *testing.T, dir, name string, exitCode int) string {
	t.Helper()

	logPath := filepath.Join(dir, name+".argv")
	script := fmt.Sprintf("#!/bin/sh\necho \"$@\" >> %q\nexit %d\n", logPath, exitCode)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(script), 0755))
	return logPath
}

// ReadInvocations returns the recorded argv lines of a FakeExecutable, one
// entry per invocation. A missing log means zero invocations.
func ReadInvocations(t *testing.T, logPath string) []string {
	t.Helper()

	data, err := os.ReadFile(logPath)
	if os.IsNotExist(err) {
		return nil
	}
	require.NoError(t, err)

	raw := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	var lines []string
	for _, l := range raw {
		if l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}
