// Package packs resolves and inspects automation packs: self-contained
// bundles of sensors, actions and configuration with their own tests and
// dependency manifests.
package packs

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// Well-known entries inside a pack directory.
const (
	// TestsDirName holds the pack's test suite
	TestsDirName = "tests"

	// SensorsDirName holds sensor modules
	SensorsDirName = "sensors"

	// ActionsDirName holds action modules
	ActionsDirName = "actions"

	// EtcDirName holds pack configuration importable by tests
	EtcDirName = "etc"

	// RequirementsFile lists the pack's runtime dependencies
	RequirementsFile = "requirements.txt"

	// TestRequirementsFile lists test-only dependencies
	TestRequirementsFile = "requirements-tests.txt"

	// MetadataFile is the optional pack metadata manifest
	MetadataFile = "pack.yaml"

	// OverrideFile is the optional per-pack packtest override file
	OverrideFile = ".packtest.toml"
)

// Pack is a resolved pack directory with its derived subpaths.
type Pack struct {
	// Name is the final path segment of the pack directory.
	Name string

	// Path is the absolute, symlink-free pack directory.
	Path string
}

// Resolve turns a raw pack path into a Pack. The path is made absolute and
// symlink-free; it must name an existing directory.
func Resolve(rawPath string) (*Pack, error) {
	logger := logging.GetLogger("packs.resolve")

	if rawPath == "" {
		return nil, errors.New(errors.ErrUsage, "pack path is required")
	}
	rawPath = NormalizePackName(rawPath)

	resolved, err := filepath.EvalSymlinks(rawPath)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPackNotFound, "cannot resolve pack path").
			WithDetail("path", rawPath)
	}

	abs, err := filepath.Abs(resolved)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPackNotFound, "cannot resolve pack path").
			WithDetail("path", rawPath)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrPackAccess, "cannot access pack directory").
			WithDetail("path", abs)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrPackInvalid, "pack path is not a directory").
			WithDetail("path", abs)
	}

	pack := &Pack{
		Name: filepath.Base(abs),
		Path: abs,
	}

	logger.Debug().
		Str("pack", pack.Name).
		Str("path", pack.Path).
		Msg("Resolved pack")

	return pack, nil
}

// TestsDir returns the pack's tests directory.
func (p *Pack) TestsDir() string {
	return filepath.Join(p.Path, TestsDirName)
}

// SensorsDir returns the pack's sensors directory.
func (p *Pack) SensorsDir() string {
	return filepath.Join(p.Path, SensorsDirName)
}

// ActionsDir returns the pack's actions directory.
func (p *Pack) ActionsDir() string {
	return filepath.Join(p.Path, ActionsDirName)
}

// EtcDir returns the pack's etc directory.
func (p *Pack) EtcDir() string {
	return filepath.Join(p.Path, EtcDirName)
}

// RequirementsPath returns the pack's runtime requirements file path.
func (p *Pack) RequirementsPath() string {
	return filepath.Join(p.Path, RequirementsFile)
}

// TestRequirementsPath returns the pack's test requirements file path.
func (p *Pack) TestRequirementsPath() string {
	return filepath.Join(p.Path, TestRequirementsFile)
}

// HasTests reports whether the pack carries a tests directory. A pack
// without one is not an error: there is simply nothing to run.
func (p *Pack) HasTests() bool {
	info, err := os.Stat(p.TestsDir())
	return err == nil && info.IsDir()
}

// HasRequirements reports whether a runtime requirements file exists.
func (p *Pack) HasRequirements() bool {
	_, err := os.Stat(p.RequirementsPath())
	return err == nil
}

// HasTestRequirements reports whether a test requirements file exists.
func (p *Pack) HasTestRequirements() bool {
	_, err := os.Stat(p.TestRequirementsPath())
	return err == nil
}
