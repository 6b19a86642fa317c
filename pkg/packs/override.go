package packs

import (
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/arthur-debert/packtest/pkg/errors"
)

// Override is the optional per-pack .packtest.toml. It lets a pack adjust
// how its own tests are run without touching the global configuration.
type Override struct {
	// TestsDir replaces the default "tests" directory, relative to the
	// pack root.
	TestsDir string `toml:"tests_dir"`

	// RunnerArgs replaces the configured runner argument string.
	RunnerArgs string `toml:"runner_args"`

	// PipOptions is appended to the configured pip option string.
	PipOptions string `toml:"pip_options"`
}

// LoadOverride reads the pack's .packtest.toml if present. A missing file
// returns an empty override.
func (p *Pack) LoadOverride() (*Override, error) {
	path := filepath.Join(p.Path, OverrideFile)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Override{}, nil
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read pack override file").
			WithDetail("path", path)
	}

	var ov Override
	if err := toml.Unmarshal(data, &ov); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "malformed .packtest.toml").
			WithDetail("path", path)
	}

	if ov.TestsDir != "" && filepath.IsAbs(ov.TestsDir) {
		return nil, errors.New(errors.ErrConfigValid, "tests_dir must be relative to the pack root").
			WithDetail("path", path).
			WithDetail("tests_dir", ov.TestsDir)
	}

	return &ov, nil
}

// RunnerArgList returns the override runner args in argv form.
func (o *Override) RunnerArgList() []string {
	return strings.Fields(o.RunnerArgs)
}

// PipOptionList returns the override pip options in argv form.
func (o *Override) PipOptionList() []string {
	return strings.Fields(o.PipOptions)
}
