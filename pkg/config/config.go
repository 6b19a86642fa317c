// Package config loads packtest's layered configuration. Later layers win:
// compiled-in defaults, then an optional packtest.toml (working directory
// first, XDG config directory second), then PACKTEST_* environment
// variables.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/packtest/pkg/errors"
)

// ConfigFileName is the name of the optional global config file.
const ConfigFileName = "packtest.toml"

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "PACKTEST_"

// Config is the resolved packtest configuration.
type Config struct {
	Platform PlatformConfig `koanf:"platform"`
	Envs     EnvsConfig     `koanf:"envs"`
	Pip      PipConfig      `koanf:"pip"`
	Python   PythonConfig   `koanf:"python"`
	Runner   RunnerConfig   `koanf:"runner"`
}

// PlatformConfig locates the external platform repository whose components
// the pack's tests import. An empty Repo disables the platform layers.
type PlatformConfig struct {
	// Repo is the platform repository checkout path (PACKTEST_PLATFORM_REPO).
	Repo string `koanf:"repo"`
	// Prefix is the name prefix of component directories at the repo's
	// top level.
	Prefix string `koanf:"prefix"`
}

// EnvsConfig controls where per-pack virtualenvs live.
type EnvsConfig struct {
	// Dir is the base directory; each pack gets <dir>/<pack-name>.
	Dir string `koanf:"dir"`
}

// PipConfig controls pip invocations.
type PipConfig struct {
	// Options is a space-separated option string passed to every pip
	// command (PACKTEST_PIP_OPTIONS). Quiet by default.
	Options string `koanf:"options"`
}

// PythonConfig selects the interpreter used to create virtualenvs.
type PythonConfig struct {
	Binary string `koanf:"binary"`
}

// RunnerConfig selects the test runner invoked over the tests directory.
type RunnerConfig struct {
	Binary string `koanf:"binary"`
	// Args is a space-separated argument string prepended before the
	// tests directory.
	Args string `koanf:"args"`
}

// OptionList returns the pip options split into argv form.
func (p PipConfig) OptionList() []string {
	return strings.Fields(p.Options)
}

// ArgList returns the runner args split into argv form.
func (r RunnerConfig) ArgList() []string {
	return strings.Fields(r.Args)
}

// defaults returns the compiled-in configuration layer.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"platform.repo":   "",
		"platform.prefix": "st2",
		"envs.dir":        filepath.Join(os.TempDir(), "packtest", "virtualenvs"),
		"pip.options":     "-q",
		"python.binary":   "python",
		"runner.binary":   "nosetests",
		"runner.args":     "-s -v",
	}
}

// Load resolves the configuration from all layers.
func Load() (*Config, error) {
	k := koanf.New(".")

	// 1. Compiled-in defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load default config")
	}

	// 2. Global config file, working directory first
	for _, path := range configFilePaths() {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse %s", path)
		}
		break
	}

	// 3. Environment overrides: PACKTEST_PLATFORM_REPO -> platform.repo
	err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigLoad, "failed to load environment overrides")
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrConfigParse, "failed to unmarshal configuration")
	}
	return &cfg, nil
}

// configFilePaths lists candidate locations for packtest.toml in priority
// order.
func configFilePaths() []string {
	paths := []string{ConfigFileName}
	if xdg.ConfigHome != "" {
		paths = append(paths, filepath.Join(xdg.ConfigHome, "packtest", ConfigFileName))
	}
	return paths
}
