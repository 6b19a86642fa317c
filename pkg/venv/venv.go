// Package venv manages the per-pack isolated Python environment. A Manager
// owns one virtualenv directory and moves through a two-state lifecycle,
// Untouched then Activated. Activation never mutates the packtest process's
// own environment: it produces an explicit child environment (PATH prepend,
// VIRTUAL_ENV set, PYTHONHOME dropped) that callers hand to pip and the
// test runner.
package venv

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// State is the lifecycle state of a Manager.
type State int

const (
	// Untouched means no activation has happened.
	Untouched State = iota

	// Activated means the environment's executables lead the child PATH.
	Activated
)

// EnvVarVirtualEnv is exported to children so tooling can locate the env.
const EnvVarVirtualEnv = "VIRTUAL_ENV"

// envVarPythonHome must not leak into an isolated environment.
const envVarPythonHome = "PYTHONHOME"

// Options configures a Manager.
type Options struct {
	// Dir is the virtualenv directory.
	Dir string

	// PythonBinary creates the environment (default "python").
	PythonBinary string

	// Runner executes the creation commands.
	Runner command.Runner

	// BaseEnv is the environment activation builds on. Nil means the
	// current process environment.
	BaseEnv []string

	// Logger overrides the default component logger. Nil selects it.
	Logger *zerolog.Logger
}

// Manager guards one virtualenv directory.
type Manager struct {
	dir     string
	python  string
	runner  command.Runner
	baseEnv []string
	logger  zerolog.Logger
	state   State
}

// New creates a Manager for the given options.
func New(opts Options) *Manager {
	logger := logging.GetLogger("venv")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	python := opts.PythonBinary
	if python == "" {
		python = "python"
	}

	runner := opts.Runner
	if runner == nil {
		runner = command.NewRunner()
	}

	baseEnv := opts.BaseEnv
	if baseEnv == nil {
		baseEnv = os.Environ()
	}

	return &Manager{
		dir:     opts.Dir,
		python:  python,
		runner:  runner,
		baseEnv: append([]string(nil), baseEnv...),
		logger:  logger,
	}
}

// Dir returns the virtualenv directory.
func (m *Manager) Dir() string {
	return m.dir
}

// BinDir returns the environment's executable directory.
func (m *Manager) BinDir() string {
	return filepath.Join(m.dir, "bin")
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return m.state
}

// Exists reports whether the virtualenv directory is present.
func (m *Manager) Exists() bool {
	info, err := os.Stat(m.dir)
	return err == nil && info.IsDir()
}

// Create builds a fresh virtualenv at the manager's directory and upgrades
// its installer. It prefers the virtualenv module and falls back to the
// stdlib venv module when virtualenv is not installed.
func (m *Manager) Create(ctx context.Context) error {
	done := logging.LogOperationStart(m.logger, "venv.create")
	defer done()

	m.logger.Info().
		Str("path", m.dir).
		Str("python", m.python).
		Msg("Creating virtualenv")

	if err := os.MkdirAll(filepath.Dir(m.dir), 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create virtualenv base directory").
			WithDetail("path", filepath.Dir(m.dir))
	}

	created := false
	for _, module := range []string{"virtualenv", "venv"} {
		result, err := m.runner.Run(ctx, command.Spec{
			Name: m.python,
			Args: []string{"-m", module, m.dir},
		})
		if err == nil && result.ExitCode == 0 {
			created = true
			break
		}
		m.logger.Debug().
			Str("module", module).
			Int("exitCode", result.ExitCode).
			Msg("Environment creation attempt failed")
	}
	if !created {
		return errors.New(errors.ErrEnvCreate, "failed to create virtualenv").
			WithDetail("path", m.dir).
			WithDetail("python", m.python)
	}

	// Old bundled pips routinely fail on current packages; upgrade first.
	result, err := m.runner.Run(ctx, command.Spec{
		Name: filepath.Join(m.BinDir(), "python"),
		Args: []string{"-m", "pip", "install", "--upgrade", "pip"},
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrEnvCreate, "failed to upgrade pip").
			WithDetail("path", m.dir)
	}
	if result.ExitCode != 0 {
		return errors.New(errors.ErrEnvCreate, "failed to upgrade pip").
			WithDetail("path", m.dir).
			WithExitCode(result.ExitCode)
	}

	return nil
}

// Activate marks the environment active. Repeated calls are no-ops.
func (m *Manager) Activate() {
	if m.state == Activated {
		m.logger.Trace().Msg("Environment already activated")
		return
	}
	m.state = Activated
	m.logger.Info().Str("path", m.dir).Msg("Activated virtualenv")
}

// Deactivate returns the manager to Untouched. Safe to call on every exit
// path regardless of whether activation happened.
func (m *Manager) Deactivate() {
	if m.state != Activated {
		return
	}
	m.state = Untouched
	m.logger.Debug().Str("path", m.dir).Msg("Deactivated virtualenv")
}

// Executable resolves a tool name for the current state. Activated
// managers pin the tool to the environment's bin directory; untouched ones
// return the bare name for normal PATH lookup. Child environments do not
// influence exec's own lookup, so activation has to be applied here, not
// just in Environ.
func (m *Manager) Executable(name string) string {
	if m.state == Activated {
		return filepath.Join(m.BinDir(), name)
	}
	return name
}

// Environ builds the child-process environment for the current state. When
// activated, the env's bin directory leads PATH, VIRTUAL_ENV is set and
// PYTHONHOME is dropped. Untouched managers return the base environment
// unchanged.
func (m *Manager) Environ() []string {
	env := make([]string, 0, len(m.baseEnv)+2)

	if m.state != Activated {
		return append(env, m.baseEnv...)
	}

	pathSeen := false
	for _, kv := range m.baseEnv {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			env = append(env, "PATH="+m.BinDir()+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
			pathSeen = true
		case strings.HasPrefix(kv, envVarPythonHome+"="):
			// dropped: PYTHONHOME breaks virtualenv isolation
		case strings.HasPrefix(kv, EnvVarVirtualEnv+"="):
			// replaced below
		default:
			env = append(env, kv)
		}
	}
	if !pathSeen {
		env = append(env, "PATH="+m.BinDir())
	}
	env = append(env, EnvVarVirtualEnv+"="+m.dir)

	return env
}
