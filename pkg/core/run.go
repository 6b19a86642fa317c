// Package core wires the pack test pipeline together: resolve the pack,
// prepare the isolated environment, install the dependency layers, compose
// the import path and run the test suite. Commands call into this package;
// it owns no CLI concerns.
package core

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/config"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
	"github.com/arthur-debert/packtest/pkg/packs"
	"github.com/arthur-debert/packtest/pkg/paths"
	"github.com/arthur-debert/packtest/pkg/pip"
	"github.com/arthur-debert/packtest/pkg/platform"
	"github.com/arthur-debert/packtest/pkg/pythonpath"
	"github.com/arthur-debert/packtest/pkg/runner"
	"github.com/arthur-debert/packtest/pkg/venv"
)

// RunPackTestsOptions carries everything one run needs. The zero value of
// the injectable fields (Runner, BaseEnv) selects the real implementations.
type RunPackTestsOptions struct {
	// PackPath is the raw pack directory argument.
	PackPath string

	// SkipEnvCreation reuses an existing environment and never builds one.
	SkipEnvCreation bool

	// TestsOnly skips every installation layer; a prior run must have
	// prepared the environment.
	TestsOnly bool

	// JUnitXML, when set, requests an XML report at that path.
	JUnitXML string

	// Config is the resolved configuration; nil loads it.
	Config *config.Config

	// Runner executes external commands; nil uses os/exec.
	Runner command.Runner

	// BaseEnv is the environment children start from; nil uses the
	// process environment.
	BaseEnv []string
}

// RunPackTestsResult is the explicit outcome of a run. ExitCode mirrors the
// test runner's status and is insulated from teardown.
type RunPackTestsResult struct {
	Pack *packs.Pack

	// TestsRun is false when the pack has no tests directory; the run
	// short-circuits successfully without touching the environment.
	TestsRun bool

	// Isolated reports whether an activated virtualenv backed the run.
	Isolated bool

	// EnvDir is the per-pack environment directory (even if unused).
	EnvDir string

	// ExitCode is the test runner's exit status; zero when TestsRun is
	// false.
	ExitCode int

	// Report is the parsed JUnit summary when one was requested.
	Report *runner.Report
}

// RunPackTests executes the full pipeline for one pack.
func RunPackTests(ctx context.Context, opts RunPackTestsOptions) (*RunPackTestsResult, error) {
	logger := logging.GetLogger("core.run")

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cmdRunner := opts.Runner
	if cmdRunner == nil {
		cmdRunner = command.NewRunner()
	}

	baseEnv := opts.BaseEnv
	if baseEnv == nil {
		baseEnv = os.Environ()
	}

	// Step 1: resolve the pack and its per-pack overrides.
	pack, err := packs.Resolve(opts.PackPath)
	if err != nil {
		return nil, err
	}

	override, err := pack.LoadOverride()
	if err != nil {
		return nil, err
	}

	testsDir := pack.TestsDir()
	if override.TestsDir != "" {
		testsDir = filepath.Join(pack.Path, override.TestsDir)
	}

	result := &RunPackTestsResult{Pack: pack}

	// Step 2: no tests means a successful no-op, before any setup work.
	if !dirExists(testsDir) {
		logger.Info().Str("pack", pack.Name).Msg("Pack has no tests directory")
		return result, nil
	}
	result.TestsRun = true

	// Step 3: prepare the isolated environment.
	pth := paths.New(cfg.Envs.Dir)
	result.EnvDir = pth.PackEnvDir(pack.Name)

	mgr := venv.New(venv.Options{
		Dir:          result.EnvDir,
		PythonBinary: cfg.Python.Binary,
		Runner:       cmdRunner,
		BaseEnv:      baseEnv,
	})

	switch {
	case opts.SkipEnvCreation:
		if mgr.Exists() {
			mgr.Activate()
		} else {
			logger.Warn().
				Str("path", result.EnvDir).
				Msg("No existing virtualenv, continuing without isolation")
		}
	case opts.TestsOnly:
		if !mgr.Exists() {
			return nil, errors.New(errors.ErrEnvMissing,
				"tests-only mode needs an existing virtualenv; run once without --tests-only first").
				WithDetail("path", result.EnvDir)
		}
		mgr.Activate()
	default:
		if err := pth.EnsureEnvsBaseDir(); err != nil {
			return nil, err
		}
		if err := mgr.Create(ctx); err != nil {
			return nil, err
		}
		mgr.Activate()
	}
	// Teardown on every exit path; the captured exit status is already in
	// result and cannot be clobbered here.
	defer mgr.Deactivate()

	result.Isolated = mgr.State() == venv.Activated

	// Step 4: install the dependency layers.
	repo := platform.New(cfg.Platform.Repo, cfg.Platform.Prefix)

	if !opts.TestsOnly {
		if err := installLayers(ctx, cfg, override, pack, repo, pth, mgr, cmdRunner); err != nil {
			return nil, err
		}
	} else {
		logger.Debug().Msg("Tests-only mode, skipping dependency installation")
	}

	// Step 5: compose the import search path.
	componentDirs, err := repo.ComponentDirs()
	if err != nil {
		return nil, err
	}

	composer := pythonpath.New().
		Append(componentDirs...).
		Append(pack.SensorsDir(), pack.ActionsDir(), pack.EtcDir())

	env := setEnv(mgr.Environ(), pythonpath.EnvVar,
		composer.Join(lookupEnv(baseEnv, pythonpath.EnvVar)))

	// Step 6: run the suite and capture its status.
	runnerArgs := cfg.Runner.ArgList()
	if override.RunnerArgs != "" {
		runnerArgs = override.RunnerArgList()
	}

	exec := runner.New(runner.Options{
		Binary:   mgr.Executable(cfg.Runner.Binary),
		Args:     runnerArgs,
		JUnitXML: opts.JUnitXML,
		Runner:   cmdRunner,
		Env:      env,
	})

	runResult, err := exec.Run(ctx, testsDir)
	if err != nil {
		return nil, err
	}

	result.ExitCode = runResult.ExitCode
	result.Report = runResult.Report
	return result, nil
}

// installLayers installs, in fixed order: platform manifests, pinned test
// tooling, pack runtime requirements, pack test requirements.
func installLayers(
	ctx context.Context,
	cfg *config.Config,
	override *packs.Override,
	pack *packs.Pack,
	repo *platform.Repo,
	pth paths.Paths,
	mgr *venv.Manager,
	cmdRunner command.Runner,
) error {
	options := append(cfg.Pip.OptionList(), override.PipOptionList()...)

	installer := pip.New(pip.Options{
		Binary:     mgr.Executable("pip"),
		Runner:     cmdRunner,
		CacheDir:   pth.PipCacheDir(),
		PipOptions: options,
		Env:        mgr.Environ(),
	})

	for _, manifest := range repo.RequirementFiles() {
		if err := installer.InstallRequirementsFile(ctx, manifest); err != nil {
			return err
		}
	}

	if err := installer.InstallPackages(ctx, pip.TestTooling...); err != nil {
		return err
	}

	if pack.HasRequirements() {
		if err := installer.InstallRequirementsFile(ctx, pack.RequirementsPath()); err != nil {
			return err
		}
	}

	if pack.HasTestRequirements() {
		if err := installer.InstallRequirementsFile(ctx, pack.TestRequirementsPath()); err != nil {
			return err
		}
	}

	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// lookupEnv finds a variable in a KEY=value list.
func lookupEnv(env []string, key string) string {
	prefix := key + "="
	for _, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			return strings.TrimPrefix(kv, prefix)
		}
	}
	return ""
}

// setEnv replaces or appends a variable in a KEY=value list.
func setEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}
