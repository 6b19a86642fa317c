// Package pip installs the dependency layers a pack's tests need. Every
// install shares one download cache and the configured option set; failures
// carry the pip process's exit status so the run can propagate it verbatim.
package pip

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/packtest/pkg/command"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// TestTooling is the fixed set of generic test packages installed between
// the platform and pack layers. Pinned so every pack tests against the
// same harness versions.
var TestTooling = []string{
	"mock==3.0.5",
	"unittest2==1.1.0",
	"nose==1.3.7",
}

// Options configures an Installer.
type Options struct {
	// Binary is the pip executable, already resolved against the active
	// environment (see venv.Manager.Executable).
	Binary string

	// Runner executes the pip commands.
	Runner command.Runner

	// CacheDir is the shared download cache.
	CacheDir string

	// PipOptions are extra arguments for every install (quiet by default).
	PipOptions []string

	// Env is the child environment, built by the environment manager.
	Env []string

	// Logger overrides the default component logger. Nil selects it.
	Logger *zerolog.Logger
}

// Installer runs pip installs against one environment.
type Installer struct {
	binary   string
	runner   command.Runner
	cacheDir string
	options  []string
	env      []string
	logger   zerolog.Logger
}

// New creates an Installer.
func New(opts Options) *Installer {
	logger := logging.GetLogger("pip")
	if opts.Logger != nil {
		logger = *opts.Logger
	}

	binary := opts.Binary
	if binary == "" {
		binary = "pip"
	}

	runner := opts.Runner
	if runner == nil {
		runner = command.NewRunner()
	}

	return &Installer{
		binary:   binary,
		runner:   runner,
		cacheDir: opts.CacheDir,
		options:  opts.PipOptions,
		env:      opts.Env,
		logger:   logger,
	}
}

// InstallRequirementsFile installs a requirements manifest.
func (i *Installer) InstallRequirementsFile(ctx context.Context, path string) error {
	i.logger.Info().Str("file", path).Msg("Installing requirements file")
	return i.install(ctx, []string{"-r", path})
}

// InstallPackages installs explicit package specifiers.
func (i *Installer) InstallPackages(ctx context.Context, specs ...string) error {
	if len(specs) == 0 {
		return nil
	}
	i.logger.Info().Strs("packages", specs).Msg("Installing packages")
	return i.install(ctx, specs)
}

func (i *Installer) install(ctx context.Context, target []string) error {
	args := []string{"install"}
	if i.cacheDir != "" {
		args = append(args, "--cache-dir", i.cacheDir)
	}
	args = append(args, i.options...)
	args = append(args, target...)

	result, err := i.runner.Run(ctx, command.Spec{
		Name:   i.binary,
		Args:   args,
		Env:    i.env,
		Stream: true,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrInstall, "failed to run pip")
	}
	if result.ExitCode != 0 {
		return errors.Newf(errors.ErrInstall, "pip install failed").
			WithDetail("target", target).
			WithExitCode(result.ExitCode)
	}
	return nil
}
