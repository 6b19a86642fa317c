package core

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/packtest/pkg/config"
	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
	"github.com/arthur-debert/packtest/pkg/packs"
	"github.com/arthur-debert/packtest/pkg/paths"
)

// CleanOptions selects which cached virtualenvs to remove.
type CleanOptions struct {
	// PackPath removes the environment of one pack.
	PackPath string

	// All removes every environment under the base directory.
	All bool

	// Config is the resolved configuration; nil loads it.
	Config *config.Config
}

// Clean removes cached per-pack virtualenvs and returns the names of the
// environments that were deleted. Cleaning an environment that does not
// exist is not an error.
func Clean(opts CleanOptions) ([]string, error) {
	logger := logging.GetLogger("core.clean")

	cfg := opts.Config
	if cfg == nil {
		loaded, err := config.Load()
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	pth := paths.New(cfg.Envs.Dir)

	if opts.All {
		entries, err := os.ReadDir(pth.EnvsBaseDir())
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read virtualenv base directory").
				WithDetail("path", pth.EnvsBaseDir())
		}

		var removed []string
		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}
			target := filepath.Join(pth.EnvsBaseDir(), entry.Name())
			if err := os.RemoveAll(target); err != nil {
				return removed, errors.Wrap(err, errors.ErrFileAccess, "cannot remove virtualenv").
					WithDetail("path", target)
			}
			logger.Info().Str("env", entry.Name()).Msg("Removed virtualenv")
			removed = append(removed, entry.Name())
		}
		return removed, nil
	}

	pack, err := packs.Resolve(opts.PackPath)
	if err != nil {
		return nil, err
	}

	target := pth.PackEnvDir(pack.Name)
	if _, err := os.Stat(target); os.IsNotExist(err) {
		logger.Debug().Str("path", target).Msg("No virtualenv to remove")
		return nil, nil
	}
	if err := os.RemoveAll(target); err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot remove virtualenv").
			WithDetail("path", target)
	}

	logger.Info().Str("env", pack.Name).Msg("Removed virtualenv")
	return []string{pack.Name}, nil
}
