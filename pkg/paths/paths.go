// Package paths provides centralized path handling for packtest.
// It resolves the per-pack virtualenv locations and the XDG-backed cache
// and state directories, so no other package hardcodes a path.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"

	"github.com/arthur-debert/packtest/pkg/errors"
)

// Environment variable names
const (
	// EnvEnvsDir overrides the virtualenv base directory. It is read by
	// the config layer; the constant lives here so both sides agree.
	EnvEnvsDir = "PACKTEST_ENVS_DIR"
)

// Directory names under the base locations. These define packtest's
// on-disk layout and are not user-configurable.
const (
	// AppDirName is the directory name for packtest-owned files
	AppDirName = "packtest"

	// VirtualenvsDir is the subdirectory holding per-pack virtualenvs
	VirtualenvsDir = "virtualenvs"

	// PipCacheDirName is the subdirectory used as the shared pip cache
	PipCacheDirName = "pip-cache"
)

// Paths resolves packtest's filesystem locations.
type Paths interface {
	// EnvsBaseDir is the directory holding one virtualenv per pack.
	EnvsBaseDir() string
	// PackEnvDir is the virtualenv directory for the named pack.
	PackEnvDir(packName string) string
	// PipCacheDir is the shared download cache handed to pip.
	PipCacheDir() string
	// EnsureEnvsBaseDir creates the base directory if needed.
	EnsureEnvsBaseDir() error
}

type paths struct {
	envsBase string
	cacheDir string
}

// New creates a Paths instance. envsBase is the configured virtualenv base
// directory; when empty, the default under the system temp dir is used.
func New(envsBase string) Paths {
	if envsBase == "" {
		envsBase = filepath.Join(os.TempDir(), AppDirName, VirtualenvsDir)
	}

	cacheHome := xdg.CacheHome
	if cacheHome == "" {
		cacheHome = os.TempDir()
	}

	return &paths{
		envsBase: envsBase,
		cacheDir: filepath.Join(cacheHome, AppDirName, PipCacheDirName),
	}
}

func (p *paths) EnvsBaseDir() string {
	return p.envsBase
}

func (p *paths) PackEnvDir(packName string) string {
	return filepath.Join(p.envsBase, packName)
}

func (p *paths) PipCacheDir() string {
	return p.cacheDir
}

func (p *paths) EnsureEnvsBaseDir() error {
	if err := os.MkdirAll(p.envsBase, 0755); err != nil {
		return errors.Wrap(err, errors.ErrDirCreate, "cannot create virtualenv base directory").
			WithDetail("path", p.envsBase)
	}
	return nil
}
