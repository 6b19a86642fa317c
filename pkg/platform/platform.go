// Package platform models the external platform repository whose component
// packages a pack's tests import. The repository is optional: without one,
// no platform dependencies are installed and no component directories join
// the import path.
package platform

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// Manifest files at the repository's top level.
const (
	RequirementsFile     = "requirements.txt"
	TestRequirementsFile = "test-requirements.txt"
)

// Repo is a handle on a platform repository checkout.
type Repo struct {
	// Path is the repository root. Empty means no platform is configured.
	Path string

	// Prefix is the name prefix identifying component directories.
	Prefix string
}

// New creates a Repo handle. path may be empty.
func New(path, prefix string) *Repo {
	return &Repo{Path: path, Prefix: prefix}
}

// Configured reports whether a platform repository was supplied.
func (r *Repo) Configured() bool {
	return r.Path != ""
}

// RequirementFiles returns the repository's dependency manifests that exist
// on disk, runtime requirements first. Installation order matters: the test
// manifest assumes the runtime one is already satisfied.
func (r *Repo) RequirementFiles() []string {
	if !r.Configured() {
		return nil
	}

	var files []string
	for _, name := range []string{RequirementsFile, TestRequirementsFile} {
		path := filepath.Join(r.Path, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files
}

// ComponentDirs discovers the repository's top-level component directories:
// immediate subdirectories whose name begins with the prefix, sorted for a
// stable import path.
func (r *Repo) ComponentDirs() ([]string, error) {
	if !r.Configured() {
		return nil, nil
	}

	logger := logging.GetLogger("platform")

	entries, err := os.ReadDir(r.Path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read platform repository").
			WithDetail("path", r.Path)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.HasPrefix(entry.Name(), r.Prefix) {
			continue
		}
		dirs = append(dirs, filepath.Join(r.Path, entry.Name()))
	}

	sort.Strings(dirs)

	logger.Debug().
		Str("repo", r.Path).
		Str("prefix", r.Prefix).
		Int("count", len(dirs)).
		Msg("Discovered platform component directories")

	return dirs, nil
}
