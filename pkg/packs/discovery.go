package packs

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/packtest/pkg/errors"
	"github.com/arthur-debert/packtest/pkg/logging"
)

// ignorePatterns are directory names never considered packs.
var ignorePatterns = []string{
	".*",
	"_*",
	"node_modules",
	"__pycache__",
}

// IgnoreFile marks a directory as not-a-pack when present inside it.
const IgnoreFile = ".packtestignore"

// Candidate is a directory that looks like a pack, as reported by Discover.
type Candidate struct {
	Name     string
	Path     string
	HasTests bool
}

// Discover returns the pack candidates directly under root: immediate
// subdirectories, ignore-filtered, sorted by name.
func Discover(root string) ([]Candidate, error) {
	logger := logging.GetLogger("packs.discovery")

	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(err, errors.ErrNotFound, "packs root does not exist").
				WithDetail("path", root)
		}
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot access packs root").
			WithDetail("path", root)
	}
	if !info.IsDir() {
		return nil, errors.New(errors.ErrInvalidInput, "packs root is not a directory").
			WithDetail("path", root)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrFileAccess, "cannot read packs root").
			WithDetail("path", root)
	}

	var candidates []Candidate
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		name := entry.Name()
		if shouldIgnore(name) {
			logger.Trace().Str("name", name).Msg("Skipping ignored directory")
			continue
		}

		path := filepath.Join(root, name)
		if hasIgnoreFile(path) {
			logger.Debug().Str("pack", name).Msg("Pack skipped due to ignore file")
			continue
		}

		tests, err := os.Stat(filepath.Join(path, TestsDirName))
		candidates = append(candidates, Candidate{
			Name:     name,
			Path:     path,
			HasTests: err == nil && tests.IsDir(),
		})
		logger.Trace().Str("path", path).Msg("Found pack candidate")
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Name < candidates[j].Name
	})

	logger.Info().Int("count", len(candidates)).Msg("Found pack candidates")
	return candidates, nil
}

// shouldIgnore checks if a name matches any ignore pattern
func shouldIgnore(name string) bool {
	// .config style exceptions do not apply here: hidden dirs are never packs
	for _, pattern := range ignorePatterns {
		if matched, _ := filepath.Match(pattern, name); matched {
			return true
		}
	}
	return false
}

// hasIgnoreFile checks if a directory opts out via .packtestignore
func hasIgnoreFile(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, IgnoreFile))
	return err == nil
}

// NormalizePackName removes trailing slashes from a pack name. Shell
// completion adds one to directory names.
func NormalizePackName(name string) string {
	return strings.TrimRight(name, "/")
}
