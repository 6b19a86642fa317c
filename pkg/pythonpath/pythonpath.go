// Package pythonpath composes the import search path handed to the test
// runner. Entries stay an ordered list until the exec boundary, where they
// are joined with the OS path list separator.
package pythonpath

import (
	"os"
	"strings"

	"github.com/arthur-debert/packtest/pkg/logging"
)

// EnvVar is the environment variable the composed path is exported as.
const EnvVar = "PYTHONPATH"

// Composer accumulates import path entries in order.
type Composer struct {
	entries []string
}

// New creates an empty Composer.
func New() *Composer {
	return &Composer{}
}

// Append adds directories to the end of the path, keeping order.
func (c *Composer) Append(dirs ...string) *Composer {
	c.entries = append(c.entries, dirs...)
	return c
}

// Entries returns the accumulated directories in order.
func (c *Composer) Entries() []string {
	return append([]string(nil), c.entries...)
}

// Join flattens the entries into a single search-path string. A non-empty
// existing value comes first; the composed entries are appended after it.
func (c *Composer) Join(existing string) string {
	sep := string(os.PathListSeparator)

	parts := make([]string, 0, len(c.entries)+1)
	if existing != "" {
		parts = append(parts, existing)
	}
	parts = append(parts, c.entries...)

	joined := strings.Join(parts, sep)

	logger := logging.GetLogger("pythonpath")
	logger.Debug().
		Str("value", joined).
		Msg("Composed import search path")

	return joined
}
