package pythonpath_test

import (
	"testing"

	"github.com/arthur-debert/packtest/pkg/pythonpath"
	"github.com/stretchr/testify/assert"
)

func TestJoinOrder(t *testing.T) {
	c := pythonpath.New().
		Append("/platform/st2common", "/platform/st2reactor").
		Append("/pack/sensors", "/pack/actions", "/pack/etc")

	assert.Equal(t,
		"/platform/st2common:/platform/st2reactor:/pack/sensors:/pack/actions:/pack/etc",
		c.Join(""))
}

func TestJoinAppendsAfterExisting(t *testing.T) {
	c := pythonpath.New().Append("/pack/sensors", "/pack/actions", "/pack/etc")

	assert.Equal(t,
		"/already/there:/pack/sensors:/pack/actions:/pack/etc",
		c.Join("/already/there"))
}

func TestJoinEmpty(t *testing.T) {
	assert.Equal(t, "", pythonpath.New().Join(""))
	assert.Equal(t, "/keep", pythonpath.New().Join("/keep"))
}

func TestEntriesAreCopied(t *testing.T) {
	c := pythonpath.New().Append("/a", "/b")
	entries := c.Entries()
	entries[0] = "/mutated"

	assert.Equal(t, []string{"/a", "/b"}, c.Entries())
}

func TestPackDirsAlwaysLast(t *testing.T) {
	// With or without platform components, the pack's own directories
	// terminate the path in sensors, actions, etc order.
	withPlatform := pythonpath.New().
		Append("/platform/st2common").
		Append("/p/sensors", "/p/actions", "/p/etc").
		Join("")
	withoutPlatform := pythonpath.New().
		Append("/p/sensors", "/p/actions", "/p/etc").
		Join("")

	suffix := "/p/sensors:/p/actions:/p/etc"
	assert.Contains(t, withPlatform, suffix)
	assert.Equal(t, suffix, withoutPlatform)
}
