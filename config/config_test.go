package config

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStorageRootMakesRelativePathAbsolute(t *testing.T) {
	c := AppConfig{}
	applyDefaults(&c)
	require.False(t, filepath.IsAbs(c.StorageRoot))

	resolveStorageRoot(&c)

	assert.True(t, filepath.IsAbs(c.StorageRoot))
	assert.True(t, strings.HasSuffix(c.StorageRoot, filepath.Join("static", "attachments")))
}

func TestResolveStorageRootKeepsAbsolutePath(t *testing.T) {
	c := AppConfig{StorageRoot: "/var/lib/cartpix/attachments"}
	resolveStorageRoot(&c)
	assert.Equal(t, "/var/lib/cartpix/attachments", c.StorageRoot)
}
