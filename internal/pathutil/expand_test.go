package pathutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandHomeShortcut(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := Expand("~/blueprints/watch.yaml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "blueprints", "watch.yaml"), got)

	got, err = Expand("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)
}

func TestExpandEnvVar(t *testing.T) {
	t.Setenv("CORTEX_PATH_TEST", "/tmp/cortex-path")

	got, err := Expand("$CORTEX_PATH_TEST//missions/../blueprints")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cortex-path/blueprints", got)
}

func TestExpandEmptyAndPlain(t *testing.T) {
	got, err := Expand("   ")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = Expand("./bp.yaml")
	require.NoError(t, err)
	assert.Equal(t, "bp.yaml", got)

	got, err = Expand("~other/file")
	require.NoError(t, err)
	assert.Equal(t, "~other/file", got)
}

func TestExpandRejectsUnresolvedHome(t *testing.T) {
	t.Setenv("HOME", "~/nested")
	_, err := Expand("~/bp.yaml")
	assert.Error(t, err)
}

func TestConfigDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".cortex"), dir)
}
