package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shinji-kodama/viewer-launcher/internal/model"
)

func mkdir(t *testing.T, parts ...string) string {
	t.Helper()
	dir := filepath.Join(parts...)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func TestResolveContentRoot_Local(t *testing.T) {
	cwd := t.TempDir()
	exeDir := t.TempDir()
	local := mkdir(t, cwd, "viewer")
	mkdir(t, exeDir, "viewer")

	root, err := resolveContentRoot("", cwd, exeDir)
	require.NoError(t, err)
	assert.Equal(t, local, root.Dir)
	assert.False(t, root.Packaged)
	assert.Equal(t, filepath.Join(cwd, "viewer.lock"), root.LockPath())
	assert.Equal(t, cwd, root.SettingsDir())
}

func TestResolveContentRoot_Packaged(t *testing.T) {
	cwd := t.TempDir()
	exeDir := t.TempDir()
	bundled := mkdir(t, exeDir, "viewer")

	root, err := resolveContentRoot("", cwd, exeDir)
	require.NoError(t, err)
	assert.Equal(t, bundled, root.Dir)
	assert.True(t, root.Packaged)
	assert.Equal(t, filepath.Join(exeDir, "viewer.lock"), root.LockPath())
}

func TestResolveContentRoot_Override(t *testing.T) {
	custom := mkdir(t, t.TempDir(), "site", "dist")

	root, err := resolveContentRoot(custom, t.TempDir(), "")
	require.NoError(t, err)
	assert.Equal(t, custom, root.Dir)
	assert.False(t, root.Packaged)
	assert.Equal(t, filepath.Join(filepath.Dir(custom), "viewer.lock"), root.LockPath())
}

func TestResolveContentRoot_Missing(t *testing.T) {
	tests := []struct {
		name     string
		override string
		exeDir   string
	}{
		{name: "nothing anywhere", exeDir: t.TempDir()},
		{name: "no exe dir"},
		{name: "override missing", override: filepath.Join(t.TempDir(), "absent")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveContentRoot(tt.override, t.TempDir(), tt.exeDir)
			assert.ErrorIs(t, err, model.ErrConfiguration)
			assert.Contains(t, err.Error(), "viewer directory not found")
		})
	}
}

// TestResolveContentRoot_OverrideIsFile keeps a file named like the content
// root from being served.
func TestResolveContentRoot_OverrideIsFile(t *testing.T) {
	f := filepath.Join(t.TempDir(), "viewer")
	require.NoError(t, os.WriteFile(f, nil, 0o644))

	_, err := resolveContentRoot(f, t.TempDir(), "")
	assert.ErrorIs(t, err, model.ErrConfiguration)
}
