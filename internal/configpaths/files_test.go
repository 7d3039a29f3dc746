package configpaths

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigDirXDG(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("XDG paths are unix only")
	}
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	dir, err := DefaultConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "keybridge"), dir)

	p, err := DefaultNamedConfigPath("run", "yml")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "keybridge", "run.yaml"), p)
}

func TestConfigCandidatePathsUserFirst(t *testing.T) {
	tests := []struct {
		user  string
		check func(j, y, tm []string) string
	}{
		{"my.json", func(j, _, _ []string) string { return j[0] }},
		{"my.yml", func(_, y, _ []string) string { return y[0] }},
		{"my.toml", func(_, _, tm []string) string { return tm[0] }},
		{"my.conf", func(j, _, _ []string) string { return j[0] }},
	}
	for _, tt := range tests {
		t.Run(tt.user, func(t *testing.T) {
			j, y, tm := ConfigCandidatePaths(tt.user)
			assert.Equal(t, tt.user, tt.check(j, y, tm))
		})
	}
}

func TestConfigCandidatePathsWorkingDir(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	j, y, tm := ConfigCandidatePaths("")
	assert.Contains(t, j, filepath.Join(wd, "keybridge.json"))
	assert.Contains(t, y, filepath.Join(wd, "run.yml"))
	assert.Contains(t, tm, filepath.Join(wd, "ctl.toml"))
}

func TestEnsureDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "a", "b", "run.json")
	require.NoError(t, EnsureDir(p))
	info, err := os.Stat(filepath.Dir(p))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
