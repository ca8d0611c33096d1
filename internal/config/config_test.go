package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hbomb79/mediascan/internal/config"
	"github.com/hbomb79/mediascan/internal/discover"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/mitchellh/go-homedir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// isolateHome points the home directory at an empty temporary directory
// so that a real user configuration cannot leak in to the test.
func isolateHome(t *testing.T) string {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.DisableCache = true
	t.Cleanup(func() { homedir.DisableCache = false })

	return home
}

func Test_Load_Defaults(t *testing.T) {
	isolateHome(t)

	cfg, err := config.Load("")
	require.NoError(t, err)

	assert.Equal(t, discover.DefaultExtensions, cfg.Extensions)
	assert.Equal(t, []string{"container", "tags"}, cfg.Adapters)
	assert.Equal(t, "media_metadata.xlsx", cfg.Output.Path)
	assert.Empty(t, cfg.Output.JSONPath)
	assert.False(t, cfg.Output.GroupByFolder)
	assert.Equal(t, 10, cfg.ProgressInterval)
	assert.Equal(t, 2*time.Second, cfg.WatchDebounce)
	assert.Equal(t, "ffprobe", cfg.Binaries.Ffprobe)
	assert.Equal(t, logger.INFO, cfg.MinLogLevel())
	assert.Equal(t, filepath.Join(os.TempDir(), "mediascan_latest_path.txt"), cfg.SettingsPath)
}

func Test_Load_FromFile(t *testing.T) {
	home := isolateHome(t)
	path := writeConfig(t, `
extensions: [MP3, "flac"]
adapters: [tags, container, exif]
output:
  path: ~/reports/media.xlsx
  json: out.json
  group_by_folder: true
progress_interval: 5
log_level: debug
watch_debounce: 500ms
`)

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{".mp3", ".flac"}, cfg.Extensions)
	assert.Equal(t, []string{"tags", "container", "exif"}, cfg.Adapters)
	assert.Equal(t, filepath.Join(home, "reports", "media.xlsx"), cfg.Output.Path)
	assert.Equal(t, "out.json", cfg.Output.JSONPath)
	assert.True(t, cfg.Output.GroupByFolder)
	assert.Equal(t, 5, cfg.ProgressInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.WatchDebounce)
	assert.Equal(t, logger.DEBUG, cfg.MinLogLevel())

	exts := cfg.DiscoveryExtensions()
	assert.Contains(t, exts, ".jpg")
	assert.Contains(t, exts, ".mp3")
}

func Test_Load_EnvironmentOverridesFile(t *testing.T) {
	isolateHome(t)
	path := writeConfig(t, "adapters: [container]\nprogress_interval: 3\n")
	t.Setenv("MEDIASCAN_ADAPTERS", "tags,mediainfo")
	t.Setenv("MEDIASCAN_GROUP_BY_FOLDER", "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"tags", "mediainfo"}, cfg.Adapters)
	assert.True(t, cfg.Output.GroupByFolder)
	assert.Equal(t, 3, cfg.ProgressInterval)
	assert.NotContains(t, cfg.DiscoveryExtensions(), ".jpg")
}

func Test_Load_DefaultConfigFileIsUsed(t *testing.T) {
	home := isolateHome(t)
	dir := filepath.Join(home, ".config", "mediascan")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("progress_interval: 42\n"), 0o644))

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 42, cfg.ProgressInterval)
}

func Test_Load_Invalid(t *testing.T) {
	isolateHome(t)

	tests := map[string]string{
		"unknown adapter":    "adapters: [container, ffmpeg]\n",
		"duplicate adapter":  "adapters: [tags, tags]\n",
		"bad log level":      "log_level: LOUD\n",
		"zero interval":      "progress_interval: -1\n",
		"negative debounce":  "watch_debounce: -1s\n",
		"empty extension":    "extensions: [\".\"]\n",
		"malformed document": "adapters: [tags\n",
	}

	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Load(writeConfig(t, content))
			assert.Error(t, err)
		})
	}
}

func Test_Load_MissingExplicitFile(t *testing.T) {
	isolateHome(t)

	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
