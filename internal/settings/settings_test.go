package settings_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hbomb79/mediascan/internal/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), settings.FileName)
	library := t.TempDir()

	require.NoError(t, settings.Save(path, settings.Settings{LastDirectory: library}))

	loaded, err := settings.Load(path)
	require.NoError(t, err)
	assert.Equal(t, library, loaded.LastDirectory)
}

func Test_Load_MissingFile(t *testing.T) {
	loaded, err := settings.Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Equal(t, settings.Settings{}, loaded)
}

func Test_Load_StaleDirectoryDeletesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), settings.FileName)
	require.NoError(t, os.WriteFile(path, []byte("/this/directory/is/long/gone\n"), 0o644))

	loaded, err := settings.Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.LastDirectory)

	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "stale settings file should have been removed")
}

func Test_Load_FileInsteadOfDirectory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, settings.FileName)
	notADir := filepath.Join(dir, "file.mp3")
	require.NoError(t, os.WriteFile(notADir, nil, 0o644))
	require.NoError(t, os.WriteFile(path, []byte(notADir), 0o644))

	loaded, err := settings.Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.LastDirectory)
}

func Test_Save_RejectsInvalidDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), settings.FileName)

	assert.ErrorIs(t, settings.Save(path, settings.Settings{}), settings.ErrInvalidDirectory)
	assert.ErrorIs(t, settings.Save(path, settings.Settings{LastDirectory: "/not/here"}), settings.ErrInvalidDirectory)

	_, err := os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func Test_DefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join(os.TempDir(), "mediascan_latest_path.txt"), settings.DefaultPath())
}
