package helpers

import (
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TempDirWithFiles creates a temporary directory containing the files
// provided (keyed by their slash-separated path relative to the directory).
// The directory and the absolute paths of the files, sorted, are returned.
func TempDirWithFiles(t *testing.T, files map[string][]byte) (string, []string) {
	dirPath := t.TempDir()
	filePaths := make([]string, 0, len(files))
	for name, content := range files {
		path := filepath.Join(dirPath, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create directory for temporary file")
		require.NoError(t, os.WriteFile(path, content, 0o644), "failed to create temporary file in temporary dir")
		filePaths = append(filePaths, path)
	}

	sort.Strings(filePaths)
	assert.Len(t, filePaths, len(files), "Expected file paths recorded to match length of requested files")
	return dirPath, filePaths
}

// ID3v1Tag describes the fields written by ID3v1MP3.
type ID3v1Tag struct {
	Title  string
	Artist string
	Album  string
	Year   string
	Track  byte
}

// ID3v1MP3 builds the content of a minimal MP3 file: a handful of frame-sync
// bytes followed by an ID3v1 tag containing the fields provided.
func ID3v1MP3(tag ID3v1Tag) []byte {
	content := []byte{0xFF, 0xFB, 0x90, 0x64}
	content = append(content, make([]byte, 60)...)

	block := make([]byte, 128)
	copy(block[0:3], "TAG")
	copy(block[3:33], tag.Title)
	copy(block[33:63], tag.Artist)
	copy(block[63:93], tag.Album)
	copy(block[93:97], tag.Year)
	block[125] = 0
	block[126] = tag.Track
	block[127] = 255

	return append(content, block...)
}

// WriteWAV writes a short 16-bit mono WAV file of silence to the path
// provided, with the RIFF INFO metadata given (which may be nil).
//
// The encoder sizes each INFO entry as len+1 without writing the RIFF pad
// byte, while the decoder skips a pad byte after odd sized entries. Every
// metadata value must therefore have an odd length so that no entry is odd
// sized.
func WriteWAV(t *testing.T, path string, sampleRate int, seconds int, metadata *wav.Metadata) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	if metadata != nil {
		for _, v := range []string{metadata.Title, metadata.Artist, metadata.Product, metadata.Genre, metadata.TrackNbr, metadata.CreationDate, metadata.Comments} {
			require.True(t, v == "" || len(v)%2 == 1, "WAV metadata value %q must have an odd length", v)
		}
	}

	out, err := os.Create(path)
	require.NoError(t, err)
	defer out.Close()

	encoder := wav.NewEncoder(out, sampleRate, 16, 1, 1)
	encoder.Metadata = metadata

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           make([]int, sampleRate*seconds),
		SourceBitDepth: 16,
	}
	require.NoError(t, encoder.Write(buf))
	require.NoError(t, encoder.Close())
}
