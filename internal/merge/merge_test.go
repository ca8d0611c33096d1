package merge_test

import (
	"errors"
	"testing"
	"time"

	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/internal/merge"
	"github.com/stretchr/testify/assert"
)

var testFile = media.File{
	Path: "/library/music/a.mp3",
	Name: "a.mp3",
	Ext:  ".mp3",
	Stat: media.FileStat{Size: 3 * 1024 * 1024, ModTime: time.Date(2022, 1, 2, 3, 4, 5, 0, time.Local)},
}

func schema(fields ...string) []string {
	out := append([]string{}, media.StatFields...)
	out = append(out, fields...)
	return append(out, media.FieldError, "error_first", "error_second")
}

func Test_Merge_LastWriterWins(t *testing.T) {
	m := merge.New(schema("codec", "bitrate", "title"))
	record := m.Merge(testFile, []extract.Result{
		extract.Success("first", map[string]any{"codec": "mp3", "bitrate": int64(128000)}),
		extract.Success("second", map[string]any{"codec": "MPEG Audio", "title": "Song"}),
	})

	assert.Equal(t, "MPEG Audio", record.String("codec"))
	assert.Equal(t, "128000", record.String("bitrate"))
	assert.Equal(t, "Song", record.String("title"))
	assert.Equal(t, media.NotAvailable, record.String(media.FieldError))
}

func Test_Merge_PrecedenceFollowsOrder(t *testing.T) {
	m := merge.New(schema("codec"))
	a := extract.Success("first", map[string]any{"codec": "a"})
	b := extract.Success("second", map[string]any{"codec": "b"})

	assert.Equal(t, "b", m.Merge(testFile, []extract.Result{a, b}).String("codec"))
	assert.Equal(t, "a", m.Merge(testFile, []extract.Result{b, a}).String("codec"))
}

func Test_Merge_NotAvailableNeverOverwrites(t *testing.T) {
	m := merge.New(schema("codec"))
	record := m.Merge(testFile, []extract.Result{
		extract.Success("first", map[string]any{"codec": "h264"}),
		extract.Success("second", map[string]any{"codec": media.NotAvailable}),
	})

	assert.Equal(t, "h264", record.String("codec"))
}

func Test_Merge_EverySchemaFieldPresent(t *testing.T) {
	fields := schema("codec", "fps", "title")
	record := merge.New(fields).Merge(testFile, nil)

	assert.Equal(t, fields, record.Keys())
	assert.Equal(t, media.NotAvailable, record.String("fps"))
	assert.Equal(t, "a.mp3", record.String(media.FieldFilename))
	assert.Equal(t, "/library/music/a.mp3", record.String(media.FieldPath))
	assert.Equal(t, "3145728", record.String(media.FieldSizeBytes))
	assert.Equal(t, "3", record.String(media.FieldSizeMB))
	assert.Equal(t, "2022-01-02 03:04:05", record.String(media.FieldModifiedDate))
}

func Test_Merge_PartialFailureKeepsSourceError(t *testing.T) {
	m := merge.New(schema("codec", "title"))
	record := m.Merge(testFile, []extract.Result{
		extract.Failure("first", errors.New("ffprobe exploded")),
		extract.Success("second", map[string]any{"title": "Song"}),
	})

	assert.Equal(t, "ffprobe exploded", record.String("error_first"))
	assert.Equal(t, media.NotAvailable, record.String("error_second"))
	assert.Equal(t, "Song", record.String("title"))
	assert.Equal(t, media.NotAvailable, record.String("codec"))
	assert.Equal(t, media.NotAvailable, record.String(media.FieldError), "top-level error requires every extractor to fail")
}

func Test_Merge_TotalFailureSetsTopLevelError(t *testing.T) {
	m := merge.New(schema("codec"))
	record := m.Merge(testFile, []extract.Result{
		extract.Failure("first", errors.New("bad header")),
		extract.Failure("second", errors.New("no tags")),
	})

	topLevel := record.String(media.FieldError)
	assert.Contains(t, topLevel, "first: bad header")
	assert.Contains(t, topLevel, "second: no tags")
	assert.Equal(t, "bad header", record.String("error_first"))
	assert.Equal(t, "no tags", record.String("error_second"))
	assert.Equal(t, "a.mp3", record.String(media.FieldFilename))
}

func Test_Merge_DropsUndeclaredFields(t *testing.T) {
	record := merge.New(schema("codec")).Merge(testFile, []extract.Result{
		extract.Success("first", map[string]any{"codec": "h264", "surprise": true}),
	})

	_, ok := record.Get("surprise")
	assert.False(t, ok)
}

func Test_Degraded(t *testing.T) {
	fields := schema("codec")
	record := merge.New(fields).Degraded(testFile, errors.New("processing panicked"))

	assert.Equal(t, fields, record.Keys())
	assert.Equal(t, "processing panicked", record.String(media.FieldError))
	assert.Equal(t, media.NotAvailable, record.String("codec"))
	assert.Equal(t, "a.mp3", record.String(media.FieldFilename))
}
