package extract_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/hbomb79/mediascan/internal/extract"
	"github.com/hbomb79/mediascan/internal/extract/mocks"
	"github.com/hbomb79/mediascan/internal/ffmpeg"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/hbomb79/mediascan/pkg/logger"
	"github.com/hbomb79/mediascan/tests/helpers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errExpected = errors.New("test: expected error")

func init() {
	logger.SetMinLoggingLevel(logger.VERBOSE.Level())
}

func fileAt(t *testing.T, path string) media.File {
	info, err := os.Stat(path)
	require.NoError(t, err)
	return media.NewFile(path, info)
}

type stubProber struct {
	probe *ffmpeg.Probe
	err   error
}

func (p *stubProber) ProbeFile(string) (*ffmpeg.Probe, error) { return p.probe, p.err }

func Test_TagReader_ReadsID3v1(t *testing.T) {
	_, paths := helpers.TempDirWithFiles(t, map[string][]byte{
		"a.mp3": helpers.ID3v1MP3(helpers.ID3v1Tag{Title: "Song", Artist: "X", Album: "Record", Year: "2001", Track: 7}),
	})

	result := extract.NewTagReader().Extract(context.Background(), fileAt(t, paths[0]))
	require.False(t, result.Failed(), "unexpected failure: %v", result.Err)

	assert.Equal(t, extract.TagsSource, result.Source)
	assert.Equal(t, "Song", result.Fields[media.FieldTitle])
	assert.Equal(t, "X", result.Fields[media.FieldArtist])
	assert.Equal(t, "Record", result.Fields[media.FieldAlbum])
	assert.Equal(t, 2001, result.Fields[media.FieldYear])
	assert.Equal(t, "7", result.Fields[media.FieldTrack])
	assert.Equal(t, media.NotAvailable, result.Fields[media.FieldGenre])
	assert.Equal(t, media.NotAvailable, result.Fields[media.FieldComposer])

	for _, field := range extract.NewTagReader().Fields() {
		assert.Contains(t, result.Fields, field)
	}
}

func Test_TagReader_ReadsWavInfo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tone.wav")
	helpers.WriteWAV(t, path, 8000, 1, &wav.Metadata{Title: "Tones", Artist: "Testers", Genre: "Ambient", CreationDate: "2019-01"})

	result := extract.NewTagReader().Extract(context.Background(), fileAt(t, path))
	require.False(t, result.Failed(), "unexpected failure: %v", result.Err)

	assert.Equal(t, 8000, result.Fields[media.FieldSampleRate])
	assert.Equal(t, 1, result.Fields[media.FieldChannels])
	assert.Equal(t, int64(8000*2*8), result.Fields[media.FieldAudioBitrate])
	assert.Equal(t, "Tones", result.Fields[media.FieldTitle])
	assert.Equal(t, "Testers", result.Fields[media.FieldArtist])
	assert.Equal(t, "Ambient", result.Fields[media.FieldGenre])
	assert.Equal(t, 2019, result.Fields[media.FieldYear])

	seconds, ok := result.Fields[media.FieldDurationSeconds].(float64)
	require.True(t, ok, "expected numeric duration")
	assert.InDelta(t, 1.0, seconds, 0.05)
}

func Test_TagReader_FailsOnCorruptFile(t *testing.T) {
	_, paths := helpers.TempDirWithFiles(t, map[string][]byte{"b.mp4": []byte("garbage")})

	result := extract.NewTagReader().Extract(context.Background(), fileAt(t, paths[0]))
	require.True(t, result.Failed())

	var sourceErr *extract.SourceError
	require.ErrorAs(t, result.Err, &sourceErr)
	assert.Equal(t, extract.TagsSource, sourceErr.Source)
	assert.Nil(t, result.Fields)
}

func Test_TagReader_FailsWithoutTags(t *testing.T) {
	_, paths := helpers.TempDirWithFiles(t, map[string][]byte{"untagged.mp3": make([]byte, 512)})

	result := extract.NewTagReader().Extract(context.Background(), fileAt(t, paths[0]))
	assert.True(t, result.Failed())
}

func Test_TagReader_Accepts(t *testing.T) {
	reader := extract.NewTagReader()
	assert.True(t, reader.Accepts(media.File{Ext: ".flac"}))
	assert.True(t, reader.Accepts(media.File{Ext: ".mp3"}))
	assert.False(t, reader.Accepts(media.File{Ext: ".mkv"}))
	assert.False(t, reader.Accepts(media.File{Ext: ".jpg"}))
}

func Test_ContainerInspector_VideoStreams(t *testing.T) {
	probe := &ffmpeg.Probe{
		Format: ffmpeg.Format{Name: "mov,mp4", LongName: "QuickTime / MOV", Duration: "3723.456", BitRate: "9000000", NbStreams: 2},
		Streams: []ffmpeg.Stream{
			{Index: 0, CodecType: "audio", CodecName: "aac", BitRate: "128000"},
			{Index: 1, CodecType: "video", CodecName: "hevc", Profile: "Main 10", Width: 3840, Height: 2160, PixFmt: "yuv420p10le", AvgFrameRate: "30000/1001", BitRate: "8000000", DisplayAspectRatio: "16:9"},
		},
	}

	adapter := extract.NewContainerInspector(&stubProber{probe: probe})
	result := adapter.Extract(context.Background(), media.File{Path: "/x/clip.mp4", Ext: ".mp4"})
	require.False(t, result.Failed())

	assert.Equal(t, 3723.46, result.Fields[media.FieldDurationSeconds])
	assert.Equal(t, "1:02:03.46", result.Fields[media.FieldDuration])
	assert.Equal(t, "3840x2160", result.Fields[media.FieldResolution])
	assert.Equal(t, 29.97, result.Fields[media.FieldFPS])
	assert.Equal(t, "hevc", result.Fields[media.FieldCodec])
	assert.Equal(t, "yuv420p10le", result.Fields[media.FieldPixelFormat])
	assert.Equal(t, 10, result.Fields[media.FieldDepth])
	assert.Equal(t, "YUV", result.Fields[media.FieldColorSpace])
	assert.Equal(t, int64(8000000), result.Fields[media.FieldBitrate])
	assert.Equal(t, media.NotAvailable, result.Fields[media.FieldRotation])
	assert.Equal(t, "format=mov,mp4 (QuickTime / MOV); #0 audio aac; #1 video hevc (Main 10) DAR 16:9", result.Fields[media.FieldExtraInfos])
}

func Test_ContainerInspector_AudioOnly(t *testing.T) {
	probe := &ffmpeg.Probe{
		Format:  ffmpeg.Format{Name: "mp3", Duration: "12.5", BitRate: "320000"},
		Streams: []ffmpeg.Stream{{CodecType: "audio", CodecName: "mp3"}},
	}

	result := extract.NewContainerInspector(&stubProber{probe: probe}).Extract(context.Background(), media.File{Ext: ".mp3"})
	require.False(t, result.Failed())

	assert.Equal(t, "mp3", result.Fields[media.FieldCodec])
	assert.Equal(t, int64(320000), result.Fields[media.FieldBitrate])
	assert.Equal(t, 12.5, result.Fields[media.FieldDurationSeconds])
	assert.Equal(t, media.NotAvailable, result.Fields[media.FieldResolution])
	assert.Equal(t, media.NotAvailable, result.Fields[media.FieldFPS])
}

func Test_ContainerInspector_Failures(t *testing.T) {
	result := extract.NewContainerInspector(&stubProber{err: errExpected}).Extract(context.Background(), media.File{Ext: ".mp4"})
	require.True(t, result.Failed())
	assert.ErrorIs(t, result.Err, errExpected)

	result = extract.NewContainerInspector(&stubProber{probe: &ffmpeg.Probe{}}).Extract(context.Background(), media.File{Ext: ".mp4"})
	assert.True(t, result.Failed())
}

func Test_PixelFormatDepth(t *testing.T) {
	tests := map[string]int{
		"yuv420p":     8,
		"yuv420p10le": 10,
		"yuv444p12be": 12,
		"nv12":        8,
		"p010le":      10,
		"gray16le":    16,
		"rgb24":       8,
		"rgb48le":     16,
	}
	for pixFmt, expected := range tests {
		depth, ok := extract.PixelFormatDepth(pixFmt)
		assert.True(t, ok, pixFmt)
		assert.Equal(t, expected, depth, pixFmt)
	}

	_, ok := extract.PixelFormatDepth("")
	assert.False(t, ok)
	_, ok = extract.PixelFormatDepth("mystery")
	assert.False(t, ok)
}

func Test_PixelFormatColorFamily(t *testing.T) {
	assert.Equal(t, "YUV", extract.PixelFormatColorFamily("yuvj420p"))
	assert.Equal(t, "RGB", extract.PixelFormatColorFamily("gbrp"))
	assert.Equal(t, "RGB", extract.PixelFormatColorFamily("bgra"))
	assert.Equal(t, "Gray", extract.PixelFormatColorFamily("gray10le"))
	assert.Equal(t, "", extract.PixelFormatColorFamily("pal8"))
}

func Test_MediaInfoFields(t *testing.T) {
	fields, err := extract.MediaInfoFields(map[string]interface{}{
		"ImageWidth":         float64(1920),
		"ImageHeight":        float64(1080),
		"VideoFrameRate":     float64(25),
		"CompressorID":       "avc1",
		"AvgBitrate":         "12.3 Mbps",
		"Rotation":           float64(90),
		"MatrixCoefficients": "BT.709",
		"AudioFormat":        "mp4a",
		"AudioSampleRate":    float64(48000),
		"AudioChannels":      float64(2),
		"AudioBitsPerSample": float64(16),
		"Title":              "Holiday",
		"Performer":          "Someone",
		"Keywords":           []interface{}{"a", "b"},
		"Nested":             map[string]interface{}{"x": 1},
	})
	require.NoError(t, err)

	assert.Equal(t, "avc1", fields[media.FieldCodec])
	assert.Equal(t, "12.3 Mbps", fields[media.FieldBitrate])
	assert.Equal(t, "1920x1080", fields[media.FieldResolution])
	assert.Equal(t, "16:9", fields[media.FieldAspectRatio])
	assert.Equal(t, 25.0, fields[media.FieldFPS])
	assert.Equal(t, int64(90), fields[media.FieldRotation])
	assert.Equal(t, "BT.709", fields[media.FieldColorSpace])
	assert.Equal(t, "mp4a", fields[media.FieldAudioCodec])
	assert.Equal(t, int64(48000), fields[media.FieldSampleRate])
	assert.Equal(t, int64(2), fields[media.FieldChannels])
	assert.Equal(t, int64(16), fields[media.FieldDepth])
	assert.Equal(t, "Holiday", fields[media.FieldTitle])
	assert.Equal(t, "Someone", fields[media.FieldArtist])
	assert.Equal(t, media.NotAvailable, fields[media.FieldAlbum])
}

func Test_MediaInfoFields_KeepsNonFiniteValuesAsText(t *testing.T) {
	fields, err := extract.MediaInfoFields(map[string]interface{}{"Rotation": "inf", "VideoFrameRate": "Infinity"})
	require.NoError(t, err)

	assert.Equal(t, "inf", fields[media.FieldRotation])
	_, isFloat := fields[media.FieldFPS].(float64)
	assert.False(t, isFloat, "non-finite frame rate must not be stored as a number")
}

func Test_ExifReader_FailsWithoutExif(t *testing.T) {
	_, paths := helpers.TempDirWithFiles(t, map[string][]byte{"photo.jpg": []byte("not really a jpeg")})

	reader := extract.NewExifReader()
	require.True(t, reader.Accepts(fileAt(t, paths[0])))
	assert.False(t, reader.Accepts(media.File{Ext: ".mp3"}))

	result := reader.Extract(context.Background(), fileAt(t, paths[0]))
	assert.True(t, result.Failed())
	assert.Equal(t, extract.ExifSource, result.Source)
}

func Test_Chain_SchemaOrder(t *testing.T) {
	first := mocks.NewMockAdapter(t, "first", "a", "b")
	second := mocks.NewMockAdapter(t, "second", "b", "c")

	schema := extract.NewChain(first, second).Schema()
	expected := append(append([]string{}, media.StatFields...), "a", "b", "c", media.FieldError, "error_first", "error_second")
	assert.Equal(t, expected, schema)
}

func Test_Chain_RunSkipsInapplicableAdapters(t *testing.T) {
	file := media.File{Path: "/x/a.mp3", Ext: ".mp3"}

	applies := mocks.NewMockAdapter(t, "applies", "a")
	applies.On("Accepts", file).Return(true)
	applies.On("Extract", mock.Anything, file).Return(extract.Success("applies", map[string]any{"a": 1}))

	skipped := mocks.NewMockAdapter(t, "skipped", "b")
	skipped.On("Accepts", file).Return(false)

	results := extract.NewChain(applies, skipped).Run(context.Background(), file)
	require.Len(t, results, 1)
	assert.Equal(t, "applies", results[0].Source)
	skipped.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything)
}

func Test_Chain_RecoversAdapterPanic(t *testing.T) {
	file := media.File{Path: "/x/a.mp3", Ext: ".mp3"}

	panics := mocks.NewMockAdapter(t, "panics", "a")
	panics.On("Accepts", file).Return(true)
	panics.On("Extract", mock.Anything, file).Return(func(context.Context, media.File) extract.Result {
		panic("boom")
	})

	after := mocks.NewMockAdapter(t, "after", "b")
	after.On("Accepts", file).Return(true)
	after.On("Extract", mock.Anything, file).Return(extract.Result{Err: errExpected})

	results := extract.NewChain(panics, after).Run(context.Background(), file)
	require.Len(t, results, 2)

	assert.True(t, results[0].Failed())
	assert.Contains(t, results[0].Err.Error(), "boom")

	var sourceErr *extract.SourceError
	require.ErrorAs(t, results[1].Err, &sourceErr, "plain errors should be wrapped in a SourceError")
	assert.Equal(t, "after", sourceErr.Source)
	assert.ErrorIs(t, results[1].Err, errExpected)
}

func Test_Build(t *testing.T) {
	chain, err := extract.Build([]string{" Tags ", "exif"}, extract.Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{extract.TagsSource, extract.ExifSource}, chain.Names())

	_, err = extract.Build([]string{"tags", "nope"}, extract.Options{})
	assert.ErrorContains(t, err, "unknown adapter")

	_, err = extract.Build([]string{"tags", "tags"}, extract.Options{})
	assert.ErrorContains(t, err, "more than once")
}

func Test_Build_DropsUnavailableAdapters(t *testing.T) {
	chain, err := extract.Build([]string{"container", "tags", "mediainfo"}, extract.Options{
		FfprobeBinaryPath:  filepath.Join(t.TempDir(), "no-ffprobe"),
		ExiftoolBinaryPath: filepath.Join(t.TempDir(), "no-exiftool"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{extract.TagsSource}, chain.Names())
	assert.NoError(t, chain.Close())
}
