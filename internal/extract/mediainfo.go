package extract

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/barasher/go-exiftool"
	"github.com/hbomb79/mediascan/internal/media"
	"github.com/mitchellh/mapstructure"
)

const MediaInfoSource = "mediainfo"

var mediaInfoFields = []string{
	media.FieldCodec,
	media.FieldBitrate,
	media.FieldResolution,
	media.FieldFPS,
	media.FieldAspectRatio,
	media.FieldColorSpace,
	media.FieldRotation,
	media.FieldAudioCodec,
	media.FieldSampleRate,
	media.FieldChannels,
	media.FieldDepth,
	media.FieldTitle,
	media.FieldArtist,
	media.FieldAlbum,
	media.FieldGenre,
	media.FieldComposer,
}

// exiftoolInfo is the subset of exiftool tags we are interested in. Every
// value is decoded as a string as exiftool reports a mix of numeric and
// human readable values depending on the container.
type exiftoolInfo struct {
	ImageWidth         string `mapstructure:"ImageWidth"`
	ImageHeight        string `mapstructure:"ImageHeight"`
	VideoFrameRate     string `mapstructure:"VideoFrameRate"`
	CompressorID       string `mapstructure:"CompressorID"`
	CodecID            string `mapstructure:"CodecID"`
	VideoCodec         string `mapstructure:"VideoCodec"`
	AvgBitrate         string `mapstructure:"AvgBitrate"`
	Rotation           string `mapstructure:"Rotation"`
	MatrixCoefficients string `mapstructure:"MatrixCoefficients"`
	ColorSpace         string `mapstructure:"ColorSpace"`
	AudioFormat        string `mapstructure:"AudioFormat"`
	Encoding           string `mapstructure:"Encoding"`
	AudioSampleRate    string `mapstructure:"AudioSampleRate"`
	SampleRate         string `mapstructure:"SampleRate"`
	AudioChannels      string `mapstructure:"AudioChannels"`
	NumChannels        string `mapstructure:"NumChannels"`
	Channels           string `mapstructure:"Channels"`
	AudioBitsPerSample string `mapstructure:"AudioBitsPerSample"`
	BitsPerSample      string `mapstructure:"BitsPerSample"`
	Title              string `mapstructure:"Title"`
	Artist             string `mapstructure:"Artist"`
	Performer          string `mapstructure:"Performer"`
	Album              string `mapstructure:"Album"`
	Genre              string `mapstructure:"Genre"`
	Composer           string `mapstructure:"Composer"`
}

// mediaInfoReader uses a long-running exiftool process to read
// general media information from any file type it understands.
type mediaInfoReader struct {
	sync.Mutex
	binaryPath string
	tool       *exiftool.Exiftool
}

// NewMediaInfoReader creates the exiftool backed adapter. The exiftool process
// is started lazily on first use and must be released with Close.
func NewMediaInfoReader(binaryPath string) Adapter {
	if binaryPath == "" {
		binaryPath = "exiftool"
	}

	return &mediaInfoReader{binaryPath: binaryPath}
}

func (r *mediaInfoReader) Name() string              { return MediaInfoSource }
func (r *mediaInfoReader) Fields() []string          { return mediaInfoFields }
func (r *mediaInfoReader) Accepts(f media.File) bool { return true }

func (r *mediaInfoReader) Available() error {
	if _, err := exec.LookPath(r.binaryPath); err != nil {
		return fmt.Errorf("exiftool binary '%s' not available: %w", r.binaryPath, err)
	}

	return nil
}

func (r *mediaInfoReader) Extract(ctx context.Context, f media.File) Result {
	if err := ctx.Err(); err != nil {
		return Failure(MediaInfoSource, err)
	}

	r.Lock()
	defer r.Unlock()

	if r.tool == nil {
		tool, err := exiftool.NewExiftool(exiftool.SetExiftoolBinaryPath(r.binaryPath))
		if err != nil {
			return Failure(MediaInfoSource, fmt.Errorf("failed to start exiftool: %w", err))
		}
		r.tool = tool
	}

	metadata := r.tool.ExtractMetadata(f.Path)
	if len(metadata) != 1 {
		return Failure(MediaInfoSource, fmt.Errorf("exiftool returned %d results, expected 1", len(metadata)))
	}
	if metadata[0].Err != nil {
		return Failure(MediaInfoSource, metadata[0].Err)
	}

	fields, err := MediaInfoFields(metadata[0].Fields)
	if err != nil {
		return Failure(MediaInfoSource, err)
	}

	return Success(MediaInfoSource, fields)
}

func (r *mediaInfoReader) Close() error {
	r.Lock()
	defer r.Unlock()

	if r.tool == nil {
		return nil
	}

	err := r.tool.Close()
	r.tool = nil
	return err
}

// MediaInfoFields converts the raw tag map reported by exiftool in to
// record fields.
func MediaInfoFields(raw map[string]interface{}) (map[string]any, error) {
	var info exiftoolInfo
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &info,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(flattenTags(raw)); err != nil {
		return nil, fmt.Errorf("failed to decode exiftool output: %w", err)
	}

	fields := make(map[string]any, len(mediaInfoFields))
	for _, k := range mediaInfoFields {
		fields[k] = media.NotAvailable
	}

	fields[media.FieldCodec] = media.StringOrNA(firstNonEmpty(info.CompressorID, info.CodecID, info.VideoCodec))
	fields[media.FieldBitrate] = numericOrString(info.AvgBitrate)

	width, _ := strconv.Atoi(strings.TrimSpace(info.ImageWidth))
	height, _ := strconv.Atoi(strings.TrimSpace(info.ImageHeight))
	fields[media.FieldResolution] = media.FormatResolution(width, height)
	fields[media.FieldAspectRatio] = media.StringOrNA(aspectRatio(width, height))

	if fps, ok := media.ParseRate(info.VideoFrameRate); ok {
		fields[media.FieldFPS] = media.Round2(fps)
	}

	fields[media.FieldColorSpace] = media.StringOrNA(firstNonEmpty(info.MatrixCoefficients, info.ColorSpace))
	fields[media.FieldRotation] = numericOrString(info.Rotation)
	fields[media.FieldAudioCodec] = media.StringOrNA(firstNonEmpty(info.AudioFormat, info.Encoding))
	fields[media.FieldSampleRate] = numericOrString(firstNonEmpty(info.AudioSampleRate, info.SampleRate))
	fields[media.FieldChannels] = numericOrString(firstNonEmpty(info.AudioChannels, info.NumChannels, info.Channels))
	fields[media.FieldDepth] = numericOrString(firstNonEmpty(info.AudioBitsPerSample, info.BitsPerSample))

	fields[media.FieldTitle] = media.StringOrNA(info.Title)
	fields[media.FieldArtist] = media.StringOrNA(firstNonEmpty(info.Artist, info.Performer))
	fields[media.FieldAlbum] = media.StringOrNA(info.Album)
	fields[media.FieldGenre] = media.StringOrNA(info.Genre)
	fields[media.FieldComposer] = media.StringOrNA(info.Composer)

	return fields, nil
}

// flattenTags drops nested values and joins list values so that every
// remaining tag can be weakly decoded in to a string.
func flattenTags(raw map[string]interface{}) map[string]interface{} {
	flat := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case []interface{}:
			parts := make([]string, 0, len(val))
			for _, p := range val {
				parts = append(parts, fmt.Sprint(p))
			}
			flat[k] = strings.Join(parts, ", ")
		case map[string]interface{}:
			continue
		default:
			flat[k] = v
		}
	}

	return flat
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}

// numericOrString returns the value as an int64 or float64 if it is purely
// numeric, otherwise the trimmed string (or NotAvailable if empty).
func numericOrString(value string) any {
	value = strings.TrimSpace(value)
	if value == "" {
		return media.NotAvailable
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i
	}
	if f, ok := media.ParseNumber(value); ok {
		return media.Round2(f)
	}

	return value
}

func aspectRatio(width, height int) string {
	if width <= 0 || height <= 0 {
		return ""
	}

	a, b := width, height
	for b != 0 {
		a, b = b, a%b
	}

	return fmt.Sprintf("%d:%d", width/a, height/a)
}
