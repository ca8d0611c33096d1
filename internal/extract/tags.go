package extract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/go-audio/wav"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
	"github.com/hbomb79/mediascan/internal/media"
)

const TagsSource = "tags"

var (
	tagFields = []string{
		media.FieldTitle,
		media.FieldArtist,
		media.FieldAlbum,
		media.FieldAlbumArtist,
		media.FieldComposer,
		media.FieldGenre,
		media.FieldGrouping,
		media.FieldLyrics,
		media.FieldTrack,
		media.FieldYear,
		media.FieldSampleRate,
		media.FieldChannels,
		media.FieldAudioBitrate,
		media.FieldDurationSeconds,
		media.FieldDuration,
	}

	tagExtensions = extensionSet(".mp3", ".m4a", ".mp4", ".flac", ".wav", ".aac", ".ogg")

	// Raw tag names which hold the 'grouping' (content group) value for
	// the tag formats we understand.
	groupingRawKeys = []string{"TIT1", "GP1", "GRP1", "\xa9grp", "grouping", "GROUPING"}

	errInvalidWav = errors.New("not a valid WAV file")
)

// tagReader reads embedded audio tags using dhowden/tag, with WAV
// (RIFF INFO) support from go-audio/wav and FLAC stream information
// from go-flac.
type tagReader struct{}

func NewTagReader() Adapter {
	return &tagReader{}
}

func (r *tagReader) Name() string     { return TagsSource }
func (r *tagReader) Fields() []string { return tagFields }

func (r *tagReader) Accepts(f media.File) bool {
	_, ok := tagExtensions[f.Ext]
	return ok
}

func (r *tagReader) Extract(ctx context.Context, f media.File) Result {
	if err := ctx.Err(); err != nil {
		return Failure(TagsSource, err)
	}

	handle, err := os.Open(f.Path)
	if err != nil {
		return Failure(TagsSource, err)
	}
	defer handle.Close()

	fields := make(map[string]any, len(tagFields))
	for _, k := range tagFields {
		fields[k] = media.NotAvailable
	}

	if f.Ext == ".wav" {
		if err := readWavInfo(handle, fields); err != nil {
			return Failure(TagsSource, err)
		}

		return Success(TagsSource, fields)
	}

	metadata, err := tag.ReadFrom(handle)
	if err != nil {
		return Failure(TagsSource, fmt.Errorf("failed to read audio tags: %w", err))
	}
	applyTagMetadata(metadata, fields)

	if f.Ext == ".flac" {
		if _, err := handle.Seek(0, io.SeekStart); err != nil {
			return Failure(TagsSource, err)
		}
		if err := readFlacStreamInfo(handle, f.Stat.Size, fields); err != nil {
			return Failure(TagsSource, err)
		}
	}

	return Success(TagsSource, fields)
}

func applyTagMetadata(m tag.Metadata, fields map[string]any) {
	fields[media.FieldTitle] = media.StringOrNA(m.Title())
	fields[media.FieldArtist] = media.StringOrNA(m.Artist())
	fields[media.FieldAlbum] = media.StringOrNA(m.Album())
	fields[media.FieldAlbumArtist] = media.StringOrNA(m.AlbumArtist())
	fields[media.FieldComposer] = media.StringOrNA(m.Composer())
	fields[media.FieldGenre] = media.StringOrNA(m.Genre())
	fields[media.FieldLyrics] = media.StringOrNA(m.Lyrics())
	fields[media.FieldYear] = media.PositiveOrNA(m.Year())

	if track, total := m.Track(); track > 0 {
		if total > 0 {
			fields[media.FieldTrack] = fmt.Sprintf("%d/%d", track, total)
		} else {
			fields[media.FieldTrack] = strconv.Itoa(track)
		}
	}

	raw := m.Raw()
	for _, key := range groupingRawKeys {
		if v, ok := raw[key].(string); ok && strings.TrimSpace(v) != "" {
			fields[media.FieldGrouping] = strings.TrimSpace(v)
			break
		}
	}
}

func readWavInfo(rs io.ReadSeeker, fields map[string]any) error {
	decoder := wav.NewDecoder(rs)
	if !decoder.IsValidFile() {
		if err := decoder.Err(); err != nil {
			return fmt.Errorf("%w: %v", errInvalidWav, err)
		}
		return errInvalidWav
	}

	fields[media.FieldSampleRate] = media.PositiveOrNA(int(decoder.SampleRate))
	fields[media.FieldChannels] = media.PositiveOrNA(int(decoder.NumChans))
	if decoder.AvgBytesPerSec > 0 {
		fields[media.FieldAudioBitrate] = int64(decoder.AvgBytesPerSec) * 8
	}
	if duration, err := decoder.Duration(); err == nil && duration > 0 {
		fields[media.FieldDurationSeconds] = media.Round2(duration.Seconds())
		fields[media.FieldDuration] = media.FormatDuration(duration.Seconds())
	}

	decoder.ReadMetadata()
	if info := decoder.Metadata; info != nil {
		fields[media.FieldTitle] = media.StringOrNA(info.Title)
		fields[media.FieldArtist] = media.StringOrNA(info.Artist)
		fields[media.FieldAlbum] = media.StringOrNA(info.Product)
		fields[media.FieldGenre] = media.StringOrNA(info.Genre)
		fields[media.FieldTrack] = media.StringOrNA(info.TrackNbr)
		if year := parseYear(info.CreationDate); year > 0 {
			fields[media.FieldYear] = year
		}
	}

	return nil
}

func readFlacStreamInfo(r io.Reader, size int64, fields map[string]any) error {
	file, err := flac.ParseMetadata(r)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC metadata: %w", err)
	}

	info, err := file.GetStreamInfo()
	if err != nil {
		return fmt.Errorf("failed to read FLAC stream info: %w", err)
	}

	fields[media.FieldSampleRate] = media.PositiveOrNA(info.SampleRate)
	fields[media.FieldChannels] = media.PositiveOrNA(info.ChannelCount)
	if info.SampleRate > 0 && info.SampleCount > 0 {
		seconds := float64(info.SampleCount) / float64(info.SampleRate)
		fields[media.FieldDurationSeconds] = media.Round2(seconds)
		fields[media.FieldDuration] = media.FormatDuration(seconds)
		if size > 0 {
			fields[media.FieldAudioBitrate] = int64(float64(size*8) / seconds)
		}
	}

	for _, block := range file.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}

		comments, err := flacvorbis.ParseFromMetaDataBlock(*block)
		if err != nil {
			return fmt.Errorf("failed to parse FLAC vorbis comments: %w", err)
		}
		if groups, err := comments.Get("GROUPING"); err == nil && len(groups) > 0 && groups[0] != "" {
			fields[media.FieldGrouping] = groups[0]
		}
	}

	return nil
}

func parseYear(date string) int {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return 0
	}

	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}

	return year
}
