package extract

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/hbomb79/mediascan/internal/ffmpeg"
	"github.com/hbomb79/mediascan/internal/media"
)

const ContainerSource = "container"

var (
	containerFields = []string{
		media.FieldDurationSeconds,
		media.FieldDuration,
		media.FieldResolution,
		media.FieldFPS,
		media.FieldCodec,
		media.FieldPixelFormat,
		media.FieldDepth,
		// ffprobe's rotation side data is not exposed by transcoder, so
		// rotation is always N/A here.
		media.FieldRotation,
		media.FieldBitrate,
		// Colour family of the pixel format, not ffprobe's color_space.
		media.FieldColorSpace,
		media.FieldExtraInfos,
	}

	containerExtensions = extensionSet(".mp3", ".mp4", ".avi", ".mkv", ".mov", ".wav", ".flac", ".m4a", ".aac", ".webm", ".wmv", ".m4v", ".ogg", ".opus")

	pixFmtDepthMatcher = regexp.MustCompile(`(?:p|gray|rgb|bgr)(\d{1,2})(?:le|be)$`)
	errNoStreams       = errors.New("container holds no media streams")
)

type fileProber interface {
	ProbeFile(path string) (*ffmpeg.Probe, error)
}

// containerInspector uses ffprobe to extract container and stream
// level information.
type containerInspector struct {
	prober fileProber
}

// NewContainerInspector creates the ffprobe backed adapter.
func NewContainerInspector(prober fileProber) Adapter {
	return &containerInspector{prober: prober}
}

func (c *containerInspector) Name() string     { return ContainerSource }
func (c *containerInspector) Fields() []string { return containerFields }

func (c *containerInspector) Accepts(f media.File) bool {
	_, ok := containerExtensions[f.Ext]
	return ok
}

func (c *containerInspector) Available() error {
	if p, ok := c.prober.(Prober); ok {
		return p.Available()
	}

	return nil
}

func (c *containerInspector) Extract(ctx context.Context, f media.File) Result {
	if err := ctx.Err(); err != nil {
		return Failure(ContainerSource, err)
	}

	probe, err := c.prober.ProbeFile(f.Path)
	if err != nil {
		return Failure(ContainerSource, err)
	}
	if len(probe.Streams) == 0 {
		return Failure(ContainerSource, errNoStreams)
	}

	return Success(ContainerSource, ContainerFields(probe))
}

// ContainerFields converts an ffprobe result in to record fields. Picture
// related fields are taken from the first video stream; codec and bitrate fall
// back to the first audio stream for audio-only containers.
func ContainerFields(probe *ffmpeg.Probe) map[string]any {
	fields := make(map[string]any, len(containerFields))
	for _, k := range containerFields {
		fields[k] = media.NotAvailable
	}

	if seconds, ok := media.ParseNumber(probe.Format.Duration); ok && seconds >= 0 {
		fields[media.FieldDurationSeconds] = media.Round2(seconds)
		fields[media.FieldDuration] = media.FormatDuration(seconds)
	}

	video := probe.FirstStream(ffmpeg.VideoStreamType)
	audio := probe.FirstStream(ffmpeg.AudioStreamType)

	primary := video
	if primary == nil {
		primary = audio
	}
	if primary != nil {
		fields[media.FieldCodec] = media.StringOrNA(primary.CodecName)
		if rate, ok := parseBitrate(primary.BitRate); ok {
			fields[media.FieldBitrate] = rate
		}
	}
	if fields[media.FieldBitrate] == media.NotAvailable {
		if rate, ok := parseBitrate(probe.Format.BitRate); ok {
			fields[media.FieldBitrate] = rate
		}
	}

	if video != nil {
		fields[media.FieldResolution] = media.FormatResolution(video.Width, video.Height)
		if fps, ok := media.ParseRate(video.AvgFrameRate); ok {
			fields[media.FieldFPS] = media.Round2(fps)
		}

		fields[media.FieldPixelFormat] = media.StringOrNA(video.PixFmt)
		if depth, ok := PixelFormatDepth(video.PixFmt); ok {
			fields[media.FieldDepth] = depth
		}
		fields[media.FieldColorSpace] = media.StringOrNA(PixelFormatColorFamily(video.PixFmt))
	}

	fields[media.FieldExtraInfos] = describeProbe(probe)
	return fields
}

// PixelFormatDepth derives the per-component bit depth from an ffmpeg
// pixel format name (e.g. yuv420p10le -> 10, nv12 -> 8).
func PixelFormatDepth(pixFmt string) (int, bool) {
	pixFmt = strings.ToLower(strings.TrimSpace(pixFmt))
	if pixFmt == "" {
		return 0, false
	}

	switch {
	case strings.HasPrefix(pixFmt, "p010"):
		return 10, true
	case strings.HasPrefix(pixFmt, "p016"):
		return 16, true
	case pixFmt == "rgb48le" || pixFmt == "rgb48be" || strings.HasPrefix(pixFmt, "rgba64"):
		return 16, true
	}

	if groups := pixFmtDepthMatcher.FindStringSubmatch(pixFmt); len(groups) == 2 {
		if depth, err := strconv.Atoi(groups[1]); err == nil {
			return depth, true
		}
	}

	switch {
	case strings.HasPrefix(pixFmt, "yuv"), strings.HasPrefix(pixFmt, "nv"),
		pixFmt == "gray", pixFmt == "rgb24", pixFmt == "bgr24",
		pixFmt == "rgba", pixFmt == "bgra", pixFmt == "argb", pixFmt == "abgr":
		return 8, true
	}

	return 0, false
}

// PixelFormatColorFamily returns the colour model of an ffmpeg pixel
// format (YUV, RGB or Gray), or an empty string if unknown.
func PixelFormatColorFamily(pixFmt string) string {
	pixFmt = strings.ToLower(strings.TrimSpace(pixFmt))
	switch {
	case pixFmt == "":
		return ""
	case strings.HasPrefix(pixFmt, "yuv"), strings.HasPrefix(pixFmt, "nv"), strings.HasPrefix(pixFmt, "p01"):
		return "YUV"
	case strings.HasPrefix(pixFmt, "gray"), strings.HasPrefix(pixFmt, "ya"):
		return "Gray"
	case strings.Contains(pixFmt, "rgb"), strings.Contains(pixFmt, "bgr"), strings.HasPrefix(pixFmt, "gbr"):
		return "RGB"
	}

	return ""
}

func parseBitrate(value string) (int64, bool) {
	v, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}

	return v, true
}

func describeProbe(probe *ffmpeg.Probe) string {
	parts := make([]string, 0, len(probe.Streams)+1)
	if probe.Format.Name != "" {
		format := probe.Format.Name
		if probe.Format.LongName != "" {
			format = fmt.Sprintf("%s (%s)", format, probe.Format.LongName)
		}
		parts = append(parts, "format="+format)
	}

	for _, s := range probe.Streams {
		desc := fmt.Sprintf("#%d %s %s", s.Index, s.CodecType, s.CodecName)
		if s.Profile != "" {
			desc += fmt.Sprintf(" (%s)", s.Profile)
		}
		if s.CodecType == ffmpeg.VideoStreamType && s.DisplayAspectRatio != "" {
			desc += " DAR " + s.DisplayAspectRatio
		}
		parts = append(parts, desc)
	}

	if len(parts) == 0 {
		return media.NotAvailable
	}

	return strings.Join(parts, "; ")
}
