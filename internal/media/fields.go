package media

import (
	"math"
	"strings"
	"unicode"
)

// NotAvailable is the value given to any field which no
// extractor was able to determine.
const NotAvailable = "N/A"

const (
	FieldFilename     = "filename"
	FieldPath         = "path"
	FieldSizeBytes    = "size_B"
	FieldSizeMB       = "size_MB"
	FieldModifiedUnix = "modified_unix"
	FieldModifiedDate = "modified_date"

	FieldDurationSeconds = "duration_seconds"
	FieldDuration        = "duration"
	FieldResolution      = "resolution"
	FieldFPS             = "fps"
	FieldCodec           = "codec"
	FieldPixelFormat     = "pixel_format"
	FieldDepth           = "depth"
	FieldRotation        = "rotation"
	FieldBitrate         = "bitrate"
	FieldColorSpace      = "color_space"
	FieldExtraInfos      = "extra_infos"
	FieldAspectRatio     = "aspect_ratio"

	FieldTitle        = "title"
	FieldArtist       = "artist"
	FieldAlbum        = "album"
	FieldAlbumArtist  = "album_artist"
	FieldComposer     = "composer"
	FieldGenre        = "genre"
	FieldGrouping     = "grouping"
	FieldLyrics       = "lyrics"
	FieldTrack        = "track"
	FieldYear         = "year"
	FieldSampleRate   = "sample_rate"
	FieldChannels     = "channels"
	FieldAudioBitrate = "audio_bitrate"
	FieldAudioCodec   = "audio_codec"

	FieldCameraModel = "camera_model"
	FieldDateTaken   = "date_taken"
	FieldISO         = "iso"

	FieldError = "error"
)

// StatFields are the fields every record carries regardless
// of configuration, in the order they appear in reports.
var StatFields = []string{
	FieldFilename,
	FieldPath,
	FieldSizeBytes,
	FieldSizeMB,
	FieldModifiedUnix,
	FieldModifiedDate,
}

var fieldLabels = map[string]string{
	FieldFilename:        "Filename",
	FieldPath:            "Path",
	FieldSizeBytes:       "Size (B)",
	FieldSizeMB:          "Size (MB)",
	FieldModifiedUnix:    "Modified (Unix)",
	FieldModifiedDate:    "Modified Date",
	FieldDurationSeconds: "Duration (seconds)",
	FieldDuration:        "Duration",
	FieldResolution:      "Resolution",
	FieldFPS:             "FPS",
	FieldCodec:           "Codec",
	FieldPixelFormat:     "Pixel Format",
	FieldDepth:           "Bit Depth",
	FieldRotation:        "Rotation",
	FieldBitrate:         "Bitrate",
	FieldColorSpace:      "Color Space",
	FieldExtraInfos:      "Extra Infos",
	FieldAspectRatio:     "Aspect Ratio",
	FieldAlbumArtist:     "Album Artist",
	FieldSampleRate:      "Sample Rate",
	FieldAudioBitrate:    "Audio Bitrate",
	FieldAudioCodec:      "Audio Codec",
	FieldCameraModel:     "Camera Model",
	FieldDateTaken:       "Date Taken",
	FieldISO:             "ISO",
	FieldError:           "Error",
}

// SourceErrorField returns the name of the field used to record
// the failure of the extractor with the source name provided.
func SourceErrorField(source string) string {
	return FieldError + "_" + source
}

// FieldLabel returns the human readable column heading for
// a field. Unknown fields are title-cased.
func FieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}

	words := strings.FieldsFunc(field, func(r rune) bool { return r == '_' || r == '-' })
	for i, w := range words {
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}

	return strings.Join(words, " ")
}

// Round2 rounds the value provided to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
