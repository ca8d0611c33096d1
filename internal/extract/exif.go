package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/hbomb79/mediascan/internal/media"
	"github.com/rwcarlsen/goexif/exif"
)

const ExifSource = "exif"

var (
	exifFields     = []string{media.FieldCameraModel, media.FieldDateTaken, media.FieldISO}
	exifExtensions = extensionSet(".jpg", ".jpeg", ".tif", ".tiff", ".heic", ".png")
)

// exifReader reads camera information from the EXIF block of image files.
type exifReader struct{}

func NewExifReader() Adapter {
	return &exifReader{}
}

func (r *exifReader) Name() string     { return ExifSource }
func (r *exifReader) Fields() []string { return exifFields }

func (r *exifReader) Accepts(f media.File) bool {
	_, ok := exifExtensions[f.Ext]
	return ok
}

func (r *exifReader) Extract(ctx context.Context, f media.File) Result {
	if err := ctx.Err(); err != nil {
		return Failure(ExifSource, err)
	}

	handle, err := os.Open(f.Path)
	if err != nil {
		return Failure(ExifSource, err)
	}
	defer handle.Close()

	x, err := exif.Decode(handle)
	if err != nil {
		return Failure(ExifSource, fmt.Errorf("failed to decode EXIF: %w", err))
	}

	fields := map[string]any{
		media.FieldCameraModel: media.NotAvailable,
		media.FieldDateTaken:   media.NotAvailable,
		media.FieldISO:         media.NotAvailable,
	}

	if tag, err := x.Get(exif.Model); err == nil {
		if model, err := tag.StringVal(); err == nil {
			fields[media.FieldCameraModel] = media.StringOrNA(strings.TrimRight(model, "\x00"))
		}
	}
	if taken, err := x.DateTime(); err == nil {
		fields[media.FieldDateTaken] = taken.Format(media.ModTimeLayout)
	}
	if tag, err := x.Get(exif.ISOSpeedRatings); err == nil {
		if iso, err := tag.Int(0); err == nil && iso > 0 {
			fields[media.FieldISO] = iso
		}
	}

	return Success(ExifSource, fields)
}
