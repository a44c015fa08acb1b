package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rwcarlsen/goexif/exif"
)

// ErrUnsupportedImage is returned for payloads that are not a supported raster image.
var ErrUnsupportedImage = errors.New("unsupported image type")

// helper to safely get a string tag, trimming null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	raw, err := tag.StringVal()
	if err != nil {
		return nil
	}
	val := strings.TrimSpace(strings.TrimRight(raw, "\x00"))
	if val == "" {
		return nil
	}
	return &val
}

// ExtractMetadata sniffs the content type, reads the dimensions and picks up
// camera details from EXIF when present.
func ExtractMetadata(data []byte) (*Metadata, error) {
	mtype := mimetype.Detect(data)
	if !IsSupportedContentType(mtype.String()) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedImage, mtype.String())
	}

	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("metadata: could not decode image config: %w", err)
	}

	meta := &Metadata{
		ContentType: mtype.String(),
		Format:      format,
		Width:       config.Width,
		Height:      config.Height,
		Size:        int64(len(data)),
	}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// not necessarily a fatal error, file might just lack EXIF data
		storeLog.Debugf("metadata: no EXIF data: %v", err)
		return meta, nil
	}

	meta.CameraMake = getString(exifData, exif.Make)
	meta.CameraModel = getString(exifData, exif.Model)
	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	}
	return meta, nil
}
