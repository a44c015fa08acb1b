package media

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"

	"github.com/camden-git/imagestudio/transform"
)

// avif encoding is slow at low speeds; 8 keeps request latency reasonable
const avifSpeed = 8

// Encode writes img to w in format. quality applies to the lossy formats.
func Encode(w io.Writer, img image.Image, format transform.Format, quality int) error {
	switch format {
	case transform.FormatJPEG:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(quality))
	case transform.FormatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case transform.FormatWebP:
		opts, err := encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(quality))
		if err != nil {
			return fmt.Errorf("webp encoder options: %w", err)
		}
		return webp.Encode(w, img, opts)
	case transform.FormatAVIF:
		return avif.Encode(w, img, avif.Options{Quality: quality, QualityAlpha: quality, Speed: avifSpeed})
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// EncodeBytes is Encode into a buffer.
func EncodeBytes(img image.Image, format transform.Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, img, format, quality); err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", format, err)
	}
	return buf.Bytes(), nil
}
