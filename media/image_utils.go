package media

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "github.com/gen2brain/avif"
	_ "golang.org/x/image/webp"
)

// DecodeImage decodes any registered format (jpeg, png, gif, webp, avif).
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to decode image: %w", err)
	}
	return img, format, nil
}

// DecodeBytes is DecodeImage over an in-memory payload.
func DecodeBytes(data []byte) (image.Image, string, error) {
	return DecodeImage(bytes.NewReader(data))
}
