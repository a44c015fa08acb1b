package transform

// Query parameter names. Encoder, decoder and validator all read this table.
const (
	KeyWidth      = "w"
	KeyHeight     = "h"
	KeyFormat     = "format"
	KeyFit        = "fit"
	KeyQuality    = "quality"
	KeyGrayscale  = "grayscale"
	KeyBlur       = "blur"
	KeySharpen    = "sharpen"
	KeyRotate     = "rotate"
	KeyEnhance    = "enhance"
	KeyCropLeft   = "crop.left"
	KeyCropTop    = "crop.top"
	KeyCropWidth  = "crop.width"
	KeyCropHeight = "crop.height"
)

// Keys lists every query parameter in wire order.
var Keys = []string{
	KeyWidth, KeyHeight, KeyFormat, KeyFit, KeyQuality, KeyGrayscale, KeyBlur,
	KeySharpen, KeyRotate, KeyEnhance,
	KeyCropLeft, KeyCropTop, KeyCropWidth, KeyCropHeight,
}

var cropKeys = []string{KeyCropLeft, KeyCropTop, KeyCropWidth, KeyCropHeight}

var knownKeys = func() map[string]bool {
	m := make(map[string]bool, len(Keys))
	for _, k := range Keys {
		m[k] = true
	}
	return m
}()

// IsKnownKey reports whether key belongs to the transform query schema.
func IsKnownKey(key string) bool {
	return knownKeys[key]
}
