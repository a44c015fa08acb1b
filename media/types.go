// media/types.go
package media

import (
	"path"
	"strings"
)

type AssetType string

const (
	AssetTypeOriginal     AssetType = "originals"
	AssetTypeVariant      AssetType = "variants"
	AssetTypeGenerated    AssetType = "generated"
	AssetTypeNoBackground AssetType = "nobg"
)

// Key builds the storage key (public id) for an asset. dirHint groups assets
// of one source image and may be empty.
func Key(assetType AssetType, dirHint, filename string) string {
	return path.Join(string(assetType), dirHint, filename)
}

// Metadata holds what is known about an uploaded image
type Metadata struct {
	ContentType string
	Format      string // jpeg, png, webp, avif, gif
	Width       int
	Height      int
	Size        int64

	CameraMake  *string
	CameraModel *string
	TakenAt     *int64 // Unix timestamp
}

var supportedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/avif": true,
}

// IsSupportedContentType checks if the sniffed MIME type is a decodable raster image
func IsSupportedContentType(contentType string) bool {
	base, _, _ := strings.Cut(contentType, ";")
	return supportedContentTypes[strings.TrimSpace(strings.ToLower(base))]
}
