// Package transform models a transform request and maps it to and from the
// flat query string used by the transform endpoint and the variant history.
package transform

// Format is the output encoding of a transformed image.
type Format string

const (
	FormatJPEG Format = "jpeg"
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
	FormatAVIF Format = "avif"
)

// Fit controls how the source is fitted into the requested box.
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitFill    Fit = "fill"
	FitInside  Fit = "inside"
	FitOutside Fit = "outside"
)

// Enhance is the AI upscale tier. The zero value means no enhancement.
type Enhance string

const (
	EnhanceNone Enhance = ""
	Enhance2x   Enhance = "2x"
	Enhance4x   Enhance = "4x"
	Enhance8x   Enhance = "8x"
)

const (
	DefaultFormat  = FormatJPEG
	DefaultFit     = FitCover
	DefaultQuality = 80

	MinQuality = 1
	MaxQuality = 100
	MaxBlur    = 100
	MaxRotate  = 360

	// MaxDimension caps every output edge, enhancement included.
	MaxDimension = 8192
	// MaxSourceDimension caps crop coordinates.
	MaxSourceDimension = 1 << 16
)

var formats = map[Format]bool{FormatJPEG: true, FormatPNG: true, FormatWebP: true, FormatAVIF: true}

var fits = map[Fit]bool{FitCover: true, FitContain: true, FitFill: true, FitInside: true, FitOutside: true}

var enhanceFactors = map[Enhance]int{Enhance2x: 2, Enhance4x: 4, Enhance8x: 8}

func (f Format) Valid() bool { return formats[f] }

// Extension returns the file extension including the leading dot.
func (f Format) Extension() string {
	if f == FormatJPEG {
		return ".jpg"
	}
	return "." + string(f)
}

func (f Format) ContentType() string {
	return "image/" + string(f)
}

func (f Fit) Valid() bool { return fits[f] }

func (e Enhance) Valid() bool {
	_, ok := enhanceFactors[e]
	return ok
}

// Factor returns the upscale multiplier, 1 when no enhancement is requested.
func (e Enhance) Factor() int {
	if f, ok := enhanceFactors[e]; ok {
		return f
	}
	return 1
}

// Crop is a source sub-rectangle in pixels.
type Crop struct {
	Left   int `json:"left"`
	Top    int `json:"top"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Options is the canonical in-memory transform request. Width, Height and Crop
// are optional; every other field always carries a value.
type Options struct {
	Width     *int    `json:"w,omitempty"`
	Height    *int    `json:"h,omitempty"`
	Format    Format  `json:"format"`
	Fit       Fit     `json:"fit"`
	Quality   int     `json:"quality"`
	Grayscale bool    `json:"grayscale"`
	Blur      int     `json:"blur"`
	Sharpen   bool    `json:"sharpen"`
	Rotate    int     `json:"rotate"`
	Crop      *Crop   `json:"crop,omitempty"`
	Enhance   Enhance `json:"enhance,omitempty"`
}

// Defaults returns the options used for every field absent from a request.
func Defaults() Options {
	return Options{
		Format:  DefaultFormat,
		Fit:     DefaultFit,
		Quality: DefaultQuality,
	}
}

// IsDefault reports whether o requests no change at all.
func (o Options) IsDefault() bool {
	return Encode(o) == ""
}

func intPtr(v int) *int { return &v }
