package media

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/camden-git/imagestudio/transform"
)

// Processor applies transform options to decoded images. The pipeline order is
// crop, resize, rotate, grayscale, blur, sharpen.
type Processor struct {
	filter imaging.ResampleFilter
}

func NewProcessor() *Processor {
	return &Processor{filter: imaging.Lanczos}
}

// Apply returns a new image with opts applied to src. Output encoding and
// enhancement are not part of Apply, but the processed image is checked so
// that enhancing it stays within transform.MaxDimension.
func (p *Processor) Apply(src image.Image, opts transform.Options) (image.Image, error) {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, fmt.Errorf("invalid source image dimensions: %dx%d", b.Dx(), b.Dy())
	}

	img := src
	if opts.Crop != nil {
		rect, err := cropRect(b, *opts.Crop)
		if err != nil {
			return nil, err
		}
		img = imaging.Crop(img, rect)
	}

	img, err := p.resize(img, opts)
	if err != nil {
		return nil, err
	}

	if w, h := rotatedSize(img.Bounds().Dx(), img.Bounds().Dy(), opts.Rotate); w > transform.MaxDimension || h > transform.MaxDimension {
		return nil, sizeError(transform.KeyRotate, strconv.Itoa(opts.Rotate), w, h)
	}
	img = rotate(img, opts.Rotate)

	if f := opts.Enhance.Factor(); f > 1 {
		w, h := img.Bounds().Dx()*f, img.Bounds().Dy()*f
		if w > transform.MaxDimension || h > transform.MaxDimension {
			return nil, sizeError(transform.KeyEnhance, string(opts.Enhance), w, h)
		}
	}

	if opts.Grayscale {
		img = imaging.Grayscale(img)
	}
	if opts.Blur > 0 {
		img = imaging.Blur(img, float64(opts.Blur)/2)
	}
	if opts.Sharpen {
		img = imaging.Sharpen(img, 1.0)
	}
	return img, nil
}

// cropRect resolves c against the source bounds. A zero width or height
// extends the crop to the image edge.
func cropRect(b image.Rectangle, c transform.Crop) (image.Rectangle, error) {
	w, h := b.Dx(), b.Dy()
	if c.Left < 0 || c.Top < 0 || c.Width < 0 || c.Height < 0 || c.Left >= w || c.Top >= h {
		return image.Rectangle{}, cropError(c, w, h)
	}
	cw, ch := c.Width, c.Height
	if cw == 0 {
		cw = w - c.Left
	}
	if ch == 0 {
		ch = h - c.Top
	}
	// compare against the remaining room so huge sizes cannot overflow
	if cw > w-c.Left || ch > h-c.Top {
		return image.Rectangle{}, cropError(c, w, h)
	}
	origin := b.Min.Add(image.Pt(c.Left, c.Top))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cw, ch))}, nil
}

func cropError(c transform.Crop, w, h int) error {
	return &transform.ValidationError{Errors: []transform.FieldError{{
		Field:   "crop",
		Value:   fmt.Sprintf("%d,%d,%d,%d", c.Left, c.Top, c.Width, c.Height),
		Message: fmt.Sprintf("must lie within the %dx%d source image", w, h),
	}}}
}

func sizeError(field, value string, w, h int) error {
	return &transform.ValidationError{Errors: []transform.FieldError{{
		Field:   field,
		Value:   value,
		Message: fmt.Sprintf("produces a %dx%d image, above the %d pixel limit", w, h, transform.MaxDimension),
	}}}
}

// resize scales img per opts.Fit. The output size is planned before any
// pixel buffer is allocated.
func (p *Processor) resize(img image.Image, opts transform.Options) (image.Image, error) {
	if opts.Width == nil && opts.Height == nil {
		return img, nil
	}
	sw, sh := img.Bounds().Dx(), img.Bounds().Dy()

	// a single dimension keeps the aspect ratio whatever the fit
	if opts.Width == nil {
		th := *opts.Height
		if err := checkSize(transform.KeyHeight, th, scaled(sw, float64(th)/float64(sh)), th); err != nil {
			return nil, err
		}
		return imaging.Resize(img, 0, th, p.filter), nil
	}
	if opts.Height == nil {
		tw := *opts.Width
		if err := checkSize(transform.KeyWidth, tw, tw, scaled(sh, float64(tw)/float64(sw))); err != nil {
			return nil, err
		}
		return imaging.Resize(img, tw, 0, p.filter), nil
	}

	tw, th := *opts.Width, *opts.Height
	if err := checkSize(transform.KeyWidth, tw, tw, th); err != nil {
		return nil, err
	}
	fx, fy := float64(tw)/float64(sw), float64(th)/float64(sh)

	switch opts.Fit {
	case transform.FitFill:
		return imaging.Resize(img, tw, th, p.filter), nil
	case transform.FitContain:
		f := math.Min(fx, fy)
		fitted := imaging.Resize(img, minInt(tw, scaled(sw, f)), minInt(th, scaled(sh, f)), p.filter)
		canvas := imaging.New(tw, th, color.NRGBA{})
		return imaging.PasteCenter(canvas, fitted), nil
	case transform.FitInside:
		f := math.Min(fx, fy)
		return imaging.Resize(img, scaled(sw, f), scaled(sh, f), p.filter), nil
	case transform.FitOutside:
		f := math.Max(fx, fy)
		w, h := scaled(sw, f), scaled(sh, f)
		if w > transform.MaxDimension || h > transform.MaxDimension {
			return nil, sizeError(transform.KeyFit, string(opts.Fit), w, h)
		}
		return imaging.Resize(img, w, h, p.filter), nil
	default:
		return imaging.Fill(img, tw, th, imaging.Center, p.filter), nil
	}
}

func checkSize(field string, requested, w, h int) error {
	if w > transform.MaxDimension || h > transform.MaxDimension {
		return sizeError(field, strconv.Itoa(requested), w, h)
	}
	return nil
}

// rotatedSize is the bounding box of a w x h image turned by degrees.
func rotatedSize(w, h, degrees int) (int, int) {
	switch degrees % 360 {
	case 0, 180:
		return w, h
	case 90, 270:
		return h, w
	}
	rad := float64(degrees) * math.Pi / 180
	sin, cos := math.Abs(math.Sin(rad)), math.Abs(math.Cos(rad))
	fw, fh := float64(w), float64(h)
	return int(math.Ceil(fw*cos + fh*sin)), int(math.Ceil(fw*sin + fh*cos))
}

// rotate turns img clockwise by degrees, filling uncovered corners with
// transparent pixels.
func rotate(img image.Image, degrees int) image.Image {
	switch degrees % 360 {
	case 0:
		return img
	case 90:
		return imaging.Rotate270(img)
	case 180:
		return imaging.Rotate180(img)
	case 270:
		return imaging.Rotate90(img)
	default:
		// imaging rotates counter-clockwise
		return imaging.Rotate(img, float64(360-degrees%360), color.Transparent)
	}
}
