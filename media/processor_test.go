package media

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/camden-git/imagestudio/transform"
)

func testImage(w, h int) image.Image {
	return imaging.New(w, h, color.NRGBA{R: 200, G: 40, B: 40, A: 255})
}

func optsFrom(t *testing.T, raw string) transform.Options {
	t.Helper()
	opts, err := transform.Validate(transform.ParseQuery(raw))
	require.NoError(t, err)
	return opts
}

func TestApplyResizeFits(t *testing.T) {
	p := NewProcessor()
	src := testImage(400, 200)

	cases := []struct {
		query string
		w, h  int
	}{
		{"", 400, 200},
		{"?w=100", 100, 50},
		{"?h=50", 100, 50},
		{"?w=100&h=100", 100, 100},
		{"?w=100&h=100&fit=cover", 100, 100},
		{"?w=100&h=100&fit=contain", 100, 100},
		{"?w=100&h=100&fit=fill", 100, 100},
		{"?w=100&h=100&fit=inside", 100, 50},
		{"?w=100&h=100&fit=outside", 200, 100},
	}
	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			out, err := p.Apply(src, optsFrom(t, tc.query))
			require.NoError(t, err)
			assert.Equal(t, tc.w, out.Bounds().Dx())
			assert.Equal(t, tc.h, out.Bounds().Dy())
		})
	}
}

func TestApplyContainLetterboxes(t *testing.T) {
	out, err := NewProcessor().Apply(testImage(400, 200), optsFrom(t, "?w=100&h=100&fit=contain"))
	require.NoError(t, err)

	_, _, _, topAlpha := out.At(50, 5).RGBA()
	_, _, _, midAlpha := out.At(50, 50).RGBA()
	assert.Zero(t, topAlpha)
	assert.NotZero(t, midAlpha)
}

func TestApplyCrop(t *testing.T) {
	p := NewProcessor()
	src := testImage(400, 200)

	out, err := p.Apply(src, optsFrom(t, "?crop.left=10&crop.top=20&crop.width=50&crop.height=60"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 50, 60), out.Bounds())

	// zero width and height extend to the edges
	out, err = p.Apply(src, optsFrom(t, "?crop.left=100"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 300, 200), out.Bounds())

	_, err = p.Apply(src, optsFrom(t, "?crop.left=350&crop.width=100"))
	require.ErrorIs(t, err, transform.ErrValidation)

	var verr *transform.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "crop", verr.Errors[0].Field)

	_, err = p.Apply(src, optsFrom(t, "?crop.top=200"))
	require.ErrorIs(t, err, transform.ErrValidation)
}

func TestApplyCropRejectsOverflowingSize(t *testing.T) {
	opts := transform.Defaults()
	opts.Crop = &transform.Crop{Left: 1, Width: math.MaxInt}

	_, err := NewProcessor().Apply(testImage(400, 200), opts)
	var verr *transform.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "crop", verr.Errors[0].Field)
}

func TestApplyRejectsOversizedOutput(t *testing.T) {
	p := NewProcessor()

	cases := []struct {
		name  string
		src   image.Image
		opts  transform.Options
		field string
	}{
		{"requested box", testImage(10, 10), func() transform.Options {
			o := transform.Defaults()
			w, h := 1<<20, 1<<20
			o.Width, o.Height = &w, &h
			return o
		}(), transform.KeyWidth},
		{"single dimension keeps aspect", testImage(10, 1000), optsFrom(t, "?w=100"), transform.KeyWidth},
		{"outside overshoots", testImage(10, 1000), optsFrom(t, "?w=8192&h=1&fit=outside"), transform.KeyFit},
		{"enhancement", testImage(5000, 10), optsFrom(t, "?enhance=2x"), transform.KeyEnhance},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := p.Apply(tc.src, tc.opts)
			var verr *transform.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Errors[0].Field)
		})
	}
}

func TestRotatedSize(t *testing.T) {
	w, h := rotatedSize(40, 20, 90)
	assert.Equal(t, 20, w)
	assert.Equal(t, 40, h)

	w, h = rotatedSize(100, 100, 45)
	assert.Equal(t, 142, w)
	assert.Equal(t, 142, h)

	w, _ = rotatedSize(transform.MaxDimension, transform.MaxDimension, 45)
	assert.Greater(t, w, transform.MaxDimension)
}

func TestApplyRotate(t *testing.T) {
	p := NewProcessor()
	src := imaging.New(40, 20, color.NRGBA{A: 255})
	src.Set(0, 0, color.NRGBA{R: 255, A: 255})

	out, err := p.Apply(src, optsFrom(t, "?rotate=90"))
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 40), out.Bounds())
	// clockwise: the top-left pixel moves to the top-right corner
	r, _, _, _ := out.At(19, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r)

	out, err = p.Apply(src, optsFrom(t, "?rotate=360"))
	require.NoError(t, err)
	assert.Equal(t, src.Bounds(), out.Bounds())

	out, err = p.Apply(src, optsFrom(t, "?rotate=45"))
	require.NoError(t, err)
	assert.Greater(t, out.Bounds().Dx(), 40)
}

func TestApplyFilters(t *testing.T) {
	out, err := NewProcessor().Apply(testImage(20, 20), optsFrom(t, "?grayscale=true&blur=10&sharpen=true"))
	require.NoError(t, err)

	r, g, b, _ := out.At(10, 10).RGBA()
	assert.Equal(t, r, g)
	assert.Equal(t, g, b)
}

func TestEncodeBytes(t *testing.T) {
	src := testImage(16, 16)

	for _, format := range []transform.Format{transform.FormatJPEG, transform.FormatPNG} {
		data, err := EncodeBytes(src, format, transform.DefaultQuality)
		require.NoError(t, err)

		img, decoded, err := DecodeImage(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, string(format), decoded)
		assert.Equal(t, src.Bounds(), img.Bounds())
	}

	_, err := EncodeBytes(src, transform.Format("tiff"), 80)
	require.Error(t, err)
}
