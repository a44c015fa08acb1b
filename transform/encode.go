package transform

import (
	"net/url"
	"strconv"
	"strings"
)

type param struct {
	key   string
	value string
}

// params lists the fields of o that differ from their defaults, in wire order.
// A zero Format, Fit or Quality is treated as unset.
func (o Options) params() []param {
	out := make([]param, 0, len(Keys))
	add := func(key, value string) {
		out = append(out, param{key: key, value: value})
	}

	if o.Width != nil {
		add(KeyWidth, strconv.Itoa(*o.Width))
	}
	if o.Height != nil {
		add(KeyHeight, strconv.Itoa(*o.Height))
	}
	if o.Format != "" && o.Format != DefaultFormat {
		add(KeyFormat, string(o.Format))
	}
	if o.Fit != "" && o.Fit != DefaultFit {
		add(KeyFit, string(o.Fit))
	}
	if o.Quality != 0 && o.Quality != DefaultQuality {
		add(KeyQuality, strconv.Itoa(o.Quality))
	}
	if o.Grayscale {
		add(KeyGrayscale, strconv.FormatBool(o.Grayscale))
	}
	if o.Blur != 0 {
		add(KeyBlur, strconv.Itoa(o.Blur))
	}
	if o.Sharpen {
		add(KeySharpen, strconv.FormatBool(o.Sharpen))
	}
	if o.Rotate != 0 {
		add(KeyRotate, strconv.Itoa(o.Rotate))
	}
	if o.Enhance != EnhanceNone {
		add(KeyEnhance, string(o.Enhance))
	}
	if o.Crop != nil {
		add(KeyCropLeft, strconv.Itoa(o.Crop.Left))
		add(KeyCropTop, strconv.Itoa(o.Crop.Top))
		add(KeyCropWidth, strconv.Itoa(o.Crop.Width))
		add(KeyCropHeight, strconv.Itoa(o.Crop.Height))
	}
	return out
}

// Encode renders o as a query string such as "?format=webp&quality=90".
// Fields equal to their default are omitted, so Decode restores them exactly.
// An all-default o encodes to "".
func Encode(o Options) string {
	params := o.params()
	if len(params) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteByte('?')
	for i, p := range params {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(p.key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.value))
	}
	return b.String()
}

// Query returns the wire form of o, holding exactly the fields Encode emits.
func (o Options) Query() Query {
	var q Query
	for _, p := range o.params() {
		v := p.value
		*q.field(p.key) = &v
	}
	return q
}

// String implements fmt.Stringer with the encoded form.
func (o Options) String() string {
	return Encode(o)
}
