package transform

import (
	"net/url"
	"strconv"
	"strings"
)

// Decode rebuilds Options from a stored or hand-edited query string. It never
// fails: absent or unparsable fields fall back to their defaults.
func Decode(raw string) Options {
	return DecodeQuery(ParseQuery(raw))
}

// DecodeValues is Decode for already parsed parameters.
func DecodeValues(values url.Values) Options {
	return DecodeQuery(QueryFromValues(values))
}

// DecodeQuery leniently converts the wire form into Options.
func DecodeQuery(q Query) Options {
	o := Defaults()

	if v, ok := lenientInt(q, KeyWidth); ok && v > 0 {
		o.Width = intPtr(v)
	}
	if v, ok := lenientInt(q, KeyHeight); ok && v > 0 {
		o.Height = intPtr(v)
	}
	if v, ok := q.Get(KeyFormat); ok && Format(v).Valid() {
		o.Format = Format(v)
	}
	if v, ok := q.Get(KeyFit); ok && Fit(v).Valid() {
		o.Fit = Fit(v)
	}
	// quality=0 means unset, matching Encode
	if v, ok := lenientInt(q, KeyQuality); ok && v != 0 {
		o.Quality = v
	}
	o.Grayscale = lenientBool(q, KeyGrayscale)
	if v, ok := lenientInt(q, KeyBlur); ok {
		o.Blur = v
	}
	o.Sharpen = lenientBool(q, KeySharpen)
	if v, ok := lenientInt(q, KeyRotate); ok {
		o.Rotate = v
	}
	o.Enhance = lenientEnhance(q)

	if q.hasCrop() {
		o.Crop = &Crop{
			Left:   intOrZero(q, KeyCropLeft),
			Top:    intOrZero(q, KeyCropTop),
			Width:  intOrZero(q, KeyCropWidth),
			Height: intOrZero(q, KeyCropHeight),
		}
	}
	return o
}

// Canonical normalizes a query string to the form Encode would produce.
func Canonical(raw string) string {
	return Encode(Decode(raw))
}

func lenientInt(q Query, key string) (int, bool) {
	v, ok := q.Get(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, false
	}
	return n, true
}

func intOrZero(q Query, key string) int {
	n, _ := lenientInt(q, key)
	return n
}

func lenientBool(q Query, key string) bool {
	v, ok := q.Get(key)
	return ok && v == "true"
}

// lenientEnhance accepts the size tags and the legacy boolean form, where
// "true" only signalled that an upscale was wanted.
func lenientEnhance(q Query) Enhance {
	v, ok := q.Get(KeyEnhance)
	if !ok {
		return EnhanceNone
	}
	if e := Enhance(v); e.Valid() {
		return e
	}
	if v == "true" {
		return Enhance2x
	}
	return EnhanceNone
}
