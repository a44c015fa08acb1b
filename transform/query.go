package transform

import (
	"net/url"
	"sort"
	"strings"
)

// Query is the wire form of a transform request: every field is an optional
// string exactly as received in the URL.
type Query struct {
	Width      *string
	Height     *string
	Format     *string
	Fit        *string
	Quality    *string
	Grayscale  *string
	Blur       *string
	Sharpen    *string
	Rotate     *string
	Enhance    *string
	CropLeft   *string
	CropTop    *string
	CropWidth  *string
	CropHeight *string

	// Unknown holds parameter names outside the schema, sorted.
	Unknown []string
}

func (q *Query) field(key string) **string {
	switch key {
	case KeyWidth:
		return &q.Width
	case KeyHeight:
		return &q.Height
	case KeyFormat:
		return &q.Format
	case KeyFit:
		return &q.Fit
	case KeyQuality:
		return &q.Quality
	case KeyGrayscale:
		return &q.Grayscale
	case KeyBlur:
		return &q.Blur
	case KeySharpen:
		return &q.Sharpen
	case KeyRotate:
		return &q.Rotate
	case KeyEnhance:
		return &q.Enhance
	case KeyCropLeft:
		return &q.CropLeft
	case KeyCropTop:
		return &q.CropTop
	case KeyCropWidth:
		return &q.CropWidth
	case KeyCropHeight:
		return &q.CropHeight
	}
	return nil
}

// Get returns the raw value for key and whether it was present.
func (q Query) Get(key string) (string, bool) {
	f := q.field(key)
	if f == nil || *f == nil {
		return "", false
	}
	return **f, true
}

// Set stores value under key. Keys outside the schema are recorded in Unknown.
func (q *Query) Set(key, value string) {
	f := q.field(key)
	if f == nil {
		q.addUnknown(key)
		return
	}
	*f = &value
}

func (q *Query) addUnknown(key string) {
	for _, k := range q.Unknown {
		if k == key {
			return
		}
	}
	q.Unknown = append(q.Unknown, key)
	sort.Strings(q.Unknown)
}

func (q Query) hasCrop() bool {
	for _, k := range cropKeys {
		if _, ok := q.Get(k); ok {
			return true
		}
	}
	return false
}

// QueryFromValues maps parsed URL parameters onto the schema. The first value
// of a repeated key wins.
func QueryFromValues(values url.Values) Query {
	var q Query
	for key, vs := range values {
		if len(vs) == 0 {
			continue
		}
		q.Set(key, vs[0])
	}
	return q
}

// ParseQuery parses a raw query string, with or without the leading "?".
// Malformed escapes are skipped rather than reported.
func ParseQuery(raw string) Query {
	values, _ := url.ParseQuery(strings.TrimPrefix(strings.TrimSpace(raw), "?"))
	return QueryFromValues(values)
}

// Values returns the present schema fields as url.Values.
func (q Query) Values() url.Values {
	values := url.Values{}
	for _, key := range Keys {
		if v, ok := q.Get(key); ok {
			values.Set(key, v)
		}
	}
	return values
}
