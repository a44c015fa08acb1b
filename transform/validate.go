package transform

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrValidation is matched by every *ValidationError.
var ErrValidation = errors.New("transform request validation failed")

// FieldError describes one rejected query parameter.
type FieldError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationError aggregates every FieldError found in a request.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		parts[i] = fe.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

type validator struct {
	q    Query
	errs []FieldError
}

func (v *validator) fail(key, value, format string, args ...interface{}) {
	v.errs = append(v.errs, FieldError{Field: key, Value: value, Message: fmt.Sprintf(format, args...)})
}

// intIn parses key as an integer in [min, max]. ok is false when the field is
// absent or invalid; invalid fields are recorded.
func (v *validator) intIn(key string, min, max int) (int, bool) {
	raw, present := v.q.Get(key)
	if !present {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.fail(key, raw, "must be an integer")
		return 0, false
	}
	if n < min || n > max {
		v.fail(key, raw, "must be between %d and %d", min, max)
		return 0, false
	}
	return n, true
}

func (v *validator) boolean(key string) bool {
	raw, present := v.q.Get(key)
	if !present {
		return false
	}
	switch raw {
	case "true":
		return true
	case "false":
		return false
	}
	v.fail(key, raw, "must be true or false")
	return false
}

func (v *validator) oneOf(key string, valid func(string) bool, allowed []string) (string, bool) {
	raw, present := v.q.Get(key)
	if !present {
		return "", false
	}
	if !valid(raw) {
		v.fail(key, raw, "must be one of: %s", strings.Join(allowed, ", "))
		return "", false
	}
	return raw, true
}

// enhancedSize rejects an enhancement that would push a requested edge past
// MaxDimension.
func (v *validator) enhancedSize(key string, edge *int, e Enhance) {
	if edge == nil {
		return
	}
	if out := *edge * e.Factor(); out > MaxDimension {
		raw, _ := v.q.Get(KeyEnhance)
		v.fail(KeyEnhance, raw, "%s of %d upscales to %d, above the %d pixel limit", key, *edge, out, MaxDimension)
	}
}

// Validate strictly checks the wire form and converts it into Options. Every
// offending field is reported in a single *ValidationError.
func Validate(q Query) (Options, error) {
	v := &validator{q: q}
	o := Defaults()

	for _, key := range q.Unknown {
		v.fail(key, "", "property is not allowed")
	}

	if n, ok := v.intIn(KeyWidth, 1, MaxDimension); ok {
		o.Width = intPtr(n)
	}
	if n, ok := v.intIn(KeyHeight, 1, MaxDimension); ok {
		o.Height = intPtr(n)
	}
	if s, ok := v.oneOf(KeyFormat, func(s string) bool { return Format(s).Valid() }, formatNames); ok {
		o.Format = Format(s)
	}
	if s, ok := v.oneOf(KeyFit, func(s string) bool { return Fit(s).Valid() }, fitNames); ok {
		o.Fit = Fit(s)
	}
	if n, ok := v.intIn(KeyQuality, MinQuality, MaxQuality); ok {
		o.Quality = n
	}
	o.Grayscale = v.boolean(KeyGrayscale)
	if n, ok := v.intIn(KeyBlur, 0, MaxBlur); ok {
		o.Blur = n
	}
	o.Sharpen = v.boolean(KeySharpen)
	if n, ok := v.intIn(KeyRotate, 0, MaxRotate); ok {
		o.Rotate = n
	}
	if s, ok := v.oneOf(KeyEnhance, func(s string) bool { return Enhance(s).Valid() }, enhanceNames); ok {
		o.Enhance = Enhance(s)
		v.enhancedSize(KeyWidth, o.Width, o.Enhance)
		v.enhancedSize(KeyHeight, o.Height, o.Enhance)
	}

	if q.hasCrop() {
		crop := &Crop{}
		targets := []*int{&crop.Left, &crop.Top, &crop.Width, &crop.Height}
		for i, key := range cropKeys {
			if n, ok := v.intIn(key, 0, MaxSourceDimension); ok {
				*targets[i] = n
			}
		}
		o.Crop = crop
	}

	if len(v.errs) > 0 {
		return Options{}, &ValidationError{Errors: v.errs}
	}
	return o, nil
}

var (
	formatNames  = []string{string(FormatJPEG), string(FormatPNG), string(FormatWebP), string(FormatAVIF)}
	fitNames     = []string{string(FitCover), string(FitContain), string(FitFill), string(FitInside), string(FitOutside)}
	enhanceNames = []string{string(Enhance2x), string(Enhance4x), string(Enhance8x)}
)
