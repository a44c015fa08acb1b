package transform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func queryOf(pairs ...string) Query {
	var q Query
	for i := 0; i+1 < len(pairs); i += 2 {
		q.Set(pairs[i], pairs[i+1])
	}
	return q
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	names := make([]string, len(verr.Errors))
	for i, fe := range verr.Errors {
		names[i] = fe.Field
	}
	return names
}

func TestValidateEmptyQueryYieldsDefaults(t *testing.T) {
	t.Parallel()

	o, err := Validate(Query{})
	require.NoError(t, err)
	require.Equal(t, Defaults(), o)
}

func TestValidateAggregatesEveryFieldError(t *testing.T) {
	t.Parallel()

	_, err := Validate(queryOf(KeyQuality, "200", KeyRotate, "-5", KeyFormat, "bmp"))
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrValidation))
	require.ElementsMatch(t, []string{KeyQuality, KeyRotate, KeyFormat}, fieldNames(t, err))
}

func TestValidateRules(t *testing.T) {
	t.Parallel()

	cases := []struct {
		key   string
		value string
		ok    bool
	}{
		{KeyWidth, "1", true},
		{KeyWidth, "0", false},
		{KeyWidth, "-10", false},
		{KeyWidth, "8192", true},
		{KeyWidth, "8193", false},
		{KeyHeight, "1048576", false},
		{KeyHeight, "abc", false},
		{KeyQuality, "1", true},
		{KeyQuality, "100", true},
		{KeyQuality, "0", false},
		{KeyQuality, "101", false},
		{KeyBlur, "0", true},
		{KeyBlur, "100", true},
		{KeyBlur, "-1", false},
		{KeyRotate, "360", true},
		{KeyRotate, "361", false},
		{KeyFit, "inside", true},
		{KeyFit, "stretch", false},
		{KeyEnhance, "8x", true},
		{KeyEnhance, "true", false},
		{KeyGrayscale, "false", true},
		{KeyGrayscale, "1", false},
		{KeySharpen, "TRUE", false},
		{KeyCropLeft, "0", true},
		{KeyCropTop, "-1", false},
		{KeyCropWidth, "1.5", false},
		{KeyCropLeft, "65536", true},
		{KeyCropLeft, "65537", false},
		{KeyCropWidth, "9223372036854775807", false},
	}

	for _, c := range cases {
		_, err := Validate(queryOf(c.key, c.value))
		if c.ok {
			require.NoError(t, err, "%s=%s", c.key, c.value)
		} else {
			require.Error(t, err, "%s=%s", c.key, c.value)
			require.Equal(t, []string{c.key}, fieldNames(t, err))
		}
	}
}

func TestValidatePartialCrop(t *testing.T) {
	t.Parallel()

	o, err := Validate(queryOf(KeyCropLeft, "10", KeyCropWidth, "50"))
	require.NoError(t, err)
	require.Equal(t, &Crop{Left: 10, Width: 50}, o.Crop)
}

func TestValidateRejectsUnknownProperties(t *testing.T) {
	t.Parallel()

	_, err := Validate(ParseQuery("?w=10&zoom=2"))
	require.Equal(t, []string{"zoom"}, fieldNames(t, err))
}

func TestValidateAgreesWithDecodeOnValidInput(t *testing.T) {
	t.Parallel()

	raw := "?w=640&format=avif&fit=fill&quality=55&grayscale=true&blur=3&sharpen=true&rotate=270&enhance=2x" +
		"&crop.left=1&crop.top=2&crop.width=3&crop.height=4"

	o, err := Validate(ParseQuery(raw))
	require.NoError(t, err)
	require.Equal(t, Decode(raw), o)
	require.Equal(t, raw, Encode(o))
}

func TestValidationErrorMessage(t *testing.T) {
	t.Parallel()

	_, err := Validate(queryOf(KeyQuality, "0"))
	require.EqualError(t, err, "transform request validation failed: quality: must be between 1 and 100")
}

func TestValidateRejectsOversizedEnhancement(t *testing.T) {
	t.Parallel()

	_, err := Validate(queryOf(KeyWidth, "4096", KeyHeight, "3000", KeyEnhance, "4x"))
	require.Equal(t, []string{KeyEnhance, KeyEnhance}, fieldNames(t, err))

	o, err := Validate(queryOf(KeyWidth, "2048", KeyEnhance, "4x"))
	require.NoError(t, err)
	require.Equal(t, Enhance4x, o.Enhance)
}

func TestValidateDimensionMessage(t *testing.T) {
	t.Parallel()

	_, err := Validate(queryOf(KeyWidth, "1048576"))
	require.EqualError(t, err, "transform request validation failed: w: must be between 1 and 8192")
}
