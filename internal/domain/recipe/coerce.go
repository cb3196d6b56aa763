package recipe

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// UnknownTypeLabel is the label for a recipe without a type tag.
const UnknownTypeLabel = "Unknown"

// maxCounter keeps coerced counters representable on 32-bit platforms.
const maxCounter = math.MaxInt32

var typeLabelOverrides = map[string]string{
	"url":          "URL",
	"ai_generated": "AI Generated",
	"image_upload": "Image Upload",
	"user_input":   "User Input",
}

// CoerceNonNegativeInt turns a number or numeric string into a counter.
// Fractions are truncated toward zero and negatives clamp to 0; anything
// unparseable is 0.
func CoerceNonNegativeInt(value interface{}) int {
	f, ok := asFloat(value)
	if !ok {
		return 0
	}
	f = math.Trunc(f)
	if f <= 0 {
		return 0
	}
	if f >= maxCounter {
		return maxCounter
	}
	return int(f)
}

// CoerceMinutes is CoerceNonNegativeInt for durations: zero minutes is not
// displayable, so it reports ok=false instead.
func CoerceMinutes(value interface{}) (int, bool) {
	minutes := CoerceNonNegativeInt(value)
	if minutes == 0 {
		return 0, false
	}
	return minutes, true
}

// FormatTypeLabel renders a snake_case source tag for humans.
func FormatTypeLabel(tag string) string {
	if tag == "" {
		return UnknownTypeLabel
	}

	normalized := strings.ToLower(tag)
	if label, ok := typeLabelOverrides[normalized]; ok {
		return label
	}

	segments := strings.Split(normalized, "_")
	for i, segment := range segments {
		segments[i] = capitalizeFirst(segment)
	}
	return strings.Join(segments, " ")
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// typeTag reads the type field; non-string tags count as missing.
func typeTag(raw RawRecipe) string {
	tag, _ := raw.String(FieldType)
	return tag
}
