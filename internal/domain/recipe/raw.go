package recipe

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawRecipe is a recipe payload as decoded from the backend's JSON.
// No key is guaranteed to exist and no value is guaranteed to have the
// expected type; every read goes through a type guard below.
type RawRecipe map[string]interface{}

// Field names used by the backend across recipe sources.
const (
	FieldID            = "id"
	FieldTitle         = "title"
	FieldImage         = "image"
	FieldImageURL      = "image_url"
	FieldImages        = "images"
	FieldDescription   = "description"
	FieldViews         = "views"
	FieldLikes         = "likes"
	FieldDislikes      = "dislikes"
	FieldUserLiked     = "user_liked"
	FieldUserDisliked  = "user_disliked"
	FieldUserFavorited = "user_favorited"
	FieldTotalTime     = "total_time"
	FieldYields        = "yields"
	FieldType          = "type"
	FieldAuthor        = "author"
	FieldSourceURL     = "source_url"
	FieldList          = "list"
)

// Priority order of the keys holding ingredients and instructions.
var (
	IngredientKeys  = []string{"ingredients", "ingredient_list", "ingredientLines"}
	InstructionKeys = []string{"instructions", "instructions_list", "directions"}
)

// ParseRawRecipe decodes a JSON object. Numbers keep their float64 form so
// the coercion helpers see what a browser would have seen.
func ParseRawRecipe(data []byte) (RawRecipe, error) {
	var raw RawRecipe
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	if raw == nil {
		raw = RawRecipe{}
	}
	return raw, nil
}

// String returns the value at key when it is a string, untrimmed.
func (r RawRecipe) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// TrimmedString returns the trimmed string at key, or "" for anything else.
func (r RawRecipe) TrimmedString(key string) string {
	s, _ := r.String(key)
	return strings.TrimSpace(s)
}

// Flag reports whether the value at key is the boolean true. The strings
// "true" and "1" do not count.
func (r RawRecipe) Flag(key string) bool {
	b, ok := r[key].(bool)
	return ok && b
}

// asObject unwraps both RawRecipe and plain decoded JSON objects.
func asObject(value interface{}) (map[string]interface{}, bool) {
	switch v := value.(type) {
	case RawRecipe:
		return v, true
	case map[string]interface{}:
		return v, true
	default:
		return nil, false
	}
}

// asFloat reports the numeric value of a JSON-ish number or numeric string.
// Non-finite results are rejected.
func asFloat(value interface{}) (float64, bool) {
	var f float64
	switch v := value.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int32:
		f = float64(v)
	case int64:
		f = float64(v)
	case uint:
		f = float64(v)
	case uint32:
		f = float64(v)
	case uint64:
		f = float64(v)
	case json.Number:
		parsed, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			// Number("") is 0 in the browser.
			return 0, true
		}
		parsed, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// isFalsy mirrors the values a loosely typed client treats as "nothing there".
func isFalsy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return true
	case bool:
		return !v
	case string:
		return v == ""
	case float64:
		return v == 0 || math.IsNaN(v)
	case int:
		return v == 0
	}
	return false
}
