package recipe

import (
	"regexp"
	"strings"
)

// DefaultMaxListDepth bounds how many {"list": ...} wrappers are unwrapped.
const DefaultMaxListDepth = 5

var newlineRuns = regexp.MustCompile(`(\r?\n)+`)

// ToStringList coerces a list-ish value into trimmed, non-empty strings
// using the default wrapper depth.
func ToStringList(value interface{}) []string {
	return toStringList(value, 0, DefaultMaxListDepth)
}

// ResolveList returns the first non-empty list found under keys, in order.
func ResolveList(raw RawRecipe, keys []string) []string {
	return resolveList(raw, keys, DefaultMaxListDepth)
}

func resolveList(raw RawRecipe, keys []string, maxDepth int) []string {
	for _, key := range keys {
		if list := toStringList(raw[key], 0, maxDepth); len(list) > 0 {
			return list
		}
	}
	return []string{}
}

func toStringList(value interface{}, depth, maxDepth int) []string {
	if isFalsy(value) {
		return []string{}
	}

	switch v := value.(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, entry := range v {
			s, ok := entry.(string)
			if !ok {
				continue
			}
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	case string:
		segments := newlineRuns.Split(v, -1)
		out := make([]string, 0, len(segments))
		for _, segment := range segments {
			if trimmed := strings.TrimSpace(segment); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		return out
	}

	if obj, ok := asObject(value); ok {
		inner, present := obj[FieldList]
		if !present || depth >= maxDepth {
			return []string{}
		}
		return toStringList(inner, depth+1, maxDepth)
	}

	return []string{}
}
