package recipe

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Description limits used by the two kinds of views.
const (
	ListDescriptionLimit   = 192
	ViewerDescriptionLimit = 100

	// Ellipsis is appended to truncated descriptions.
	Ellipsis = "..."

	NoDescription = "No description available."
)

// DescriptionSource names the branch of the fallback chain that produced a
// description.
type DescriptionSource string

const (
	SourceDescription DescriptionSource = "description"
	SourceInstruction DescriptionSource = "instruction"
	SourceIngredients DescriptionSource = "ingredients"
	SourceYields      DescriptionSource = "yields"
	SourceTotalTime   DescriptionSource = "total_time"
	SourceAuthor      DescriptionSource = "author"
	SourceTypeLabel   DescriptionSource = "type"
	SourcePlaceholder DescriptionSource = "placeholder"
)

// ExtractDescription builds a display description and truncates it to limit
// runes. A limit of zero or less disables truncation.
func ExtractDescription(raw RawRecipe, limit int) string {
	description, _ := describe(raw, limit, DefaultMaxListDepth)
	return description
}

// ExtractDescriptionWithSource is ExtractDescription that also reports which
// fallback won.
func ExtractDescriptionWithSource(raw RawRecipe, limit int) (string, DescriptionSource) {
	return describe(raw, limit, DefaultMaxListDepth)
}

func describe(raw RawRecipe, limit, maxDepth int) (string, DescriptionSource) {
	text, source := describeUntruncated(raw, maxDepth)
	return Truncate(text, limit), source
}

func describeUntruncated(raw RawRecipe, maxDepth int) (string, DescriptionSource) {
	if description := raw.TrimmedString(FieldDescription); description != "" {
		return description, SourceDescription
	}

	if instructions := resolveList(raw, InstructionKeys, maxDepth); len(instructions) > 0 {
		return instructions[0], SourceInstruction
	}

	if ingredients := resolveList(raw, IngredientKeys, maxDepth); len(ingredients) > 0 {
		if len(ingredients) > 3 {
			ingredients = ingredients[:3]
		}
		return strings.Join(ingredients, ", "), SourceIngredients
	}

	if yields := raw.TrimmedString(FieldYields); yields != "" {
		return "Yields " + yields, SourceYields
	}

	if minutes, ok := CoerceMinutes(raw[FieldTotalTime]); ok {
		return fmt.Sprintf("Ready in about %d %s", minutes, pluralize(minutes, "minute")), SourceTotalTime
	}

	if author := raw.TrimmedString(FieldAuthor); author != "" {
		return "By " + author, SourceAuthor
	}

	if label := FormatTypeLabel(typeTag(raw)); label != UnknownTypeLabel {
		return label, SourceTypeLabel
	}

	return NoDescription, SourcePlaceholder
}

// Truncate cuts s to limit runes and appends Ellipsis when anything was cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + Ellipsis
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
