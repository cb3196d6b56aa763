package recipe

import "strings"

// UntitledRecipe is the title used when the payload has none.
const UntitledRecipe = "Untitled Recipe"

// Normalizer converts RawRecipe payloads into NormalizedRecipe values.
// It holds only configuration and is safe for concurrent use.
type Normalizer struct {
	descriptionLimit int
	maxListDepth     int
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithDescriptionLimit sets the description truncation cap in runes.
func WithDescriptionLimit(limit int) Option {
	return func(n *Normalizer) {
		n.descriptionLimit = limit
	}
}

// WithMaxListDepth sets how many {"list": ...} wrappers are unwrapped.
func WithMaxListDepth(depth int) Option {
	return func(n *Normalizer) {
		if depth > 0 {
			n.maxListDepth = depth
		}
	}
}

// NewNormalizer returns a Normalizer using the list description limit
// unless overridden.
func NewNormalizer(opts ...Option) *Normalizer {
	n := &Normalizer{
		descriptionLimit: ListDescriptionLimit,
		maxListDepth:     DefaultMaxListDepth,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// DescriptionLimit returns the configured truncation cap.
func (n *Normalizer) DescriptionLimit() int {
	return n.descriptionLimit
}

// WithLimit returns a copy of n that truncates descriptions at limit.
func (n *Normalizer) WithLimit(limit int) *Normalizer {
	clone := *n
	clone.descriptionLimit = limit
	return &clone
}

// Normalize never fails: every field has a terminal fallback.
func (n *Normalizer) Normalize(raw RawRecipe) NormalizedRecipe {
	normalized, _ := n.NormalizeWithSource(raw)
	return normalized
}

// NormalizeWithSource also reports which fallback produced the description.
func (n *Normalizer) NormalizeWithSource(raw RawRecipe) (NormalizedRecipe, DescriptionSource) {
	if raw == nil {
		raw = RawRecipe{}
	}

	description, source := describe(raw, n.descriptionLimit, n.maxListDepth)
	image, _ := ResolveImage(raw)
	minutes, _ := CoerceMinutes(raw[FieldTotalTime])
	id, _ := CoerceRecipeID(raw[FieldID])

	return NormalizedRecipe{
		ID:            id,
		Title:         NormalizeTitle(raw),
		ImageURL:      image,
		Description:   description,
		Ingredients:   resolveList(raw, IngredientKeys, n.maxListDepth),
		Instructions:  resolveList(raw, InstructionKeys, n.maxListDepth),
		Views:         CoerceNonNegativeInt(raw[FieldViews]),
		Likes:         CoerceNonNegativeInt(raw[FieldLikes]),
		Dislikes:      CoerceNonNegativeInt(raw[FieldDislikes]),
		UserLiked:     raw.Flag(FieldUserLiked),
		UserDisliked:  raw.Flag(FieldUserDisliked),
		UserFavorited: raw.Flag(FieldUserFavorited),
		TypeLabel:     FormatTypeLabel(typeTag(raw)),
		SourceURL:     raw.TrimmedString(FieldSourceURL),
		Yields:        raw.TrimmedString(FieldYields),
		Author:        raw.TrimmedString(FieldAuthor),
		TotalMinutes:  minutes,
	}, source
}

// NormalizeTitle returns the trimmed title or UntitledRecipe.
func NormalizeTitle(raw RawRecipe) string {
	if title := raw.TrimmedString(FieldTitle); title != "" {
		return title
	}
	return UntitledRecipe
}

// ResolveImage picks the first usable image among image, image_url and the
// entries of images, in that order.
func ResolveImage(raw RawRecipe) (string, bool) {
	candidates := []interface{}{raw[FieldImage], raw[FieldImageURL]}
	if images, ok := raw[FieldImages].([]interface{}); ok {
		candidates = append(candidates, images...)
	} else if images, ok := raw[FieldImages].([]string); ok {
		for _, image := range images {
			candidates = append(candidates, image)
		}
	}

	for _, candidate := range candidates {
		s, ok := candidate.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}
