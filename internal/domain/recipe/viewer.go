package recipe

import (
	"math"
	"net/url"
	"strconv"
)

// Messages shown when a recipe lacks content.
const (
	MissingBothMessage         = "This recipe is missing both ingredients and directions."
	MissingIngredientsMessage  = "This recipe is missing ingredients."
	MissingInstructionsMessage = "This recipe is missing directions."
)

// maxSafeInteger is the largest id a JSON client can represent exactly.
const maxSafeInteger = 1 << 53

// CoerceRecipeID accepts a positive integral number or numeric string.
func CoerceRecipeID(value interface{}) (int64, bool) {
	f, ok := asFloat(value)
	if !ok || f < 1 || f != math.Trunc(f) || f > maxSafeInteger {
		return 0, false
	}
	return int64(f), true
}

// ParseRecipeID parses an id taken from a URL or form.
func ParseRecipeID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 1 {
		return 0, ErrInvalidRecipeID
	}
	return id, nil
}

// HasValidContent reports whether both ingredients and instructions exist.
func (r NormalizedRecipe) HasValidContent() bool {
	return len(r.Ingredients) > 0 && len(r.Instructions) > 0
}

// MissingContentMessage explains what is missing, or returns "".
func (r NormalizedRecipe) MissingContentMessage() string {
	hasIngredients := len(r.Ingredients) > 0
	hasInstructions := len(r.Instructions) > 0

	switch {
	case !hasIngredients && !hasInstructions:
		return MissingBothMessage
	case !hasIngredients:
		return MissingIngredientsMessage
	case !hasInstructions:
		return MissingInstructionsMessage
	default:
		return ""
	}
}

// Link is the page that displays this recipe.
func (r NormalizedRecipe) Link() string {
	if r.HasID() {
		return "/recipe?id=" + strconv.FormatInt(r.ID, 10)
	}
	if r.SourceURL != "" {
		return "/recipe?url=" + url.QueryEscape(r.SourceURL)
	}
	return "/recipe"
}

// Carousel returns the cards in rendering order for a looping strip: with
// more than one card the sequence is doubled so the client can wrap at half
// the scroll width without a visible jump.
func Carousel(cards []NormalizedRecipe) []NormalizedRecipe {
	if len(cards) <= 1 {
		return cards
	}
	looped := make([]NormalizedRecipe, 0, len(cards)*2)
	looped = append(looped, cards...)
	return append(looped, cards...)
}
