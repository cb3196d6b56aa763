package recipe_test

import (
	"testing"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
)

func TestLoadErrorMessage(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"", "We couldn't load that recipe. Please confirm the recipe link is correct and try again."},
		{"Failed to parse recipe.", "We couldn't load that recipe. Please confirm the recipe link is correct and try again."},
		{"Website not supported", "We couldn't load that recipe. The website is not supported. Try pasting content into Convert Text."},
		{"403 Forbidden", "We couldn't load that recipe. The website is not supported. Try pasting content into Convert Text."},
		{"timeout", "We couldn't load that recipe. Details: timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.reason, func(t *testing.T) {
			assert.Equal(t, tt.want, recipe.LoadErrorMessage(tt.reason))
		})
	}
}

func TestConvertErrorMessage(t *testing.T) {
	assert.Equal(t, "We couldn't convert that recipe just yet. Please tweak the text and try again.", recipe.ConvertErrorMessage("  "))
	assert.Equal(t, "We couldn't convert that recipe just yet. Please tweak the text and try again.", recipe.ConvertErrorMessage("Failed to convert recipe text."))
	assert.Equal(t, "We couldn't convert that recipe just yet. Details: no ingredients found", recipe.ConvertErrorMessage("no ingredients found"))
}

func TestListErrorMessage(t *testing.T) {
	assert.Equal(t, "Failed to load recipes.", recipe.ListErrorMessage(""))
	assert.Equal(t, "Search index offline", recipe.ListErrorMessage(" Search index offline "))
}
