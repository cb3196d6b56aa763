// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"math"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/flavorbuddy/web/internal/domain/recipe"
)

// RawRecipeFactory builds backend payloads, well formed or not
type RawRecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRawRecipeFactory creates a new factory with seeded faker
func NewRawRecipeFactory(seed int64) *RawRecipeFactory {
	return &RawRecipeFactory{
		faker: gofakeit.New(seed),
	}
}

// Complete returns a payload the way a scraped URL recipe usually looks
func (f *RawRecipeFactory) Complete() recipe.RawRecipe {
	return recipe.RawRecipe{
		"id":             float64(f.faker.Number(1, 100000)),
		"title":          f.faker.Sentence(3),
		"image":          f.faker.URL() + "/photo.jpg",
		"description":    f.faker.Sentence(12),
		"ingredients":    f.strings(f.faker.Number(2, 8)),
		"instructions":   f.strings(f.faker.Number(2, 6)),
		"views":          float64(f.faker.Number(0, 5000)),
		"likes":          float64(f.faker.Number(0, 500)),
		"dislikes":       float64(f.faker.Number(0, 50)),
		"user_liked":     f.faker.Bool(),
		"user_disliked":  false,
		"user_favorited": f.faker.Bool(),
		"total_time":     float64(f.faker.Number(5, 240)),
		"yields":         fmt.Sprintf("%d servings", f.faker.Number(1, 12)),
		"type":           f.faker.RandomString([]string{"url", "ai_generated", "image_upload", "user_input"}),
		"author":         f.faker.Name(),
		"source_url":     f.faker.URL(),
	}
}

// Malformed returns a payload whose known keys hold values of random, mostly
// wrong, types
func (f *RawRecipeFactory) Malformed() recipe.RawRecipe {
	keys := []string{
		"id", "title", "image", "image_url", "images", "description",
		"ingredients", "ingredient_list", "ingredientLines",
		"instructions", "instructions_list", "directions",
		"views", "likes", "dislikes", "user_liked", "user_disliked", "user_favorited",
		"total_time", "yields", "type", "author", "source_url",
	}

	raw := recipe.RawRecipe{}
	for _, key := range keys {
		if f.faker.Number(0, 4) == 0 {
			continue
		}
		raw[key] = f.AnyValue(0)
	}
	return raw
}

// AnyValue returns an arbitrary JSON-like value, nesting up to three levels
func (f *RawRecipeFactory) AnyValue(depth int) interface{} {
	max := 11
	if depth >= 3 {
		max = 7
	}

	switch f.faker.Number(0, max) {
	case 0:
		return nil
	case 1:
		return ""
	case 2:
		return strings.Repeat(" ", f.faker.Number(1, 4))
	case 3:
		return f.faker.Sentence(f.faker.Number(1, 60))
	case 4:
		return f.faker.Float64Range(-1e6, 1e6)
	case 5:
		return fmt.Sprintf("%v", f.faker.Float64Range(-100, 100))
	case 6:
		return f.faker.Bool()
	case 7:
		return f.faker.RandomString([]string{"NaN", "Infinity", "-0", "1e309", "0x1F", "\n\n\n"})
	case 8:
		return []interface{}{f.AnyValue(depth + 1), f.faker.Word(), nil, f.AnyValue(depth + 1)}
	case 9:
		return map[string]interface{}{"list": f.AnyValue(depth + 1)}
	case 10:
		return math.Inf(1)
	default:
		return map[string]interface{}{f.faker.Word(): f.AnyValue(depth + 1)}
	}
}

// WrappedList nests items inside depth {"list": ...} wrappers
func WrappedList(items []interface{}, depth int) interface{} {
	var value interface{} = items
	for i := 0; i < depth; i++ {
		value = map[string]interface{}{"list": value}
	}
	return value
}

func (f *RawRecipeFactory) strings(n int) []interface{} {
	out := make([]interface{}, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, f.faker.Sentence(f.faker.Number(2, 8)))
	}
	return out
}
