// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"context"

	"github.com/flavorbuddy/web/internal/domain/recipe"
)

// RecipeService is what the page handlers and the JSON API drive.
// Every recipe it returns is already normalized.
type RecipeService interface {
	// Normalize runs the normalizer on a payload supplied by the caller.
	Normalize(raw recipe.RawRecipe, limit int) recipe.NormalizedRecipe

	// Queries
	ParseURL(ctx context.Context, url string) (*RecipeView, error)
	GetRecipe(ctx context.Context, id int64, userID string) (*RecipeView, error)
	RelatedRecipes(ctx context.Context, id int64, userID string) ([]recipe.NormalizedRecipe, error)
	ListRecipes(ctx context.Context, query recipe.ListQuery) (*recipe.Page, error)

	// Commands
	Convert(ctx context.Context, cmd ConvertCommand) (*RecipeView, error)
	Vote(ctx context.Context, cmd InteractionCommand) (*recipe.VoteResult, error)
	Favorite(ctx context.Context, cmd InteractionCommand) (*recipe.FavoriteResult, error)
	Delete(ctx context.Context, cmd DeleteCommand) error
}

// RecipeView is a recipe prepared for the single recipe page.
type RecipeView struct {
	Recipe    recipe.NormalizedRecipe `json:"recipe"`
	SourceURL string                  `json:"sourceUrl,omitempty"`
}

// ConvertCommand requests conversion of free text into a recipe.
type ConvertCommand struct {
	SourceURL string `json:"source_url" form:"sourceUrl" validate:"omitempty,url"`
	RawText   string `json:"raw_text" form:"rawText" validate:"required"`
}

// Vote actions.
const (
	ActionLike     = "like"
	ActionDislike  = "dislike"
	ActionFavorite = "favorite"
)

// InteractionCommand identifies a user acting on a recipe.
type InteractionCommand struct {
	RecipeID int64
	UserID   string
	Action   string
}

// DeleteCommand deletes a recipe. RequestHost is the host the request was
// addressed to; deletion is refused unless it is a loopback host.
type DeleteCommand struct {
	RecipeID    int64
	RequestHost string
}
