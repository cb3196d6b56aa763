// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
)

// ErrCacheMiss is returned by CacheRepository.Get when a key is absent.
var ErrCacheMiss = errors.New("cache miss")

// RecipeBackend is the remote recipe API. Every method returns the payload
// exactly as the backend shaped it; normalization happens in the application.
type RecipeBackend interface {
	// Parsing and conversion
	ParseRecipeURL(ctx context.Context, url string) (recipe.RawRecipe, error)
	ConvertRawRecipe(ctx context.Context, req ConvertRequest) (recipe.RawRecipe, error)

	// Queries
	GetRecipeByID(ctx context.Context, id int64, userID string) (recipe.RawRecipe, error)
	GetRelatedRecipes(ctx context.Context, id int64, limit int, userID string) ([]recipe.RawRecipe, error)
	ListRecipes(ctx context.Context, query recipe.ListQuery) (*RecipeList, error)

	// Interactions
	LikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error)
	DislikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error)
	FavoriteRecipe(ctx context.Context, id int64, userID string) (recipe.FavoriteResult, error)
	DeleteRecipe(ctx context.Context, id int64) error

	// Ping checks that the backend answers at all.
	Ping(ctx context.Context) error
}

// ConvertRequest is the body of a raw text conversion.
type ConvertRequest struct {
	SourceURL string
	RawText   string
}

// RecipeList is one page of backend listing results.
type RecipeList struct {
	Query      string             `json:"query"`
	Results    []recipe.RawRecipe `json:"results"`
	Pagination recipe.Pagination  `json:"pagination"`
}

// CacheRepository stores opaque values with a TTL.
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// MetricsRecorder receives application level measurements.
type MetricsRecorder interface {
	DescriptionSource(source recipe.DescriptionSource)
	CacheOperation(operation, status string)
}
