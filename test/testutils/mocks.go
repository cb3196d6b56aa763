// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"sync"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockRecipeBackend provides a mock implementation of outbound.RecipeBackend
type MockRecipeBackend struct {
	mock.Mock
}

// NewMockRecipeBackend creates a new mock recipe backend
func NewMockRecipeBackend() *MockRecipeBackend {
	return &MockRecipeBackend{}
}

// ParseRecipeURL mocks a URL scrape
func (m *MockRecipeBackend) ParseRecipeURL(ctx context.Context, url string) (recipe.RawRecipe, error) {
	args := m.Called(ctx, url)
	return rawArg(args, 0), args.Error(1)
}

// ConvertRawRecipe mocks a text conversion
func (m *MockRecipeBackend) ConvertRawRecipe(ctx context.Context, req outbound.ConvertRequest) (recipe.RawRecipe, error) {
	args := m.Called(ctx, req)
	return rawArg(args, 0), args.Error(1)
}

// GetRecipeByID mocks a lookup by id
func (m *MockRecipeBackend) GetRecipeByID(ctx context.Context, id int64, userID string) (recipe.RawRecipe, error) {
	args := m.Called(ctx, id, userID)
	return rawArg(args, 0), args.Error(1)
}

// GetRelatedRecipes mocks the related listing
func (m *MockRecipeBackend) GetRelatedRecipes(ctx context.Context, id int64, limit int, userID string) ([]recipe.RawRecipe, error) {
	args := m.Called(ctx, id, limit, userID)
	if v := args.Get(0); v != nil {
		return v.([]recipe.RawRecipe), args.Error(1)
	}
	return nil, args.Error(1)
}

// ListRecipes mocks the search and favorites listings
func (m *MockRecipeBackend) ListRecipes(ctx context.Context, query recipe.ListQuery) (*outbound.RecipeList, error) {
	args := m.Called(ctx, query)
	if v := args.Get(0); v != nil {
		return v.(*outbound.RecipeList), args.Error(1)
	}
	return nil, args.Error(1)
}

// LikeRecipe mocks a like
func (m *MockRecipeBackend) LikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(recipe.VoteResult), args.Error(1)
}

// DislikeRecipe mocks a dislike
func (m *MockRecipeBackend) DislikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(recipe.VoteResult), args.Error(1)
}

// FavoriteRecipe mocks a favorite toggle
func (m *MockRecipeBackend) FavoriteRecipe(ctx context.Context, id int64, userID string) (recipe.FavoriteResult, error) {
	args := m.Called(ctx, id, userID)
	return args.Get(0).(recipe.FavoriteResult), args.Error(1)
}

// DeleteRecipe mocks a delete
func (m *MockRecipeBackend) DeleteRecipe(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Ping mocks the connectivity check
func (m *MockRecipeBackend) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func rawArg(args mock.Arguments, i int) recipe.RawRecipe {
	if v := args.Get(i); v != nil {
		return v.(recipe.RawRecipe)
	}
	return nil
}

// MemoryCache is an in-memory outbound.CacheRepository that ignores TTLs
type MemoryCache struct {
	mu    sync.Mutex
	items map[string][]byte
	Sets  int
}

// NewMemoryCache creates an empty cache
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string][]byte)}
}

// Get returns outbound.ErrCacheMiss for unknown keys
func (c *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if v, ok := c.items[key]; ok {
		return v, nil
	}
	return nil, outbound.ErrCacheMiss
}

// Set stores a value
func (c *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
	c.Sets++
	return nil
}

// Delete removes a value
func (c *MemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
	return nil
}

// RecordingMetrics counts application measurements
type RecordingMetrics struct {
	mu      sync.Mutex
	Sources map[recipe.DescriptionSource]int
	Cache   map[string]int
}

// NewRecordingMetrics creates an empty recorder
func NewRecordingMetrics() *RecordingMetrics {
	return &RecordingMetrics{
		Sources: make(map[recipe.DescriptionSource]int),
		Cache:   make(map[string]int),
	}
}

// DescriptionSource counts a description fallback
func (r *RecordingMetrics) DescriptionSource(source recipe.DescriptionSource) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sources[source]++
}

// CacheOperation counts a cache operation as "operation/status"
func (r *RecordingMetrics) CacheOperation(operation, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Cache[operation+"/"+status]++
}
