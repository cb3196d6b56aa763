// Package recipe provides the application layer for recipe browsing
// This implements the use cases defined in the inbound ports
package recipe

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"go.uber.org/zap"
)

// Config tunes the recipe service
type Config struct {
	ListDescriptionLimit   int
	ViewerDescriptionLimit int
	MaxListDepth           int
	PageSize               int
	RelatedLimit           int
	CacheTTL               time.Duration
}

// DefaultConfig matches the limits the pages were designed around
func DefaultConfig() Config {
	return Config{
		ListDescriptionLimit:   recipe.ListDescriptionLimit,
		ViewerDescriptionLimit: recipe.ViewerDescriptionLimit,
		MaxListDepth:           recipe.DefaultMaxListDepth,
		PageSize:               recipe.DefaultPageSize,
		RelatedLimit:           10,
		CacheTTL:               10 * time.Minute,
	}
}

// RecipeService implements the recipe use cases
type RecipeService struct {
	backend  outbound.RecipeBackend
	cache    outbound.CacheRepository
	metrics  outbound.MetricsRecorder
	lists    *recipe.Normalizer
	viewer   *recipe.Normalizer
	config   Config
	inflight *inflightGuard
	logger   *zap.Logger
}

// NewRecipeService creates a new recipe service. cache and metrics may be nil.
func NewRecipeService(
	cfg Config,
	backend outbound.RecipeBackend,
	cache outbound.CacheRepository,
	metrics outbound.MetricsRecorder,
	logger *zap.Logger,
) inbound.RecipeService {
	defaults := DefaultConfig()
	if cfg.ListDescriptionLimit <= 0 {
		cfg.ListDescriptionLimit = defaults.ListDescriptionLimit
	}
	if cfg.ViewerDescriptionLimit <= 0 {
		cfg.ViewerDescriptionLimit = defaults.ViewerDescriptionLimit
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaults.PageSize
	}
	if cfg.RelatedLimit <= 0 {
		cfg.RelatedLimit = defaults.RelatedLimit
	}
	if cfg.MaxListDepth <= 0 {
		cfg.MaxListDepth = defaults.MaxListDepth
	}

	return &RecipeService{
		backend:  backend,
		cache:    cache,
		metrics:  metrics,
		lists:    recipe.NewNormalizer(recipe.WithDescriptionLimit(cfg.ListDescriptionLimit), recipe.WithMaxListDepth(cfg.MaxListDepth)),
		viewer:   recipe.NewNormalizer(recipe.WithDescriptionLimit(cfg.ViewerDescriptionLimit), recipe.WithMaxListDepth(cfg.MaxListDepth)),
		config:   cfg,
		inflight: newInflightGuard(),
		logger:   logger.Named("recipe-service"),
	}
}

// Normalize normalizes a caller supplied payload. A non-positive limit uses
// the list limit.
func (s *RecipeService) Normalize(raw recipe.RawRecipe, limit int) recipe.NormalizedRecipe {
	normalizer := s.lists
	if limit > 0 {
		normalizer = s.lists.WithLimit(limit)
	}
	return s.normalize(normalizer, raw)
}

// ParseURL scrapes a recipe page through the backend
func (s *RecipeService) ParseURL(ctx context.Context, url string) (*inbound.RecipeView, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.NewValidationError("url is required")
	}

	raw, err := s.cachedParse(ctx, url)
	if err != nil {
		return nil, err
	}

	view := &inbound.RecipeView{Recipe: s.normalize(s.viewer, raw)}
	view.SourceURL = firstNonEmpty(view.Recipe.SourceURL, url)
	return view, nil
}

// GetRecipe fetches a stored recipe
func (s *RecipeService) GetRecipe(ctx context.Context, id int64, userID string) (*inbound.RecipeView, error) {
	if id < 1 {
		return nil, errors.NewBadRequestError(recipe.ErrInvalidRecipeID.Error())
	}

	raw, err := s.backend.GetRecipeByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	normalized := s.normalize(s.viewer, raw)
	if !normalized.HasID() {
		normalized.ID = id
	}
	return &inbound.RecipeView{Recipe: normalized, SourceURL: normalized.SourceURL}, nil
}

// RelatedRecipes returns cards related to a stored recipe
func (s *RecipeService) RelatedRecipes(ctx context.Context, id int64, userID string) ([]recipe.NormalizedRecipe, error) {
	raws, err := s.backend.GetRelatedRecipes(ctx, id, s.config.RelatedLimit, userID)
	if err != nil {
		return nil, err
	}

	cards := make([]recipe.NormalizedRecipe, 0, len(raws))
	for _, raw := range raws {
		cards = append(cards, s.normalize(s.viewer, raw))
	}
	return cards, nil
}

// ListRecipes returns one normalized listing page
func (s *RecipeService) ListRecipes(ctx context.Context, query recipe.ListQuery) (*recipe.Page, error) {
	if query.PageSize < 1 {
		query.PageSize = s.config.PageSize
	}
	query = query.Normalized()

	if query.Mode == recipe.ModeFavorites && query.UserID == "" {
		return &recipe.Page{
			Query:      query.Query,
			Cards:      []recipe.NormalizedRecipe{},
			Pagination: recipe.EmptyPagination(query.PageSize),
			Message:    recipe.FavoritesSignInMessage,
		}, nil
	}

	list, err := s.backend.ListRecipes(ctx, query)
	if err != nil {
		return nil, err
	}

	cards := make([]recipe.NormalizedRecipe, 0, len(list.Results))
	for _, raw := range list.Results {
		cards = append(cards, s.normalize(s.lists, raw))
	}

	return &recipe.Page{
		Query:      list.Query,
		Cards:      cards,
		Pagination: list.Pagination.Normalized(),
	}, nil
}

// Convert turns free text into a recipe
func (s *RecipeService) Convert(ctx context.Context, cmd inbound.ConvertCommand) (*inbound.RecipeView, error) {
	text := strings.TrimSpace(cmd.RawText)
	if text == "" {
		return nil, errors.NewValidationError("raw_text is required")
	}
	source := strings.TrimSpace(cmd.SourceURL)

	raw, err := s.backend.ConvertRawRecipe(ctx, outbound.ConvertRequest{SourceURL: source, RawText: text})
	if err != nil {
		return nil, err
	}

	view := &inbound.RecipeView{Recipe: s.normalize(s.viewer, raw)}
	view.SourceURL = firstNonEmpty(view.Recipe.SourceURL, source)
	return view, nil
}

// Vote likes or dislikes a recipe
func (s *RecipeService) Vote(ctx context.Context, cmd inbound.InteractionCommand) (*recipe.VoteResult, error) {
	release, err := s.begin(cmd)
	if err != nil {
		return nil, err
	}
	defer release()

	var result recipe.VoteResult
	switch cmd.Action {
	case inbound.ActionLike:
		result, err = s.backend.LikeRecipe(ctx, cmd.RecipeID, cmd.UserID)
	case inbound.ActionDislike:
		result, err = s.backend.DislikeRecipe(ctx, cmd.RecipeID, cmd.UserID)
	default:
		return nil, errors.NewBadRequestError("unknown action " + strconv.Quote(cmd.Action))
	}
	if err != nil {
		s.logger.Warn("Vote failed",
			zap.String("action", cmd.Action),
			zap.Int64("recipe_id", cmd.RecipeID),
			zap.Error(err),
		)
		return nil, err
	}
	return &result, nil
}

// Favorite toggles a recipe in the user's favorites
func (s *RecipeService) Favorite(ctx context.Context, cmd inbound.InteractionCommand) (*recipe.FavoriteResult, error) {
	release, err := s.begin(cmd)
	if err != nil {
		return nil, err
	}
	defer release()

	result, err := s.backend.FavoriteRecipe(ctx, cmd.RecipeID, cmd.UserID)
	if err != nil {
		s.logger.Warn("Favorite failed", zap.Int64("recipe_id", cmd.RecipeID), zap.Error(err))
		return nil, err
	}
	return &result, nil
}

// Delete removes a recipe. Only requests addressed to a loopback host may delete.
func (s *RecipeService) Delete(ctx context.Context, cmd inbound.DeleteCommand) error {
	if cmd.RecipeID < 1 {
		return errors.NewBadRequestError(recipe.ErrInvalidRecipeID.Error())
	}
	if !IsLocalHost(cmd.RequestHost) {
		return errors.NewForbiddenError(recipe.ErrDeleteNotAllowed.Error())
	}

	if err := s.backend.DeleteRecipe(ctx, cmd.RecipeID); err != nil {
		return err
	}

	s.logger.Info("Recipe deleted", zap.Int64("recipe_id", cmd.RecipeID))
	return nil
}

// IsLocalHost reports whether host (optionally with a port) names this machine.
func IsLocalHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(strings.ToLower(host), "[]")
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

func (s *RecipeService) begin(cmd inbound.InteractionCommand) (func(), error) {
	if cmd.RecipeID < 1 {
		return nil, errors.NewBadRequestError(recipe.ErrInvalidRecipeID.Error())
	}
	if strings.TrimSpace(cmd.UserID) == "" {
		return nil, errors.NewBadRequestError(recipe.ErrMissingUser.Error())
	}

	release, ok := s.inflight.acquire(cmd.UserID, cmd.RecipeID)
	if !ok {
		return nil, errors.NewConflictError(recipe.ErrInteractionInFlight.Error()).
			WithCause(recipe.ErrInteractionInFlight).
			WithMetadata("recipe_id", cmd.RecipeID)
	}
	return release, nil
}

func (s *RecipeService) normalize(normalizer *recipe.Normalizer, raw recipe.RawRecipe) recipe.NormalizedRecipe {
	normalized, source := normalizer.NormalizeWithSource(raw)
	if s.metrics != nil {
		s.metrics.DescriptionSource(source)
	}
	return normalized
}

func (s *RecipeService) cachedParse(ctx context.Context, url string) (recipe.RawRecipe, error) {
	key := "recipe:url:" + url

	if s.cache != nil {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			if raw, decodeErr := recipe.ParseRawRecipe(data); decodeErr == nil {
				s.recordCache("get", "hit")
				return raw, nil
			}
			s.recordCache("get", "corrupt")
		case stderrors.Is(err, outbound.ErrCacheMiss):
			s.recordCache("get", "miss")
		default:
			s.recordCache("get", "error")
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	raw, err := s.backend.ParseRecipeURL(ctx, url)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.config.CacheTTL > 0 {
		if data, encodeErr := json.Marshal(raw); encodeErr == nil {
			if setErr := s.cache.Set(ctx, key, data, s.config.CacheTTL); setErr != nil {
				s.recordCache("set", "error")
				s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(setErr))
			} else {
				s.recordCache("set", "ok")
			}
		}
	}
	return raw, nil
}

func (s *RecipeService) recordCache(operation, status string) {
	if s.metrics != nil {
		s.metrics.CacheOperation(operation, status)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
