// Package webserver provides API client for backend communication
package webserver

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// maxResponseBytes bounds how much of a backend response is read.
const maxResponseBytes = 8 << 20

// backendService names the recipe API in errors and logs.
const backendService = "recipe_backend"

// BackendObserver receives one observation per backend call
type BackendObserver interface {
	BackendCall(endpoint, outcome string, duration time.Duration)
}

// APIClient handles communication with the recipe backend API
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *healthcheck.CircuitBreaker
	observer   BackendObserver
	logger     *zap.Logger
}

var _ outbound.RecipeBackend = (*APIClient)(nil)

// NewAPIClient creates a new API client instance. breaker and observer may be nil.
func NewAPIClient(cfg config.BackendConfig, breaker *healthcheck.CircuitBreaker, observer BackendObserver, logger *zap.Logger) *APIClient {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.MaxIdleConns > 0 {
		transport.MaxIdleConns = cfg.MaxIdleConns
		transport.MaxIdleConnsPerHost = cfg.MaxIdleConns
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	return &APIClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(transport),
		},
		breaker:  breaker,
		observer: observer,
		logger:   logger.Named("api-client"),
	}
}

// BaseURL returns the backend root the client talks to
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// CountsAsBackendFailure reports whether err should trip the circuit breaker.
// Client errors and cancellations say nothing about backend health.
func CountsAsBackendFailure(err error) bool {
	if err == nil || stderrors.Is(err, context.Canceled) {
		return false
	}
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.UpstreamStatus >= 400 && appErr.UpstreamStatus < 500 {
		return false
	}
	return true
}

// Recipes

type convertRequest struct {
	SourceURL *string `json:"source_url"`
	RawText   string  `json:"raw_text"`
}

type interactionRequest struct {
	RecipeID int64  `json:"recipe_id"`
	UserID   string `json:"user_id"`
}

// ParseRecipeURL asks the backend to scrape a recipe page
func (c *APIClient) ParseRecipeURL(ctx context.Context, recipeURL string) (recipe.RawRecipe, error) {
	var raw recipe.RawRecipe
	err := c.get(ctx, "/parse-recipe-url", url.Values{"url": {recipeURL}}, &raw)
	return ensureRaw(raw), err
}

// ConvertRawRecipe asks the backend to structure free text
func (c *APIClient) ConvertRawRecipe(ctx context.Context, req outbound.ConvertRequest) (recipe.RawRecipe, error) {
	body := convertRequest{RawText: req.RawText}
	if req.SourceURL != "" {
		source := req.SourceURL
		body.SourceURL = &source
	}

	var raw recipe.RawRecipe
	err := c.send(ctx, http.MethodPost, "/convert-raw-recipe", nil, body, &raw)
	return ensureRaw(raw), err
}

// GetRecipeByID fetches a stored recipe
func (c *APIClient) GetRecipeByID(ctx context.Context, id int64, userID string) (recipe.RawRecipe, error) {
	params := url.Values{"id": {strconv.FormatInt(id, 10)}}
	if userID != "" {
		params.Set("user_id", userID)
	}

	var raw recipe.RawRecipe
	err := c.get(ctx, "/get-recipe-by-id", params, &raw)
	return ensureRaw(raw), err
}

// GetRelatedRecipes fetches recipes related to id. The backend answers with
// either {"results": [...]} or a bare array.
func (c *APIClient) GetRelatedRecipes(ctx context.Context, id int64, limit int, userID string) ([]recipe.RawRecipe, error) {
	params := url.Values{
		"recipe_id": {strconv.FormatInt(id, 10)},
		"limit":     {strconv.Itoa(limit)},
	}
	if userID != "" {
		params.Set("user_id", userID)
	}

	var body json.RawMessage
	if err := c.get(ctx, "/get-related-recipes", params, &body); err != nil {
		return nil, err
	}

	var wrapped struct {
		Results []recipe.RawRecipe `json:"results"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		return compactRaw(wrapped.Results), nil
	}

	var bare []recipe.RawRecipe
	if err := json.Unmarshal(body, &bare); err != nil {
		return nil, errors.NewExternalServiceError(backendService, fmt.Errorf("failed to decode related recipes: %w", err))
	}
	return compactRaw(bare), nil
}

// ListRecipes fetches a search or favorites page
func (c *APIClient) ListRecipes(ctx context.Context, query recipe.ListQuery) (*outbound.RecipeList, error) {
	path := "/get-recipes"
	if query.Mode == recipe.ModeFavorites {
		path = "/get-favorited-recipes"
	}

	params := url.Values{}
	for key, value := range query.Params() {
		params.Set(key, value)
	}

	var list outbound.RecipeList
	if err := c.get(ctx, path, params, &list); err != nil {
		return nil, err
	}
	list.Results = compactRaw(list.Results)
	return &list, nil
}

// LikeRecipe toggles a like
func (c *APIClient) LikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error) {
	return c.vote(ctx, "/like-recipe", id, userID)
}

// DislikeRecipe toggles a dislike
func (c *APIClient) DislikeRecipe(ctx context.Context, id int64, userID string) (recipe.VoteResult, error) {
	return c.vote(ctx, "/dislike-recipe", id, userID)
}

// FavoriteRecipe toggles a favorite
func (c *APIClient) FavoriteRecipe(ctx context.Context, id int64, userID string) (recipe.FavoriteResult, error) {
	var raw recipe.RawRecipe
	if err := c.send(ctx, http.MethodPost, "/favorite-recipe", nil, interactionRequest{RecipeID: id, UserID: userID}, &raw); err != nil {
		return recipe.FavoriteResult{}, err
	}
	raw = ensureRaw(raw)

	return recipe.FavoriteResult{
		Action:        raw.TrimmedString("action"),
		RecipeID:      recipeIDOr(raw, id),
		UserFavorited: raw.Flag(recipe.FieldUserFavorited),
		UserLiked:     raw.Flag(recipe.FieldUserLiked),
		UserDisliked:  raw.Flag(recipe.FieldUserDisliked),
	}, nil
}

// DeleteRecipe removes a stored recipe
func (c *APIClient) DeleteRecipe(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, "/delete-recipe", url.Values{"id": {strconv.FormatInt(id, 10)}}, nil, nil)
}

// Ping checks the backend health endpoint. It bypasses the circuit breaker
// so that health probes keep reporting while the circuit is open.
func (c *APIClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return c.doRequest(req, nil)
}

func (c *APIClient) vote(ctx context.Context, path string, id int64, userID string) (recipe.VoteResult, error) {
	var raw recipe.RawRecipe
	if err := c.send(ctx, http.MethodPost, path, nil, interactionRequest{RecipeID: id, UserID: userID}, &raw); err != nil {
		return recipe.VoteResult{}, err
	}
	raw = ensureRaw(raw)

	return recipe.VoteResult{
		Action:        raw.TrimmedString("action"),
		RecipeID:      recipeIDOr(raw, id),
		Likes:         recipe.CoerceNonNegativeInt(raw[recipe.FieldLikes]),
		Dislikes:      recipe.CoerceNonNegativeInt(raw[recipe.FieldDislikes]),
		UserLiked:     raw.Flag(recipe.FieldUserLiked),
		UserDisliked:  raw.Flag(recipe.FieldUserDisliked),
		UserFavorited: raw.Flag(recipe.FieldUserFavorited),
	}, nil
}

// Helper methods

func (c *APIClient) get(ctx context.Context, path string, params url.Values, response interface{}) error {
	return c.send(ctx, http.MethodGet, path, params, nil, response)
}

func (c *APIClient) send(ctx context.Context, method, path string, params url.Values, body interface{}, response interface{}) error {
	target := c.baseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	call := func() error { return c.doRequest(req, response) }

	if c.breaker != nil {
		err = c.breaker.Execute(call)
		if stderrors.Is(err, healthcheck.ErrCircuitOpen) {
			c.observe(path, "rejected", start)
			return errors.NewServiceUnavailableError(backendService, err)
		}
	} else {
		err = call()
	}

	c.observe(path, outcomeOf(err), start)
	return err
}

func (c *APIClient) doRequest(req *http.Request, response interface{}) error {
	c.logger.Debug("API request",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return errors.NewExternalServiceError(backendService, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return errors.NewExternalServiceError(backendService, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		reason := extractErrorMessage(body, resp.StatusCode)
		c.logger.Warn("API error response",
			zap.String("path", req.URL.Path),
			zap.Int("status", resp.StatusCode),
			zap.String("reason", reason),
		)
		return errors.NewBackendError(resp.StatusCode, reason)
	}

	if response == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	if err := json.Unmarshal(body, response); err != nil {
		return errors.NewExternalServiceError(backendService, fmt.Errorf("failed to unmarshal response: %w", err))
	}
	return nil
}

func (c *APIClient) observe(path, outcome string, start time.Time) {
	if c.observer != nil {
		c.observer.BackendCall(strings.TrimPrefix(path, "/"), outcome, time.Since(start))
	}
}

// extractErrorMessage prefers the body's "error" string, then the raw body,
// then the status text.
func extractErrorMessage(body []byte, status int) string {
	var payload struct {
		Error interface{} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if s, ok := payload.Error.(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	if trimmed := strings.TrimSpace(string(body)); trimmed != "" {
		return trimmed
	}
	return http.StatusText(status)
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.GetCode(err) == errors.CodeRecipeNotFound:
		return "not_found"
	case CountsAsBackendFailure(err):
		return "error"
	default:
		return "client_error"
	}
}

func ensureRaw(raw recipe.RawRecipe) recipe.RawRecipe {
	if raw == nil {
		return recipe.RawRecipe{}
	}
	return raw
}

func compactRaw(list []recipe.RawRecipe) []recipe.RawRecipe {
	out := make([]recipe.RawRecipe, 0, len(list))
	for _, raw := range list {
		if raw != nil {
			out = append(out, raw)
		}
	}
	return out
}

func recipeIDOr(raw recipe.RawRecipe, fallback int64) int64 {
	if id, ok := recipe.CoerceRecipeID(raw["recipe_id"]); ok {
		return id
	}
	return fallback
}
