package webserver

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type backendCall struct {
	endpoint string
	outcome  string
}

type recordingObserver struct {
	mu    sync.Mutex
	calls []backendCall
}

func (r *recordingObserver) BackendCall(endpoint, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, backendCall{endpoint: endpoint, outcome: outcome})
}

type APIClientTestSuite struct {
	suite.Suite
	mux      *http.ServeMux
	server   *httptest.Server
	client   *APIClient
	breaker  *healthcheck.CircuitBreaker
	observer *recordingObserver
}

func (s *APIClientTestSuite) SetupTest() {
	s.mux = http.NewServeMux()
	s.server = httptest.NewServer(s.mux)
	s.observer = &recordingObserver{}
	s.breaker = healthcheck.NewCircuitBreaker("recipe_backend", healthcheck.CircuitBreakerConfig{
		FailureThreshold: 2,
		Timeout:          time.Minute,
		IsFailure:        CountsAsBackendFailure,
	})
	s.client = NewAPIClient(config.BackendConfig{
		BaseURL: s.server.URL + "/",
		Timeout: 5 * time.Second,
	}, s.breaker, s.observer, zap.NewNop())
}

func (s *APIClientTestSuite) TearDownTest() {
	s.server.Close()
}

func (s *APIClientTestSuite) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	s.Require().NoError(json.NewEncoder(w).Encode(body))
}

func (s *APIClientTestSuite) TestParseRecipeURL() {
	s.mux.HandleFunc("/parse-recipe-url", func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodGet, r.Method)
		s.Equal("https://example.com/a b", r.URL.Query().Get("url"))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"title": "Soup", "likes": 3})
	})

	raw, err := s.client.ParseRecipeURL(context.Background(), "https://example.com/a b")
	s.Require().NoError(err)
	s.Equal("Soup", raw["title"])
	s.Equal(float64(3), raw["likes"])
	s.Equal([]backendCall{{endpoint: "parse-recipe-url", outcome: "success"}}, s.observer.calls)
}

func (s *APIClientTestSuite) TestNullBodyYieldsEmptyRecipe() {
	s.mux.HandleFunc("/get-recipe-by-id", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("7", r.URL.Query().Get("id"))
		s.Equal("user_1", r.URL.Query().Get("user_id"))
		_, _ = io.WriteString(w, "null")
	})

	raw, err := s.client.GetRecipeByID(context.Background(), 7, "user_1")
	s.Require().NoError(err)
	s.NotNil(raw)
	s.Empty(raw)
}

func (s *APIClientTestSuite) TestGetRecipeWithoutUserOmitsParam() {
	s.mux.HandleFunc("/get-recipe-by-id", func(w http.ResponseWriter, r *http.Request) {
		_, present := r.URL.Query()["user_id"]
		s.False(present)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"id": 7})
	})

	_, err := s.client.GetRecipeByID(context.Background(), 7, "")
	s.NoError(err)
}

func (s *APIClientTestSuite) TestRelatedRecipesAcceptsBothShapes() {
	wrapped := true
	s.mux.HandleFunc("/get-related-recipes", func(w http.ResponseWriter, r *http.Request) {
		s.Equal("4", r.URL.Query().Get("recipe_id"))
		s.Equal("10", r.URL.Query().Get("limit"))
		items := []interface{}{map[string]interface{}{"id": 5}, nil, map[string]interface{}{"id": 6}}
		if wrapped {
			s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": items})
			return
		}
		s.writeJSON(w, http.StatusOK, items)
	})

	related, err := s.client.GetRelatedRecipes(context.Background(), 4, 10, "")
	s.Require().NoError(err)
	s.Len(related, 2)

	wrapped = false
	related, err = s.client.GetRelatedRecipes(context.Background(), 4, 10, "")
	s.Require().NoError(err)
	s.Len(related, 2)
	s.Equal(float64(6), related[1]["id"])
}

func (s *APIClientTestSuite) TestListRecipesSearchAndFavorites() {
	s.mux.HandleFunc("/get-recipes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.Equal("2", q.Get("page"))
		s.Equal("10", q.Get("page_size"))
		s.Equal("soup", q.Get("q"))
		s.Equal("most_liked", q.Get("sort_by"))
		s.Equal("week", q.Get("date_range"))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"query":   "soup",
			"results": []interface{}{map[string]interface{}{"title": "A"}},
			"pagination": map[string]interface{}{
				"page": 2, "page_size": 10, "total_items": 11, "total_pages": 2,
				"has_next": false, "has_previous": true,
			},
		})
	})
	s.mux.HandleFunc("/get-favorited-recipes", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		s.Empty(q.Get("sort_by"))
		s.Empty(q.Get("date_range"))
		s.Equal("user_9", q.Get("user_id"))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"results": []interface{}{}})
	})

	list, err := s.client.ListRecipes(context.Background(), recipe.ListQuery{
		Page: 2, PageSize: 10, Query: " soup ", SortBy: recipe.SortMostLiked, DateRange: recipe.DateRangeWeek,
	})
	s.Require().NoError(err)
	s.Equal("soup", list.Query)
	s.Len(list.Results, 1)
	s.Equal(11, list.Pagination.TotalItems)
	s.True(list.Pagination.HasPrevious)

	favorites, err := s.client.ListRecipes(context.Background(), recipe.ListQuery{
		Mode: recipe.ModeFavorites, SortBy: recipe.SortMostViewed, UserID: "user_9",
	})
	s.Require().NoError(err)
	s.Empty(favorites.Results)
}

func (s *APIClientTestSuite) TestConvertSendsNullSourceURL() {
	var bodies []map[string]interface{}
	s.mux.HandleFunc("/convert-raw-recipe", func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodPost, r.Method)
		s.Equal("application/json", r.Header.Get("Content-Type"))
		var body map[string]interface{}
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"title": "Converted"})
	})

	_, err := s.client.ConvertRawRecipe(context.Background(), outbound.ConvertRequest{RawText: "flour"})
	s.Require().NoError(err)
	_, err = s.client.ConvertRawRecipe(context.Background(), outbound.ConvertRequest{SourceURL: "https://x.test", RawText: "eggs"})
	s.Require().NoError(err)

	s.Require().Len(bodies, 2)
	s.Contains(bodies[0], "source_url")
	s.Nil(bodies[0]["source_url"])
	s.Equal("flour", bodies[0]["raw_text"])
	s.Equal("https://x.test", bodies[1]["source_url"])
}

func (s *APIClientTestSuite) TestVoteCoercesResponse() {
	s.mux.HandleFunc("/like-recipe", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		s.Require().NoError(json.NewDecoder(r.Body).Decode(&body))
		s.Equal(float64(12), body["recipe_id"])
		s.Equal("user_1", body["user_id"])
		s.writeJSON(w, http.StatusOK, map[string]interface{}{
			"action": "liked", "recipe_id": 12, "likes": "4", "dislikes": -2,
			"user_liked": true, "user_disliked": "true", "user_favorited": true,
		})
	})

	result, err := s.client.LikeRecipe(context.Background(), 12, "user_1")
	s.Require().NoError(err)
	s.Equal(recipe.VoteResult{
		Action: "liked", RecipeID: 12, Likes: 4, Dislikes: 0,
		UserLiked: true, UserDisliked: false, UserFavorited: true,
	}, result)
}

func (s *APIClientTestSuite) TestFavoriteFallsBackToRequestedID() {
	s.mux.HandleFunc("/favorite-recipe", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"action": "favorited", "user_favorited": true})
	})

	result, err := s.client.FavoriteRecipe(context.Background(), 3, "user_1")
	s.Require().NoError(err)
	s.Equal(int64(3), result.RecipeID)
	s.True(result.UserFavorited)
}

func (s *APIClientTestSuite) TestDeleteRecipe() {
	s.mux.HandleFunc("/delete-recipe", func(w http.ResponseWriter, r *http.Request) {
		s.Equal(http.MethodDelete, r.Method)
		s.Equal("8", r.URL.Query().Get("id"))
		s.writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": true})
	})

	s.NoError(s.client.DeleteRecipe(context.Background(), 8))
}

func (s *APIClientTestSuite) TestErrorReasons() {
	tests := []struct {
		name   string
		status int
		body   string
		reason string
		code   errors.ErrorCode
	}{
		{"error field", http.StatusBadRequest, `{"error":"  website forbidden "}`, "website forbidden", errors.CodeExternalServiceError},
		{"raw body", http.StatusBadGateway, "  upstream down ", "upstream down", errors.CodeExternalServiceError},
		{"non string error", http.StatusBadRequest, `{"error":42}`, `{"error":42}`, errors.CodeExternalServiceError},
		{"status text", http.StatusInternalServerError, "", "Internal Server Error", errors.CodeExternalServiceError},
		{"not found", http.StatusNotFound, `{"error":"no such recipe"}`, "no such recipe", errors.CodeRecipeNotFound},
	}

	var status int
	var body string
	s.mux.HandleFunc("/parse-recipe-url", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})

	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.breaker.Reset()
			status, body = tt.status, tt.body

			_, err := s.client.ParseRecipeURL(context.Background(), "https://example.com")
			s.Require().Error(err)
			s.Equal(tt.reason, errors.ReasonOf(err))
			s.Equal(tt.code, errors.GetCode(err))
		})
	}
}

func (s *APIClientTestSuite) TestCircuitOpensOnServerErrors() {
	calls := 0
	s.mux.HandleFunc("/parse-recipe-url", func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	for i := 0; i < 2; i++ {
		_, err := s.client.ParseRecipeURL(context.Background(), "https://example.com")
		s.Require().Error(err)
	}
	s.Equal(healthcheck.StateOpen, s.breaker.GetState())

	_, err := s.client.ParseRecipeURL(context.Background(), "https://example.com")
	s.Require().Error(err)
	s.Equal(errors.CodeServiceUnavailable, errors.GetCode(err))
	s.Equal(2, calls)
	s.Equal("rejected", s.observer.calls[len(s.observer.calls)-1].outcome)
}

func (s *APIClientTestSuite) TestClientErrorsDoNotTripCircuit() {
	s.mux.HandleFunc("/parse-recipe-url", func(w http.ResponseWriter, r *http.Request) {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad url"})
	})

	for i := 0; i < 5; i++ {
		_, err := s.client.ParseRecipeURL(context.Background(), "nope")
		s.Require().Error(err)
	}
	s.Equal(healthcheck.StateClosed, s.breaker.GetState())
	s.Equal("client_error", s.observer.calls[0].outcome)
}

func (s *APIClientTestSuite) TestPingBypassesBreaker() {
	s.mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	s.breaker.ForceOpen()

	s.NoError(s.client.Ping(context.Background()))
}

func (s *APIClientTestSuite) TestCanceledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.client.ParseRecipeURL(ctx, "https://example.com")
	s.Require().Error(err)
	s.ErrorIs(err, context.Canceled)
	s.Equal(healthcheck.StateClosed, s.breaker.GetState())
}

func TestAPIClientTestSuite(t *testing.T) {
	suite.Run(t, new(APIClientTestSuite))
}

func TestCountsAsBackendFailure(t *testing.T) {
	assert.False(t, CountsAsBackendFailure(nil))
	assert.False(t, CountsAsBackendFailure(context.Canceled))
	assert.False(t, CountsAsBackendFailure(errors.NewBackendError(http.StatusNotFound, "")))
	assert.True(t, CountsAsBackendFailure(errors.NewBackendError(http.StatusBadGateway, "")))
	assert.True(t, CountsAsBackendFailure(context.DeadlineExceeded))
}

func TestNewAPIClientTrimsBaseURL(t *testing.T) {
	client := NewAPIClient(config.BackendConfig{BaseURL: "http://backend:5001/"}, nil, nil, zap.NewNop())
	require.NotNil(t, client)
	assert.Equal(t, "http://backend:5001", client.BaseURL())
	assert.Equal(t, 45*time.Second, client.httpClient.Timeout)
}
