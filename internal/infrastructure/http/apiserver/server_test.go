package apiserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apprecipe "github.com/flavorbuddy/web/internal/application/recipe"
	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/config"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/infrastructure/monitoring"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/flavorbuddy/web/pkg/healthcheck"
	"github.com/flavorbuddy/web/test/testutils"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type APIServerTestSuite struct {
	suite.Suite
	backend *testutils.MockRecipeBackend
	health  *healthcheck.HealthCheck
	server  *Server
	http    *testutils.HTTPAssertions
}

func TestAPIServer(t *testing.T) {
	gin.SetMode(gin.TestMode)
	suite.Run(t, new(APIServerTestSuite))
}

func (s *APIServerTestSuite) SetupTest() {
	cfg := &config.Config{
		App: config.AppConfig{Environment: "development"},
		Monitoring: config.MonitoringConfig{
			EnableMetrics:   true,
			HealthCheckPath: "/health",
			ReadinessPath:   "/ready",
		},
	}

	s.backend = testutils.NewMockRecipeBackend()
	service := apprecipe.NewRecipeService(apprecipe.DefaultConfig(), s.backend, nil, nil, zap.NewNop())

	s.health = healthcheck.New("test", zap.NewNop())
	metrics := monitoring.NewMetricsCollector(monitoring.NewRegistry(), zap.NewNop())
	mw := middleware.New(cfg, nil, zap.NewNop())

	s.server = NewServer(cfg, service, s.health, metrics, mw, zap.NewNop())
	s.http = testutils.NewHTTPAssertions(s.T())
}

func (s *APIServerTestSuite) TearDownTest() {
	s.backend.AssertExpectations(s.T())
}

func (s *APIServerTestSuite) do(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func (s *APIServerTestSuite) errorCode(rec *httptest.ResponseRecorder) errors.ErrorCode {
	var body errors.ErrorResponse
	s.http.JSONResponse(rec, &body)
	s.NotEmpty(body.Error.RequestID)
	return body.Error.Code
}

func (s *APIServerTestSuite) TestNormalizeAppliesLimit() {
	rec := s.do(http.MethodPost, "/api/v1/normalize?limit=5",
		`{"title":" Pie ","description":"A lovely pie","likes":"7","user_liked":"true"}`)

	s.http.StatusCode(rec, http.StatusOK)
	var got recipe.NormalizedRecipe
	s.http.JSONResponse(rec, &got)
	s.Equal("Pie", got.Title)
	s.Equal("A lov...", got.Description)
	s.Equal(7, got.Likes)
	s.False(got.UserLiked)
	s.http.SecurityHeaders(rec)
}

func (s *APIServerTestSuite) TestNormalizeNullBody() {
	rec := s.do(http.MethodPost, "/api/v1/normalize", "null")

	s.http.StatusCode(rec, http.StatusOK)
	var got recipe.NormalizedRecipe
	s.http.JSONResponse(rec, &got)
	s.Equal(recipe.UntitledRecipe, got.Title)
	s.NotNil(got.Ingredients)
}

func (s *APIServerTestSuite) TestNormalizeRejectsNonObject() {
	rec := s.do(http.MethodPost, "/api/v1/normalize", `["not","an","object"]`)

	s.http.StatusCode(rec, http.StatusBadRequest)
	s.Equal(errors.CodeValidationFailed, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestNormalizeRejectsBadLimit() {
	rec := s.do(http.MethodPost, "/api/v1/normalize?limit=0x", `{}`)
	s.http.StatusCode(rec, http.StatusBadRequest)

	rec = s.do(http.MethodPost, "/api/v1/normalize?limit=-3", `{}`)
	s.http.StatusCode(rec, http.StatusBadRequest)

	var body errors.ErrorResponse
	s.http.JSONResponse(rec, &body)
	s.Equal(errors.CodeValidationFailed, body.Error.Code)
	s.Contains(body.Error.Details, "limit must be at least 1")
}

func (s *APIServerTestSuite) TestGetRecipe() {
	s.backend.On("GetRecipeByID", mock.Anything, int64(42), "user_1").
		Return(recipe.RawRecipe{"title": "Soup", "ingredients": []interface{}{"water"}}, nil)

	rec := s.do(http.MethodGet, "/api/v1/recipes/42?user_id=user_1", "")

	s.http.StatusCode(rec, http.StatusOK)
	var view inbound.RecipeView
	s.http.JSONResponse(rec, &view)
	s.Equal(int64(42), view.Recipe.ID)
	s.Equal("Soup", view.Recipe.Title)
	s.Equal([]string{"water"}, view.Recipe.Ingredients)
}

func (s *APIServerTestSuite) TestGetRecipeUsesCookieIdentity() {
	s.backend.On("GetRecipeByID", mock.Anything, int64(7), "user_cookie").
		Return(recipe.RawRecipe{"id": 7}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/recipes/7", nil)
	req.AddCookie(&http.Cookie{Name: userCookieName, Value: "user_cookie"})
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)

	s.http.StatusCode(rec, http.StatusOK)
}

func (s *APIServerTestSuite) TestGetRecipeInvalidID() {
	for _, id := range []string{"abc", "0", "-4"} {
		rec := s.do(http.MethodGet, "/api/v1/recipes/"+id, "")
		s.http.StatusCode(rec, http.StatusBadRequest, id)
		s.Equal(errors.CodeBadRequest, s.errorCode(rec))
	}
}

func (s *APIServerTestSuite) TestGetRecipeNotFound() {
	s.backend.On("GetRecipeByID", mock.Anything, int64(9), "").
		Return(nil, errors.NewBackendError(http.StatusNotFound, "Recipe not found"))

	rec := s.do(http.MethodGet, "/api/v1/recipes/9", "")

	s.http.StatusCode(rec, http.StatusNotFound)
	s.Equal(errors.CodeRecipeNotFound, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestBackendOutageMapsTo502() {
	s.backend.On("GetRecipeByID", mock.Anything, int64(3), "").
		Return(nil, errors.NewExternalServiceError("recipe_backend", context.Canceled))

	rec := s.do(http.MethodGet, "/api/v1/recipes/3", "")

	s.http.StatusCode(rec, http.StatusBadGateway)
	s.Equal(errors.CodeExternalServiceError, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestRelatedRecipes() {
	s.backend.On("GetRelatedRecipes", mock.Anything, int64(5), 10, "").
		Return([]recipe.RawRecipe{{"id": 6, "title": "Stew"}, {"id": 8}}, nil)

	rec := s.do(http.MethodGet, "/api/v1/recipes/5/related", "")

	s.http.StatusCode(rec, http.StatusOK)
	var body relatedResponse
	s.http.JSONResponse(rec, &body)
	s.Len(body.Results, 2)
	s.Equal("Stew", body.Results[0].Title)
	s.Equal(recipe.UntitledRecipe, body.Results[1].Title)
}

func (s *APIServerTestSuite) TestListRecipes() {
	s.backend.On("ListRecipes", mock.Anything, mock.MatchedBy(func(q recipe.ListQuery) bool {
		return q.Mode == recipe.ModeSearch && q.Page == 2 && q.Query == "soup" &&
			q.SortBy == recipe.SortMostLiked && q.DateRange == recipe.DateRangeWeek
	})).Return(&outbound.RecipeList{
		Query:      "soup",
		Results:    []recipe.RawRecipe{{"id": 1, "title": "Tomato Soup"}},
		Pagination: recipe.Pagination{Page: 2, PageSize: 12, TotalItems: 13, TotalPages: 2},
	}, nil)

	rec := s.do(http.MethodGet, "/api/v1/recipes?page=2&q=soup&sort_by=most_liked&date_range=week", "")

	s.http.StatusCode(rec, http.StatusOK)
	var page recipe.Page
	s.http.JSONResponse(rec, &page)
	s.Require().Len(page.Cards, 1)
	s.Equal("Tomato Soup", page.Cards[0].Title)
	s.True(page.Pagination.HasPrevious)
	s.False(page.Pagination.HasNext)
}

func (s *APIServerTestSuite) TestListRecipesRejectsUnknownSort() {
	rec := s.do(http.MethodGet, "/api/v1/recipes?sort_by=spiciest", "")

	s.http.StatusCode(rec, http.StatusBadRequest)

	var body errors.ErrorResponse
	s.http.JSONResponse(rec, &body)
	s.Equal(errors.CodeValidationFailed, body.Error.Code)
	s.Contains(body.Error.Details, "sort_by must be one of")
}

func (s *APIServerTestSuite) TestFavoritesWithoutUser() {
	rec := s.do(http.MethodGet, "/api/v1/favorites", "")

	s.http.StatusCode(rec, http.StatusOK)
	var page recipe.Page
	s.http.JSONResponse(rec, &page)
	s.Empty(page.Cards)
	s.Equal(recipe.FavoritesSignInMessage, page.Message)
}

func (s *APIServerTestSuite) TestParseRecipeURL() {
	s.backend.On("ParseRecipeURL", mock.Anything, "https://example.com/pie").
		Return(recipe.RawRecipe{"title": "Pie"}, nil)

	rec := s.do(http.MethodGet, "/api/v1/recipe?url=https://example.com/pie", "")

	s.http.StatusCode(rec, http.StatusOK)
	var view inbound.RecipeView
	s.http.JSONResponse(rec, &view)
	s.Equal("Pie", view.Recipe.Title)
	s.Equal("https://example.com/pie", view.SourceURL)
}

func (s *APIServerTestSuite) TestParseRecipeURLRequiresURL() {
	rec := s.do(http.MethodGet, "/api/v1/recipe?url=not-a-url", "")

	s.http.StatusCode(rec, http.StatusBadRequest)
	s.Equal(errors.CodeValidationFailed, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestConvert() {
	s.backend.On("ConvertRawRecipe", mock.Anything, outbound.ConvertRequest{RawText: "boil eggs"}).
		Return(recipe.RawRecipe{"title": "Eggs", "instructions": "Boil."}, nil)

	rec := s.do(http.MethodPost, "/api/v1/convert", `{"raw_text":"  boil eggs  "}`)

	s.http.StatusCode(rec, http.StatusOK)
	var view inbound.RecipeView
	s.http.JSONResponse(rec, &view)
	s.Equal("Eggs", view.Recipe.Title)
	s.Equal([]string{"Boil."}, view.Recipe.Instructions)
}

func (s *APIServerTestSuite) TestConvertValidation() {
	rec := s.do(http.MethodPost, "/api/v1/convert", `{"source_url":"nope"}`)

	s.http.StatusCode(rec, http.StatusBadRequest)

	var body errors.ErrorResponse
	s.http.JSONResponse(rec, &body)
	s.Equal(errors.CodeValidationFailed, body.Error.Code)
	s.Contains(body.Error.Details, "raw_text is required")
	s.Contains(body.Error.Details, "source_url must be a valid URL")
}

func (s *APIServerTestSuite) TestLike() {
	s.backend.On("LikeRecipe", mock.Anything, int64(4), "user_1").
		Return(recipe.VoteResult{Action: "liked", RecipeID: 4, Likes: 3, UserLiked: true}, nil)

	rec := s.do(http.MethodPost, "/api/v1/recipes/4/like", `{"user_id":"user_1"}`)

	s.http.StatusCode(rec, http.StatusOK)
	var result recipe.VoteResult
	s.http.JSONResponse(rec, &result)
	s.Equal(3, result.Likes)
	s.True(result.UserLiked)
}

func (s *APIServerTestSuite) TestDislikeWithoutUser() {
	rec := s.do(http.MethodPost, "/api/v1/recipes/4/dislike", "")

	s.http.StatusCode(rec, http.StatusBadRequest)
	s.Equal(errors.CodeBadRequest, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestFavorite() {
	s.backend.On("FavoriteRecipe", mock.Anything, int64(4), "user_2").
		Return(recipe.FavoriteResult{Action: "favorited", RecipeID: 4, UserFavorited: true}, nil)

	rec := s.do(http.MethodPost, "/api/v1/recipes/4/favorite?user_id=user_2", "")

	s.http.StatusCode(rec, http.StatusOK)
	var result recipe.FavoriteResult
	s.http.JSONResponse(rec, &result)
	s.True(result.UserFavorited)
}

func (s *APIServerTestSuite) TestDeleteFromLoopback() {
	s.backend.On("DeleteRecipe", mock.Anything, int64(12)).Return(nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/recipes/12", nil)
	req.Host = "localhost:8080"
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)

	s.http.StatusCode(rec, http.StatusNoContent)
}

func (s *APIServerTestSuite) TestDeleteFromRemoteHostForbidden() {
	req := httptest.NewRequest(http.MethodDelete, "/api/v1/recipes/12", nil)
	req.Host = "flavorbuddy.example.com"
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)

	s.http.StatusCode(rec, http.StatusForbidden)
	s.Equal(errors.CodeForbidden, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestUnknownRoute() {
	rec := s.do(http.MethodGet, "/api/v1/nothing-here", "")

	s.http.StatusCode(rec, http.StatusNotFound)
	s.Equal(errors.CodeNotFound, s.errorCode(rec))
}

func (s *APIServerTestSuite) TestOperationalRoutes() {
	s.health.Register("always", healthcheck.NewCustomChecker("always",
		func(ctx context.Context) (healthcheck.Status, string, interface{}) {
			return healthcheck.StatusHealthy, "", nil
		}))

	for _, path := range []string{"/health", "/ready", "/live"} {
		rec := s.do(http.MethodGet, path, "")
		s.http.StatusCode(rec, http.StatusOK, path)
	}

	rec := s.do(http.MethodGet, "/metrics", "")
	s.http.StatusCode(rec, http.StatusOK)
	s.Contains(rec.Body.String(), "# TYPE")
}

func (s *APIServerTestSuite) TestOpenAPIDocument() {
	rec := s.do(http.MethodGet, "/api/v1/openapi.yaml", "")
	s.http.StatusCode(rec, http.StatusOK)
	s.Contains(rec.Body.String(), "FlavorBuddy API")
	s.Contains(rec.Body.String(), "/recipes/{id}/related:")

	rec = s.do(http.MethodGet, "/api/v1/docs", "")
	s.http.StatusCode(rec, http.StatusOK)
	s.Contains(rec.Body.String(), "swagger-ui-dist@"+swaggerUIVersion)

	rec = s.do(http.MethodGet, "/api/v1/openapi", "")
	var info map[string]string
	s.http.JSONResponse(rec, &info)
	s.Equal("http://example.com/api/v1/docs", info["docs_url"])
}

func TestValidationMessage(t *testing.T) {
	srv := &Server{validate: newValidator()}

	err := srv.check(&listRequest{PageSize: 500, DateRange: "decade"})
	appErr, ok := err.(*errors.AppError)
	if assert.True(t, ok) {
		details, _ := json.Marshal(appErr.Metadata["validation_errors"])
		assert.Contains(t, string(details), `"field":"page_size"`)
		assert.Contains(t, string(details), `"field":"date_range"`)
		assert.Contains(t, appErr.Details, "page_size must be at most 100")
	}

	assert.NoError(t, srv.check(&listRequest{Page: 1, SortBy: "newest"}))
}
