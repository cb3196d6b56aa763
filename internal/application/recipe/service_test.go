package recipe_test

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	apprecipe "github.com/flavorbuddy/web/internal/application/recipe"
	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/internal/ports/outbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/flavorbuddy/web/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type RecipeServiceTestSuite struct {
	suite.Suite
	backend *testutils.MockRecipeBackend
	cache   *testutils.MemoryCache
	metrics *testutils.RecordingMetrics
	service inbound.RecipeService
	factory *testutils.RawRecipeFactory
	ctx     context.Context
}

func (suite *RecipeServiceTestSuite) SetupTest() {
	suite.backend = testutils.NewMockRecipeBackend()
	suite.cache = testutils.NewMemoryCache()
	suite.metrics = testutils.NewRecordingMetrics()
	suite.factory = testutils.NewRawRecipeFactory(1)
	suite.ctx = context.Background()
	suite.service = apprecipe.NewRecipeService(apprecipe.DefaultConfig(), suite.backend, suite.cache, suite.metrics, zap.NewNop())
}

func (suite *RecipeServiceTestSuite) TearDownTest() {
	suite.backend.AssertExpectations(suite.T())
}

func (suite *RecipeServiceTestSuite) TestParseURLUsesCache() {
	url := "https://example.com/pie"
	raw := recipe.RawRecipe{"title": "Pie", "source_url": "", "description": strings.Repeat("d", 150)}
	suite.backend.On("ParseRecipeURL", mock.Anything, url).Return(raw, nil).Once()

	first, err := suite.service.ParseURL(suite.ctx, "  "+url+" ")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Pie", first.Recipe.Title)
	assert.Equal(suite.T(), url, first.SourceURL)
	assert.Equal(suite.T(), strings.Repeat("d", 100)+recipe.Ellipsis, first.Recipe.Description)

	second, err := suite.service.ParseURL(suite.ctx, url)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), first, second)

	assert.Equal(suite.T(), 1, suite.metrics.Cache["get/miss"])
	assert.Equal(suite.T(), 1, suite.metrics.Cache["get/hit"])
	assert.Equal(suite.T(), 1, suite.metrics.Cache["set/ok"])
	assert.Equal(suite.T(), 2, suite.metrics.Sources[recipe.SourceDescription])
}

func (suite *RecipeServiceTestSuite) TestParseURLCorruptCacheEntry() {
	url := "https://example.com/soup"
	require.NoError(suite.T(), suite.cache.Set(suite.ctx, "recipe:url:"+url, []byte("{not json"), 0))
	suite.backend.On("ParseRecipeURL", mock.Anything, url).Return(recipe.RawRecipe{"title": "Soup"}, nil).Once()

	view, err := suite.service.ParseURL(suite.ctx, url)
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Soup", view.Recipe.Title)
	assert.Equal(suite.T(), 1, suite.metrics.Cache["get/corrupt"])

	cached, err := suite.cache.Get(suite.ctx, "recipe:url:"+url)
	require.NoError(suite.T(), err)
	assert.True(suite.T(), json.Valid(cached))
}

func (suite *RecipeServiceTestSuite) TestParseURLRequiresURL() {
	_, err := suite.service.ParseURL(suite.ctx, "   ")
	assert.True(suite.T(), errors.Is(err, errors.CodeValidationFailed))
}

func (suite *RecipeServiceTestSuite) TestParseURLBackendFailure() {
	suite.backend.On("ParseRecipeURL", mock.Anything, "https://x.test").
		Return(nil, errors.NewBackendError(422, "Website not supported")).Once()

	_, err := suite.service.ParseURL(suite.ctx, "https://x.test")
	require.Error(suite.T(), err)
	assert.Equal(suite.T(), "Website not supported", errors.ReasonOf(err))

	_, missErr := suite.cache.Get(suite.ctx, "recipe:url:https://x.test")
	assert.ErrorIs(suite.T(), missErr, outbound.ErrCacheMiss)
}

func (suite *RecipeServiceTestSuite) TestGetRecipeFillsID() {
	suite.backend.On("GetRecipeByID", mock.Anything, int64(12), "user_1_x").
		Return(recipe.RawRecipe{"title": "Stew", "source_url": "https://stew.test"}, nil).Once()

	view, err := suite.service.GetRecipe(suite.ctx, 12, "user_1_x")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(12), view.Recipe.ID)
	assert.Equal(suite.T(), "https://stew.test", view.SourceURL)
}

func (suite *RecipeServiceTestSuite) TestGetRecipeRejectsBadID() {
	_, err := suite.service.GetRecipe(suite.ctx, 0, "")
	assert.True(suite.T(), errors.Is(err, errors.CodeBadRequest))
}

func (suite *RecipeServiceTestSuite) TestRelatedRecipes() {
	related := []recipe.RawRecipe{suite.factory.Complete(), {"title": 5.0}}
	suite.backend.On("GetRelatedRecipes", mock.Anything, int64(3), 10, "u").Return(related, nil).Once()

	cards, err := suite.service.RelatedRecipes(suite.ctx, 3, "u")
	require.NoError(suite.T(), err)
	require.Len(suite.T(), cards, 2)
	assert.Equal(suite.T(), recipe.UntitledRecipe, cards[1].Title)
}

func (suite *RecipeServiceTestSuite) TestListRecipes() {
	suite.backend.On("ListRecipes", mock.Anything, mock.MatchedBy(func(q recipe.ListQuery) bool {
		return q.Page == 1 && q.PageSize == recipe.DefaultPageSize && q.Query == "pie" && q.SortBy == recipe.SortNewest
	})).Return(&outbound.RecipeList{
		Query:      "pie",
		Results:    []recipe.RawRecipe{{"id": 1.0, "title": "Apple"}, {"id": 2.0, "description": strings.Repeat("z", 200)}},
		Pagination: recipe.Pagination{Page: 1, PageSize: 10, TotalItems: 2, TotalPages: 1},
	}, nil).Once()

	page, err := suite.service.ListRecipes(suite.ctx, recipe.ListQuery{Query: " pie "})
	require.NoError(suite.T(), err)
	require.Len(suite.T(), page.Cards, 2)
	assert.Equal(suite.T(), "Apple", page.Cards[0].Title)
	assert.Equal(suite.T(), recipe.ListDescriptionLimit+len(recipe.Ellipsis), len(page.Cards[1].Description))
	assert.Equal(suite.T(), 2, page.Pagination.TotalItems)
}

func (suite *RecipeServiceTestSuite) TestListRecipesResetsEmptyPagination() {
	suite.backend.On("ListRecipes", mock.Anything, mock.Anything).Return(&outbound.RecipeList{
		Pagination: recipe.Pagination{Page: 3, PageSize: 10, HasPrevious: true},
	}, nil).Once()

	page, err := suite.service.ListRecipes(suite.ctx, recipe.ListQuery{Page: 3})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, page.Pagination.Page)
	assert.False(suite.T(), page.Pagination.HasPrevious)
	assert.Empty(suite.T(), page.Cards)
}

func (suite *RecipeServiceTestSuite) TestAnonymousFavorites() {
	page, err := suite.service.ListRecipes(suite.ctx, recipe.ListQuery{Mode: recipe.ModeFavorites})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), recipe.FavoritesSignInMessage, page.Message)
	assert.Empty(suite.T(), page.Cards)
	suite.backend.AssertNotCalled(suite.T(), "ListRecipes", mock.Anything, mock.Anything)
}

func (suite *RecipeServiceTestSuite) TestConvert() {
	suite.backend.On("ConvertRawRecipe", mock.Anything, outbound.ConvertRequest{SourceURL: "https://blog.test", RawText: "2 eggs\nwhisk"}).
		Return(recipe.RawRecipe{"ingredients": []interface{}{"2 eggs"}, "instructions": "whisk", "type": "user_input"}, nil).Once()

	view, err := suite.service.Convert(suite.ctx, inbound.ConvertCommand{SourceURL: " https://blog.test ", RawText: " 2 eggs\nwhisk "})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "User Input", view.Recipe.TypeLabel)
	assert.Equal(suite.T(), "https://blog.test", view.SourceURL)
	assert.Equal(suite.T(), "whisk", view.Recipe.Description)
}

func (suite *RecipeServiceTestSuite) TestConvertRequiresText() {
	_, err := suite.service.Convert(suite.ctx, inbound.ConvertCommand{RawText: "\n "})
	assert.True(suite.T(), errors.Is(err, errors.CodeValidationFailed))
}

func (suite *RecipeServiceTestSuite) TestVote() {
	result := recipe.VoteResult{Action: "like", RecipeID: 4, Likes: 8, UserLiked: true}
	suite.backend.On("LikeRecipe", mock.Anything, int64(4), "u").Return(result, nil).Once()
	suite.backend.On("DislikeRecipe", mock.Anything, int64(4), "u").Return(recipe.VoteResult{Action: "dislike", RecipeID: 4, Dislikes: 1, UserDisliked: true}, nil).Once()

	liked, err := suite.service.Vote(suite.ctx, inbound.InteractionCommand{RecipeID: 4, UserID: "u", Action: inbound.ActionLike})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), result, *liked)

	disliked, err := suite.service.Vote(suite.ctx, inbound.InteractionCommand{RecipeID: 4, UserID: "u", Action: inbound.ActionDislike})
	require.NoError(suite.T(), err)
	assert.True(suite.T(), disliked.UserDisliked)
}

func (suite *RecipeServiceTestSuite) TestVoteValidation() {
	tests := []struct {
		name string
		cmd  inbound.InteractionCommand
	}{
		{"missing id", inbound.InteractionCommand{UserID: "u", Action: inbound.ActionLike}},
		{"missing user", inbound.InteractionCommand{RecipeID: 1, UserID: " ", Action: inbound.ActionLike}},
		{"unknown action", inbound.InteractionCommand{RecipeID: 1, UserID: "u", Action: "shrug"}},
	}

	for _, tt := range tests {
		suite.Run(tt.name, func() {
			_, err := suite.service.Vote(suite.ctx, tt.cmd)
			assert.True(suite.T(), errors.Is(err, errors.CodeBadRequest))
		})
	}
}

func (suite *RecipeServiceTestSuite) TestInteractionInFlight() {
	started := make(chan struct{})
	unblock := make(chan struct{})

	suite.backend.On("FavoriteRecipe", mock.Anything, int64(9), "u").
		Run(func(mock.Arguments) {
			close(started)
			<-unblock
		}).
		Return(recipe.FavoriteResult{Action: "favorite", RecipeID: 9, UserFavorited: true}, nil).Once()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := suite.service.Favorite(suite.ctx, inbound.InteractionCommand{RecipeID: 9, UserID: "u", Action: inbound.ActionFavorite})
		assert.NoError(suite.T(), err)
		assert.True(suite.T(), result.UserFavorited)
	}()

	<-started
	_, err := suite.service.Favorite(suite.ctx, inbound.InteractionCommand{RecipeID: 9, UserID: "u", Action: inbound.ActionFavorite})
	assert.True(suite.T(), errors.Is(err, errors.CodeConflict))

	_, err = suite.service.Vote(suite.ctx, inbound.InteractionCommand{RecipeID: 9, UserID: "u", Action: inbound.ActionLike})
	assert.True(suite.T(), errors.Is(err, errors.CodeConflict))

	close(unblock)
	wg.Wait()
}

func (suite *RecipeServiceTestSuite) TestDeleteOnlyFromLoopback() {
	suite.backend.On("DeleteRecipe", mock.Anything, int64(5)).Return(nil).Twice()

	assert.NoError(suite.T(), suite.service.Delete(suite.ctx, inbound.DeleteCommand{RecipeID: 5, RequestHost: "localhost:4000"}))
	assert.NoError(suite.T(), suite.service.Delete(suite.ctx, inbound.DeleteCommand{RecipeID: 5, RequestHost: "[::1]:4000"}))

	err := suite.service.Delete(suite.ctx, inbound.DeleteCommand{RecipeID: 5, RequestHost: "flavorbuddy.app"})
	assert.True(suite.T(), errors.Is(err, errors.CodeForbidden))

	err = suite.service.Delete(suite.ctx, inbound.DeleteCommand{RecipeID: -1, RequestHost: "localhost"})
	assert.True(suite.T(), errors.Is(err, errors.CodeBadRequest))
}

func (suite *RecipeServiceTestSuite) TestNormalizeLimit() {
	raw := recipe.RawRecipe{"description": strings.Repeat("q", 150)}

	assert.Len(suite.T(), suite.service.Normalize(raw, 0).Description, 150)
	assert.Equal(suite.T(), strings.Repeat("q", 20)+recipe.Ellipsis, suite.service.Normalize(raw, 20).Description)
}

func TestRecipeServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RecipeServiceTestSuite))
}

func TestServiceWithoutCache(t *testing.T) {
	backend := testutils.NewMockRecipeBackend()
	backend.On("ParseRecipeURL", mock.Anything, "https://a.test").Return(recipe.RawRecipe{}, nil).Twice()

	service := apprecipe.NewRecipeService(apprecipe.Config{}, backend, nil, nil, zap.NewNop())
	for i := 0; i < 2; i++ {
		view, err := service.ParseURL(context.Background(), "https://a.test")
		require.NoError(t, err)
		assert.Equal(t, recipe.UntitledRecipe, view.Recipe.Title)
	}
	backend.AssertExpectations(t)
}

func TestIsLocalHost(t *testing.T) {
	for _, host := range []string{"localhost", "LOCALHOST:80", "127.0.0.1", "127.0.0.1:4000", "::1", "[::1]:4000"} {
		assert.True(t, apprecipe.IsLocalHost(host), host)
	}
	for _, host := range []string{"", "example.com", "10.0.0.1", "localhost.example.com"} {
		assert.False(t, apprecipe.IsLocalHost(host), host)
	}
}
