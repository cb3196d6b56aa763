package apiserver

import (
	stderrors "errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// userCookieName matches the cookie the SSR pages issue
const userCookieName = "flavorbuddy_user_id"

// maxNormalizeBody caps POST /normalize payloads
const maxNormalizeBody = 1 << 20

type listRequest struct {
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"page_size" validate:"omitempty,min=1,max=100"`
	Query     string `form:"q" validate:"max=200"`
	SortBy    string `form:"sort_by" validate:"omitempty,oneof=newest most_liked most_viewed least_liked"`
	DateRange string `form:"date_range" validate:"omitempty,oneof=all 24h week month year"`
	UserID    string `form:"user_id"`
}

type parseRequest struct {
	URL string `form:"url" validate:"required,url"`
}

type normalizeRequest struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=10000"`
}

type interactionRequest struct {
	UserID string `json:"user_id"`
}

type relatedResponse struct {
	Results []recipe.NormalizedRecipe `json:"results"`
}

// normalize handles POST /api/v1/normalize
func (s *Server) normalize(c *gin.Context) {
	var req normalizeRequest
	if err := s.bindQuery(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxNormalizeBody))
	if err != nil {
		_ = c.Error(errors.NewBadRequestError("could not read request body"))
		return
	}
	raw, err := recipe.ParseRawRecipe(body)
	if err != nil {
		_ = c.Error(errors.NewValidationError("body must be a JSON object").WithCause(err))
		return
	}

	c.JSON(http.StatusOK, s.service.Normalize(raw, req.Limit))
}

// parseRecipeURL handles GET /api/v1/recipe?url=
func (s *Server) parseRecipeURL(c *gin.Context) {
	var req parseRequest
	if err := s.bindQuery(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	view, err := s.service.ParseURL(c.Request.Context(), req.URL)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// convert handles POST /api/v1/convert
func (s *Server) convert(c *gin.Context) {
	var cmd inbound.ConvertCommand
	if err := c.ShouldBindJSON(&cmd); err != nil {
		_ = c.Error(errors.NewBadRequestError("invalid JSON body").WithCause(err))
		return
	}
	if err := s.check(cmd); err != nil {
		_ = c.Error(err)
		return
	}

	view, err := s.service.Convert(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) listRecipes(c *gin.Context) {
	s.list(c, recipe.ModeSearch)
}

func (s *Server) listFavorites(c *gin.Context) {
	s.list(c, recipe.ModeFavorites)
}

func (s *Server) list(c *gin.Context, mode recipe.ListMode) {
	var req listRequest
	if err := s.bindQuery(c, &req); err != nil {
		_ = c.Error(err)
		return
	}

	page, err := s.service.ListRecipes(c.Request.Context(), recipe.ListQuery{
		Mode:      mode,
		Page:      req.Page,
		PageSize:  req.PageSize,
		Query:     req.Query,
		SortBy:    recipe.ParseSortBy(req.SortBy),
		DateRange: recipe.ParseDateRange(req.DateRange),
		UserID:    userID(c, req.UserID),
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// getRecipe handles GET /api/v1/recipes/:id
func (s *Server) getRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	view, err := s.service.GetRecipe(c.Request.Context(), id, userID(c, c.Query("user_id")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// relatedRecipes handles GET /api/v1/recipes/:id/related
func (s *Server) relatedRecipes(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	cards, err := s.service.RelatedRecipes(c.Request.Context(), id, userID(c, c.Query("user_id")))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, relatedResponse{Results: cards})
}

func (s *Server) vote(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		cmd, ok := interactionCommand(c, action)
		if !ok {
			return
		}

		result, err := s.service.Vote(c.Request.Context(), cmd)
		if err != nil {
			_ = c.Error(err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) favorite(c *gin.Context) {
	cmd, ok := interactionCommand(c, inbound.ActionFavorite)
	if !ok {
		return
	}

	result, err := s.service.Favorite(c.Request.Context(), cmd)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// deleteRecipe handles DELETE /api/v1/recipes/:id
func (s *Server) deleteRecipe(c *gin.Context) {
	id, ok := recipeID(c)
	if !ok {
		return
	}

	err := s.service.Delete(c.Request.Context(), inbound.DeleteCommand{
		RecipeID:    id,
		RequestHost: c.Request.Host,
	})
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) bindQuery(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindQuery(dst); err != nil {
		return errors.NewBadRequestError("invalid query parameters").WithCause(err)
	}
	return s.check(dst)
}

// check runs struct validation and converts failures into a validation AppError
func (s *Server) check(v interface{}) error {
	err := s.validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !stderrors.As(err, &fieldErrs) {
		return errors.NewValidationError(err.Error())
	}

	details := make([]errors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		details = append(details, errors.ValidationError{
			Field:   fe.Field(),
			Value:   fe.Value(),
			Tag:     fe.Tag(),
			Message: validationMessage(fe),
		})
	}
	return errors.NewValidationErrors(details)
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	case "oneof":
		return field + " must be one of: " + fe.Param()
	case "min":
		return field + " must be at least " + fe.Param()
	case "max":
		return field + " must be at most " + fe.Param()
	default:
		return field + " is invalid"
	}
}

// newValidator reports fields by their wire names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"json", "form"} {
			name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
			if name != "" && name != "-" {
				return name
			}
		}
		return f.Name
	})
	return v
}

func recipeID(c *gin.Context) (int64, bool) {
	id, err := recipe.ParseRecipeID(c.Param("id"))
	if err != nil {
		_ = c.Error(errors.NewBadRequestError(err.Error()).WithMetadata("id", c.Param("id")))
		return 0, false
	}
	return id, true
}

func interactionCommand(c *gin.Context, action string) (inbound.InteractionCommand, bool) {
	id, ok := recipeID(c)
	if !ok {
		return inbound.InteractionCommand{}, false
	}

	var body interactionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			_ = c.Error(errors.NewBadRequestError("invalid JSON body").WithCause(err))
			return inbound.InteractionCommand{}, false
		}
	}

	return inbound.InteractionCommand{
		RecipeID: id,
		UserID:   userID(c, firstNonEmpty(body.UserID, c.Query("user_id"))),
		Action:   action,
	}, true
}

// userID prefers an explicit id and falls back to the SSR cookie
func userID(c *gin.Context, explicit string) string {
	if id := strings.TrimSpace(explicit); id != "" {
		return id
	}
	if cookie, err := c.Cookie(userCookieName); err == nil {
		return cookie
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

