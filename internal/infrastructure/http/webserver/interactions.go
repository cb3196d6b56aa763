package webserver

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Where an action bar is rendered.
const (
	viewViewer    = "viewer"
	viewCard      = "card"
	viewFavorites = "favorites"
)

// ActionsData feeds the recipe-actions fragment.
type ActionsData struct {
	Recipe    recipe.NormalizedRecipe
	View      string
	ReturnTo  string
	CanDelete bool
}

// flashData feeds the flash fragment.
type flashData struct {
	Message string
}

func (s *WebServer) handleVote(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, form, ok := s.interactionRequest(w, r)
		if !ok {
			return
		}

		result, err := s.service.Vote(r.Context(), inbound.InteractionCommand{
			RecipeID: id,
			UserID:   UserIDFromContext(r.Context()),
			Action:   action,
		})
		if err != nil {
			s.interactionError(w, r, err)
			return
		}

		s.renderActions(w, r, form, recipeFromForm(id, form).WithVote(*result))
	}
}

func (s *WebServer) handleFavorite(w http.ResponseWriter, r *http.Request) {
	id, form, ok := s.interactionRequest(w, r)
	if !ok {
		return
	}

	result, err := s.service.Favorite(r.Context(), inbound.InteractionCommand{
		RecipeID: id,
		UserID:   UserIDFromContext(r.Context()),
		Action:   inbound.ActionFavorite,
	})
	if err != nil {
		s.interactionError(w, r, err)
		return
	}

	if form.Get("view") == viewFavorites && !result.UserFavorited {
		s.refreshListing(w, r, form)
		return
	}

	s.renderActions(w, r, form, recipeFromForm(id, form).WithFavorite(*result))
}

func (s *WebServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, form, ok := s.interactionRequest(w, r)
	if !ok {
		return
	}

	err := s.service.Delete(r.Context(), inbound.DeleteCommand{RecipeID: id, RequestHost: r.Host})
	if err != nil {
		s.interactionError(w, r, err)
		return
	}

	if form.Get("view") == viewViewer {
		if middleware.IsHTMX(r) {
			w.Header().Set("HX-Redirect", "/")
			w.WriteHeader(http.StatusOK)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	s.refreshListing(w, r, form)
}

// interactionRequest parses the recipe id and the posted card state.
func (s *WebServer) interactionRequest(w http.ResponseWriter, r *http.Request) (int64, url.Values, bool) {
	id, err := recipe.ParseRecipeID(chi.URLParam(r, "id"))
	if err != nil {
		s.interactionError(w, r, errors.NewBadRequestError(err.Error()))
		return 0, nil, false
	}
	if err := r.ParseForm(); err != nil {
		s.interactionError(w, r, errors.NewBadRequestError("malformed form"))
		return 0, nil, false
	}
	return id, r.PostForm, true
}

func (s *WebServer) renderActions(w http.ResponseWriter, r *http.Request, form url.Values, updated recipe.NormalizedRecipe) {
	returnTo := safeReturnTo(form.Get("return_to"))
	if !middleware.IsHTMX(r) {
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return
	}

	view := form.Get("view")
	if view == "" {
		view = viewCard
	}
	s.templates.fragment(w, http.StatusOK, "recipe-actions", ActionsData{
		Recipe:    updated,
		View:      view,
		ReturnTo:  returnTo,
		CanDelete: form.Get("can_delete") == "true",
	})
}

// refreshListing re-fetches the listing a card was removed from, stepping
// back a page when the current one became empty.
func (s *WebServer) refreshListing(w http.ResponseWriter, r *http.Request, form url.Values) {
	returnTo := safeReturnTo(form.Get("return_to"))
	if !middleware.IsHTMX(r) {
		http.Redirect(w, r, returnTo, http.StatusSeeOther)
		return
	}

	query := listQueryFromReturnTo(returnTo, UserIDFromContext(r.Context()))
	listing := s.loadListing(r, query)
	if len(listing.Page.Cards) == 0 && listing.Error == "" {
		if previous := listing.Page.Pagination.AfterRemoval(0); previous != listing.Page.Pagination.Page {
			query.Page = previous
			listing = s.loadListing(r, query)
		}
	}

	w.Header().Set("HX-Retarget", "#results")
	w.Header().Set("HX-Reswap", "outerHTML")
	s.templates.fragment(w, http.StatusOK, "results", listing)
}

// interactionError reports a failed action. htmx requests get the message in
// the page's flash area so the card stays as it was.
func (s *WebServer) interactionError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := errors.Wrap(err, "")
	message := interactionMessage(appErr)

	if appErr.StatusCode() >= 500 {
		s.logger.Error("Recipe interaction failed", zap.String("path", r.URL.Path), zap.Error(err))
	}

	if middleware.IsHTMX(r) {
		w.Header().Set("HX-Retarget", "#flash")
		w.Header().Set("HX-Reswap", "innerHTML")
		s.templates.fragment(w, http.StatusOK, "flash", flashData{Message: message})
		return
	}
	http.Error(w, message, appErr.StatusCode())
}

func interactionMessage(err *errors.AppError) string {
	switch err.Code {
	case errors.CodeConflict:
		return "Another action is already in progress for this recipe."
	case errors.CodeForbidden:
		return "Recipes can only be deleted from localhost."
	case errors.CodeBadRequest, errors.CodeValidationFailed:
		return "That request wasn't valid. Please reload the page and try again."
	}
	if reason := errors.ReasonOf(err); reason != "" && err.Code != errors.CodeInternal {
		return "We couldn't update that recipe. Details: " + reason
	}
	return "We couldn't update that recipe. Please try again."
}

// recipeFromForm rebuilds the card state the client posted with the action.
func recipeFromForm(id int64, form url.Values) recipe.NormalizedRecipe {
	return recipe.NormalizedRecipe{
		ID:            id,
		Likes:         recipe.CoerceNonNegativeInt(form.Get("likes")),
		Dislikes:      recipe.CoerceNonNegativeInt(form.Get("dislikes")),
		UserLiked:     form.Get("liked") == "true",
		UserDisliked:  form.Get("disliked") == "true",
		UserFavorited: form.Get("favorited") == "true",
	}
}

func listQueryFromReturnTo(returnTo, userID string) recipe.ListQuery {
	u, err := url.Parse(returnTo)
	if err != nil {
		return recipe.ListQuery{Mode: recipe.ModeSearch, UserID: userID}
	}

	mode := recipe.ModeSearch
	if u.Path == "/favorites" {
		mode = recipe.ModeFavorites
	}

	values := u.Query()
	page, _ := strconv.Atoi(values.Get("page"))
	return recipe.ListQuery{
		Mode:      mode,
		Page:      page,
		Query:     values.Get("q"),
		SortBy:    recipe.SortBy(values.Get("sort_by")),
		DateRange: recipe.DateRange(values.Get("date_range")),
		UserID:    userID,
	}
}

// safeReturnTo only allows local paths.
func safeReturnTo(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	return target
}
