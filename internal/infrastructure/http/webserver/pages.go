package webserver

import (
	stderrors "errors"
	"net/http"
	"strconv"
	"strings"

	apprecipe "github.com/flavorbuddy/web/internal/application/recipe"
	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/flavorbuddy/web/internal/infrastructure/http/middleware"
	"github.com/flavorbuddy/web/internal/ports/inbound"
	"github.com/flavorbuddy/web/pkg/errors"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Navigation entries.
const (
	navRecipe    = "recipe"
	navConvert   = "convert"
	navSearch    = "search"
	navFavorites = "favorites"
)

// PageData is handed to every page template.
type PageData struct {
	Title      string
	Active     string
	LiveReload string
	Error      string
	CanDelete  bool

	// Recipe and convert pages
	URL       string
	View      *inbound.RecipeView
	Related   []recipe.NormalizedRecipe
	SourceURL string
	RawText   string

	// Listings
	Listing *ListingData
}

// ListingData is the search or favorites result block.
type ListingData struct {
	Query     recipe.ListQuery
	Page      recipe.Page
	Error     string
	CanDelete bool
}

// SortOption is one entry of a filter select.
type SortOption struct {
	Value    string
	Label    string
	Selected bool
}

// SortOptions lists the sort choices with the current one selected.
func (l *ListingData) SortOptions() []SortOption {
	return options(string(l.Query.SortBy), [][2]string{
		{string(recipe.SortNewest), "Newest"},
		{string(recipe.SortMostLiked), "Most liked"},
		{string(recipe.SortMostViewed), "Most viewed"},
		{string(recipe.SortLeastLiked), "Least liked"},
	})
}

// DateOptions lists the date range choices with the current one selected.
func (l *ListingData) DateOptions() []SortOption {
	return options(string(l.Query.DateRange), [][2]string{
		{string(recipe.DateRangeAll), "All time"},
		{string(recipe.DateRange24h), "Last 24 hours"},
		{string(recipe.DateRangeWeek), "Last week"},
		{string(recipe.DateRangeMonth), "Last month"},
		{string(recipe.DateRangeYear), "Last year"},
	})
}

// Favorites reports whether this is the favorites listing.
func (l *ListingData) Favorites() bool {
	return l.Query.Mode == recipe.ModeFavorites
}

func options(current string, entries [][2]string) []SortOption {
	opts := make([]SortOption, 0, len(entries))
	for _, e := range entries {
		opts = append(opts, SortOption{Value: e[0], Label: e[1], Selected: e[0] == current})
	}
	return opts
}

func (s *WebServer) newPageData(r *http.Request, title, active string) *PageData {
	return &PageData{
		Title:      title,
		Active:     active,
		LiveReload: s.liveReloadScript,
		CanDelete:  apprecipe.IsLocalHost(r.Host),
	}
}

// handleRecipePage serves / and /recipe. ?id= shows a stored recipe and its
// related recipes, ?url= scrapes a page, otherwise only the form is shown.
func (s *WebServer) handleRecipePage(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "FlavorBuddy", navRecipe)
	query := r.URL.Query()
	userID := UserIDFromContext(r.Context())

	switch {
	case query.Get("id") != "":
		id, err := recipe.ParseRecipeID(query.Get("id"))
		if err != nil {
			data.Error = recipe.LoadErrorMessage(err.Error())
			s.templates.page(w, http.StatusBadRequest, "recipe", data)
			return
		}

		view, err := s.service.GetRecipe(r.Context(), id, userID)
		if err != nil {
			s.renderLoadError(w, data, err)
			return
		}
		data.View = view
		data.Title = view.Recipe.Title + " | FlavorBuddy"

		related, err := s.service.RelatedRecipes(r.Context(), id, userID)
		if err != nil {
			s.logger.Warn("Related recipes unavailable", zap.Int64("recipe_id", id), zap.Error(err))
		}
		data.Related = related

	case strings.TrimSpace(query.Get("url")) != "":
		data.URL = strings.TrimSpace(query.Get("url"))
		view, err := s.service.ParseURL(r.Context(), data.URL)
		if err != nil {
			s.renderLoadError(w, data, err)
			return
		}
		data.View = view
		data.Title = view.Recipe.Title + " | FlavorBuddy"
	}

	s.templates.page(w, http.StatusOK, "recipe", data)
}

func (s *WebServer) renderLoadError(w http.ResponseWriter, data *PageData, err error) {
	appErr := errors.Wrap(err, "")
	if appErr.StatusCode() >= 500 {
		s.logger.Error("Failed to load recipe", zap.Error(err))
	}
	data.Error = recipe.LoadErrorMessage(errors.ReasonOf(err))
	s.templates.page(w, appErr.StatusCode(), "recipe", data)
}

func (s *WebServer) handleConvertForm(w http.ResponseWriter, r *http.Request) {
	s.templates.page(w, http.StatusOK, "convert", s.newPageData(r, "Convert Text | FlavorBuddy", navConvert))
}

func (s *WebServer) handleConvert(w http.ResponseWriter, r *http.Request) {
	data := s.newPageData(r, "Convert Text | FlavorBuddy", navConvert)

	if err := r.ParseForm(); err != nil {
		data.Error = "We couldn't read that form. Please try again."
		s.templates.page(w, http.StatusBadRequest, "convert", data)
		return
	}

	cmd := inbound.ConvertCommand{
		SourceURL: strings.TrimSpace(r.PostForm.Get("sourceUrl")),
		RawText:   strings.TrimSpace(r.PostForm.Get("rawText")),
	}
	data.SourceURL = cmd.SourceURL
	data.RawText = r.PostForm.Get("rawText")

	if err := s.validate.Struct(cmd); err != nil {
		data.Error = convertValidationMessage(err)
		s.templates.page(w, http.StatusBadRequest, "convert", data)
		return
	}

	view, err := s.service.Convert(r.Context(), cmd)
	if err != nil {
		appErr := errors.Wrap(err, "")
		if appErr.StatusCode() >= 500 {
			s.logger.Error("Failed to convert recipe", zap.Error(err))
		}
		data.Error = recipe.ConvertErrorMessage(errors.ReasonOf(err))
		s.templates.page(w, appErr.StatusCode(), "convert", data)
		return
	}

	data.View = view
	data.Title = view.Recipe.Title + " | FlavorBuddy"
	s.templates.page(w, http.StatusOK, "convert", data)
}

func convertValidationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if stderrors.As(err, &fieldErrs) {
		for _, fe := range fieldErrs {
			if fe.Field() == "SourceURL" {
				return "The source URL doesn't look like a link. Please check it and try again."
			}
		}
	}
	return "Please paste the recipe text you want to convert."
}

func (s *WebServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, recipe.ModeSearch)
}

func (s *WebServer) handleFavorites(w http.ResponseWriter, r *http.Request) {
	s.handleListing(w, r, recipe.ModeFavorites)
}

func (s *WebServer) handleListing(w http.ResponseWriter, r *http.Request, mode recipe.ListMode) {
	query := listQueryFromRequest(r, mode)
	listing := s.loadListing(r, query)

	if middleware.IsHTMX(r) && r.Header.Get("HX-Target") == "results" {
		s.templates.fragment(w, http.StatusOK, "results", listing)
		return
	}

	title, active := "Search | FlavorBuddy", navSearch
	if mode == recipe.ModeFavorites {
		title, active = "Favorites | FlavorBuddy", navFavorites
	}
	data := s.newPageData(r, title, active)
	data.Listing = listing
	s.templates.page(w, http.StatusOK, "listing", data)
}

// loadListing fetches one listing page. Failures become the listing's error
// message so the filters stay usable.
func (s *WebServer) loadListing(r *http.Request, query recipe.ListQuery) *ListingData {
	listing := &ListingData{
		Query:     query.Normalized(),
		CanDelete: apprecipe.IsLocalHost(r.Host),
	}

	page, err := s.service.ListRecipes(r.Context(), query)
	if err != nil {
		s.logger.Warn("Failed to load recipes", zap.String("mode", string(query.Mode)), zap.Error(err))
		listing.Error = recipe.ListErrorMessage(errors.ReasonOf(err))
		listing.Page = recipe.Page{
			Query:      listing.Query.Query,
			Cards:      []recipe.NormalizedRecipe{},
			Pagination: recipe.EmptyPagination(listing.Query.PageSize),
		}
		return listing
	}

	listing.Page = *page
	listing.Query.Page = page.Pagination.Page
	return listing
}

func listQueryFromRequest(r *http.Request, mode recipe.ListMode) recipe.ListQuery {
	values := r.URL.Query()
	page, _ := strconv.Atoi(values.Get("page"))

	return recipe.ListQuery{
		Mode:      mode,
		Page:      page,
		Query:     values.Get("q"),
		SortBy:    recipe.SortBy(values.Get("sort_by")),
		DateRange: recipe.DateRange(values.Get("date_range")),
		UserID:    UserIDFromContext(r.Context()),
	}
}

// Actions is the action bar state for one listing card.
func (l *ListingData) Actions(card recipe.NormalizedRecipe) ActionsData {
	view := viewCard
	if l.Favorites() {
		view = viewFavorites
	}
	return ActionsData{
		Recipe:    card,
		View:      view,
		ReturnTo:  listingURL(l.Query, l.Query.Page),
		CanDelete: l.CanDelete,
	}
}

// ViewerActions is the action bar state for the displayed recipe.
func (p *PageData) ViewerActions() ActionsData {
	return ActionsData{
		Recipe:    p.View.Recipe,
		View:      viewViewer,
		ReturnTo:  p.View.Recipe.Link(),
		CanDelete: p.CanDelete,
	}
}
