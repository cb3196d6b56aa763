package recipe

import (
	"strconv"
	"strings"
)

// DefaultPageSize is the number of cards per listing page.
const DefaultPageSize = 10

// FavoritesSignInMessage is shown when favorites are requested anonymously.
const FavoritesSignInMessage = "You must be signed in to view favorite recipes."

// SortBy orders search results.
type SortBy string

const (
	SortNewest     SortBy = "newest"
	SortMostLiked  SortBy = "most_liked"
	SortMostViewed SortBy = "most_viewed"
	SortLeastLiked SortBy = "least_liked"
)

// DateRange filters search results by creation time.
type DateRange string

const (
	DateRangeAll   DateRange = "all"
	DateRange24h   DateRange = "24h"
	DateRangeWeek  DateRange = "week"
	DateRangeMonth DateRange = "month"
	DateRangeYear  DateRange = "year"
)

// ParseSortBy falls back to SortNewest for unknown values.
func ParseSortBy(s string) SortBy {
	switch SortBy(strings.TrimSpace(s)) {
	case SortMostLiked:
		return SortMostLiked
	case SortMostViewed:
		return SortMostViewed
	case SortLeastLiked:
		return SortLeastLiked
	default:
		return SortNewest
	}
}

// ParseDateRange falls back to DateRangeAll for unknown values.
func ParseDateRange(s string) DateRange {
	switch DateRange(strings.TrimSpace(s)) {
	case DateRange24h:
		return DateRange24h
	case DateRangeWeek:
		return DateRangeWeek
	case DateRangeMonth:
		return DateRangeMonth
	case DateRangeYear:
		return DateRangeYear
	default:
		return DateRangeAll
	}
}

// ListMode selects between the public search listing and a user's favorites.
type ListMode string

const (
	ModeSearch    ListMode = "search"
	ModeFavorites ListMode = "favorites"
)

// ListQuery describes one listing page request.
type ListQuery struct {
	Mode      ListMode
	Page      int
	PageSize  int
	Query     string
	SortBy    SortBy
	DateRange DateRange
	UserID    string
}

// Normalized fills defaults and trims the free text fields.
func (q ListQuery) Normalized() ListQuery {
	if q.Mode != ModeFavorites {
		q.Mode = ModeSearch
	}
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 {
		q.PageSize = DefaultPageSize
	}
	q.Query = strings.TrimSpace(q.Query)
	q.SortBy = ParseSortBy(string(q.SortBy))
	q.DateRange = ParseDateRange(string(q.DateRange))
	q.UserID = strings.TrimSpace(q.UserID)
	return q
}

// Params are the backend query parameters for q. Sorting and date filters
// are never sent for favorites, and "all" is the backend default.
func (q ListQuery) Params() map[string]string {
	q = q.Normalized()
	params := map[string]string{
		"page":      strconv.Itoa(q.Page),
		"page_size": strconv.Itoa(q.PageSize),
	}
	if q.Query != "" {
		params["q"] = q.Query
	}
	if q.Mode == ModeSearch {
		params["sort_by"] = string(q.SortBy)
		if q.DateRange != DateRangeAll {
			params["date_range"] = string(q.DateRange)
		}
	}
	if q.UserID != "" {
		params["user_id"] = q.UserID
	}
	return params
}

// Pagination mirrors the backend's pagination block.
type Pagination struct {
	Page        int  `json:"page"`
	PageSize    int  `json:"page_size"`
	TotalItems  int  `json:"total_items"`
	TotalPages  int  `json:"total_pages"`
	HasNext     bool `json:"has_next"`
	HasPrevious bool `json:"has_previous"`
}

// EmptyPagination is the pagination of a page with no results.
func EmptyPagination(pageSize int) Pagination {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return Pagination{Page: 1, PageSize: pageSize}
}

// Normalized resets an empty result set that points past page one.
func (p Pagination) Normalized() Pagination {
	if p.TotalItems == 0 && p.Page != 1 {
		p.Page = 1
		p.HasPrevious = false
		p.HasNext = false
	}
	return p
}

// AfterRemoval returns the page to show after a card was removed from a page
// that is now empty.
func (p Pagination) AfterRemoval(remaining int) int {
	if remaining == 0 && p.HasPrevious && p.Page > 1 {
		return p.Page - 1
	}
	if p.Page < 1 {
		return 1
	}
	return p.Page
}

// Page is a normalized listing page.
type Page struct {
	Query      string             `json:"query"`
	Cards      []NormalizedRecipe `json:"results"`
	Pagination Pagination         `json:"pagination"`
	Message    string             `json:"message,omitempty"`
}

// Without returns a copy of the page without the card with the given id.
func (p Page) Without(id int64) Page {
	cards := make([]NormalizedRecipe, 0, len(p.Cards))
	for _, card := range p.Cards {
		if card.ID != id {
			cards = append(cards, card)
		}
	}
	p.Cards = cards
	return p
}
