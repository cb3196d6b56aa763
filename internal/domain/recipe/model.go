package recipe

// NormalizedRecipe is the display model built from a RawRecipe.
//
// Values are treated as immutable: nothing mutates a NormalizedRecipe after
// Normalize returns it, and the With* methods return updated copies.
type NormalizedRecipe struct {
	ID            int64    `json:"id,omitempty"`
	Title         string   `json:"title"`
	ImageURL      string   `json:"imageUrl,omitempty"`
	Description   string   `json:"description"`
	Ingredients   []string `json:"ingredients"`
	Instructions  []string `json:"instructions"`
	Views         int      `json:"views"`
	Likes         int      `json:"likes"`
	Dislikes      int      `json:"dislikes"`
	UserLiked     bool     `json:"userLiked"`
	UserDisliked  bool     `json:"userDisliked"`
	UserFavorited bool     `json:"userFavorited"`
	TypeLabel     string   `json:"typeLabel"`

	SourceURL    string `json:"sourceUrl,omitempty"`
	Yields       string `json:"yields,omitempty"`
	Author       string `json:"author,omitempty"`
	TotalMinutes int    `json:"totalMinutes,omitempty"`
}

// HasID reports whether the backend assigned the recipe an id.
func (r NormalizedRecipe) HasID() bool {
	return r.ID > 0
}

// HasImage reports whether an image URL was resolved.
func (r NormalizedRecipe) HasImage() bool {
	return r.ImageURL != ""
}

// TotalScore is likes minus dislikes.
func (r NormalizedRecipe) TotalScore() int {
	return r.Likes - r.Dislikes
}

// VoteResult is the server-confirmed state after a like or dislike.
type VoteResult struct {
	Action        string `json:"action"`
	RecipeID      int64  `json:"recipe_id"`
	Likes         int    `json:"likes"`
	Dislikes      int    `json:"dislikes"`
	UserLiked     bool   `json:"user_liked"`
	UserDisliked  bool   `json:"user_disliked"`
	UserFavorited bool   `json:"user_favorited"`
}

// FavoriteResult is the server-confirmed state after a favorite toggle.
type FavoriteResult struct {
	Action        string `json:"action"`
	RecipeID      int64  `json:"recipe_id"`
	UserFavorited bool   `json:"user_favorited"`
	UserLiked     bool   `json:"user_liked"`
	UserDisliked  bool   `json:"user_disliked"`
}

// WithVote merges a like/dislike confirmation. Counters from the server are
// clamped the same way as normalized ones.
func (r NormalizedRecipe) WithVote(v VoteResult) NormalizedRecipe {
	r.Likes = CoerceNonNegativeInt(v.Likes)
	r.Dislikes = CoerceNonNegativeInt(v.Dislikes)
	r.UserLiked = v.UserLiked
	r.UserDisliked = v.UserDisliked
	return r
}

// WithFavorite merges a favorite confirmation.
func (r NormalizedRecipe) WithFavorite(f FavoriteResult) NormalizedRecipe {
	r.UserFavorited = f.UserFavorited
	r.UserLiked = f.UserLiked
	r.UserDisliked = f.UserDisliked
	return r
}
