package recipe

import "errors"

var (
	ErrInvalidRecipeID     = errors.New("invalid recipe ID")
	ErrRecipeNotFound      = errors.New("recipe not found")
	ErrInteractionInFlight = errors.New("another action is already in progress for this recipe")
	ErrDeleteNotAllowed    = errors.New("recipes can only be deleted from localhost")
	ErrMissingUser         = errors.New("a user id is required for this action")
)
