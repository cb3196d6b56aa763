package webserver

import (
	"context"
	"math/rand/v2"
	"net/http"
	"regexp"
	"strconv"
	"time"
)

// UserCookieName holds the anonymous user id.
const UserCookieName = "flavorbuddy_user_id"

const userCookieMaxAge = 365 * 24 * time.Hour

var userIDPattern = regexp.MustCompile(`^user_[0-9]{1,16}_[0-9a-z]{1,13}$`)

type userIDKey struct{}

// NewUserID issues an anonymous id of the form user_{unixMillis}_{base36}.
func NewUserID(now time.Time) string {
	return "user_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + strconv.FormatUint(rand.Uint64(), 36)
}

// ValidUserID reports whether id looks like an id this server issued.
func ValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// UserIDFromContext returns the id stored by the identity middleware.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// WithUserID stores id in ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey{}, id)
}

// identityMiddleware makes sure every visitor carries a user id cookie.
func (s *WebServer) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var userID string
		if cookie, err := r.Cookie(UserCookieName); err == nil && ValidUserID(cookie.Value) {
			userID = cookie.Value
		} else {
			userID = NewUserID(time.Now())
			http.SetCookie(w, &http.Cookie{
				Name:     UserCookieName,
				Value:    userID,
				Path:     "/",
				MaxAge:   int(userCookieMaxAge.Seconds()),
				Expires:  time.Now().Add(userCookieMaxAge),
				HttpOnly: true,
				Secure:   s.config.IsProduction(),
				SameSite: http.SameSiteLaxMode,
			})
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}
