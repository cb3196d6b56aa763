// Package testutils provides custom assertions and testing utilities
package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/flavorbuddy/web/internal/domain/recipe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RecipeAssertions provides recipe-specific assertion methods
type RecipeAssertions struct {
	t *testing.T
}

// NewRecipeAssertions creates a new recipe assertions helper
func NewRecipeAssertions(t *testing.T) *RecipeAssertions {
	return &RecipeAssertions{t: t}
}

// Displayable asserts the invariants every normalized recipe holds
func (ra *RecipeAssertions) Displayable(r recipe.NormalizedRecipe, msgAndArgs ...interface{}) {
	assert.NotEmpty(ra.t, r.Title, msgAndArgs...)
	assert.Equal(ra.t, strings.TrimSpace(r.Title), r.Title, msgAndArgs...)
	assert.NotEmpty(ra.t, r.Description, msgAndArgs...)
	assert.NotEmpty(ra.t, r.TypeLabel, msgAndArgs...)
	assert.NotNil(ra.t, r.Ingredients, msgAndArgs...)
	assert.NotNil(ra.t, r.Instructions, msgAndArgs...)
	assert.GreaterOrEqual(ra.t, r.Views, 0, msgAndArgs...)
	assert.GreaterOrEqual(ra.t, r.Likes, 0, msgAndArgs...)
	assert.GreaterOrEqual(ra.t, r.Dislikes, 0, msgAndArgs...)
}

// HTTPAssertions provides HTTP-specific assertion methods
type HTTPAssertions struct {
	t *testing.T
}

// NewHTTPAssertions creates a new HTTP assertions helper
func NewHTTPAssertions(t *testing.T) *HTTPAssertions {
	return &HTTPAssertions{t: t}
}

// StatusCode asserts the HTTP status code
func (ha *HTTPAssertions) StatusCode(rec *httptest.ResponseRecorder, expectedCode int, msgAndArgs ...interface{}) {
	require.NotNil(ha.t, rec, "Response should not be nil")
	assert.Equal(ha.t, expectedCode, rec.Code, msgAndArgs...)
}

// JSONResponse asserts that the response is valid JSON and unmarshals it
func (ha *HTTPAssertions) JSONResponse(rec *httptest.ResponseRecorder, target interface{}) {
	require.NotNil(ha.t, rec, "Response should not be nil")

	contentType := rec.Header().Get("Content-Type")
	assert.True(ha.t, strings.Contains(contentType, "application/json"),
		"Response should have JSON content type, got: %s", contentType)
	assert.NoError(ha.t, json.Unmarshal(rec.Body.Bytes(), target), "Response should be valid JSON")
}

// ErrorResponse asserts that the body carries an "error" field containing expectedMessage
func (ha *HTTPAssertions) ErrorResponse(rec *httptest.ResponseRecorder, expectedMessage string) {
	var body map[string]interface{}
	ha.JSONResponse(rec, &body)

	errorMsg, exists := body["error"]
	assert.True(ha.t, exists, "Response should contain error field")
	if expectedMessage != "" {
		assert.Contains(ha.t, errorMsg, expectedMessage)
	}
}

// Document parses an HTML response
func (ha *HTTPAssertions) Document(rec *httptest.ResponseRecorder) *goquery.Document {
	require.NotNil(ha.t, rec, "Response should not be nil")
	assert.Contains(ha.t, rec.Header().Get("Content-Type"), "text/html")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(rec.Body.String()))
	require.NoError(ha.t, err, "Response should be parseable HTML")
	return doc
}

// Redirect asserts a redirect to location
func (ha *HTTPAssertions) Redirect(rec *httptest.ResponseRecorder, location string) {
	assert.Contains(ha.t, []int{http.StatusFound, http.StatusSeeOther, http.StatusMovedPermanently}, rec.Code)
	assert.Equal(ha.t, location, rec.Header().Get("Location"))
}

// SecurityHeaders asserts that security headers are present
func (ha *HTTPAssertions) SecurityHeaders(rec *httptest.ResponseRecorder) {
	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options", "Referrer-Policy"} {
		assert.NotEmpty(ha.t, rec.Header().Get(header), "Security header %s should be present", header)
	}
}
