package webserver

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewUserIDFormat(t *testing.T) {
	now := time.UnixMilli(1700000000123)

	id := NewUserID(now)
	assert.True(t, strings.HasPrefix(id, "user_1700000000123_"), id)
	assert.True(t, ValidUserID(id), id)
	assert.NotEqual(t, id, NewUserID(now))
}

func TestValidUserID(t *testing.T) {
	assert.True(t, ValidUserID("user_1_a"))
	assert.False(t, ValidUserID(""))
	assert.False(t, ValidUserID("user_abc_123"))
	assert.False(t, ValidUserID("user_1_ABC"))
	assert.False(t, ValidUserID("admin"))
	assert.False(t, ValidUserID("user_1_a<script>"))
}

func TestUserIDContext(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, UserIDFromContext(ctx))
	assert.Equal(t, "user_1_a", UserIDFromContext(WithUserID(ctx, "user_1_a")))
}
