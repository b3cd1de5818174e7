package httpx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainauth "github.com/target/mmk-accounts/internal/domain/auth"
)

func TestGetUserSessionFromContext(t *testing.T) {
	// No session
	if s, ok := GetUserSessionFromContext(context.Background()); assert.False(t, ok) {
		assert.Nil(t, s)
	}

	// With session
	sess := &domainauth.Session{UserID: "user-1", Email: "ada@example.com"}
	ctx := SetSessionInContext(context.Background(), sess)
	s, ok := GetUserSessionFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, sess, s)

	// Nil session leaves ctx untouched
	assert.Equal(t, ctx, SetSessionInContext(ctx, nil))
}

func TestIsSignedIn(t *testing.T) {
	assert.False(t, IsSignedIn(context.Background()))
	assert.Nil(t, GetSessionFromContext(context.Background()))

	sess := &domainauth.Session{UserID: "user-1"}
	ctx := SetSessionInContext(context.Background(), sess)
	assert.True(t, IsSignedIn(ctx))
	assert.Same(t, sess, GetSessionFromContext(ctx))
}
