package twofactor

import (
	"context"
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJWTGenerator_Validation(t *testing.T) {
	_, err := NewJWTGenerator(nil)
	assert.Error(t, err)

	_, err = NewJWTGenerator(&JWTGeneratorConfig{})
	assert.Error(t, err)

	gen, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("secret")})
	require.NoError(t, err)
	assert.Equal(t, "geotourist", gen.issuer)
	assert.Equal(t, []string{"geotourist"}, gen.audience)
	assert.Equal(t, time.Hour, gen.expiresIn)
}

func TestJWTGenerator_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	gen, err := NewJWTGenerator(&JWTGeneratorConfig{
		Secret:   []byte("test-secret"),
		Issuer:   "tour-fusion.com",
		Audience: []string{"tour-fusion-app"},
	})
	require.NoError(t, err)

	user := &User{ID: []byte("user-1"), Email: "traveler@example.com"}

	token, err := gen.Token(ctx, user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := gen.Verify(token)
	require.NoError(t, err)

	assert.Equal(t, "tour-fusion.com", claims["iss"])
	assert.Equal(t, base64.RawURLEncoding.EncodeToString(user.ID), claims["sub"])
	assert.Equal(t, "traveler@example.com", claims["email"])
	assert.Contains(t, claims["amr"], "webauthn")
}

func TestJWTGenerator_RejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	user := &User{ID: []byte("user-1"), Email: "traveler@example.com"}

	issuer, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("secret-a")})
	require.NoError(t, err)

	verifier, err := NewJWTGenerator(&JWTGeneratorConfig{Secret: []byte("secret-b")})
	require.NoError(t, err)

	token, err := issuer.Token(ctx, user)
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	assert.Error(t, err)
}

func TestJWTGenerator_RejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	gen, err := NewJWTGenerator(&JWTGeneratorConfig{
		Secret:    []byte("secret"),
		ExpiresIn: -time.Minute,
	})
	require.NoError(t, err)

	token, err := gen.Token(ctx, &User{ID: []byte("user-1")})
	require.NoError(t, err)

	_, err = gen.Verify(token)
	assert.Error(t, err)
}
