package twofactor

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTGenerator issues HMAC-signed JWTs after a verified ceremony.
type JWTGenerator struct {
	secret    []byte
	issuer    string
	audience  []string
	expiresIn time.Duration
}

// JWTGeneratorConfig contains configuration for the JWT generator.
type JWTGeneratorConfig struct {
	// Secret is the HMAC signing key (required).
	Secret []byte
	// Issuer is the JWT issuer claim (default: "geotourist").
	Issuer string
	// Audience is the JWT audience claim (default: ["geotourist"]).
	Audience []string
	// ExpiresIn is how long tokens are valid (default: 1 hour).
	ExpiresIn time.Duration
}

// NewJWTGenerator creates a JWT generator with the given configuration.
func NewJWTGenerator(config *JWTGeneratorConfig) (*JWTGenerator, error) {
	if config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if len(config.Secret) == 0 {
		return nil, fmt.Errorf("signing secret is required")
	}

	issuer := config.Issuer
	if issuer == "" {
		issuer = "geotourist"
	}

	audience := config.Audience
	if len(audience) == 0 {
		audience = []string{"geotourist"}
	}

	expiresIn := config.ExpiresIn
	if expiresIn == 0 {
		expiresIn = time.Hour
	}

	return &JWTGenerator{
		secret:    config.Secret,
		issuer:    issuer,
		audience:  audience,
		expiresIn: expiresIn,
	}, nil
}

// Token creates a JWT asserting the user completed a ceremony.
func (g *JWTGenerator) Token(ctx context.Context, user *User) (string, error) {
	now := time.Now()

	claims := jwt.MapClaims{
		"iss":   g.issuer,
		"aud":   g.audience,
		"sub":   base64.RawURLEncoding.EncodeToString(user.ID),
		"iat":   now.Unix(),
		"exp":   now.Add(g.expiresIn).Unix(),
		"nbf":   now.Unix(),
		"email": user.Email,
		"amr":   []string{"webauthn"},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(g.secret)
}

// Verify parses a token issued by this generator and returns its claims.
func (g *JWTGenerator) Verify(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return g.secret, nil
	},
		jwt.WithIssuer(g.issuer),
		jwt.WithAudience(g.audience[0]),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}
