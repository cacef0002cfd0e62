package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
	"github.com/custodia-labs/releasetrain-lake/internal/core/ports/driven"
)

// Ensure Adapter implements TokenVerifier
var _ driven.TokenVerifier = (*Adapter)(nil)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Adapter issues and validates HS256 JWTs
type Adapter struct {
	jwtSecret []byte
	now       func() time.Time
}

// NewAdapter creates a new auth adapter with the given JWT secret
func NewAdapter(jwtSecret string) (*Adapter, error) {
	if jwtSecret == "" {
		return nil, fmt.Errorf("%w: jwt secret is required", domain.ErrInvalidInput)
	}
	return &Adapter{jwtSecret: []byte(jwtSecret), now: time.Now}, nil
}

// IssueToken signs a token for subject with role, valid for ttl
func (a *Adapter) IssueToken(subject string, role domain.Role, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: subject is required", domain.ErrInvalidInput)
	}
	if role != domain.RoleAdmin && role != domain.RoleReader {
		return "", fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, role)
	}

	now := a.now()
	jc := jwtClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jc)
	return token.SignedString(a.jwtSecret)
}

// ParseToken validates a JWT and extracts domain claims.
// Expired tokens return domain.ErrTokenExpired; every other failure
// returns domain.ErrTokenInvalid.
func (a *Adapter) ParseToken(tokenString string) (*domain.TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	}, jwt.WithTimeFunc(a.now), jwt.WithExpirationRequired())

	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, domain.ErrTokenExpired
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, domain.ErrTokenInvalid
	}

	out := &domain.TokenClaims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Unix()
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Unix()
	}
	return out, nil
}
