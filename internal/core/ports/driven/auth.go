package driven

import (
	"time"

	"github.com/custodia-labs/releasetrain-lake/internal/core/domain"
)

// TokenVerifier issues and validates API tokens.
// Tokens are stateless; there is no session storage.
type TokenVerifier interface {
	// IssueToken signs a token for subject with role, valid for ttl
	IssueToken(subject string, role domain.Role, ttl time.Duration) (string, error)

	// ParseToken validates a token and extracts its claims
	ParseToken(token string) (*domain.TokenClaims, error)
}
