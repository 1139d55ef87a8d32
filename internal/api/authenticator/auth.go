package authenticator

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/caisdata/cais/internal/config"
)

const tokenTTL = 12 * time.Hour

// Claims is the token payload every request carries. Plan rides along so the
// quota gate never needs a tenant lookup on the hot path.
type Claims struct {
	TenantID uuid.UUID `json:"tenant_id"`
	UserID   uuid.UUID `json:"user_id"`
	Roles    []string  `json:"roles"`
	Plan     string    `json:"plan"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HMAC-signed access tokens. When no secret
// is configured auth is disabled entirely, which is only acceptable for local
// development.
type Authenticator struct {
	secret      []byte
	authEnabled bool
}

func New(conf *config.Config) (*Authenticator, error) {
	if conf.JWT_SECRET == "" {
		return &Authenticator{
			authEnabled: false,
		}, nil
	}

	return &Authenticator{
		secret:      []byte(conf.JWT_SECRET),
		authEnabled: true,
	}, nil
}

func (a *Authenticator) AuthEnabled() bool {
	return a.authEnabled
}

// IssueAccessToken mints a token for a logged-in user.
func (a *Authenticator) IssueAccessToken(tenantID, userID uuid.UUID, roles []string, plan string) (string, error) {
	now := time.Now()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		TenantID: tenantID,
		UserID:   userID,
		Roles:    roles,
		Plan:     plan,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cais",
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	})

	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return signed, nil
}

// VerifyAccessToken parses and validates a token, returning its claims.
func (a *Authenticator) VerifyAccessToken(token string) (*Claims, error) {
	claims := &Claims{}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}
