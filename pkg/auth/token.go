// Package auth signs and verifies the HS256 access tokens that identify
// storefront customers and admins.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kartwise/storefront-backend/pkg/config"
	"github.com/kartwise/storefront-backend/pkg/enums"
)

var signingMethod = jwt.SigningMethodHS256

// Identity is who a verified token speaks for.
type Identity struct {
	UserID uuid.UUID
	Role   enums.Role
}

// Claims is the token body on the wire.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Role   enums.Role `json:"role"`
	jwt.RegisteredClaims
}

// Keys holds a validated JWT configuration.
type Keys struct {
	secret []byte
	issuer string
	ttl    time.Duration
	parser *jwt.Parser
}

func NewKeys(cfg config.JWTConfig) (*Keys, error) {
	var problems []error
	if cfg.Secret == "" {
		problems = append(problems, errors.New("jwt secret is required"))
	}
	if cfg.Issuer == "" {
		problems = append(problems, errors.New("jwt issuer is required"))
	}
	if cfg.ExpirationMinutes <= 0 {
		problems = append(problems, errors.New("jwt expiration minutes must be positive"))
	}
	if err := errors.Join(problems...); err != nil {
		return nil, err
	}
	return &Keys{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.ExpirationMinutes) * time.Minute,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{signingMethod.Alg()}),
			jwt.WithIssuer(cfg.Issuer),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Sign issues a token for id valid from now for the configured TTL.
func (k *Keys) Sign(now time.Time, id Identity) (string, error) {
	if id.UserID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if !id.Role.IsValid() {
		return "", fmt.Errorf("invalid role %q", id.Role)
	}
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    k.issuer,
			Subject:   id.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(k.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(signingMethod, claims).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, issuer and expiry and returns the identity.
func (k *Keys) Verify(raw string) (Identity, error) {
	var claims Claims
	if _, err := k.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	}); err != nil {
		return Identity{}, err
	}
	switch {
	case claims.UserID == uuid.Nil:
		return Identity{}, errors.New("token missing user_id")
	case !claims.Role.IsValid():
		return Identity{}, fmt.Errorf("token carries invalid role %q", claims.Role)
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is optional and matched case-insensitively.
func BearerToken(header string) (string, bool) {
	token := strings.TrimSpace(header)
	if len(token) > 7 && strings.EqualFold(token[:7], "bearer ") {
		token = strings.TrimSpace(token[7:])
	}
	return token, token != ""
}
