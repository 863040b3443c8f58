// Package auth verifies bearer tokens issued by the identity provider.
// Tokens are RS256 JWTs; the subject claim carries the provider's user id.
package auth

import (
	"crypto/rsa"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/victornm/adwatch/internal/errors"
)

type Config struct {
	// PublicKeyPEM is the provider's PEM-encoded RSA public key.
	PublicKeyPEM string
}

// Verifier checks bearer tokens and extracts the caller's identity.
type Verifier struct {
	key    *rsa.PublicKey
	parser *jwt.Parser
}

func NewVerifier(c Config) (*Verifier, error) {
	key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(c.PublicKeyPEM))
	if err != nil {
		return nil, fmt.Errorf("parse public key: %w", err)
	}

	return &Verifier{
		key: key,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// Verify validates the token signature and claims and returns the subject.
func (v *Verifier) Verify(token string) (string, error) {
	parsed, err := v.parser.Parse(token, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		return "", errors.New(errors.CodeUnauthenticated,
			errors.WithCause(err), errors.WithMessagef("invalid token"))
	}

	sub, err := parsed.Claims.GetSubject()
	if err != nil || sub == "" {
		return "", errors.New(errors.CodeUnauthenticated, errors.WithMessagef("token has no subject"))
	}

	return sub, nil
}
