// Package tokenauth validates work-order tokens: short-lived JWS documents,
// signed by the GHGA authorization service, that authorize exactly one user
// to download exactly one file. It generalizes the teacher's
// internal/utils.JWTService — which verifies HS256 session tokens against a
// shared secret — to asymmetric public-key verification, since a work-order
// token is issued by a party this service must never be able to forge
// tokens as, not a party it shares a secret with.
package tokenauth

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/curve25519"

	"github.com/ghga-de/dcs-go/internal/models"
)

// ErrTokenMalformed means the token could not be parsed as a JWS, or its
// claims fail structural validation.
var ErrTokenMalformed = errors.New("work order token is malformed")

// ErrTokenExpired means the token parsed and verified but its exp claim has passed.
var ErrTokenExpired = errors.New("work order token has expired")

// ErrTokenSignature means the token's signature does not verify against the
// configured public key.
var ErrTokenSignature = errors.New("work order token signature is invalid")

// Validator verifies work-order JWS tokens against a fixed public key. A
// single instance speaks for one verification key; deployments rotating
// keys run one Validator per active key and try each in turn.
type Validator struct {
	publicKey interface{}
}

// NewValidator parses a PEM-encoded RSA or EC public key for verifying
// work-order token signatures.
func NewValidator(pemBytes []byte) (*Validator, error) {
	if key, err := jwt.ParseRSAPublicKeyFromPEM(pemBytes); err == nil {
		return &Validator{publicKey: key}, nil
	}
	if key, err := jwt.ParseECPublicKeyFromPEM(pemBytes); err == nil {
		return &Validator{publicKey: key}, nil
	}
	return nil, fmt.Errorf("%w: key is neither a valid RSA nor EC public key", ErrTokenMalformed)
}

type claims struct {
	models.WorkOrderToken
	jwt.RegisteredClaims
}

// Validate parses and verifies tokenString, returning the decoded work-order
// claims on success. A malformed token, an invalid signature, and an
// expired token are distinguished so the HTTP adapter can map each to its
// own exception_id.
func (v *Validator) Validate(tokenString string) (models.WorkOrderToken, error) {
	var c claims

	parsed, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		switch v.publicKey.(type) {
		case *rsa.PublicKey:
			if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
			}
		case *ecdsa.PublicKey:
			if _, ok := token.Method.(*jwt.SigningMethodECDSA); !ok {
				return nil, fmt.Errorf("unexpected signing method %q", token.Method.Alg())
			}
		}
		return v.publicKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return models.WorkOrderToken{}, ErrTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return models.WorkOrderToken{}, ErrTokenSignature
		}
		return models.WorkOrderToken{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	if !parsed.Valid {
		return models.WorkOrderToken{}, ErrTokenMalformed
	}

	if err := validateCrypt4ghKey(c.UserPublicCrypt4ghKey); err != nil {
		return models.WorkOrderToken{}, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
	}

	return c.WorkOrderToken, nil
}

// validateCrypt4ghKey sanity-checks that the claimed user_public_crypt4gh_key
// base64-decodes to a well-formed Curve25519 point of the right length.
// Crypt4GH envelopes are X25519-encrypted, so a token carrying a key that
// isn't even a valid curve point can never be used to open an envelope —
// catching that here, rather than at EKSS re-encryption time, turns a
// downstream EKSS error into a clean tokenMalformedError at the edge.
func validateCrypt4ghKey(encoded string) error {
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("user_public_crypt4gh_key is not valid base64: %w", err)
	}
	if len(key) != curve25519.PointSize {
		return fmt.Errorf("user_public_crypt4gh_key must be %d bytes, got %d", curve25519.PointSize, len(key))
	}
	return nil
}
