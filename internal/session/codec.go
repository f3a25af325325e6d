// internal/session/codec.go
//
// Signed session payloads.
//
// Context
// -------
// A session row's `session_data` column holds an HS256 JWT whose subject is
// the session key.  Binding the token to the key means a payload copied into
// another row fails verification.  The signing secret comes from
// `session.secret` in config (usually a `vault:` reference).

package session

import (
	"errors"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// ErrBadSignature is returned for tampered, foreign, or malformed payloads.
var ErrBadSignature = errors.New("session: bad signature")

const issuer = "adeptbill"

// Claims is the JWT body stored in session_data.
type Claims struct {
	Data map[string]any `json:"data"`
	jwtlib.RegisteredClaims
}

// Codec signs and verifies payloads.
type Codec struct {
	secret []byte
}

// NewCodec returns a Codec for secret.
func NewCodec(secret string) Codec { return Codec{secret: []byte(secret)} }

// Encode signs data for key, valid until exp.
func (c Codec) Encode(key string, data map[string]any, exp time.Time) (string, error) {
	claims := Claims{
		Data: data,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   key,
			ExpiresAt: jwtlib.NewNumericDate(exp),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies token and returns its data.  key must match the subject.
func (c Codec) Decode(key, token string) (map[string]any, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(*jwtlib.Token) (any, error) {
		return c.secret, nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}),
		jwtlib.WithIssuer(issuer),
		jwtlib.WithSubject(key),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrBadSignature
	}
	if claims.Data == nil {
		claims.Data = map[string]any{}
	}
	return claims.Data, nil
}
