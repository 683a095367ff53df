package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors for credential verification. The API layer maps these to
// stable client-facing reason codes.
var (
	ErrMissingToken = errors.New("no token supplied")
	ErrInvalidToken = errors.New("token signature or claims are invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// TokenAuthenticator verifies bearer credentials and yields the subject
// identity. Verification is a pure function of the token and the signing
// key: no I/O, no shared mutable state, safe to call from any number of
// handlers in parallel.
type TokenAuthenticator struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

// NewTokenAuthenticator creates an authenticator for the given HMAC secret
func NewTokenAuthenticator(secret string, tokenTTL time.Duration) *TokenAuthenticator {
	return &TokenAuthenticator{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      time.Now,
	}
}

// WithClock overrides the time source, used by tests to pin expiry checks
func (a *TokenAuthenticator) WithClock(now func() time.Time) *TokenAuthenticator {
	a.now = now
	return a
}

// Verify checks the credential and returns the embedded subject identity.
// Expiry is reported as ErrExpiredToken even when the signature is valid;
// any signature or claim-structure problem is ErrInvalidToken.
func (a *TokenAuthenticator) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrMissingToken
	}

	parser := jwt.NewParser(jwt.WithTimeFunc(a.now))
	token, err := parser.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return a.secret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredToken
		}
		return "", ErrInvalidToken
	}

	if !token.Valid {
		return "", ErrInvalidToken
	}

	// Extract claims from the token
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}

	// The subject claim carries the user ID
	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}

	return userID, nil
}

// Issue mints a signed token for the given user, used at login
func (a *TokenAuthenticator) Issue(userID string) (string, error) {
	expirationTime := a.now().Add(a.tokenTTL)

	claims := jwt.MapClaims{
		"sub": userID, // subject
		"exp": expirationTime.Unix(),
		"iat": a.now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

// TTL reports the configured token lifetime
func (a *TokenAuthenticator) TTL() time.Duration {
	return a.tokenTTL
}
