// Package auth implements access-token authentication. Tokens are signed
// JWTs carrying the user id; a hash of each issued token is recorded so
// logout can revoke it. Passwords are stored as bcrypt hashes.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	// AccessTokenDuration is the lifetime of an issued access token.
	AccessTokenDuration = 7 * 24 * time.Hour

	issuer           = "fixit"
	keyID            = "v1"
	authHeaderPrefix = "Bearer "
)

// ContextKey is the type for context keys set by the auth middleware.
type ContextKey int

// UserIDContextKey carries the authenticated user id.
const UserIDContextKey ContextKey = iota

// Claims is the JWT payload of an access token.
type Claims struct {
	jwt.RegisteredClaims
}

// GenerateAccessToken issues a signed token for the user.
func GenerateAccessToken(userID int32, secret string, now time.Time) (string, error) {
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(int(userID)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenDuration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = keyID
	accessToken, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", errors.Wrap(err, "failed to sign access token")
	}
	return accessToken, nil
}

// Authenticate verifies an Authorization header value and returns the user
// id encoded in the token.
func Authenticate(authHeader, secret string) (int32, error) {
	tokenString, ok := TokenFromHeader(authHeader)
	if !ok {
		return 0, errors.New("missing bearer token")
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if err != nil {
		return 0, errors.Wrap(err, "invalid access token")
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, "malformed token subject")
	}
	return int32(userID), nil
}

// TokenFromHeader extracts the raw bearer token from an Authorization
// header value.
func TokenFromHeader(authHeader string) (string, bool) {
	if !strings.HasPrefix(authHeader, authHeaderPrefix) {
		return "", false
	}
	return strings.TrimPrefix(authHeader, authHeaderPrefix), true
}

// HashToken returns the stored form of an access token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", errors.Wrap(err, "failed to hash password")
	}
	return string(hash), nil
}

// VerifyPassword reports whether the plaintext matches the stored hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// SetUserIDInContext stores the authenticated user id.
func SetUserIDInContext(ctx context.Context, userID int32) context.Context {
	return context.WithValue(ctx, UserIDContextKey, userID)
}

// UserIDFromContext returns the authenticated user id, if any.
func UserIDFromContext(ctx context.Context) (int32, bool) {
	userID, ok := ctx.Value(UserIDContextKey).(int32)
	return userID, ok
}
