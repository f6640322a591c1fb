// Package middleware provides authentication, logging, tracing and rate limiting middleware.
package middleware

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// TokenIssuer is the iss claim on every showcase bearer token.
const TokenIssuer = "showcase"

var (
	ErrMissingToken  = errors.New("Authorization required")
	ErrMalformedAuth = errors.New("Invalid authorization header format")
	ErrInvalidToken  = errors.New("Invalid or expired token")
	errSubjectValue  = errors.New("Invalid user ID in token")
)

// IssueToken signs an HS256 token whose subject is userID.
func IssueToken(secret string, userID uint, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    TokenIssuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// ParseUserID validates tokenString and returns the user id from its "sub"
// claim. Tokens must be HS256, unexpired and issued by TokenIssuer.
func ParseUserID(secret, tokenString string) (uint, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(TokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, ErrInvalidToken
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return 0, errSubjectValue
	}
	return uint(userID), nil
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header.
func BearerToken(c *fiber.Ctx) (string, error) {
	header := c.Get(fiber.HeaderAuthorization)
	if header == "" {
		return "", ErrMissingToken
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" || strings.Contains(token, " ") {
		return "", ErrMalformedAuth
	}
	return token, nil
}
