package middleware

import (
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

func signClaims(t *testing.T, method jwt.SigningMethod, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func TestParseUserID(t *testing.T) {
	issued, err := IssueToken(testSecret, 55, time.Hour)
	require.NoError(t, err)

	valid := func(sub string, exp time.Duration) jwt.MapClaims {
		return jwt.MapClaims{"iss": TokenIssuer, "sub": sub, "exp": time.Now().Add(exp).Unix()}
	}
	noIssuer := valid("7", time.Hour)
	delete(noIssuer, "iss")
	noExpiry := valid("7", time.Hour)
	delete(noExpiry, "exp")

	tests := []struct {
		name    string
		token   string
		wantID  uint
		wantErr bool
	}{
		{"issued token", issued, 55, false},
		{"hand signed", signClaims(t, jwt.SigningMethodHS256, valid("123", time.Hour)), 123, false},
		{"expired", signClaims(t, jwt.SigningMethodHS256, valid("123", -time.Hour)), 0, true},
		{"wrong issuer", signClaims(t, jwt.SigningMethodHS256, jwt.MapClaims{"iss": "elsewhere", "sub": "1", "exp": time.Now().Add(time.Hour).Unix()}), 0, true},
		{"no issuer", signClaims(t, jwt.SigningMethodHS256, noIssuer), 0, true},
		{"no expiry", signClaims(t, jwt.SigningMethodHS256, noExpiry), 0, true},
		{"HS512 rejected", signClaims(t, jwt.SigningMethodHS512, valid("1", time.Hour)), 0, true},
		{"non numeric subject", signClaims(t, jwt.SigningMethodHS256, valid("abc", time.Hour)), 0, true},
		{"zero subject", signClaims(t, jwt.SigningMethodHS256, valid(strconv.Itoa(0), time.Hour)), 0, true},
		{"garbage", "malformed.token.here", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseUserID(testSecret, tt.token)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseUserID_WrongSecret(t *testing.T) {
	token, err := IssueToken(testSecret, 9, time.Minute)
	require.NoError(t, err)

	_, err = ParseUserID("another-secret-another-secret-1234", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"", "", ErrMissingToken},
		{"Bearer abc.def.ghi", "abc.def.ghi", nil},
		{"bearer abc", "abc", nil},
		{"Basic dXNlcjpwYXNz", "", ErrMalformedAuth},
		{"Bearer", "", ErrMalformedAuth},
		{"Bearer a b", "", ErrMalformedAuth},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			app := fiber.New()
			var got string
			var gotErr error
			app.Get("/", func(c *fiber.Ctx) error {
				got, gotErr = BearerToken(c)
				return nil
			})
			req := httptest.NewRequest("GET", "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.ErrorIs(t, gotErr, tt.err)
		})
	}
}
