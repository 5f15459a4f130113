package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters!!"

func setupAuthApp(t *testing.T, rdb *redis.Client) *fiber.App {
	t.Helper()
	app := fiber.New()
	app.Get("/protected", AuthRequired(testSecret, rdb), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"user_id": c.Locals("userID")})
	})
	return app
}

func validClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"sub": "42",
		"iss": TokenIssuer,
		"aud": TokenAudience,
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": "token-1",
	}
}

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func requestWithToken(token string) *http.Request {
	req := httptest.NewRequest("GET", "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthRequired(t *testing.T) {
	app := setupAuthApp(t, nil)

	t.Run("Missing Header", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/protected", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Malformed Header", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Token abc")
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Wrong Secret", func(t *testing.T) {
		token := signedToken(t, "another-secret-entirely-32-chars!!!!", validClaims())
		resp, err := app.Test(requestWithToken(token))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Expired Token", func(t *testing.T) {
		claims := validClaims()
		claims["exp"] = time.Now().Add(-time.Hour).Unix()
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, claims)))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Wrong Issuer", func(t *testing.T) {
		claims := validClaims()
		claims["iss"] = "someone-else"
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, claims)))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Wrong Audience", func(t *testing.T) {
		claims := validClaims()
		claims["aud"] = "other-client"
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, claims)))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Missing Subject", func(t *testing.T) {
		claims := validClaims()
		delete(claims, "sub")
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, claims)))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Non Numeric Subject", func(t *testing.T) {
		claims := validClaims()
		claims["sub"] = "not-a-number"
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, claims)))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Valid Token", func(t *testing.T) {
		resp, err := app.Test(requestWithToken(signedToken(t, testSecret, validClaims())))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, float64(42), body["user_id"])
	})
}

func TestAuthRequiredRevokedToken(t *testing.T) {
	rdb, _ := setupRateLimitRedis(t)
	app := setupAuthApp(t, rdb)

	token := signedToken(t, testSecret, validClaims())

	resp, err := app.Test(requestWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// logout blacklists the jti
	require.NoError(t, rdb.Set(context.Background(), "blacklist:token-1", "1", time.Hour).Err())

	resp, err = app.Test(requestWithToken(token))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
