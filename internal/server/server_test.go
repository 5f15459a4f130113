package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"onesong/internal/cache"
	"onesong/internal/config"
	"onesong/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const testDay = "2026-08-27"

func setupTestServer(t *testing.T) (*fiber.App, *Server, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Genre{},
		&models.Track{},
		&models.Post{},
		&models.PoolEntry{},
		&models.Exchange{},
		&models.SubscriptionType{},
		&models.SubscriptionPayment{},
	))

	cache.SetClient(nil)

	cfg := &config.Config{
		JWTSecret: "server-test-secret-32-characters!!!!",
		Port:      "8420",
		Env:       "test",
	}
	srv, err := NewServerWithDeps(cfg, db, nil)
	require.NoError(t, err)
	srv.postService.SetClock(func() string { return testDay })

	app := fiber.New()
	srv.SetupRoutes(app)
	return app, srv, db
}

func jsonRequest(t *testing.T, method, path string, body any, token string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// signupUser registers a user through the API and returns their token and id.
func signupUser(t *testing.T, app *fiber.App, username string) (string, uint) {
	t.Helper()
	resp, err := app.Test(jsonRequest(t, "POST", "/api/signup", fiber.Map{
		"username": username,
		"email":    fmt.Sprintf("%s@example.com", username),
		"password": "MySecurePass123!",
	}, ""), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	require.NotEmpty(t, token)
	user := body["user"].(map[string]any)
	return token, uint(user["id"].(float64))
}

func seedGenreRow(t *testing.T, db *gorm.DB, name string, order int) models.Genre {
	t.Helper()
	genre := models.Genre{Name: name, Slug: name, SortOrder: order}
	require.NoError(t, db.Create(&genre).Error)
	return genre
}

func setUserGenres(t *testing.T, app *fiber.App, token string, genreIDs ...uint) {
	t.Helper()
	resp, err := app.Test(jsonRequest(t, "POST", "/api/user-genres", fiber.Map{
		"genre_ids": genreIDs,
	}, token), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()
	app, _, _ := setupTestServer(t)

	resp, err := app.Test(httptest.NewRequest("GET", "/health/live", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/health/ready", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "healthy", checks["database"])
	assert.Equal(t, "unavailable", checks["redis"])
}

func TestSignupLoginMe(t *testing.T) {
	t.Parallel()
	app, _, _ := setupTestServer(t)

	token, _ := signupUser(t, app, "alice")

	t.Run("Duplicate Email Rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/signup", fiber.Map{
			"username": "alice2",
			"email":    "alice@example.com",
			"password": "MySecurePass123!",
		}, ""), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("Duplicate Username Rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/signup", fiber.Map{
			"username": "alice",
			"email":    "alice2@example.com",
			"password": "MySecurePass123!",
		}, ""), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
	})

	t.Run("Weak Password Rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/signup", fiber.Map{
			"username": "bob",
			"email":    "bob@example.com",
			"password": "weak",
		}, ""), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("Login Wrong Password", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/login", fiber.Map{
			"email":    "alice@example.com",
			"password": "WrongPassword1!",
		}, ""), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Login OK", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/login", fiber.Map{
			"email":    "alice@example.com",
			"password": "MySecurePass123!",
		}, ""), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.NotEmpty(t, body["token"])
	})

	t.Run("Me Requires Auth", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/me", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Me Returns Current User", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "GET", "/api/me", nil, token), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		user := body["user"].(map[string]any)
		assert.Equal(t, "alice", user["username"])
		assert.Nil(t, user["password"])
	})
}

func TestGenreEndpoints(t *testing.T) {
	t.Parallel()
	app, _, db := setupTestServer(t)

	rock := seedGenreRow(t, db, "rock", 1)
	seedGenreRow(t, db, "jazz", 2)
	token, _ := signupUser(t, app, "alice")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/genres", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["genres"], 2)

	resp, err = app.Test(jsonRequest(t, "GET", "/api/user-genres", nil, token), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Empty(t, body["genres"])

	resp, err = app.Test(jsonRequest(t, "POST", "/api/user-genres", fiber.Map{
		"genre_ids": []uint{rock.ID},
	}, token), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	genres := body["genres"].([]any)
	require.Len(t, genres, 1)
	assert.Equal(t, "rock", genres[0].(map[string]any)["name"])

	resp, err = app.Test(jsonRequest(t, "POST", "/api/user-genres", fiber.Map{
		"genre_ids": []uint{9999},
	}, token), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestDailyExchangeFlow(t *testing.T) {
	t.Parallel()
	app, _, db := setupTestServer(t)

	rock := seedGenreRow(t, db, "rock", 1)
	aliceToken, _ := signupUser(t, app, "alice")
	bobToken, _ := signupUser(t, app, "bob")
	setUserGenres(t, app, aliceToken, rock.ID)
	setUserGenres(t, app, bobToken, rock.ID)

	submission := func(title string) fiber.Map {
		return fiber.Map{
			"title":            title,
			"artist":           "Some Artist",
			"url":              "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			"primary_genre_id": rock.ID,
			"genre_ids":        []uint{rock.ID},
		}
	}

	resp, err := app.Test(jsonRequest(t, "GET", "/api/can-post", nil, aliceToken), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, true, decodeBody(t, resp)["can_post"])

	// alice opens the day and waits
	resp, err = app.Test(jsonRequest(t, "POST", "/api/posts", submission("Alice song"), aliceToken), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	alicePostID := body["post_id"].(float64)
	assert.NotZero(t, alicePostID)
	received := body["received"].(map[string]any)
	assert.Equal(t, false, received["has_received"])

	resp, err = app.Test(jsonRequest(t, "GET", "/api/can-post", nil, aliceToken), -1)
	require.NoError(t, err)
	assert.Equal(t, false, decodeBody(t, resp)["can_post"])

	// bob's post matches both directions
	resp, err = app.Test(jsonRequest(t, "POST", "/api/posts", submission("Bob song"), bobToken), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body = decodeBody(t, resp)
	received = body["received"].(map[string]any)
	require.Equal(t, true, received["has_received"])
	post := received["post"].(map[string]any)
	assert.Equal(t, "alice", post["username"])

	resp, err = app.Test(jsonRequest(t, "GET", "/api/today-received-post", nil, aliceToken), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	require.Equal(t, true, body["has_received"])
	post = body["post"].(map[string]any)
	assert.Equal(t, "bob", post["username"])
	track := post["track"].(map[string]any)
	assert.Equal(t, "Bob song", track["title"])

	// already resolved, so polling reports no fresh match
	resp, err = app.Test(jsonRequest(t, "POST", "/api/check-receive", nil, aliceToken), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, false, decodeBody(t, resp)["matched"])

	t.Run("Second Post Rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/posts", submission("Again"), aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, "ALREADY_POSTED", body["code"])
	})

	t.Run("Get Post By ID", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "GET",
			fmt.Sprintf("/api/posts/%d", int(alicePostID)), nil, bobToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		post := body["post"].(map[string]any)
		assert.Equal(t, "alice", post["username"])

		resp, err = app.Test(jsonRequest(t, "GET", "/api/posts/abc", nil, bobToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, "GET", "/api/posts/99999", nil, bobToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Histories", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "GET", "/api/received-posts", nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		data := body["data"].([]any)
		require.Len(t, data, 1)
		item := data[0].(map[string]any)
		assert.Equal(t, "bob", item["from_username"])
		pagination := body["pagination"].(map[string]any)
		assert.Equal(t, float64(1), pagination["total"])

		resp, err = app.Test(jsonRequest(t, "GET", "/api/sent-posts", nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body = decodeBody(t, resp)
		assert.Len(t, body["data"], 1)
	})

	t.Run("Public Stats", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest("GET", "/api/stats", nil), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
		body := decodeBody(t, resp)
		assert.Equal(t, float64(2), body["active_users"])
		assert.NotNil(t, body["today_exchange"])
	})

	t.Run("Protected Routes Require Auth", func(t *testing.T) {
		for _, path := range []string{"/api/can-post", "/api/today-received-post", "/api/sent-posts"} {
			resp, err := app.Test(httptest.NewRequest("GET", path, nil), -1)
			require.NoError(t, err)
			assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, path)
		}
	})
}

func TestSubscriptionEndpoints(t *testing.T) {
	t.Parallel()
	app, _, db := setupTestServer(t)

	plan := models.SubscriptionType{Title: "Supporter", Price: 500, Description: "Support the exchange", PostLimit: 1}
	require.NoError(t, db.Create(&plan).Error)

	aliceToken, _ := signupUser(t, app, "alice")
	bobToken, _ := signupUser(t, app, "bob")

	resp, err := app.Test(httptest.NewRequest("GET", "/api/subscription-types", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Len(t, body["subscription_types"], 1)

	resp, err = app.Test(jsonRequest(t, "GET", "/api/user-subscription", nil, aliceToken), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	assert.Nil(t, body["subscription"])

	resp, err = app.Test(jsonRequest(t, "POST", "/api/subscriptions", fiber.Map{
		"subscription_type_id": plan.ID,
		"payment_method_id":    "pm_test_123",
	}, aliceToken), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body = decodeBody(t, resp)
	payment := body["subscription"].(map[string]any)
	paymentID := int(payment["id"].(float64))
	assert.Equal(t, false, payment["payment_is_finished"])

	t.Run("Unknown Plan Rejected", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "POST", "/api/subscriptions", fiber.Map{
			"subscription_type_id": 9999,
		}, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Other User Cannot Complete", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "PATCH",
			fmt.Sprintf("/api/subscriptions/%d/complete", paymentID), nil, bobToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	})

	t.Run("Complete Then Cancel", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(t, "PATCH",
			fmt.Sprintf("/api/subscriptions/%d/complete", paymentID), nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		// now active
		resp, err = app.Test(jsonRequest(t, "GET", "/api/user-subscription", nil, aliceToken), -1)
		require.NoError(t, err)
		body := decodeBody(t, resp)
		require.NotNil(t, body["subscription"])

		// a second completion conflicts
		resp, err = app.Test(jsonRequest(t, "PATCH",
			fmt.Sprintf("/api/subscriptions/%d/complete", paymentID), nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, "PATCH",
			fmt.Sprintf("/api/subscriptions/%d/cancel", paymentID), nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, "PATCH",
			fmt.Sprintf("/api/subscriptions/%d/cancel", paymentID), nil, aliceToken), -1)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

		resp, err = app.Test(jsonRequest(t, "GET", "/api/user-subscription", nil, aliceToken), -1)
		require.NoError(t, err)
		body = decodeBody(t, resp)
		assert.Nil(t, body["subscription"])
	})
}

func TestParsePage(t *testing.T) {
	t.Parallel()
	app := fiber.New()
	var got PageParams
	app.Get("/pages", func(c *fiber.Ctx) error {
		got = parsePage(c)
		return c.SendString("ok")
	})

	cases := []struct {
		query string
		want  PageParams
	}{
		{"", PageParams{Page: 1, PerPage: 20}},
		{"?page=3&per_page=50", PageParams{Page: 3, PerPage: 50}},
		{"?page=0&per_page=-1", PageParams{Page: 1, PerPage: 20}},
		{"?per_page=1000", PageParams{Page: 1, PerPage: 100}},
	}
	for _, tc := range cases {
		_, err := app.Test(httptest.NewRequest("GET", "/pages"+tc.query, nil), -1)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, tc.query)
	}
}
