package repository

import (
	"fmt"
	"testing"

	"onesong/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string, genres ...models.Genre) models.User {
	t.Helper()
	user := models.User{
		Username: name,
		Email:    fmt.Sprintf("%s@example.com", name),
		Password: "hashed",
	}
	require.NoError(t, db.Create(&user).Error)
	for _, g := range genres {
		require.NoError(t, db.Exec(
			"INSERT INTO user_genres (user_id, genre_id) VALUES (?, ?)", user.ID, g.ID).Error)
	}
	return user
}

func createTestGenre(t *testing.T, db *gorm.DB, name string) models.Genre {
	t.Helper()
	genre := models.Genre{Name: name, Slug: name}
	require.NoError(t, db.Create(&genre).Error)
	return genre
}

// createTestPost creates a track, post, genre tag and pool entry, the way one
// submission produces them.
func createTestPost(t *testing.T, db *gorm.DB, user models.User, genre models.Genre, date string) (models.Post, models.PoolEntry) {
	t.Helper()
	track := models.Track{
		Title:          "Song by " + user.Username + " on " + date,
		Artist:         user.Username,
		URL:            "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		PrimaryGenreID: &genre.ID,
	}
	require.NoError(t, db.Create(&track).Error)

	post := models.Post{UserID: user.ID, TrackID: track.ID, PostDate: date}
	require.NoError(t, db.Create(&post).Error)
	require.NoError(t, db.Exec(
		"INSERT INTO post_genres (post_id, genre_id) VALUES (?, ?)", post.ID, genre.ID).Error)

	entry := models.PoolEntry{PostID: post.ID}
	require.NoError(t, db.Create(&entry).Error)
	return post, entry
}
