// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"context"
	"errors"
	"fmt"

	"onesong/internal/cache"
	"onesong/internal/models"

	"gorm.io/gorm"
)

// builtinGenres is the fixed genre catalog, in display order.
var builtinGenres = []models.Genre{
	{Name: "Pop", Slug: "pop"},
	{Name: "Rock", Slug: "rock"},
	{Name: "Hip-Hop", Slug: "hip-hop"},
	{Name: "R&B", Slug: "rnb"},
	{Name: "Electronic", Slug: "electronic"},
	{Name: "Jazz", Slug: "jazz"},
	{Name: "Classical", Slug: "classical"},
	{Name: "Metal", Slug: "metal"},
	{Name: "Punk", Slug: "punk"},
	{Name: "Folk", Slug: "folk"},
	{Name: "Country", Slug: "country"},
	{Name: "Blues", Slug: "blues"},
	{Name: "Reggae", Slug: "reggae"},
	{Name: "Latin", Slug: "latin"},
	{Name: "Soul", Slug: "soul"},
	{Name: "Funk", Slug: "funk"},
	{Name: "Ambient", Slug: "ambient"},
	{Name: "Soundtrack", Slug: "soundtrack"},
	{Name: "World", Slug: "world"},
	{Name: "Indie", Slug: "indie"},
}

// Genres upserts the built-in genre catalog. Safe to run repeatedly; existing
// rows keep their IDs so user and post associations survive reseeding.
func Genres(db *gorm.DB) error {
	for i, g := range builtinGenres {
		genre := models.Genre{
			Name:      g.Name,
			Slug:      g.Slug,
			SortOrder: i + 1,
		}

		var existing models.Genre
		err := db.Where("slug = ?", genre.Slug).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if createErr := db.Create(&genre).Error; createErr != nil {
				return fmt.Errorf("create genre %q: %w", genre.Slug, createErr)
			}
		case err != nil:
			return fmt.Errorf("look up genre %q: %w", genre.Slug, err)
		default:
			if updateErr := db.Model(&existing).
				Updates(map[string]any{"name": genre.Name, "sort_order": genre.SortOrder}).Error; updateErr != nil {
				return fmt.Errorf("update genre %q: %w", genre.Slug, updateErr)
			}
		}
	}
	cache.InvalidateGenres(context.Background())
	return nil
}
