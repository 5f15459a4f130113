package repository

import (
	"context"

	"onesong/internal/cache"
	"onesong/internal/models"

	"gorm.io/gorm"
)

// GenreRepository defines the interface for genre data operations
type GenreRepository interface {
	List(ctx context.Context) ([]models.Genre, error)
	FindByIDs(ctx context.Context, ids []uint) ([]models.Genre, error)
	GetUserGenres(ctx context.Context, userID uint) ([]models.Genre, error)
	ReplaceUserGenres(ctx context.Context, userID uint, genreIDs []uint) error
}

type genreRepository struct {
	db *gorm.DB
}

// NewGenreRepository creates a new genre repository
func NewGenreRepository(db *gorm.DB) GenreRepository {
	return &genreRepository{db: db}
}

func (r *genreRepository) List(ctx context.Context) ([]models.Genre, error) {
	var genres []models.Genre
	err := cache.Aside(ctx, cache.GenresKey(), &genres, cache.GenresTTL, func() error {
		return r.db.WithContext(ctx).
			Order("sort_order, id").
			Find(&genres).Error
	})
	return genres, err
}

func (r *genreRepository) FindByIDs(ctx context.Context, ids []uint) ([]models.Genre, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var genres []models.Genre
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&genres).Error
	return genres, err
}

func (r *genreRepository) GetUserGenres(ctx context.Context, userID uint) ([]models.Genre, error) {
	var genres []models.Genre
	err := r.db.WithContext(ctx).
		Joins("JOIN user_genres ON user_genres.genre_id = genres.id").
		Where("user_genres.user_id = ?", userID).
		Order("genres.sort_order, genres.id").
		Find(&genres).Error
	return genres, err
}

func (r *genreRepository) ReplaceUserGenres(ctx context.Context, userID uint, genreIDs []uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM user_genres WHERE user_id = ?", userID).Error; err != nil {
			return err
		}
		for _, genreID := range genreIDs {
			err := tx.Exec(
				"INSERT INTO user_genres (user_id, genre_id) VALUES (?, ?)",
				userID, genreID,
			).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	// The cached user carries their preference genres.
	cache.InvalidateUser(ctx, userID)
	return nil
}
