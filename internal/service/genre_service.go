package service

import (
	"context"

	"onesong/internal/models"
	"onesong/internal/repository"
)

// GenreService provides genre listing and user preference management.
type GenreService struct {
	genreRepo repository.GenreRepository
}

// NewGenreService returns a new GenreService.
func NewGenreService(genreRepo repository.GenreRepository) *GenreService {
	return &GenreService{genreRepo: genreRepo}
}

// GetAllGenres lists every genre in display order.
func (s *GenreService) GetAllGenres(ctx context.Context) ([]GenreView, error) {
	genres, err := s.genreRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	return genreViews(genres), nil
}

// GetUserGenres lists the user's registered preference genres.
func (s *GenreService) GetUserGenres(ctx context.Context, userID uint) ([]GenreView, error) {
	genres, err := s.genreRepo.GetUserGenres(ctx, userID)
	if err != nil {
		return nil, err
	}
	return genreViews(genres), nil
}

// UpdateUserGenres replaces the user's preference genres. An empty selection
// is allowed but leaves the user unmatchable until genres are registered.
func (s *GenreService) UpdateUserGenres(ctx context.Context, userID uint, genreIDs []uint) error {
	if len(genreIDs) > 0 {
		genres, err := s.genreRepo.FindByIDs(ctx, genreIDs)
		if err != nil {
			return err
		}
		if len(genres) != len(genreIDs) {
			return models.NewValidationError("One or more selected genres do not exist")
		}
	}
	return s.genreRepo.ReplaceUserGenres(ctx, userID, genreIDs)
}
