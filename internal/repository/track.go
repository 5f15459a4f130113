package repository

import (
	"context"

	"onesong/internal/models"

	"gorm.io/gorm"
)

// TrackRepository defines the interface for track data operations.
// Tracks are immutable: created once per post, never updated.
type TrackRepository interface {
	Create(ctx context.Context, track *models.Track) error
	GetByID(ctx context.Context, id uint) (*models.Track, error)
}

type trackRepository struct {
	db *gorm.DB
}

// NewTrackRepository creates a new track repository
func NewTrackRepository(db *gorm.DB) TrackRepository {
	return &trackRepository{db: db}
}

func (r *trackRepository) Create(ctx context.Context, track *models.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

func (r *trackRepository) GetByID(ctx context.Context, id uint) (*models.Track, error) {
	var track models.Track
	err := r.db.WithContext(ctx).Preload("PrimaryGenre").First(&track, id).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}
