package repository

import (
	"context"
	"errors"
	"time"

	"onesong/internal/models"

	"gorm.io/gorm"
)

// PoolEntryRepository defines the interface for pool entry data operations.
type PoolEntryRepository interface {
	Create(ctx context.Context, entry *models.PoolEntry) error
	// FindAvailableEntry returns the lowest-id unconsumed entry whose post
	// does not belong to userID, whose track is not in excludedTrackIDs, and
	// which shares at least one genre with the user's preference genres.
	// A user with zero preference genres gets nil unconditionally.
	// Returns (nil, nil) when nothing qualifies.
	FindAvailableEntry(ctx context.Context, userID uint, excludedTrackIDs []uint) (*models.PoolEntry, error)
	// MarkConsumed flips is_consumed false -> true as a conditional update.
	// Exactly one of any set of concurrent callers succeeds; the rest get
	// ErrPoolEntryConsumed.
	MarkConsumed(ctx context.Context, entryID uint) error
}

type poolEntryRepository struct {
	db *gorm.DB
}

// NewPoolEntryRepository creates a new pool entry repository
func NewPoolEntryRepository(db *gorm.DB) PoolEntryRepository {
	return &poolEntryRepository{db: db}
}

func (r *poolEntryRepository) Create(ctx context.Context, entry *models.PoolEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *poolEntryRepository) FindAvailableEntry(ctx context.Context, userID uint, excludedTrackIDs []uint) (*models.PoolEntry, error) {
	var genreIDs []uint
	err := r.db.WithContext(ctx).
		Table("user_genres").
		Where("user_id = ?", userID).
		Pluck("genre_id", &genreIDs).Error
	if err != nil {
		return nil, err
	}
	if len(genreIDs) == 0 {
		return nil, nil
	}

	query := r.db.WithContext(ctx).
		Model(&models.PoolEntry{}).
		Joins("JOIN posts ON posts.id = pool_entries.post_id").
		Where("pool_entries.is_consumed = ?", false).
		Where("posts.user_id <> ?", userID).
		Where("EXISTS (SELECT 1 FROM post_genres WHERE post_genres.post_id = posts.id AND post_genres.genre_id IN ?)", genreIDs)

	if len(excludedTrackIDs) > 0 {
		query = query.Where("posts.track_id NOT IN ?", excludedTrackIDs)
	}

	var entry models.PoolEntry
	err = query.Order("pool_entries.id").Select("pool_entries.*").First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *poolEntryRepository) MarkConsumed(ctx context.Context, entryID uint) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PoolEntry{}).
		Where("id = ? AND is_consumed = ?", entryID, false).
		Updates(map[string]interface{}{
			"is_consumed": true,
			"consumed_at": now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPoolEntryConsumed
	}
	return nil
}
