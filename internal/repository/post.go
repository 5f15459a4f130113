package repository

import (
	"context"
	"errors"
	"math/rand"

	"onesong/internal/cache"
	"onesong/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	AttachGenres(ctx context.Context, post *models.Post, genreIDs []uint) error
	HasPostedToday(ctx context.Context, userID uint, date string) (bool, error)
	FindTodayByUser(ctx context.Context, userID uint, date string) (*models.Post, error)
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	GetByUserPaginated(ctx context.Context, userID uint, page, perPage int) ([]*models.Post, models.Pagination, error)
	// GetMostPopularTrack counts resolved exchanges per track, takes the top
	// ten, and returns a uniformly random pick among them. The randomization
	// is a deliberate variety mechanism for the public stat display, not a
	// strict most-popular lookup.
	GetMostPopularTrack(ctx context.Context) (*models.TrackSummary, error)
	GetTodayActiveUsersCount(ctx context.Context, date string) (int64, error)
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	return r.db.WithContext(ctx).Create(post).Error
}

func (r *postRepository) AttachGenres(ctx context.Context, post *models.Post, genreIDs []uint) error {
	for _, genreID := range genreIDs {
		err := r.db.WithContext(ctx).Exec(
			"INSERT INTO post_genres (post_id, genre_id) VALUES (?, ?)",
			post.ID, genreID,
		).Error
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *postRepository) HasPostedToday(ctx context.Context, userID uint, date string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ? AND post_date = ?", userID, date).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *postRepository) FindTodayByUser(ctx context.Context, userID uint, date string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_date = ?", userID, date).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	// Posts are immutable once created, so the cached copy never goes stale.
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.db.WithContext(ctx).
			Preload("Track").
			Preload("Track.PrimaryGenre").
			Preload("Genres").
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) GetByUserPaginated(ctx context.Context, userID uint, page, perPage int) ([]*models.Post, models.Pagination, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ?", userID).
		Count(&total).Error; err != nil {
		return nil, models.Pagination{}, err
	}

	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Track").
		Preload("Track.PrimaryGenre").
		Preload("Genres").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&posts).Error
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return posts, models.NewPagination(page, perPage, total), nil
}

func (r *postRepository) GetMostPopularTrack(ctx context.Context) (*models.TrackSummary, error) {
	var trackIDs []uint
	err := r.db.WithContext(ctx).
		Table("exchanges").
		Joins("JOIN posts ON posts.id = exchanges.received_post_id").
		Where("exchanges.received_post_id IS NOT NULL").
		Group("posts.track_id").
		Order("COUNT(*) DESC").
		Limit(10).
		Pluck("posts.track_id", &trackIDs).Error
	if err != nil {
		return nil, err
	}
	if len(trackIDs) == 0 {
		return nil, nil
	}

	pick := trackIDs[rand.Intn(len(trackIDs))]

	var track models.Track
	if err := r.db.WithContext(ctx).
		Preload("PrimaryGenre").
		First(&track, pick).Error; err != nil {
		return nil, err
	}

	summary := &models.TrackSummary{
		Title:  track.Title,
		Artist: track.Artist,
	}
	if track.PrimaryGenre != nil {
		summary.Genre = track.PrimaryGenre.Name
	}
	return summary, nil
}

func (r *postRepository) GetTodayActiveUsersCount(ctx context.Context, date string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("post_date = ?", date).
		Distinct("user_id").
		Count(&count).Error
	return count, err
}
