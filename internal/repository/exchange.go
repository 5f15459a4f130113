package repository

import (
	"context"
	"errors"

	"onesong/internal/models"

	"gorm.io/gorm"
)

// ExchangeRepository defines the interface for exchange ledger operations.
type ExchangeRepository interface {
	Create(ctx context.Context, exchange *models.Exchange) error
	// FindWaiting returns an unresolved exchange whose requester is not
	// excludeUserID and has never received a post carrying trackID in any
	// resolved exchange. Returns (nil, nil) when none qualifies.
	FindWaiting(ctx context.Context, excludeUserID, trackID uint) (*models.Exchange, error)
	// GetReceivedTrackIDs lists every track the user has received via
	// resolved exchanges, for duplicate-delivery prevention.
	GetReceivedTrackIDs(ctx context.Context, userID uint) ([]uint, error)
	FindTodayExchange(ctx context.Context, userID uint, date string) (*models.Exchange, error)
	FindLatestWaiting(ctx context.Context, userID uint) (*models.Exchange, error)
	HasPastExchangeWithTrack(ctx context.Context, userID, trackID, excludeExchangeID uint) (bool, error)
	// AssignReceivedPost sets received_post_id, permitted only from NULL.
	// Returns ErrExchangeResolved when the exchange was already matched.
	AssignReceivedPost(ctx context.Context, exchangeID, postID uint) error
	GetReceivedByUserPaginated(ctx context.Context, userID uint, page, perPage int) ([]*models.Exchange, models.Pagination, error)
	// GetTodayRandomExchange picks one arbitrary resolved exchange dated
	// today for the public activity stat. Returns (nil, nil) when today has
	// no resolved exchanges.
	GetTodayRandomExchange(ctx context.Context, date string) (*models.TrackSummary, error)
}

type exchangeRepository struct {
	db *gorm.DB
}

// NewExchangeRepository creates a new exchange repository
func NewExchangeRepository(db *gorm.DB) ExchangeRepository {
	return &exchangeRepository{db: db}
}

func (r *exchangeRepository) Create(ctx context.Context, exchange *models.Exchange) error {
	return r.db.WithContext(ctx).Create(exchange).Error
}

func (r *exchangeRepository) FindWaiting(ctx context.Context, excludeUserID, trackID uint) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Where("received_post_id IS NULL").
		Where("requester_user_id <> ?", excludeUserID).
		Where(`requester_user_id NOT IN (
			SELECT e.requester_user_id FROM exchanges e
			JOIN posts p ON p.id = e.received_post_id
			WHERE p.track_id = ?)`, trackID).
		Order("id").
		First(&exchange).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *exchangeRepository) GetReceivedTrackIDs(ctx context.Context, userID uint) ([]uint, error) {
	var trackIDs []uint
	err := r.db.WithContext(ctx).
		Table("exchanges").
		Joins("JOIN posts ON posts.id = exchanges.received_post_id").
		Where("exchanges.requester_user_id = ?", userID).
		Where("exchanges.received_post_id IS NOT NULL").
		Pluck("posts.track_id", &trackIDs).Error
	return trackIDs, err
}

func (r *exchangeRepository) FindTodayExchange(ctx context.Context, userID uint, date string) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND exchange_date = ?", userID, date).
		Preload("ReceivedPost").
		Preload("ReceivedPost.Track").
		Preload("ReceivedPost.Track.PrimaryGenre").
		Preload("ReceivedPost.Genres").
		Preload("ReceivedPost.User").
		First(&exchange).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *exchangeRepository) FindLatestWaiting(ctx context.Context, userID uint) (*models.Exchange, error) {
	var exchange models.Exchange
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND received_post_id IS NULL", userID).
		Order("created_at DESC").
		First(&exchange).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &exchange, nil
}

func (r *exchangeRepository) HasPastExchangeWithTrack(ctx context.Context, userID, trackID, excludeExchangeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("exchanges").
		Joins("JOIN posts ON posts.id = exchanges.received_post_id").
		Where("exchanges.requester_user_id = ?", userID).
		Where("exchanges.received_post_id IS NOT NULL").
		Where("exchanges.id <> ?", excludeExchangeID).
		Where("posts.track_id = ?", trackID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *exchangeRepository) AssignReceivedPost(ctx context.Context, exchangeID, postID uint) error {
	result := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("id = ? AND received_post_id IS NULL", exchangeID).
		Update("received_post_id", postID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrExchangeResolved
	}
	return nil
}

func (r *exchangeRepository) GetReceivedByUserPaginated(ctx context.Context, userID uint, page, perPage int) ([]*models.Exchange, models.Pagination, error) {
	var total int64
	if err := r.db.WithContext(ctx).
		Model(&models.Exchange{}).
		Where("requester_user_id = ? AND received_post_id IS NOT NULL", userID).
		Count(&total).Error; err != nil {
		return nil, models.Pagination{}, err
	}

	var exchanges []*models.Exchange
	err := r.db.WithContext(ctx).
		Where("requester_user_id = ? AND received_post_id IS NOT NULL", userID).
		Preload("ReceivedPost").
		Preload("ReceivedPost.Track").
		Preload("ReceivedPost.Track.PrimaryGenre").
		Preload("ReceivedPost.Genres").
		Preload("ReceivedPost.User").
		Order("created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&exchanges).Error
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return exchanges, models.NewPagination(page, perPage, total), nil
}

func (r *exchangeRepository) GetTodayRandomExchange(ctx context.Context, date string) (*models.TrackSummary, error) {
	var exchange models.Exchange
	// RANDOM() is understood by both Postgres and SQLite.
	err := r.db.WithContext(ctx).
		Where("exchange_date = ? AND received_post_id IS NOT NULL", date).
		Preload("ReceivedPost.Track.PrimaryGenre").
		Preload("ReceivedPost.Track").
		Preload("ReceivedPost").
		Order("RANDOM()").
		First(&exchange).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if exchange.ReceivedPost == nil {
		return nil, nil
	}

	summary := &models.TrackSummary{
		Title:  exchange.ReceivedPost.Track.Title,
		Artist: exchange.ReceivedPost.Track.Artist,
	}
	if exchange.ReceivedPost.Track.PrimaryGenre != nil {
		summary.Genre = exchange.ReceivedPost.Track.PrimaryGenre.Name
	}
	return summary, nil
}
