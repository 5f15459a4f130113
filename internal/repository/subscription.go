package repository

import (
	"context"
	"errors"
	"time"

	"onesong/internal/models"

	"gorm.io/gorm"
)

// SubscriptionRepository defines the interface for subscription data operations
type SubscriptionRepository interface {
	ListTypes(ctx context.Context) ([]models.SubscriptionType, error)
	GetTypeByID(ctx context.Context, id uint) (*models.SubscriptionType, error)
	CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error
	GetPaymentByID(ctx context.Context, id uint) (*models.SubscriptionPayment, error)
	MarkPaymentFinished(ctx context.Context, paymentID uint) error
	CancelPayment(ctx context.Context, paymentID uint) error
	// GetActiveByUser returns the user's newest finished, non-canceled
	// payment, or (nil, nil) when the user has no live subscription.
	GetActiveByUser(ctx context.Context, userID uint) (*models.SubscriptionPayment, error)
}

type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) ListTypes(ctx context.Context) ([]models.SubscriptionType, error) {
	var types []models.SubscriptionType
	err := r.db.WithContext(ctx).Order("price, id").Find(&types).Error
	return types, err
}

func (r *subscriptionRepository) GetTypeByID(ctx context.Context, id uint) (*models.SubscriptionType, error) {
	var t models.SubscriptionType
	err := r.db.WithContext(ctx).First(&t, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *subscriptionRepository) CreatePayment(ctx context.Context, payment *models.SubscriptionPayment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *subscriptionRepository) GetPaymentByID(ctx context.Context, id uint) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Preload("SubscriptionType").
		First(&payment, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *subscriptionRepository) MarkPaymentFinished(ctx context.Context, paymentID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("id = ?", paymentID).
		Update("payment_is_finished", true).Error
}

func (r *subscriptionRepository) CancelPayment(ctx context.Context, paymentID uint) error {
	return r.db.WithContext(ctx).
		Model(&models.SubscriptionPayment{}).
		Where("id = ? AND canceled_at IS NULL", paymentID).
		Update("canceled_at", time.Now()).Error
}

func (r *subscriptionRepository) GetActiveByUser(ctx context.Context, userID uint) (*models.SubscriptionPayment, error) {
	var payment models.SubscriptionPayment
	err := r.db.WithContext(ctx).
		Preload("SubscriptionType").
		Where("user_id = ? AND payment_is_finished = ? AND canceled_at IS NULL", userID, true).
		Order("created_at DESC").
		First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}
