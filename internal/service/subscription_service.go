package service

import (
	"context"

	"onesong/internal/models"
	"onesong/internal/repository"
)

// SubscriptionService manages plan listings and a user's payment records.
// The actual payment-gateway exchange happens client-side; this service only
// tracks the resulting state transitions.
type SubscriptionService struct {
	subscriptionRepo repository.SubscriptionRepository
}

// NewSubscriptionService returns a new SubscriptionService.
func NewSubscriptionService(subscriptionRepo repository.SubscriptionRepository) *SubscriptionService {
	return &SubscriptionService{subscriptionRepo: subscriptionRepo}
}

// ListTypes lists the purchasable plan tiers.
func (s *SubscriptionService) ListTypes(ctx context.Context) ([]models.SubscriptionType, error) {
	return s.subscriptionRepo.ListTypes(ctx)
}

// GetUserSubscription returns the user's live subscription, or nil.
func (s *SubscriptionService) GetUserSubscription(ctx context.Context, userID uint) (*models.SubscriptionPayment, error) {
	return s.subscriptionRepo.GetActiveByUser(ctx, userID)
}

// CreateSubscription opens an unfinished payment record for the given plan.
func (s *SubscriptionService) CreateSubscription(ctx context.Context, userID, typeID uint, paymentMethodID string) (*models.SubscriptionPayment, error) {
	subType, err := s.subscriptionRepo.GetTypeByID(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if subType == nil {
		return nil, models.NewNotFoundError("subscription type", typeID)
	}

	payment := &models.SubscriptionPayment{
		UserID:             userID,
		SubscriptionTypeID: typeID,
		PaymentMethodID:    paymentMethodID,
	}
	if err := s.subscriptionRepo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return payment, nil
}

// CompletePayment marks the user's payment as finished.
func (s *SubscriptionService) CompletePayment(ctx context.Context, userID, paymentID uint) error {
	payment, err := s.subscriptionRepo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil || payment.UserID != userID {
		return models.NewNotFoundError("subscription payment", paymentID)
	}
	if payment.PaymentIsFinished {
		return models.NewConflictError("Payment is already completed")
	}
	return s.subscriptionRepo.MarkPaymentFinished(ctx, paymentID)
}

// CancelSubscription cancels the user's payment record.
func (s *SubscriptionService) CancelSubscription(ctx context.Context, userID, paymentID uint) error {
	payment, err := s.subscriptionRepo.GetPaymentByID(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment == nil || payment.UserID != userID {
		return models.NewNotFoundError("subscription payment", paymentID)
	}
	if payment.CanceledAt != nil {
		return models.NewConflictError("Subscription is already canceled")
	}
	return s.subscriptionRepo.CancelPayment(ctx, paymentID)
}
