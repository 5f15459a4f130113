package server

import (
	"github.com/gofiber/fiber/v2"

	"onesong/internal/models"
)

// GetSubscriptionTypes handles GET /api/subscription-types (public)
func (s *Server) GetSubscriptionTypes(c *fiber.Ctx) error {
	types, err := s.subscriptionService.ListTypes(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"subscription_types": types})
}

// GetUserSubscription handles GET /api/user-subscription
func (s *Server) GetUserSubscription(c *fiber.Ctx) error {
	sub, err := s.subscriptionService.GetUserSubscription(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"subscription": sub})
}

// CreateSubscription handles POST /api/subscriptions
func (s *Server) CreateSubscription(c *fiber.Ctx) error {
	var req struct {
		SubscriptionTypeID uint   `json:"subscription_type_id"`
		PaymentMethodID    string `json:"payment_method_id"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}
	if req.SubscriptionTypeID == 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("subscription_type_id is required"))
	}

	payment, err := s.subscriptionService.CreateSubscription(
		c.UserContext(), currentUserID(c), req.SubscriptionTypeID, req.PaymentMethodID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"subscription": payment})
}

// CompleteSubscription handles PATCH /api/subscriptions/:id/complete
func (s *Server) CompleteSubscription(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.subscriptionService.CompletePayment(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment completed"})
}

// CancelSubscription handles PATCH /api/subscriptions/:id/cancel
func (s *Server) CancelSubscription(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.subscriptionService.CancelSubscription(c.UserContext(), currentUserID(c), id); err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Subscription canceled"})
}
