package server

import (
	"github.com/gofiber/fiber/v2"

	"onesong/internal/models"
)

// GetGenres handles GET /api/genres (public)
func (s *Server) GetGenres(c *fiber.Ctx) error {
	genres, err := s.genreService.GetAllGenres(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"genres": genres})
}

// GetUserGenres handles GET /api/user-genres
func (s *Server) GetUserGenres(c *fiber.Ctx) error {
	genres, err := s.genreService.GetUserGenres(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"genres": genres})
}

// UpdateUserGenres handles POST /api/user-genres. It replaces the user's
// preference genres wholesale.
func (s *Server) UpdateUserGenres(c *fiber.Ctx) error {
	var req struct {
		GenreIDs []uint `json:"genre_ids"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	if err := s.genreService.UpdateUserGenres(c.UserContext(), userID, req.GenreIDs); err != nil {
		return respondServiceError(c, err)
	}

	genres, err := s.genreService.GetUserGenres(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"genres": genres})
}
