package server

import (
	"github.com/gofiber/fiber/v2"

	"onesong/internal/models"
	"onesong/internal/service"
)

// CanPost handles GET /api/can-post
func (s *Server) CanPost(c *fiber.Ctx) error {
	canPost, err := s.postService.CanPost(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"can_post": canPost})
}

// CreatePost handles POST /api/posts. Creating the daily post also runs the
// matching transaction, so the response reports whether a track was received.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	var req struct {
		Title          string  `json:"title"`
		Artist         string  `json:"artist"`
		URL            string  `json:"url"`
		MusicBrainzID  *string `json:"musicbrainz_id"`
		CoverArtURL    *string `json:"cover_art_url"`
		PrimaryGenreID uint    `json:"primary_genre_id"`
		GenreIDs       []uint  `json:"genre_ids"`
		Comment        *string `json:"comment"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	userID := currentUserID(c)
	postID, err := s.postService.CreatePost(c.UserContext(), service.CreatePostInput{
		UserID:         userID,
		Title:          req.Title,
		Artist:         req.Artist,
		URL:            req.URL,
		MusicBrainzID:  req.MusicBrainzID,
		CoverArtURL:    req.CoverArtURL,
		PrimaryGenreID: req.PrimaryGenreID,
		GenreIDs:       req.GenreIDs,
		Comment:        req.Comment,
	})
	if err != nil {
		return respondServiceError(c, err)
	}

	received, err := s.postService.GetTodayReceivedPost(c.UserContext(), userID)
	if err != nil {
		return respondServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"post_id":  postID,
		"received": received,
	})
}

// GetPost handles GET /api/posts/:id
func (s *Server) GetPost(c *fiber.Ctx) error {
	id, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.GetPostByID(c.UserContext(), id)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"post": post})
}

// TodayReceivedPost handles GET /api/today-received-post
func (s *Server) TodayReceivedPost(c *fiber.Ctx) error {
	result, err := s.postService.GetTodayReceivedPost(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(result)
}

// CheckReceive handles POST /api/check-receive. Polling clients call this
// while their exchange is waiting; it reports whether a match was just made.
func (s *Server) CheckReceive(c *fiber.Ctx) error {
	matched, err := s.postService.CheckAndReceiveFromPool(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{"matched": matched})
}

// ReceivedHistory handles GET /api/received-posts
func (s *Server) ReceivedHistory(c *fiber.Ctx) error {
	p := parsePage(c)
	items, pagination, err := s.postService.GetReceivedHistory(c.UserContext(), currentUserID(c), p.Page, p.PerPage)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": pagination,
	})
}

// SentHistory handles GET /api/sent-posts
func (s *Server) SentHistory(c *fiber.Ctx) error {
	p := parsePage(c)
	items, pagination, err := s.postService.GetSentHistory(c.UserContext(), currentUserID(c), p.Page, p.PerPage)
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(fiber.Map{
		"data":       items,
		"pagination": pagination,
	})
}

// GetStats handles GET /api/stats (public)
func (s *Server) GetStats(c *fiber.Ctx) error {
	stats, err := s.postService.GetStats(c.UserContext())
	if err != nil {
		return respondServiceError(c, err)
	}
	return c.JSON(stats)
}
