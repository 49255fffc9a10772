package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/visacarte/internal/auth"
	"github.com/example/visacarte/internal/middleware"
)

// ProfileHandler manages the authenticated user's profile endpoints.
type ProfileHandler struct {
	svc *auth.Service
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(svc *auth.Service) *ProfileHandler {
	return &ProfileHandler{svc: svc}
}

// GetProfile returns the authenticated user's account.
func (h *ProfileHandler) GetProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	user, err := h.svc.Profile(userID)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"user": user})
}

type updateProfileRequest struct {
	Name   *string `json:"name"`
	Avatar *string `json:"avatar"`
	Email  *string `json:"email"`
	Phone  *string `json:"phone"`
}

// UpdateProfile applies partial updates to the authenticated user.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	userID, ok := middleware.GetCurrentUserID(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.svc.UpdateProfile(userID, auth.UpdateProfileParams{
		Name:   req.Name,
		Avatar: req.Avatar,
		Email:  req.Email,
		Phone:  req.Phone,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "profile updated"})
}
