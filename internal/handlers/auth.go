package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"pouch/internal/services/auth"
	"pouch/internal/utils"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input credentialsRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	user, token, err := h.authService.Register(input.Username, input.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameTaken):
			return utils.Conflict(c, err.Error())
		case errors.Is(err, auth.ErrWeakPassword), errors.Is(err, auth.ErrInvalidCredentials):
			return utils.BadRequest(c, err.Error())
		}
		return utils.InternalError(c, "failed to register user")
	}

	return utils.Created(c, fiber.Map{
		"user": fiber.Map{
			"id":       user.ID,
			"username": user.Username,
		},
		"token": token,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input credentialsRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "invalid request format")
	}

	user, token, err := h.authService.Login(input.Username, input.Password)
	if err != nil {
		if errors.Is(err, auth.ErrAccountLocked) {
			return utils.Forbidden(c, err.Error())
		}
		return utils.Unauthorized(c, auth.ErrInvalidCredentials.Error())
	}

	return utils.Success(c, fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"token":    token,
	})
}
