package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/careerforge/internal/dto"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/identity"
	"github.com/ahmetcoskunkizilkaya/careerforge/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// authErrors maps service errors to a status and the message shown to the
// caller. Anything unlisted is a 500 with the fallback message.
var authErrors = []struct {
	err     error
	status  int
	message string
}{
	{services.ErrEmailTaken, fiber.StatusConflict, ""},
	{services.ErrInvalidSignup, fiber.StatusBadRequest, ""},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized, ""},
	{services.ErrInvalidToken, fiber.StatusUnauthorized, ""},
	{services.ErrUserNotFound, fiber.StatusNotFound, "User not found"},
	{services.ErrPasswordRequired, fiber.StatusBadRequest, "Password is required"},
}

func authFail(c *fiber.Ctx, err error, fallback string) error {
	for _, m := range authErrors {
		if errors.Is(err, m.err) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			return c.Status(m.status).JSON(dto.ErrorResponse{Error: true, Message: msg})
		}
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error: true, Message: fallback,
	})
}

// bind parses the JSON body into v, answering 400 itself on failure.
func bind(c *fiber.Ctx, v any) (bool, error) {
	if err := c.BodyParser(v); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}
	return true, nil
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	resp, err := h.authService.Register(&req)
	if err != nil {
		return authFail(c, err, "Internal server error")
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	resp, err := h.authService.Login(&req)
	if err != nil {
		return authFail(c, err, "Internal server error")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	resp, err := h.authService.Refresh(&req)
	if err != nil {
		return authFail(c, err, "Internal server error")
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var req dto.LogoutRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.authService.Logout(&req); err != nil {
		return authFail(c, err, "Failed to logout")
	}
	return c.JSON(fiber.Map{"message": "Logged out successfully"})
}

// DeleteAccount removes the caller and every record owned by their email.
func (h *AuthHandler) DeleteAccount(c *fiber.Ctx) error {
	userID, err := identity.GetUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}
	var req dto.DeleteAccountRequest
	if ok, err := bind(c, &req); !ok {
		return err
	}
	if err := h.authService.DeleteAccount(userID, req.Password); err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Incorrect password. Please try again.",
			})
		}
		return authFail(c, err, "Failed to delete account")
	}
	return c.JSON(fiber.Map{"message": "Account deleted successfully"})
}
