package handlers

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"

	"github.com/example/visacarte/internal/auth"
	"github.com/example/visacarte/internal/errs"
)

// AuthHandler exposes the registration and authentication endpoints.
type AuthHandler struct {
	svc *auth.Service
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// httpError maps error kinds to transport status codes. Unclassified
// errors fall through to Fiber's 500 handling without leaking details.
func httpError(err error) error {
	var e *errs.Error
	if !errors.As(err, &e) {
		return err
	}

	switch e.Kind {
	case errs.Validation:
		return fiber.NewError(fiber.StatusBadRequest, e.Message)
	case errs.Auth:
		return fiber.NewError(fiber.StatusUnauthorized, e.Message)
	case errs.NotFound:
		return fiber.NewError(fiber.StatusNotFound, e.Message)
	case errs.Conflict:
		return fiber.NewError(fiber.StatusConflict, e.Message)
	case errs.Dependency:
		return fiber.NewError(fiber.StatusBadGateway, e.Message)
	default:
		return err
	}
}

type sendEmailCodeRequest struct {
	Email string `json:"email"`
}

// SendEmailCode starts email verification.
func (h *AuthHandler) SendEmailCode(c *fiber.Ctx) error {
	var req sendEmailCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.SendEmailCode(req.Email); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": fmt.Sprintf("code sent to %s", req.Email)})
}

type verifyEmailCodeRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// VerifyEmailCode validates the emailed code.
func (h *AuthHandler) VerifyEmailCode(c *fiber.Ctx) error {
	var req verifyEmailCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.VerifyEmailCode(req.Email, req.Code); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "email verified"})
}

type sendPhoneCodeRequest struct {
	Phone string `json:"phone"`
}

// SendPhoneCode starts phone verification over WhatsApp.
func (h *AuthHandler) SendPhoneCode(c *fiber.Ctx) error {
	var req sendPhoneCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.SendPhoneCode(req.Phone); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": fmt.Sprintf("code sent to %s", req.Phone)})
}

type verifyPhoneCodeRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code"`
}

// VerifyPhoneCode validates the WhatsApp code.
func (h *AuthHandler) VerifyPhoneCode(c *fiber.Ctx) error {
	var req verifyPhoneCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.VerifyPhoneCode(req.Phone, req.Code); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "phone verified"})
}

type finalRegisterRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// FinalRegister creates the account after both channels are verified.
func (h *AuthHandler) FinalRegister(c *fiber.Ctx) error {
	var req finalRegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.svc.FinalRegister(auth.RegisterParams{
		Email:    req.Email,
		Phone:    req.Phone,
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		return httpError(err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"user": user})
}

type setPINRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

// SetPIN stores the PIN credential and returns a session token.
func (h *AuthHandler) SetPIN(c *fiber.Ctx) error {
	var req setPINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.SetPIN(req.UserID, req.PIN)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"user":         result.User,
	})
}

type verifyPINRequest struct {
	UserID string `json:"user_id"`
	PIN    string `json:"pin"`
}

// VerifyPIN checks the PIN without side effects.
func (h *AuthHandler) VerifyPIN(c *fiber.Ctx) error {
	var req verifyPINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	user, err := h.svc.VerifyPIN(req.UserID, req.PIN)
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"message": "pin verified",
		"user_id": user.ID.String(),
	})
}

type changePINRequest struct {
	UserID string `json:"user_id"`
	OldPIN string `json:"old_pin"`
	NewPIN string `json:"new_pin"`
}

// ChangePIN replaces the PIN after verifying the old one.
func (h *AuthHandler) ChangePIN(c *fiber.Ctx) error {
	var req changePINRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := h.svc.ChangePIN(req.UserID, req.OldPIN, req.NewPIN); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "pin updated"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	PIN      string `json:"pin"`
	DeviceID string `json:"device_id"`
}

// Login authenticates by password or PIN and issues a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.svc.Login(auth.LoginParams{
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
		PIN:      req.PIN,
		DeviceID: req.DeviceID,
	})
	if err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{
		"access_token": result.AccessToken,
		"token_type":   result.TokenType,
		"expires_in":   result.ExpiresIn,
		"user":         result.User,
	})
}

// DeleteUser soft-deletes an account.
func (h *AuthHandler) DeleteUser(c *fiber.Ctx) error {
	if err := h.svc.DeleteUser(c.Params("id")); err != nil {
		return httpError(err)
	}

	return c.JSON(fiber.Map{"message": "user deleted"})
}
