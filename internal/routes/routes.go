package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/visacarte/internal/auth"
	"github.com/example/visacarte/internal/handlers"
	"github.com/example/visacarte/internal/middleware"
	"github.com/example/visacarte/internal/security"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, svc *auth.Service, tokens *security.TokenIssuer) {
	authHandler := handlers.NewAuthHandler(svc)
	profileHandler := handlers.NewProfileHandler(svc)

	api := app.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Post("/send-email-code", authHandler.SendEmailCode)
	authGroup.Post("/verify-email-code", authHandler.VerifyEmailCode)
	authGroup.Post("/send-phone-code", authHandler.SendPhoneCode)
	authGroup.Post("/verify-phone-code", authHandler.VerifyPhoneCode)
	authGroup.Post("/final-register", authHandler.FinalRegister)
	authGroup.Post("/set-pin", authHandler.SetPIN)
	authGroup.Post("/verify-pin", authHandler.VerifyPIN)
	authGroup.Post("/change-pin", authHandler.ChangePIN)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Delete("/users/:id", authHandler.DeleteUser)

	protected := api.Group("", middleware.AuthMiddleware(tokens))
	protected.Get("/profile", profileHandler.GetProfile)
	protected.Put("/profile", profileHandler.UpdateProfile)
}
