package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/visacarte/internal/auth"
	"github.com/example/visacarte/internal/config"
	"github.com/example/visacarte/internal/database"
	"github.com/example/visacarte/internal/otp"
	"github.com/example/visacarte/internal/repository"
	"github.com/example/visacarte/internal/routes"
	"github.com/example/visacarte/internal/security"
	"github.com/example/visacarte/internal/services"
	"github.com/example/visacarte/internal/verification"
)

func main() {
	cfg := config.Load()
	db := database.Connect(cfg.DatabaseURL)

	users := repository.NewUsers(db)
	codes := otp.NewStore(cfg.OTPExpires)
	verified := verification.NewTracker()
	hasher := security.NewHasher()
	tokens := security.NewTokenIssuer(cfg.JWTSecret, cfg.TokenExpires)
	mailer := services.NewEmailService(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword)
	whatsapp := services.NewWhatsAppService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom)

	svc := auth.NewService(users, codes, verified, hasher, tokens, mailer, whatsapp)

	app := fiber.New(fiber.Config{
		AppName: "Visa Carte Backend",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, svc, tokens)

	log.Printf("Starting server on :%s", cfg.AppPort)
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatalf("fiber.Listen error: %v", err)
	}
}
