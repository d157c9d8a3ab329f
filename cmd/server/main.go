package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/Techmanna/seat-reservation-api/internal/config"
	"github.com/Techmanna/seat-reservation-api/internal/database"
	"github.com/Techmanna/seat-reservation-api/internal/handler"
	"github.com/Techmanna/seat-reservation-api/internal/mail"
	"github.com/Techmanna/seat-reservation-api/internal/notify"
	"github.com/Techmanna/seat-reservation-api/internal/queue"
	"github.com/Techmanna/seat-reservation-api/internal/repository"
	"github.com/Techmanna/seat-reservation-api/internal/router"
	"github.com/Techmanna/seat-reservation-api/internal/service"
	"github.com/Techmanna/seat-reservation-api/internal/utils"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.EnsureSchema(ctx, db); err != nil {
		cancel()
		log.Fatalf("schema: %v", err)
	}
	cancel()

	rdb := config.NewRedisClient() // nil when Redis is absent; middleware degrades to no-op

	settingsRepo := repository.NewSettingsRepo(db)
	userRepo := repository.NewUserRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	otpRepo := repository.NewOTPRepo(db)

	seedAdmin(cfg, userRepo)

	mailer := mail.New(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	renderer := &notify.Renderer{AppName: cfg.AppName, FrontendURL: cfg.FrontendURL}
	dispatcher := notify.NewDispatcher(renderer, mailer)

	// The consumer drains the broker queue and delivers via SMTP. It
	// reconnects on its own; a missing broker only disables async delivery
	// because the dispatcher falls back to direct sends.
	go func() {
		if err := queue.StartEmailConsumer(mailer); err != nil {
			log.Printf("email consumer stopped: %v", err)
		}
	}()

	issuer := service.NewOTPIssuer(otpRepo, cfg.OTPTTL)
	bookings := service.NewBookingService(settingsRepo, userRepo, bookingRepo, issuer, dispatcher)

	e := echo.New()
	e.HideBanner = true

	router.RegisterRoutes(e, router.Handlers{
		Health:   &handler.HealthHandler{AppName: cfg.AppName, AppVersion: cfg.AppVersion},
		Auth:     handler.NewAuthHandler(cfg, userRepo),
		Booking:  handler.NewBookingHandler(bookings),
		Settings: handler.NewSettingsHandler(settingsRepo),
	}, cfg, rdb)

	addr := ":" + cfg.Port
	log.Printf("%s listening on %s (env=%s)", cfg.AppName, addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

// seedAdmin provisions the settings administrator account when
// ADMIN_EMAIL and ADMIN_PASSWORD are set.
func seedAdmin(cfg config.Config, users *repository.UserRepo) {
	email := os.Getenv("ADMIN_EMAIL")
	pass := os.Getenv("ADMIN_PASSWORD")
	if email == "" || pass == "" {
		return
	}
	hash, err := utils.HashPassword(pass, cfg.BcryptCost)
	if err != nil {
		log.Fatalf("admin seed: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := users.EnsureAdmin(ctx, email, hash); err != nil {
		log.Fatalf("admin seed: %v", err)
	}
}
