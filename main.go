package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hotel-booking-api/config"
	"hotel-booking-api/controllers"
	"hotel-booking-api/routes"
	"hotel-booking-api/services"
	"hotel-booking-api/utils"
)

func main() {
	// Load .env (optional)
	_ = godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	settings, err := config.LoadSettings()
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	if err := config.ConnectDatabase(); err != nil {
		logger.Fatal("database connect failed", zap.Error(err))
	}
	db := config.DB
	logger.Info("database connection established")

	mailer := utils.NewSMTPMailer(logger)
	gateway := services.NewRazorpayGateway(settings.RazorpayKeyID, settings.RazorpayKeySecret)

	availabilitySvc := services.NewAvailabilityService(db, settings.RoomInventory, logger)
	rates := services.RateCard{Nightly: settings.NightlyRates, Currency: settings.Currency}
	bookingSvc := services.NewBookingService(db, availabilitySvc, rates, mailer, logger)
	paymentSvc := services.NewPaymentService(
		db, gateway, mailer,
		settings.RazorpayKeyID, settings.RazorpayKeySecret, settings.RazorpayWebhookSecret,
		logger,
	)

	bookingController := controllers.NewBookingController(bookingSvc, availabilitySvc, logger)
	paymentController := controllers.NewPaymentController(paymentSvc, logger)

	router := routes.SetupRouter(bookingController, paymentController, logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	addr := ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen and serve failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutdown signal received, shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server stopped gracefully")
}
