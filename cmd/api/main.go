package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/mahmoudomarus/krib-server/internal/booking"
	bookingStore "github.com/mahmoudomarus/krib-server/internal/booking/store"
	"github.com/mahmoudomarus/krib-server/internal/config"
	"github.com/mahmoudomarus/krib-server/internal/database"
	"github.com/mahmoudomarus/krib-server/internal/event"
	eventStore "github.com/mahmoudomarus/krib-server/internal/event/store"
	kribHttp "github.com/mahmoudomarus/krib-server/internal/http"
	bookingHandler "github.com/mahmoudomarus/krib-server/internal/http/booking"
	ledgerHandler "github.com/mahmoudomarus/krib-server/internal/http/ledger"
	payoutHandler "github.com/mahmoudomarus/krib-server/internal/http/payout"
	propertyHandler "github.com/mahmoudomarus/krib-server/internal/http/property"
	webhookHandler "github.com/mahmoudomarus/krib-server/internal/http/webhook"
	"github.com/mahmoudomarus/krib-server/internal/ledger"
	ledgerStore "github.com/mahmoudomarus/krib-server/internal/ledger/store"
	"github.com/mahmoudomarus/krib-server/internal/payout"
	payoutStore "github.com/mahmoudomarus/krib-server/internal/payout/store"
	"github.com/mahmoudomarus/krib-server/internal/property"
	propertyStore "github.com/mahmoudomarus/krib-server/internal/property/store"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString(), database.Pool{
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		MaxIdleConns:    cfg.DB.MaxIdleConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	calc := ledger.Calculator{
		PlatformFeeBPS:          cfg.Fees.PlatformBPS,
		ProcessingFeeBPS:        cfg.Fees.ProcessingBPS,
		ProcessingFeeFixedCents: cfg.Fees.ProcessingFixedCents,
	}

	var (
		propertyService = property.NewService(propertyStore.New(db))
		bookingService  = booking.NewService(bookingStore.New(db), calc)
		ledgerService   = ledger.NewService(ledgerStore.New(db))
		eventService    = event.NewService(eventStore.New(db), cfg.Webhooks.FailureThreshold)
		payoutService   = payout.NewService(payoutStore.New(db), payout.Defaults{
			HoldPeriodDays: cfg.Payouts.HoldPeriodDays,
			MinimumAmount:  cfg.Payouts.MinimumAmountCents,
			Frequency:      payout.Frequency(cfg.Payouts.Frequency),
		})
	)

	scheduler, err := payout.NewScheduler(payoutService, cfg.Payouts.Schedule)
	if err != nil {
		slog.Error("failed to create settlement scheduler", "error", err)
		os.Exit(1)
	}

	scheduler.Start()
	defer scheduler.Stop()

	var (
		propertyH = propertyHandler.NewHandler(propertyService)
		bookingH  = bookingHandler.NewHandler(bookingService)
		ledgerH   = ledgerHandler.NewHandler(ledgerService)
		payoutH   = payoutHandler.NewHandler(payoutService, cfg.Auth.CallbackSecret)
		webhookH  = webhookHandler.NewHandler(eventService, cfg.Auth.CallbackSecret)
	)

	router := kribHttp.New(kribHttp.Options{
		JWTSecret:   cfg.Auth.JWTSecret,
		CORSOrigins: cfg.Server.CORSOrigins,
	}, propertyH, bookingH, ledgerH, payoutH, webhookH)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
