// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/codr1/Courtside/internal/blocks"
	"github.com/codr1/Courtside/internal/booking"
	"github.com/codr1/Courtside/internal/config"
	"github.com/codr1/Courtside/internal/db"
	"github.com/codr1/Courtside/internal/email"
	"github.com/codr1/Courtside/internal/events"
	"github.com/codr1/Courtside/internal/payments"
	"github.com/codr1/Courtside/internal/ratelimit"
	"github.com/codr1/Courtside/internal/scheduler"
)

const shutdownTimeout = 30 * time.Second

func setupLogger(environment string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if environment == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func configPath() string {
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		return path
	}
	return "config/config.yaml"
}

func main() {
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	setupLogger(cfg.App.Environment)

	database, err := db.NewFromConfig(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer database.Close()
	store := db.NewStore(database)

	var gateway payments.Gateway
	if cfg.Payments.SecretKey != "" {
		omiseGateway, err := payments.NewOmiseGateway(cfg.Payments.PublicKey, cfg.Payments.SecretKey, cfg.Payments.Currency)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize payment gateway")
		}
		gateway = omiseGateway
	} else {
		log.Warn().Msg("Payment gateway not configured; bookings will not be charged")
	}

	var publisher *events.Publisher
	if cfg.MQ.URL != "" {
		publisher, err = events.NewPublisher(cfg.MQ.URL, cfg.MQ.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to message broker")
		}
		defer publisher.Close()
	} else {
		log.Warn().Msg("Message broker not configured; events will not be published")
	}

	var notifier booking.Notifier
	if cfg.Email.Enabled {
		sesClient, err := email.NewSESClient(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			cfg.Email.Region,
			cfg.Email.Sender,
		)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize email client")
		}
		notifier = email.NewNotifier(store, sesClient)
	}

	clock := clockwork.NewRealClock()
	svc := booking.NewService(booking.ServiceConfig{
		Store:       store,
		Gateway:     gateway,
		Publisher:   publisher,
		Notifier:    notifier,
		Clock:       clock,
		MinDuration: minDuration(cfg),
	})
	manager := blocks.NewManager(store, svc, publisher)

	limiter := ratelimit.New(nil)
	defer limiter.Close()

	sched, err := scheduler.New()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize scheduler")
	}
	if err := sched.RegisterCompletionSweep(store, clock, cfg.Booking.CompletionSweepCron); err != nil {
		log.Fatal().Err(err).Msg("Failed to register completion sweep")
	}
	sched.Start()

	server := newServer(cfg, serverDeps{
		store:   store,
		svc:     svc,
		manager: manager,
		gateway: gateway,
		limiter: limiter,
		clock:   clock,
	})

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	// Run server
	g.Go(func() error {
		log.Info().Int("port", cfg.App.Port).Msg("Starting server")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Wait for interrupt signal
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		log.Info().Msg("Shutting down server")
		if err := sched.Stop(); err != nil {
			log.Error().Err(err).Msg("Scheduler shutdown failed")
		}
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown error: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Server terminated with error")
		os.Exit(1)
	}
}
