// Command server runs the seat-state backing store: the HTTP API used by
// POS terminals, the hold expiry sweeper and the booking audit consumer.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/cinema-pos/internal/config"
	"github.com/iliyamo/cinema-pos/internal/database"
	"github.com/iliyamo/cinema-pos/internal/handler"
	"github.com/iliyamo/cinema-pos/internal/live"
	"github.com/iliyamo/cinema-pos/internal/middleware"
	"github.com/iliyamo/cinema-pos/internal/observability"
	"github.com/iliyamo/cinema-pos/internal/payment"
	"github.com/iliyamo/cinema-pos/internal/queue"
	"github.com/iliyamo/cinema-pos/internal/repository"
	"github.com/iliyamo/cinema-pos/internal/router"
	"github.com/iliyamo/cinema-pos/internal/service"
)

func main() {
	cfg := config.Load()
	log := observability.NewLogger(cfg.LogLevel)

	if err := run(cfg, log); err != nil {
		log.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

func run(cfg config.Config, log observability.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTLPEndpoint, "cinema-pos")
	if err != nil {
		return errors.Wrap(err, "otel")
	}
	defer shutdownOTel()

	db, err := database.Open(database.Options{
		User: cfg.DBUser, Pass: cfg.DBPass, Host: cfg.DBHost, Port: cfg.DBPort, Name: cfg.DBName,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
	}

	operators := repository.NewOperatorRepo(db)
	if cfg.BootstrapEmail != "" && cfg.BootstrapPassword != "" {
		created, err := operators.EnsureManager(ctx, cfg.BootstrapEmail, cfg.BootstrapPassword, cfg.BcryptCost)
		if err != nil {
			return errors.Wrap(err, "bootstrap manager")
		}
		if created {
			log.WithField("email", cfg.BootstrapEmail).Info("bootstrap manager created")
		}
	}

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Warn("redis unreachable: live seat updates, caching and rate limiting disabled")
	} else {
		defer rdb.Close()
	}
	seatPub := live.NewPublisher(rdb, log)

	var gateway service.PaymentInitiator
	if pc := config.LoadPaymentConfig(); pc.BaseURL != "" {
		gateway = payment.NewClient(pc)
	} else {
		log.Info("PAYMENT_BASE_URL not set: prepaid checkout disabled")
	}

	rooms := repository.NewRoomRepo(db)
	showtimes := repository.NewShowtimeRepo(db)
	showSeats := repository.NewShowSeatRepo(db)
	holds := repository.NewSeatHoldRepo(db)
	foods := repository.NewFoodDrinkRepo(db)

	seats := service.NewSeatService(service.SeatDeps{
		DB:        db,
		Showtimes: showtimes,
		ShowSeats: showSeats,
		Holds:     holds,
		Publisher: seatPub,
		HoldTTL:   cfg.HoldTTL,
		Log:       log,
	})
	bookings := service.NewBookingService(service.BookingDeps{
		DB:         db,
		Showtimes:  showtimes,
		Rooms:      rooms,
		ShowSeats:  showSeats,
		Holds:      holds,
		FoodDrinks: foods,
		Bookings:   repository.NewBookingRepo(db),
		Publisher:  seatPub,
		Events:     queue.NewPublisher(cfg.RabbitURL, log),
		Gateway:    gateway,
		Log:        log,
	})
	catalog := service.NewCatalogService(rooms, showtimes, foods)
	sweeper := service.NewExpirySweeper(db, holds, showSeats, seatPub, cfg.SweepInterval, log)
	consumer := queue.NewConsumer(cfg.RabbitURL, cfg.AuditLogPath, log)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(middleware.RequestLog(log))

	deps := router.Deps{
		JWTSecret: cfg.JWTSecret,
		Auth:      handler.NewAuthHandler(cfg, operators, repository.NewTokenRepo(db), log),
		Catalog:   handler.NewCatalogHandler(catalog, log),
		Seats:     handler.NewSeatHandler(seats, log),
		Bookings:  handler.NewBookingHandler(bookings, log),
		Redis:     rdb,
		RateLimit: config.LoadRateLimitConfig(),
		Cache:     config.LoadCacheConfig(),
		Log:       log,
	}
	router.RegisterRoutes(e)
	router.RegisterAuth(e, deps)
	router.RegisterPOS(e, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Run(gctx)
		return nil
	})
	g.Go(func() error {
		if err := consumer.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return errors.Wrap(err, "booking consumer")
		}
		return nil
	})
	g.Go(func() error {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})
	return g.Wait()
}
