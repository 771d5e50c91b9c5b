package main

//go:generate swag init -g main.go -d ./,../../internal/handlers -o ../../internal/docs --parseDependency --parseInternal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"famledger/internal/config"
	"famledger/internal/database"
	"famledger/internal/events"
	"famledger/internal/logger"
	"famledger/internal/middleware"
	"famledger/internal/scheduler"
	"famledger/internal/server"
	"famledger/internal/validator"
)

// @title           Famledger API
// @version         1.0
// @description     Famledger is a personal and family finance ledger: accounts, transactions, transfers, bills, scheduled transactions, goals and monthly budgets.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := appConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer dbManager.Close()

	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if appConfig.AMQPURL != "" {
		amqpPublisher, err := events.NewAMQPPublisher(appConfig.AMQPURL, appConfig.AMQPExchange)
		if err != nil {
			return fmt.Errorf("failed to connect event publisher: %w", err)
		}
		defer amqpPublisher.Close()
		publisher = amqpPublisher
	}

	validator.Register()

	db := dbManager.DB()
	svc := server.NewServices(db, publisher, server.Options{
		StatementTimeout:                appConfig.StatementTimeout,
		AllowNegativeBalanceOnNonCredit: appConfig.AllowNegativeBalanceOnNonCredit,
		PasswordMaxBytes:                appConfig.BcryptPasswordMaxBytes,
	})
	jwtManager := middleware.NewJWTManager(appConfig.JWTSecret, appConfig.JWTExpirationDur)
	router := server.NewRouter(svc, jwtManager)

	httpServer := &http.Server{
		Addr:    ":" + appConfig.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infof("Starting Famledger server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), appConfig.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if appConfig.SchedulerEnabled {
		jobs := scheduler.New(database.NewLocker(db), svc.Scheduled, svc.Bills, svc.Transfers, scheduler.Intervals{
			Recurrence:       appConfig.RecurrenceInterval,
			BillSweep:        appConfig.OverdueSweepInterval,
			PendingTransfers: appConfig.PendingTransferInterval,
		})
		g.Go(func() error {
			return jobs.Run(gctx)
		})
	}

	return g.Wait()
}
