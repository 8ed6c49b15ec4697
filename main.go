package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Eursukkul/boat-booking/config"
	"github.com/Eursukkul/boat-booking/internal/consumer"
	"github.com/Eursukkul/boat-booking/internal/gateway"
	"github.com/Eursukkul/boat-booking/internal/handler"
	"github.com/Eursukkul/boat-booking/internal/metrics"
	"github.com/Eursukkul/boat-booking/internal/middleware"
	"github.com/Eursukkul/boat-booking/internal/repository"
	"github.com/Eursukkul/boat-booking/internal/service"
	"github.com/Eursukkul/boat-booking/pkg/database"
	"github.com/Eursukkul/boat-booking/pkg/rabbitmq"
	"github.com/labstack/echo/v4"
	echoMw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := openDB(cfg)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Repositories
	reservationRepo := repository.NewReservationRepository(db)
	boatRepo := repository.NewBoatRepository(db, reservationRepo)

	// RabbitMQ consumer: keep the boat catalog in sync
	mqConsumer, err := rabbitmq.NewConsumer(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to RabbitMQ: %v", err)
	}
	defer mqConsumer.Close()

	msgs, err := mqConsumer.Consume()
	if err != nil {
		log.Fatalf("failed to start consuming: %v", err)
	}
	consumer.NewBoatConsumer(boatRepo).Start(ctx, msgs)

	// RabbitMQ publisher: settlement notifications are best effort
	var publisher service.EventPublisher
	if p, err := rabbitmq.NewPublisher(cfg.RabbitURL); err != nil {
		log.Printf("[RabbitMQ] publisher unavailable, settled events will not be published: %v", err)
	} else {
		defer p.Close()
		publisher = p
	}

	// Payment gateway
	gatewayClient := gateway.NewHTTPClient(cfg.GatewayBaseURL, cfg.GatewayAPIKey, cfg.GatewayTimeout)
	defer gatewayClient.Close()
	sessions := gateway.NewSessionRequester(gatewayClient, boatRepo, cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL)

	// Services
	bookingSvc := service.NewBookingService(reservationRepo, boatRepo, sessions, m, cfg.Currency)
	settlementSvc, err := service.NewSettlementService(reservationRepo, publisher, m, service.SettlementConfig{
		Secret:    cfg.WebhookSecret,
		Tolerance: cfg.WebhookTolerance,
	})
	if err != nil {
		log.Fatalf("failed to build settlement service: %v", err)
	}

	rdb := database.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = middleware.ErrorHandler
	e.Use(echoMw.RequestLoggerWithConfig(echoMw.RequestLoggerConfig{
		LogStatus: true,
		LogURI:    true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v echoMw.RequestLoggerValues) error {
			log.Printf("%s %s %d", v.Method, v.URI, v.Status)
			return nil
		},
	}))
	e.Use(echoMw.Recover())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": "boat-booking"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler.NewBookingHandler(bookingSvc).RegisterRoutes(e,
		middleware.JWTAuth(cfg.JWTSecret),
		middleware.RateLimit(cfg.RateLimit, rdb),
	)
	handler.NewWebhookHandler(settlementSvc, cfg.WebhookUnknownPolicy).RegisterRoutes(e)

	go func() {
		log.Printf("Boat Booking Service starting on :%s", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func openDB(cfg config.Config) *gorm.DB {
	if cfg.DBDriver == "sqlite" {
		db, err := database.NewSQLiteDB("file:" + cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite: %v", err)
		}
		return db
	}
	return database.NewPostgresDB(cfg.DSN())
}
