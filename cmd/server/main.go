package main

import (
	"context"
	"log"
	"time"

	"seat-reserve-pro/config"
	"seat-reserve-pro/internal/cache"
	"seat-reserve-pro/internal/database"
	"seat-reserve-pro/internal/handler"
	"seat-reserve-pro/internal/payment"
	"seat-reserve-pro/internal/queue"
	"seat-reserve-pro/internal/repository"
	"seat-reserve-pro/internal/service"
	"seat-reserve-pro/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {
	cfg := config.LoadConfig()

	pool, err := database.InitDatabase(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer pool.Close()

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	eventRepo := repository.NewEventRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	store := repository.NewReservationStore(pool)

	seatCache := cache.NewSeatMapCache(rdb, 30*time.Second)
	gateway := payment.NewSimulator(cfg.Payment.ApprovalRate, nil)

	notifications, err := queue.NewRedisStreamNotificationQueue(rdb, "", nil)
	if err != nil {
		log.Fatalf("Failed to initialize notification queue: %v", err)
	}

	tokenTTL := time.Duration(cfg.Auth.TokenTTLHours) * time.Hour
	authService := service.NewAuthService(userRepo, cfg.Auth.JWTSecret, tokenTTL, cfg.Auth.BcryptCost)
	eventService := service.NewEventService(eventRepo, seatCache)
	reservationService := service.NewReservationService(store, bookingRepo, userRepo, gateway, notifications, seatCache)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	confirmationWorker := worker.NewConfirmationWorker(notifications, worker.NewSimulatedMailer(), bookingRepo)
	if err := confirmationWorker.Start(ctx); err != nil {
		log.Fatalf("Failed to start confirmation worker: %v", err)
	}

	router := gin.Default()
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	handler.NewAuthHandler(authService).RegisterRoutes(router)
	handler.NewEventHandler(eventService, cfg.Auth.JWTSecret).RegisterRoutes(router)
	handler.NewBookingHandler(reservationService, cfg.Auth.JWTSecret).RegisterRoutes(router)

	if err := router.Run(cfg.Server.Addr); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
