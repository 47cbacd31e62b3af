package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"racklab/internal/config"
	"racklab/internal/database"
	"racklab/internal/middleware"
	"racklab/internal/modules/access"
	"racklab/internal/modules/auth"
	"racklab/internal/modules/booking"
	"racklab/internal/modules/ledger"
	"racklab/internal/modules/schedule"
	"racklab/internal/pkg/clock"
	jwtsvc "racklab/internal/pkg/jwt"
	"racklab/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config load failed: ", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("db connection failed: ", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("db migration failed: ", err)
	}

	userRepo := repository.NewUserRepository(db)
	rackRepo := repository.NewRackRepository(db)
	bookingRepo := repository.NewBookingRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	clk := clock.NewRealClock()
	j := jwtsvc.New(cfg.JWTSecret, cfg.JWTTTL)

	ledgerService := ledger.NewService(db)
	scheduleService := schedule.NewService(db)
	accessService := access.NewService(bookingRepo, sessionRepo, access.NewDevProvisioner(""), clk)
	bookingService := booking.NewService(
		db, bookingRepo, rackRepo,
		ledgerService, scheduleService, accessService,
		clk, cfg.CancelForfeitWindow,
	)

	authHandler := auth.NewHandler(auth.NewService(userRepo, j))
	ledgerHandler := ledger.NewHandler(ledgerService)
	scheduleHandler := schedule.NewHandler(scheduleService, rackRepo)
	bookingHandler := booking.NewHandler(bookingService)
	accessHandler := access.NewHandler(accessService)
	watchHandler := access.NewWSHandler(accessService, j)

	sweeper := booking.NewSweeper(bookingService, cfg.SweepInterval)
	stopSweeper := sweeper.Start(context.Background())
	defer close(stopSweeper)

	r := gin.Default()
	r.Use(middleware.ErrorLogger())

	v1 := r.Group("/api/v1")
	{
		// public
		authHandler.RegisterRoutes(v1)
		scheduleHandler.RegisterRoutes(v1)
		watchHandler.RegisterRoutes(v1)

		// protected
		protected := v1.Group("/")
		protected.Use(middleware.Auth(j))
		{
			ledgerHandler.RegisterRoutes(protected)
			bookingHandler.RegisterRoutes(protected)
			bookingHandler.RegisterAdminRoutes(protected)
			scheduleHandler.RegisterAdminRoutes(protected)
			accessHandler.RegisterRoutes(protected)
		}
	}

	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatal(err)
	}
}
