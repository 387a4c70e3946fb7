package main

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/iliyamo/user-management/internal/auth"
	"github.com/iliyamo/user-management/internal/config"
	"github.com/iliyamo/user-management/internal/database"
	"github.com/iliyamo/user-management/internal/handler"
	"github.com/iliyamo/user-management/internal/middleware"
	"github.com/iliyamo/user-management/internal/queue"
	"github.com/iliyamo/user-management/internal/repository"
	"github.com/iliyamo/user-management/internal/router"
	"github.com/iliyamo/user-management/internal/service"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName,
		cfg.DBMaxOpen, cfg.DBMaxIdle, cfg.DBConnLifetime)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	if cfg.Bootstrap {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := database.Bootstrap(ctx, db, cfg.AdminUsername, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
			cancel()
			log.Fatalf("bootstrap: %v", err)
		}
		cancel()
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, login throttling disabled")
	}

	codec := auth.NewTokenCodec(cfg.JWTSecret, cfg.AccessTTL(), cfg.RefreshTTL())

	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	ledgerRepo := repository.NewUserRoleRepo(db)

	publisher := queue.NewPublisher(cfg.RabbitURL)
	go queue.StartAuditConsumer(cfg.RabbitURL)

	authSvc := service.NewAuthService(userRepo, ledgerRepo, codec, publisher, cfg.BcryptCost)
	userSvc := service.NewUserService(userRepo, roleRepo, ledgerRepo, publisher, cfg.BcryptCost)
	roleSvc := service.NewRoleService(roleRepo, userRepo, ledgerRepo, publisher)

	limit := config.LoadLoginLimitConfig()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	router.Register(e, db, codec, rdb, middleware.LoginLimiterConfig{
		Enabled:  limit.Enabled,
		Capacity: limit.Capacity,
		Refill:   limit.Refill,
		TTL:      limit.TTL,
	}, router.Handlers{
		Auth:  handler.NewAuthHandler(authSvc),
		Users: handler.NewUserHandler(userSvc),
		Roles: handler.NewRoleHandler(roleSvc),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
