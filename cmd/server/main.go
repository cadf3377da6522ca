package main // Entry point package

import (
	"log"  // Logging library
	"time" // Clock for the lifecycle controller

	"github.com/joho/godotenv"    // Loads .env files in development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/legacy-vault/internal/config"     // Internal config loader
	"github.com/iliyamo/legacy-vault/internal/database"   // MySQL connection helper
	"github.com/iliyamo/legacy-vault/internal/handler"    // HTTP handlers
	"github.com/iliyamo/legacy-vault/internal/lifecycle"  // Vault state machine
	"github.com/iliyamo/legacy-vault/internal/queue"      // Event publisher/consumer
	"github.com/iliyamo/legacy-vault/internal/repository" // Persistence layer
	"github.com/iliyamo/legacy-vault/internal/router"     // Route registration
	"github.com/iliyamo/legacy-vault/internal/scheduler"  // Deferred-callback scheduler
	"github.com/iliyamo/legacy-vault/internal/timerchain" // Bounded-span timer chain
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	// Redis backs the scheduler's cancellation tokens and, when present,
	// the public-route cache and rate limiter.  The scheduler requires it;
	// the middleware degrades gracefully without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Fatal("redis connect failed: the timer scheduler cannot run without it")
	}

	store := repository.NewStore(db)
	sched := scheduler.New(cfg.AMQPURL, rdb)
	now := func() uint64 { return uint64(time.Now().UnixMilli()) }
	timers := timerchain.NewManager(sched, store, now)
	events := queue.NewEventPublisher(cfg.AMQPURL)
	ctl := lifecycle.NewController(store, timers, events, cfg.AdminAddress, now)

	// Background consumers: fired timer callbacks into the lifecycle
	// trigger, and domain events into the notification log.
	go func() {
		if err := sched.StartTimerConsumer(ctl); err != nil {
			log.Fatalf("timer consumer stopped: %v", err)
		}
	}()
	go func() {
		if err := queue.StartEventConsumer(cfg.AMQPURL); err != nil {
			log.Fatalf("event consumer stopped: %v", err)
		}
	}()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	e := echo.New()
	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterVault(e, handler.NewVaultHandler(ctl), handler.NewHeirHandler(ctl), cfg.JWTSecret)
	router.RegisterAdmin(e, handler.NewAdminHandler(ctl), cfg.JWTSecret)
	router.RegisterPublic(e, handler.NewPublicHandler(ctl), rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
