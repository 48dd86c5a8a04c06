package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"portfolio/internal/config"
	"portfolio/internal/contact"
	"portfolio/internal/db"
	"portfolio/internal/http/handlers"
	"portfolio/internal/http/router"
	"portfolio/internal/mail"
	"portfolio/internal/security"
	"portfolio/internal/sessionstore"
	"portfolio/internal/web"
)

func main() {
	configPath := flag.String("config", "config/app.yaml", "path to the YAML config file")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Failed to load .env: %v", err)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Printf("Failed to load config: %v, using defaults", err)
	}
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	database, err := db.Init(cfg.Database.Driver, cfg.Database.DataSource())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := web.EnsurePlaceholders(cfg.PublicDir); err != nil {
		log.Fatalf("Failed to prepare public directory: %v", err)
	}

	// Initialize session store
	health := map[string]handlers.Pinger{"database": database}
	storeOpts := sessionstore.Options{
		Secret: cfg.Session.Secret,
		MaxAge: cfg.Session.MaxAge,
		Secure: cfg.CookieSecure,
	}
	var store sessions.Store
	switch cfg.Session.Backend {
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()
		rs := sessionstore.NewRedis(client, storeOpts)
		if err := rs.Ping(context.Background()); err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		health["redis"] = handlers.PingFunc(rs.Ping)
		store = rs
	default:
		fs, err := sessionstore.NewFilesystem(cfg.Session.Dir, storeOpts)
		if err != nil {
			log.Fatalf("Failed to initialize session store: %v", err)
		}
		sweepCtx, stopSweep := context.WithCancel(context.Background())
		defer stopSweep()
		go sessionstore.RunSweeper(sweepCtx, sessionstore.ResolveDir(cfg.Session.Dir), cfg.Session.MaxAge, time.Hour)
		store = fs
	}

	guard := security.NewGuard(store, security.GuardOptions{
		MaxAge:       cfg.Session.MaxAge,
		IdleTimeout:  cfg.Session.IdleTimeout,
		LoginLimit:   cfg.Limits.LoginPerHour,
		ActionLimit:  cfg.Limits.AdminPerHour,
		ActionWindow: time.Hour,
	})

	render, err := web.NewRenderer()
	if err != nil {
		log.Fatalf("Failed to parse templates: %v", err)
	}

	images := security.NewImageStore(cfg.PublicDir, security.ImagePolicy(cfg.Limits.UploadMaxBytes))
	limiter := contact.NewLimiter(database, cfg.Limits.ContactPerHour, time.Hour, nil)
	contactSvc := contact.NewService(database, limiter, mail.New(cfg.Mail))

	// Setup router
	r := router.Setup(router.Handlers{
		Public:   handlers.NewPublicHandler(database, render),
		Contact:  handlers.NewContactHandler(contactSvc),
		Auth:     handlers.NewAuthHandler(database, guard, render),
		Admin:    handlers.NewAdminHandler(database, render, cfg.Limits.MessagesPerPage),
		Projects: handlers.NewProjectsHandler(database, images, render),
		Profile:  handlers.NewProfileHandler(database, images, render),
		Health:   handlers.NewHealthHandler(health),
	}, guard, cfg.PublicDir)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router.Wrap(r),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Start server
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Printf("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
