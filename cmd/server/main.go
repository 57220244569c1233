package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"geomeet.io/geo-meet/internal/api"
	"geomeet.io/geo-meet/internal/auth"
	"geomeet.io/geo-meet/internal/config"
	"geomeet.io/geo-meet/internal/core"
	"geomeet.io/geo-meet/internal/logging"
	"geomeet.io/geo-meet/internal/store"
)

func main() {
	if err := config.LoadConfig(); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	cfg := config.AppConfig
	logging.Init(cfg.LogLevel)

	// Command line flag for issuing a development token
	tokenFor := flag.String("token", "", "Print a signed JWT for the given user id and exit")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Lifetime of the token printed by -token")
	flag.Parse()

	if *tokenFor != "" {
		if cfg.JWTSecret == "" {
			log.Fatal("JWT_SECRET must be set to issue tokens")
		}
		token, err := auth.GenerateJWT(cfg.JWTSecret, *tokenFor, *tokenTTL)
		if err != nil {
			log.Fatalf("Failed to issue token: %v", err)
		}
		fmt.Println(token)
		os.Exit(0)
	}

	dbStore, err := openStore(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	authenticator := auth.NewAuthenticator(cfg.JWTSecret)
	if !authenticator.RequiresToken() {
		log.Warnf("JWT_SECRET is empty, trusting the %s header for caller identity", auth.UserIDHeader)
	}

	apiHandler := api.NewAPIHandler(
		core.NewProfileService(dbStore),
		core.NewMatchService(dbStore, cfg.MatchBoxDegrees),
		core.NewMeetupService(dbStore, cfg.AdvanceMaxRetries),
		core.NewSearchService(dbStore, cfg.SearchLimit),
		core.NewMessageService(dbStore),
		authenticator,
	)
	router := api.NewRouter(apiHandler, cfg.CORSAllowedOrigins)

	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)
	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.WithField("addr", serverAddr).Info("Starting server. Press Ctrl+C to quit.")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Could not listen on %s: %v", serverAddr, err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
		return
	}
	log.Info("Server exiting gracefully")
}

func openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	if cfg.UsesPostgres() {
		log.Info("Using PostgreSQL store")
		return store.NewPostgresStore(ctx, cfg.DatabaseURL)
	}
	log.WithField("path", cfg.DatabaseURL).Info("Using SQLite store")
	return store.NewSQLiteStore(cfg.DatabaseURL)
}
