package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog/log"

	"appliance-billing-backend/config"
	"appliance-billing-backend/internal/api"
	"appliance-billing-backend/internal/appliance"
	"appliance-billing-backend/internal/auth"
	"appliance-billing-backend/internal/bank"
	"appliance-billing-backend/internal/db"
	"appliance-billing-backend/internal/notification"
	"appliance-billing-backend/internal/store"
	"appliance-billing-backend/internal/token"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", configPath).Msg("failed to load configuration")
	}
	cfg.Log.Configure()
	log.Info().Str("path", configPath).Msg("configuration loaded")

	gormDB, err := db.Init(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	priceTTL := time.Duration(cfg.Server.CacheTTLSeconds) * time.Second
	appStore := store.WithPriceCache(store.NewGormStore(gormDB), priceTTL)

	tokens, err := token.NewService(token.Config{
		SigningKey:     []byte(cfg.Auth.SigningKey),
		Algorithm:      cfg.Auth.Algorithm,
		Issuer:         cfg.Auth.Issuer,
		AccessLifetime: cfg.Auth.AccessTokenLifetime,
	}, time.Now)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid token configuration")
	}

	var webpushOptions *webpush.Options
	var notifier appliance.Notifier
	if cfg.Push.PublicKey != "" && cfg.Push.PrivateKey != "" {
		webpushOptions = &webpush.Options{
			VAPIDPublicKey:  cfg.Push.PublicKey,
			VAPIDPrivateKey: cfg.Push.PrivateKey,
			Subscriber:      cfg.Push.Subject,
			TTL:             cfg.Push.TTL,
		}
		pool := notification.NewWorkerPool(cfg.WorkerPool.Size, gormDB, webpushOptions)
		pool.Start(ctx)
		notifier = pool
	} else {
		log.Warn().Msg("VAPID keys are not configured; availability notifications are disabled")
	}

	authenticator := auth.NewAuthenticator(appStore, tokens, time.Now)
	runs := appliance.NewManager(appStore, tokens, appliance.NewFactory(time.Now), notifier)

	bankSvc := bank.NewService(cfg.Bank, appStore)
	go bankSvc.Run(ctx)

	handler := api.NewHandler(appStore, authenticator, runs, webpushOptions)
	router := api.NewRouter(cfg.Server, handler)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server stopped unexpectedly")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	log.Info().Msg("shutdown signal received, stopping services")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("server gracefully stopped")
}
