package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"atelier/api/internal/app"
	"atelier/api/internal/authpw"
	"atelier/api/internal/blob"
	"atelier/api/internal/config"
	"atelier/api/internal/email"
	"atelier/api/internal/events"
	"atelier/api/internal/search"
	"atelier/api/internal/session"
	"atelier/api/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	db, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("database connection failed: %v", err)
	}
	defer db.Close()

	if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
		log.Fatalf("migrations failed: %v", err)
	}

	dataStore := store.NewPostgresStore(db)

	pgfts := search.NewPgFTS(db)
	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		defer meiliClient.Close()
	}

	// Refresh tokens live in Redis when configured, Postgres otherwise. The
	// Redis client doubles as the resolved image URL cache.
	var sessions interface {
		SaveRefreshSession(context.Context, string, string, time.Time) error
		LookupRefreshSession(context.Context, string) (store.User, error)
		RevokeRefreshSession(context.Context, string) error
	} = dataStore
	var urlCache *blob.URLCache
	if strings.TrimSpace(cfg.RedisURL) != "" {
		log.Printf("Using Redis for refresh token storage")
		redisStore, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisStore.Close()
		sessions = redisStore
		urlCache = blob.NewURLCache(redisStore.Client(), cfg.ResolveURLTTL/2)
	} else {
		log.Printf("Using PostgreSQL for refresh token storage")
	}

	blobStore, err := blob.New(ctx, blob.Config{
		Endpoint:   cfg.MinioEndpoint,
		AccessKey:  cfg.MinioAccessKey,
		SecretKey:  cfg.MinioSecretKey,
		Bucket:     cfg.MinioBucket,
		UseSSL:     cfg.MinioUseSSL,
		UploadTTL:  cfg.UploadURLTTL,
		ResolveTTL: cfg.ResolveURLTTL,
	}, urlCache)
	if err != nil {
		log.Fatalf("blob store init failed: %v", err)
	}

	var publisher *events.Publisher
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err = events.Connect(cfg.NATSURL)
		if err != nil {
			log.Printf("WARNING: nats connection failed, events disabled: %v", err)
		} else {
			defer publisher.Close()
		}
	}

	emailService := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	})

	authService := authpw.NewService(dataStore)

	service := app.New(cfg, dataStore, sessions, searchService, blobStore, authService, emailService, publisher)

	// Bring a fresh Meilisearch instance up to date with Postgres.
	searchService.ReindexAllFromPG(ctx)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Atelier API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
