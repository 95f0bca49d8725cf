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

	"civicdesk/api/internal/app"
	"civicdesk/api/internal/config"
	"civicdesk/api/internal/email"
	"civicdesk/api/internal/export"
	"civicdesk/api/internal/media"
	"civicdesk/api/internal/search"
	"civicdesk/api/internal/session"
	"civicdesk/api/internal/staffauth"
	"civicdesk/api/internal/store"
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
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, pgfts)
	if meiliClient != nil {
		searchService.ReindexAllFromPG(ctx)
	}

	redisStore, err := session.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisStore.Close()

	staff := staffauth.NewService(cfg.CentralSecret, cfg.DepartmentSecrets)

	var mediaStorage media.Storage
	var localUploads *media.LocalStorage
	if strings.TrimSpace(cfg.MinioEndpoint) != "" {
		log.Printf("Using MinIO for media storage")
		mediaStorage, err = media.NewMinioStorage(ctx, media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			BaseURL:   cfg.MediaBaseURL,
		})
		if err != nil {
			log.Fatalf("minio connection failed: %v", err)
		}
	} else {
		localUploads, err = media.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			log.Fatalf("failed to create upload dir: %v", err)
		}
		mediaStorage = localUploads
	}
	mediaService := media.NewService(mediaStorage)

	mailer := email.NewService(email.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
		NotifyTo: splitAddresses(cfg.NotifyTo),
	})
	if !mailer.IsConfigured() {
		log.Printf("SMTP not configured, submission notifications disabled")
	}

	service := app.New(cfg, dataStore, redisStore, staff, mediaService, searchService, export.NewService(), mailer)

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	mux := http.NewServeMux()
	if localUploads != nil {
		mux.Handle("/uploads/", http.StripPrefix("/uploads/", http.FileServer(http.Dir(localUploads.Dir()))))
	}
	mux.Handle("/", httpServer.Handler())

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Civicdesk API listening on %s", cfg.Addr)
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

func splitAddresses(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if addr := strings.TrimSpace(part); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
