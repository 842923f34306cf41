package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"metabento/config"
	"metabento/internal/cache"
	"metabento/internal/database"
	"metabento/internal/logging"
	"metabento/internal/repository"
	"metabento/internal/router"
	"metabento/internal/ws"
	"metabento/pkg/cloudinary"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	log := logging.New(&cfg.Logging)

	db, err := database.NewDB(&cfg.Database)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	if err := database.AutoMigrate(db); err != nil {
		log.WithError(err).Fatal("migrate")
	}
	database.SeedAdmin(db, &cfg.Admin, log)

	rdb, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("redis unavailable, leaderboard cache disabled")
		rdb = nil
	} else if rdb == nil {
		log.Info("REDIS_ADDR not set, leaderboard cache disabled")
	}

	var cloud cloudinary.Client
	cloud, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
	if err != nil {
		if !errors.Is(err, cloudinary.ErrNotConfigured) {
			log.WithError(err).Fatal("cloudinary")
		}
		log.Info("cloudinary not configured, avatar uploads disabled")
		cloud = nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go purgeNonces(ctx, repository.NewNonceRepository(db), cfg.JWT.NonceExpiry, log)

	engine := router.Setup(cfg, router.Deps{DB: db, Redis: rdb, Cloud: cloud, Hub: ws.NewHub(), Log: log})
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		log.WithField("port", cfg.Server.Port).Info("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("listen")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("server shutdown")
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.WithError(err).Warn("redis close")
		}
	}
	if err := database.Close(db); err != nil {
		log.WithError(err).Warn("database close")
	}
	log.Info("server stopped")
}

// purgeNonces deletes spent and expired sign-in nonces until ctx ends.
func purgeNonces(ctx context.Context, nonces *repository.NonceRepository, every time.Duration, log logrus.FieldLogger) {
	if every <= 0 {
		every = 10 * time.Minute
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := nonces.PurgeExpired(ctx, time.Now().UTC())
			if err != nil {
				log.WithError(err).Warn("nonce purge failed")
				continue
			}
			if n > 0 {
				log.WithField("deleted", n).Debug("nonces purged")
			}
		}
	}
}
