// Package app boots the portal: storage, settings, notifications and the
// HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/niuginipay/greenfees/internal/config"
	"github.com/niuginipay/greenfees/internal/db"
	apihttp "github.com/niuginipay/greenfees/internal/http"
	"github.com/niuginipay/greenfees/internal/http/api/admin"
	"github.com/niuginipay/greenfees/internal/http/api/public"
	"github.com/niuginipay/greenfees/internal/models"
	"github.com/niuginipay/greenfees/internal/notify"
	"github.com/niuginipay/greenfees/internal/purchase"
	"github.com/niuginipay/greenfees/internal/security"
	"github.com/niuginipay/greenfees/internal/settings"
	"github.com/niuginipay/greenfees/internal/voucher"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/gorm"
)

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, cfg *config.Config) error {
	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	return settings.RefreshDBConfigSnapshot(ctx, conn)
}

// RunServer boots the portal and blocks until ctx is cancelled.
func RunServer(ctx context.Context, cfg *config.Config) error {
	setupLogging(cfg.Logging)

	conn, errOpen := db.Open(cfg.Database.DSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errRefresh := settings.RefreshDBConfigSnapshot(ctx, conn); errRefresh != nil {
		return errRefresh
	}
	if errSeed := bootstrapAdmin(ctx, conn, cfg.Admin); errSeed != nil {
		return errSeed
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if errClose := redisClient.Close(); errClose != nil {
				log.WithError(errClose).Warn("app: close redis failed")
			}
		}()
	}

	dispatcher := notify.NewDispatcher(redisClient, cfg.Redis.Queue)
	var worker *notify.Worker
	if redisClient != nil {
		worker = notify.NewWorker(redisClient, cfg.Redis.Queue, notify.LogSender{})
		go worker.Run()
	}

	store := purchase.NewStore(conn)
	issuer := voucher.NewIssuer()
	svc := purchase.NewService(conn, issuer, dispatcher)

	engine := gin.New()
	engine.Use(gin.Recovery(), apihttp.RequestLogMiddleware())
	public.RegisterPublicRoutes(engine, conn, store, svc, cfg.Gateway.WebhookSecret, cfg.Session.TTL)
	admin.RegisterAdminRoutes(engine, conn, issuer, cfg.Admin)

	sweeperDone := make(chan struct{})
	go runSessionSweeper(ctx, store, cfg.Session, sweeperDone)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		log.WithField("addr", server.Addr).Info("app: server starting")
		if errServe := server.ListenAndServe(); errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			errChan <- errServe
		}
	}()

	select {
	case errServe := <-errChan:
		return errServe
	case <-ctx.Done():
	}

	log.Info("app: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if worker != nil {
		worker.Stop()
	}
	select {
	case <-sweeperDone:
	case <-time.After(5 * time.Second):
		log.Warn("app: session sweeper did not stop in time")
	}

	if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
		return errShutdown
	}
	log.Info("app: server stopped")
	return nil
}

// setupLogging configures logrus level and optional rotating file output.
func setupLogging(cfg config.LoggingConfig) {
	level, errParse := log.ParseLevel(strings.TrimSpace(cfg.Level))
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotator))
	}
}

// bootstrapAdmin seeds a first staff account when the admins table is empty
// and bootstrap credentials are configured.
func bootstrapAdmin(ctx context.Context, conn *gorm.DB, cfg config.AdminConfig) error {
	username := strings.TrimSpace(cfg.BootstrapUsername)
	if username == "" || cfg.BootstrapPassword == "" {
		return nil
	}

	var count int64
	if errCount := conn.WithContext(ctx).Model(&models.Admin{}).Count(&count).Error; errCount != nil {
		return errCount
	}
	if count > 0 {
		return nil
	}

	hash, errHash := security.HashPassword(cfg.BootstrapPassword)
	if errHash != nil {
		return errHash
	}
	admin := models.Admin{Username: username, Password: hash, Active: true}
	if errCreate := conn.WithContext(ctx).Create(&admin).Error; errCreate != nil {
		return errCreate
	}
	log.WithField("username", username).Info("app: bootstrap admin created")
	return nil
}

// runSessionSweeper periodically persists the expired status for pending
// sessions whose deadline passed at least the grace period ago. Advisory
// housekeeping; the read path never depends on it.
func runSessionSweeper(ctx context.Context, store *purchase.Store, cfg config.SessionConfig, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(cfg.SweepPeriod)
	defer ticker.Stop()

	log.WithField("period", cfg.SweepPeriod.String()).Info("app: session sweeper started")
	for {
		select {
		case <-ticker.C:
			swept, errSweep := store.ExpireStaleSessions(ctx, cfg.SweepGrace)
			if errSweep != nil {
				log.WithError(errSweep).Warn("app: session sweep failed")
				continue
			}
			if swept > 0 {
				log.WithField("count", swept).Info("app: expired stale sessions")
			}
		case <-ctx.Done():
			return
		}
	}
}
