package main

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/PsylineServices/psy-scheduler/internal/config"
	dbpkg "github.com/PsylineServices/psy-scheduler/internal/db"
	"github.com/PsylineServices/psy-scheduler/internal/logger"
	"github.com/PsylineServices/psy-scheduler/internal/routes"
)

func main() {

	cfg := config.Load()

	log := logger.New(cfg.Env)
	defer log.Sync()

	db := dbpkg.NewDB(cfg)

	// Redis is a fast path only; without it the idempotency guard runs on
	// the database alone.
	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			log.Warn("redis unavailable, continuing without cache", zap.Error(err))
			rdb = nil
		}
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()

	sw := routes.RegisterRoutes(r, db, rdb, cfg, log)

	sw.Start(context.Background())
	defer sw.Stop()

	log.Info("server running", zap.String("addr", cfg.Addr()))
	if err := r.Run(cfg.Addr()); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
