// cmd/server/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/Hippes/valentine-duel-bot/internal/auth"
	"github.com/Hippes/valentine-duel-bot/internal/database"
	"github.com/Hippes/valentine-duel-bot/internal/duel"
	"github.com/Hippes/valentine-duel-bot/internal/handlers"
	"github.com/Hippes/valentine-duel-bot/internal/notify"
	"github.com/Hippes/valentine-duel-bot/internal/sweeper"
)

func main() {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	if err := auth.Init(); err != nil {
		logger.Fatalf("auth init failed: %v", err)
	}

	ctx := context.Background()
	pool, err := database.Connect(ctx)
	if err != nil {
		logger.Fatalf("database connect failed: %v", err)
	}
	defer pool.Close()

	repo := database.NewRepo(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Fatalf("schema bootstrap failed: %v", err)
	}

	hub := notify.NewHub()
	sinks := []notify.Sink{hub}

	if addr := getEnv("REDIS_ADDR", ""); addr != "" {
		client, err := notify.ConnectRedis(ctx, addr, getEnvInt("REDIS_DB", 0))
		if err != nil {
			logger.Fatalf("redis connect failed: %v", err)
		}
		defer client.Close()
		sinks = append(sinks, notify.NewRedisQueue(client, getEnv("DUEL_QUEUE_NAME", "")))
	}

	service := duel.NewService(duel.Repositories{
		Users:     repo,
		Profile:   repo,
		Questions: repo,
		Duels:     repo,
		Guesses:   repo,
	}, notify.NewFanout(sinks...), logger)

	sweep := sweeper.New(
		repo, service, logger,
		getEnvDuration("DUEL_SWEEP_INTERVAL", 10*time.Minute),
		getEnvDuration("DUEL_MAX_AGE", 48*time.Hour),
	)
	if err := sweep.Start(); err != nil {
		logger.Fatalf("sweeper start failed: %v", err)
	}
	defer sweep.Stop()

	srv := handlers.NewServer(service, hub, logger)

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, srv.Mux()); err != nil {
		logger.Fatalf("server exited: %v", err)
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return def
	}
	return d
}
