package main

import (
	"context"
	"flag"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/queuedash/queuedash"
	"github.com/queuedash/queuedash/redisq"
)

type config struct {
	Listen    string           `mapstructure:"listen"`
	RedisAddr string           `mapstructure:"redis_addr"`
	RedisDB   int              `mapstructure:"redis_db"`
	Queues    []string         `mapstructure:"queues"`
	Gateway   queuedash.Config `mapstructure:"gateway"`
	Redisq    redisq.Config    `mapstructure:"redisq"`
}

func loadConfig(path string) (*config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("QUEUEDASH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("listen", ":4567")
	v.SetDefault("redis_addr", "127.0.0.1:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("queues", []string{"default"})

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer func() {
		_ = log.Sync()
	}()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatal("config load failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
		DB:   cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connect failed", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}

	queues := make([]queuedash.Queue, 0, len(cfg.Queues))
	for _, name := range cfg.Queues {
		queues = append(queues, redisq.New(&cfg.Redisq, log.Named("redisq"), rdb, name))
	}

	feed := redisq.NewFeed(&cfg.Redisq, log.Named("feed"), rdb, cfg.Queues...)
	go func() {
		if err := feed.Run(ctx); err != nil {
			log.Error("event feed stopped", zap.Error(err))
		}
	}()

	cfg.Gateway.Events = feed.Sources()

	gw, err := queuedash.New(&cfg.Gateway, log.Named("gateway"), queues...)
	if err != nil {
		log.Fatal("gateway init failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(gw.MetricsCollector())

	root := chi.NewRouter()
	root.Mount("/", gw.Handler())
	root.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("gateway listening", zap.String("addr", cfg.Listen), zap.Strings("queues", cfg.Queues))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}
