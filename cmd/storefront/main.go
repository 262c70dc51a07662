package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/app"
)

// setupLogger настраивает формат и уровень логирования по SHOP_LOG_FORMAT и SHOP_LOG_LEVEL.
func setupLogger(lookup func(string) (string, bool)) {
	if format, _ := lookup("SHOP_LOG_FORMAT"); strings.EqualFold(strings.TrimSpace(format), "json") {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}

	level := log.InfoLevel
	if raw, ok := lookup("SHOP_LOG_LEVEL"); ok && strings.TrimSpace(raw) != "" {
		parsed, err := log.ParseLevel(strings.TrimSpace(raw))
		if err != nil {
			log.WithError(err).Warn("unknown log level, using info")
		} else {
			level = parsed
		}
	}
	log.SetLevel(level)
}

// readConfig собирает конфигурацию из значений по умолчанию, окружения и флагов.
func readConfig(args []string, lookup func(string) (string, bool)) (app.Config, error) {
	cfg := app.DefaultConfig()
	if err := cfg.ApplyEnv(lookup); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.BoolVar(&cfg.Seed, "seed", cfg.Seed, "populate an empty store with demo clients, products and orders")
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP API listen address")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func main() {
	setupLogger(os.LookupEnv)

	cfg, err := readConfig(os.Args[1:], os.LookupEnv)
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.WithFields(log.Fields{
		"http_addr":      cfg.HTTPAddr,
		"metrics_addr":   cfg.MetricsAddr,
		"storage_driver": cfg.StorageDriver,
		"mail_driver":    cfg.MailDriver,
		"image_driver":   cfg.ImageDriver,
	}).Info("запускаем storefront")

	if err := app.Run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("приложение завершилось с ошибкой")
	}

	log.Info("storefront остановлен")
}
