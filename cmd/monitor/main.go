package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/venkytv/nats-errortrigger/internal/config"
	"github.com/venkytv/nats-errortrigger/internal/monitor"
	"github.com/venkytv/nats-errortrigger/internal/notifier"
	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
)

func main() {
	var (
		natsURL    = flag.String("nats-url", envDefault("NATS_URL", nats.DefaultURL), "NATS server URL")
		prefix     = flag.String("subject-prefix", envDefault("SUBJECT_PREFIX", "errors."), "Subject prefix failures are published under")
		bindings   = flag.String("bindings", envDefault("BINDINGS_FILE", ""), "YAML file with error trigger bindings (default: notify on every failure)")
		statusAddr = flag.String("status-addr", envDefault("STATUS_ADDR", "127.0.0.1:8080"), "Listen address for HTTP status and metrics (empty to disable)")
		poUser     = flag.String("pushover-user", os.Getenv("PUSHOVER_USER"), "Pushover user key")
		poToken    = flag.String("pushover-token", os.Getenv("PUSHOVER_TOKEN"), "Pushover app token")
		debug      = flag.Bool("debug", envBool("DEBUG", false), "Enable debug logging")
	)
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	if *debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}
	slog.SetDefault(logger)

	file, err := config.Load(*bindings)
	if err != nil {
		log.Fatalf("load bindings: %v", err)
	}

	var notify notifier.Notifier = notifier.Log{Logger: logger}
	if *poUser != "" && *poToken != "" {
		notify = notifier.Pushover{
			User:  *poUser,
			Token: *poToken,
		}
	} else {
		logger.Warn("pushover credentials not set, logging fired triggers only")
	}

	bound, err := file.Resolve(func(name string) errortrigger.Handler {
		return notifier.Handler(notify, name)
	})
	if err != nil {
		log.Fatalf("configure bindings: %v", err)
	}
	dispatcher, err := errortrigger.NewDispatcher(bound, errortrigger.Options{
		Logger:   logger,
		Observer: monitor.NewMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		log.Fatalf("configure bindings: %v", err)
	}
	for _, b := range bound {
		logger.Info("binding configured", "binding", b.Name, "scope", b.Scope, "function", b.Function, "policy", b.Policy(),
			"threshold", b.Config.Threshold, "window", b.Config.Window, "throttle", b.Config.Throttle)
	}

	nc, err := nats.Connect(*natsURL)
	if err != nil {
		log.Fatalf("connect to nats: %v", err)
	}
	defer nc.Drain()

	cfg := monitor.Config{
		Prefix:     *prefix,
		StatusAddr: *statusAddr,
		Debug:      *debug,
		Logger:     logger,
	}
	m := monitor.New(nc, dispatcher, cfg)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := m.Start(ctx); err != nil {
		log.Fatalf("monitor failed: %v", err)
	}
}

func envDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "1" || v == "true" || v == "TRUE" || v == "yes" || v == "on"
	}
	return fallback
}
