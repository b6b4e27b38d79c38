package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/venkytv/nats-errortrigger/pkg/failure"
)

// exitStartFailed is returned when the command could not be started at all.
const exitStartFailed = 127

func main() {
	os.Exit(run())
}

func run() int {
	var (
		natsURL        = flag.String("nats-url", envDefault("NATS_URL", nats.DefaultURL), "NATS server URL")
		prefix         = flag.String("subject-prefix", envDefault("SUBJECT_PREFIX", "errors."), "Subject prefix to publish failures under")
		source         = flag.String("source", envDefault("SOURCE", ""), "Qualified function name the command runs as (required)")
		connectTimeout = flag.Duration("connect-timeout", envDuration("CONNECT_TIMEOUT", 30*time.Second), "How long to keep retrying the NATS connection when reporting")
		debug          = flag.Bool("debug", envBool("DEBUG", false), "Enable debug logging")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s -source NAME [flags] -- command [args...]\n", os.Args[0])
		flag.PrintDefaults()
	}
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

	args := flag.Args()
	if *source == "" || len(args) == 0 {
		flag.Usage()
		return 2
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	started := time.Now().UTC()
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	runErr := cmd.Run()
	if runErr == nil {
		logger.Debug("command succeeded", "source", *source, "took", time.Since(started))
		return 0
	}
	code := exitCode(runErr)
	logger.Debug("command failed", "source", *source, "exit_code", code, "err", runErr)

	msg := failure.NewMessage(*source, runErr)
	msg.OccurredAt = time.Now().UTC()

	reportCtx, cancelReport := context.WithTimeout(context.Background(), *connectTimeout)
	defer cancelReport()
	if err := report(reportCtx, logger, *natsURL, *prefix, msg); err != nil {
		logger.Error("report failure failed", "source", *source, "err", err)
	} else {
		logger.Info("failure reported", "source", *source, "exit_code", code)
	}
	return code
}

func exitCode(err error) int {
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return exitStartFailed
	}
	if code := exitErr.ExitCode(); code > 0 {
		return code
	}
	return 1 // terminated by a signal
}

func report(ctx context.Context, logger *slog.Logger, url, prefix string, msg failure.Message) error {
	nc, err := connectWithRetry(ctx, logger, url)
	if err != nil {
		return err
	}
	defer nc.Close()

	if err := failure.NewPublisher(nc, prefix).Publish(ctx, msg); err != nil {
		return err
	}
	return nc.FlushWithContext(ctx)
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

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func connectWithRetry(ctx context.Context, logger *slog.Logger, url string) (*nats.Conn, error) {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		nc, err := nats.Connect(
			url,
			nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
				if err != nil {
					logger.Warn("nats disconnected", "err", err)
					return
				}
				logger.Warn("nats disconnected")
			}),
			nats.ReconnectHandler(func(_ *nats.Conn) {
				logger.Info("nats reconnected")
			}),
		)
		if err == nil {
			return nc, nil
		}

		logger.Error("connect to nats failed", "err", err, "retry_in", backoff)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}

		if backoff < maxBackoff {
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		}
	}
}
