package monitor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/venkytv/nats-errortrigger/pkg/errortrigger"
	"github.com/venkytv/nats-errortrigger/pkg/failure"
)

const shutdownTimeout = 5 * time.Second

type Config struct {
	Prefix     string
	StatusAddr string
	Debug      bool
	Logger     *slog.Logger
	Gatherer   prometheus.Gatherer
}

// Monitor feeds failure messages received over NATS into a dispatcher.
type Monitor struct {
	cfg        Config
	nc         *nats.Conn
	dispatcher *errortrigger.Dispatcher
	logger     *slog.Logger
	now        func() time.Time
}

func New(nc *nats.Conn, d *errortrigger.Dispatcher, cfg Config) *Monitor {
	cfg.Prefix = strings.TrimSuffix(cfg.Prefix, ".")
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	logger := cfg.Logger
	if logger == nil {
		level := slog.LevelInfo
		if cfg.Debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		}))
	}
	return &Monitor{
		cfg:        cfg,
		nc:         nc,
		dispatcher: d,
		logger:     logger,
		now:        time.Now,
	}
}

func (m *Monitor) Start(ctx context.Context) error {
	if m.nc == nil {
		return errors.New("nats connection is required")
	}
	if m.dispatcher == nil {
		return errors.New("dispatcher is required")
	}

	subject := m.subscribeSubject()
	sub, err := m.nc.Subscribe(subject, func(msg *nats.Msg) {
		m.handleMessage(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	m.logger.Info("monitor subscribed", "subject", subject, "bindings", len(m.dispatcher.Snapshot()))
	defer sub.Unsubscribe()

	var srv *http.Server
	if m.cfg.StatusAddr != "" {
		srv = &http.Server{
			Addr:              m.cfg.StatusAddr,
			Handler:           m.router(),
			ReadHeaderTimeout: shutdownTimeout,
		}
		go func() {
			m.logger.Info("status server listening", "addr", m.cfg.StatusAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				m.logger.Error("status server failed", "err", err)
			}
		}()
	}

	<-ctx.Done()
	m.logger.Info("monitor stopping")
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			m.logger.Warn("status server shutdown failed", "err", err)
		}
	}
	return nil
}

func (m *Monitor) handleMessage(ctx context.Context, msg *nats.Msg) {
	fm, err := failure.Unmarshal(msg.Data)
	if err != nil {
		m.logger.Error("failed to decode failure", "subject", msg.Subject, "err", err)
		return
	}
	ev, err := fm.Event()
	if err != nil {
		m.logger.Error("invalid failure", "subject", msg.Subject, "err", err)
		return
	}
	m.logger.Debug("failure received", "source", fm.Source, "id", fm.ID, "host", fm.Host, "occurred_at", fm.OccurredAt)

	if err := m.dispatcher.OnFailure(ctx, ev); err != nil {
		m.logger.Error("error trigger handler failed", "source", fm.Source, "id", fm.ID, "err", err)
	}
}

func (m *Monitor) subscribeSubject() string {
	if m.cfg.Prefix == "" {
		return ">"
	}
	return fmt.Sprintf("%s.>", m.cfg.Prefix)
}
