package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/fatih/color"

	"dqx0.com/go/rawrest/internal/accesslog"
	"dqx0.com/go/rawrest/internal/config"
	"dqx0.com/go/rawrest/internal/obs"
	"dqx0.com/go/rawrest/internal/store"
	"dqx0.com/go/rawrest/restx"
)

func main() {
	base := obs.StdLogger{L: log.New(os.Stderr, "", log.LstdFlags|log.Lmicroseconds), Min: obs.Info}
	cfg := config.Load(config.Path(), base.With("config"))
	if lvl, err := obs.ParseLevel(cfg.LogLevel); err == nil {
		base.Min = lvl
	}
	logger := base.With("server")

	st, err := store.Open(cfg.DataFile, base.With("store"))
	if err != nil {
		logger.Logf(obs.Error, "%v", err)
		os.Exit(1)
	}
	defer st.Close()
	if cfg.WatchStore {
		if err := st.Watch(); err != nil {
			logger.Logf(obs.Warn, "store watch disabled: %v", err)
		}
	}

	var access accesslog.Sink = accesslog.Nop{}
	if cfg.AccessLog != "" {
		w, err := accesslog.OpenFile(cfg.AccessLog)
		if err != nil {
			logger.Logf(obs.Warn, "access log disabled: %v", err)
		} else {
			defer w.Close()
			access = w
		}
	}

	meter := obs.NewMemMeter()
	srv := &restx.Server{
		Addr: cfg.Addr,
		Handler: &restx.Mux{
			Resources: &restx.Resources{Store: st, Logger: logger},
			Static:    &restx.Static{Root: cfg.DocRoot, Index: cfg.Index},
			Logger:    logger,
		},
		ReadHeaderTimeout: cfg.ReadHeaderTimeout(),
		ReadTimeout:       cfg.ReadTimeout(),
		MaxBodyBytes:      cfg.MaxBodyBytes,
		Logger:            logger,
		Meter:             meter,
		AccessLog:         access,
	}

	banner(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, restx.ErrServerClosed) {
			logger.Logf(obs.Error, "listen: %v", err)
			os.Exit(1)
		}
	case <-ctx.Done():
		logger.Logf(obs.Info, "shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.Shutdown(sctx); err != nil {
			logger.Logf(obs.Warn, "shutdown: %v", err)
		}
		cancel()
	}
	logTotals(logger, meter)
}

func banner(cfg *config.Server) {
	title := color.New(color.FgGreen, color.Bold)
	key := color.New(color.FgCyan)
	title.Fprintln(color.Output, "rawrest server")
	for _, kv := range [][2]string{
		{"listen", cfg.Addr},
		{"data", cfg.DataFile},
		{"static", cfg.DocRoot + " (index " + cfg.Index + ")"},
		{"access log", orDash(cfg.AccessLog)},
	} {
		key.Fprintf(color.Output, "  %-11s", kv[0])
		color.New(color.Reset).Fprintln(color.Output, kv[1])
	}
}

func logTotals(logger obs.Logger, m *obs.MemMeter) {
	snap := m.Snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		logger.Logf(obs.Info, "%s %g", k, snap[k])
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
