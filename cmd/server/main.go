package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tabsplit/tabsplit/internal/config"
	"github.com/tabsplit/tabsplit/internal/server"
	"github.com/tabsplit/tabsplit/internal/service"
	"github.com/tabsplit/tabsplit/internal/storage/sqlite"
	"github.com/tabsplit/tabsplit/pkg/logging"
)

func main() {
	cfg := config.Load()
	logging.SetupWithLevel(logging.ParseLevel(cfg.Logger.Level))

	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.Database.Path)

	receipts := service.NewReceiptService(store)
	shares := service.NewShareService(store, cfg.ShareCode.TTL)

	srv := &http.Server{
		Addr: cfg.Server.Addr,
		// h2c allows HTTP/2 without TLS behind a terminating proxy.
		Handler:      h2c.NewHandler(server.New(receipts, shares).Handler(), &http2.Server{}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Expired share codes are invisible to lookups either way; the sweep
	// just keeps the table from growing.
	go sweepShareCodes(ctx, shares, cfg.ShareCode.SweepInterval)

	go func() {
		slog.Info("Server starting", "address", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Shutdown failed", "error", err)
	}
}

func sweepShareCodes(ctx context.Context, shares *service.ShareService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := shares.SweepExpired(ctx); err != nil {
				slog.Warn("Share code sweep failed", "error", err)
			}
		}
	}
}
