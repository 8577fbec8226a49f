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

	"github.com/k-negishi/calendar-event-aggregator/internal/app"
	"github.com/k-negishi/calendar-event-aggregator/internal/config"
	"github.com/k-negishi/calendar-event-aggregator/internal/logging"
)

const shutdownTimeout = 10 * time.Second

// ローカル・コンテナ向けのHTTPサーバー
func main() {
	if err := run(); err != nil {
		slog.Error("サーバーが異常終了しました", "err", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	logging.Setup(os.Stderr, cfg.LogLevel, config.IsLambda())

	application, err := app.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	if err := application.StartWarmup(cfg.WarmupCron); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           application.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// 上流の取得時間を含めて応答できるようにする
		WriteTimeout: cfg.UpstreamTimeout + 10*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTPサーバーを起動します", "addr", cfg.ListenAddr, "calendar_id", cfg.CalendarID)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
