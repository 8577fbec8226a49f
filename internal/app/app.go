package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/robfig/cron/v3"

	"github.com/k-negishi/calendar-event-aggregator/internal/cache"
	"github.com/k-negishi/calendar-event-aggregator/internal/config"
	"github.com/k-negishi/calendar-event-aggregator/internal/gateway"
	"github.com/k-negishi/calendar-event-aggregator/internal/handler"
	"github.com/k-negishi/calendar-event-aggregator/internal/ics"
	"github.com/k-negishi/calendar-event-aggregator/internal/snapshot"
	"github.com/k-negishi/calendar-event-aggregator/internal/usecase"
)

// App 設定から組み立てたアプリケーション一式
type App struct {
	UseCase *usecase.AggregateEventsUseCase
	Server  *handler.Server

	snapshots *snapshot.SQLiteStore
	cron      *cron.Cron
}

// New 設定に従って依存関係を組み立てる
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	repo, err := gateway.NewGoogleCalendarRepository(ctx, gateway.Options{
		CalendarID:      cfg.CalendarID,
		APIKey:          cfg.APIKey,
		CredentialsJSON: []byte(cfg.GoogleCredentials),
		Referer:         cfg.SiteURL,
		MaxResults:      int64(cfg.MaxResults),
		Timezone:        cfg.Location(),
		Lookback:        cfg.Lookback,
		Timeout:         cfg.UpstreamTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("Google Calendarリポジトリの初期化に失敗しました: %w", err)
	}

	return Assemble(ctx, cfg, repo)
}

// Assemble 任意のリポジトリでアプリケーションを組み立てる
func Assemble(ctx context.Context, cfg *config.Config, repo usecase.CalendarRepository) (*App, error) {
	a := &App{}
	c := cache.NewMemory()
	var opts []usecase.Option

	if cfg.SnapshotDB != "" {
		store, err := snapshot.Open(ctx, cfg.SnapshotDB, cfg.Location())
		if err != nil {
			return nil, err
		}
		a.snapshots = store
		opts = append(opts, usecase.WithSnapshotStore(store))

		// 前回の結果があれば取得時刻ごと復元する（TTL内ならそのまま返せる）
		entry, ok, err := store.Load(ctx)
		if err != nil {
			slog.Warn("スナップショットを読み込めませんでした", "err", err)
		} else if ok {
			c.Put(entry)
			slog.Info("スナップショットからキャッシュを復元しました",
				"total_events", entry.Data.TotalEvents,
				"fetched_at", entry.Timestamp,
			)
		}
	}

	if cfg.LineEnabled() {
		notifier := gateway.NewLINENotifier(cfg.LineChannelAccessToken, cfg.LineUserID, cfg.Location())
		opts = append(opts, usecase.WithFailureNotifier(notifier))
	}

	a.UseCase = usecase.NewAggregateEventsUseCase(repo, c, cfg.CacheTTL, opts...)
	a.Server = handler.NewServer(a.UseCase, ics.NewExporter(cfg.SiteURL), cfg.Location())
	return a, nil
}

// Handler HTTPハンドラー
func (a *App) Handler() http.Handler {
	return a.Server.Handler()
}

// StartWarmup cron形式のスケジュール（例 "*/4 * * * *"）でキャッシュを更新し続ける
//
// 空文字の場合は何もしない。
func (a *App) StartWarmup(schedule string) error {
	if schedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		res := a.UseCase.Refresh(context.Background())
		slog.Info("キャッシュを更新しました", "status", res.Status, "http_status", res.HTTPStatus)
	})
	if err != nil {
		return fmt.Errorf("WARMUP_CRONの形式が不正です: %w", err)
	}

	c.Start()
	a.cron = c
	slog.Info("キャッシュの定期更新を開始しました", "schedule", schedule)
	return nil
}

// Close 定期更新を止め、送信中の通知を待ってからスナップショットDBを閉じる
func (a *App) Close() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	a.UseCase.Wait()
	if a.snapshots != nil {
		return a.snapshots.Close()
	}
	return nil
}
