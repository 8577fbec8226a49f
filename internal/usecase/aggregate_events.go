package usecase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/k-negishi/calendar-event-aggregator/internal/cache"
	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

// CacheStatus レスポンスがキャッシュから返されたかどうか
type CacheStatus string

const (
	CacheHit  CacheStatus = "HIT"
	CacheMiss CacheStatus = "MISS"
	// CacheStale 更新に失敗したため期限切れのキャッシュを返した
	CacheStale CacheStatus = "STALE"
)

const (
	refreshKey    = "calendar-events"
	notifyTimeout = 5 * time.Second
)

// CalendarRepository 上流カレンダーから集約結果を取得するポート
type CalendarRepository interface {
	FetchAggregate(ctx context.Context) (domain.Aggregate, error)
}

// SnapshotStore 最後に取得できた集約結果を永続化するポート
type SnapshotStore interface {
	Save(ctx context.Context, entry cache.Entry) error
}

// FailureNotifier 更新失敗を運用者に知らせるポート
type FailureNotifier interface {
	NotifyRefreshFailure(ctx context.Context, cause error, staleSince time.Time) error
}

// Result 集約結果とキャッシュ状態
type Result struct {
	Aggregate  domain.Aggregate
	Status     CacheStatus
	HTTPStatus int
	// FetchedAt 集約結果を上流から取得した時刻（失敗時はゼロ値）
	FetchedAt time.Time
}

// publicError クライアントに返せる情報を持つエラー
type publicError interface {
	error
	HTTPStatus() int
	PublicMessage() string
}

// AggregateEventsUseCase キャッシュを使ってカレンダーイベントの集約結果を返すユースケース
type AggregateEventsUseCase struct {
	repo      CalendarRepository
	cache     cache.Cache
	ttl       time.Duration
	snapshots SnapshotStore
	notifier  FailureNotifier
	clock     func() time.Time

	group singleflight.Group

	notifyMu    sync.Mutex
	notifiedFor time.Time
	notifying   sync.WaitGroup
}

// Option ユースケースの任意設定
type Option func(*AggregateEventsUseCase)

// WithSnapshotStore 更新成功時にスナップショットを保存する
func WithSnapshotStore(store SnapshotStore) Option {
	return func(uc *AggregateEventsUseCase) { uc.snapshots = store }
}

// WithFailureNotifier 期限切れキャッシュで応答したときに通知する
func WithFailureNotifier(notifier FailureNotifier) Option {
	return func(uc *AggregateEventsUseCase) { uc.notifier = notifier }
}

// WithClock 現在時刻の取得方法を差し替える
func WithClock(clock func() time.Time) Option {
	return func(uc *AggregateEventsUseCase) { uc.clock = clock }
}

// NewAggregateEventsUseCase ユースケースを生成
func NewAggregateEventsUseCase(repo CalendarRepository, c cache.Cache, ttl time.Duration, opts ...Option) *AggregateEventsUseCase {
	uc := &AggregateEventsUseCase{
		repo:  repo,
		cache: c,
		ttl:   ttl,
		clock: time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// Execute 新しいキャッシュがあればそれを返し、無ければ上流から取得し直す
func (uc *AggregateEventsUseCase) Execute(ctx context.Context) Result {
	if res, ok := uc.fresh(); ok {
		return res
	}
	return uc.refresh(ctx, false)
}

// Refresh キャッシュの鮮度に関係なく上流から取得し直す
func (uc *AggregateEventsUseCase) Refresh(ctx context.Context) Result {
	return uc.refresh(ctx, true)
}

func (uc *AggregateEventsUseCase) fresh() (Result, bool) {
	if !uc.cache.IsFresh(uc.clock(), uc.ttl) {
		return Result{}, false
	}
	entry, ok := uc.cache.Get()
	if !ok {
		return Result{}, false
	}
	return Result{
		Aggregate:  entry.Data,
		Status:     CacheHit,
		HTTPStatus: http.StatusOK,
		FetchedAt:  entry.Timestamp,
	}, true
}

// refresh 同時に発生したキャッシュミスは1回の上流呼び出しにまとめる
func (uc *AggregateEventsUseCase) refresh(ctx context.Context, force bool) Result {
	// 呼び出し元の切断で共有中の取得が中断されないようにする
	ctx = context.WithoutCancel(ctx)

	v, _, _ := uc.group.Do(refreshKey, func() (interface{}, error) {
		// 待っている間に別のリクエストが更新を終えている場合がある
		if !force {
			if res, ok := uc.fresh(); ok {
				return res, nil
			}
		}
		return uc.fetch(ctx), nil
	})
	return v.(Result)
}

func (uc *AggregateEventsUseCase) fetch(ctx context.Context) Result {
	started := uc.clock()
	agg, err := uc.repo.FetchAggregate(ctx)
	if err == nil {
		now := uc.clock()
		entry := cache.Entry{Data: agg, Timestamp: now}
		uc.cache.Put(entry)

		slog.Info("カレンダーイベントを取得しました",
			"total_events", agg.TotalEvents,
			"elapsed", now.Sub(started).String(),
		)

		if uc.snapshots != nil {
			if err := uc.snapshots.Save(ctx, entry); err != nil {
				slog.Error("スナップショットの保存に失敗しました", "err", err)
			}
		}

		return Result{Aggregate: agg, Status: CacheMiss, HTTPStatus: http.StatusOK, FetchedAt: now}
	}

	if prior, ok := uc.cache.Get(); ok {
		slog.Warn("カレンダーイベントの更新に失敗したため、前回の結果を返します",
			"err", err,
			"stale_since", prior.Timestamp.Format(time.RFC3339),
		)
		uc.notifyFailure(ctx, err, prior.Timestamp)

		return Result{
			Aggregate:  prior.Data,
			Status:     CacheStale,
			HTTPStatus: http.StatusOK,
			FetchedAt:  prior.Timestamp,
		}
	}

	status, message := describeError(err)
	slog.Error("カレンダーイベントの取得に失敗しました", "err", err, "status", status)

	return Result{
		Aggregate:  domain.FailedAggregate(message),
		Status:     CacheMiss,
		HTTPStatus: status,
	}
}

// Wait 送信中の更新失敗通知が終わるまで待つ
func (uc *AggregateEventsUseCase) Wait() {
	uc.notifying.Wait()
}

// notifyFailure 同じキャッシュエントリについては1度だけ通知する
//
// 通知はバックグラウンドで送り、応答を待たせない。
func (uc *AggregateEventsUseCase) notifyFailure(ctx context.Context, cause error, staleSince time.Time) {
	if uc.notifier == nil {
		return
	}

	uc.notifyMu.Lock()
	if uc.notifiedFor.Equal(staleSince) {
		uc.notifyMu.Unlock()
		return
	}
	uc.notifiedFor = staleSince
	uc.notifyMu.Unlock()

	uc.notifying.Add(1)
	go func() {
		defer uc.notifying.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
		defer cancel()

		if err := uc.notifier.NotifyRefreshFailure(ctx, cause, staleSince); err != nil {
			slog.Error("更新失敗の通知に失敗しました", "err", err)
		}
	}()
}

func describeError(err error) (int, string) {
	var pub publicError
	if errors.As(err, &pub) {
		return pub.HTTPStatus(), pub.PublicMessage()
	}
	return http.StatusInternalServerError, domain.GenericErrorMessage
}
