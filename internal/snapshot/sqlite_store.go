package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/k-negishi/calendar-event-aggregator/internal/cache"
	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS aggregate_snapshot (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	payload TEXT NOT NULL,
	fetched_at TEXT NOT NULL
);`

// SQLiteStore 最後に取得できた集約結果を1行だけ保持するSQLiteストア
type SQLiteStore struct {
	db       *sql.DB
	timezone *time.Location
}

// Open SQLiteファイルを開き、テーブルを作成する
func Open(ctx context.Context, dsn string, timezone *time.Location) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("スナップショットDBのオープンに失敗しました: %w", err)
	}
	// :memory: は接続ごとに別のDBになるため1接続に制限する
	db.SetMaxOpenConns(1)

	store, err := NewSQLiteStore(ctx, db, timezone)
	if err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewSQLiteStore 既存の接続からストアを作成する
func NewSQLiteStore(ctx context.Context, db *sql.DB, timezone *time.Location) (*SQLiteStore, error) {
	if timezone == nil {
		timezone = time.UTC
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("スナップショットテーブルの作成に失敗しました: %w", err)
	}
	return &SQLiteStore{db: db, timezone: timezone}, nil
}

// Save 集約結果を上書き保存する
func (s *SQLiteStore) Save(ctx context.Context, entry cache.Entry) error {
	payload, err := json.Marshal(entry.Data)
	if err != nil {
		return fmt.Errorf("集約結果のシリアライズに失敗しました: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aggregate_snapshot (id, payload, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(payload), entry.Timestamp.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("スナップショットの保存に失敗しました: %w", err)
	}
	return nil
}

// Load 保存済みの集約結果を読み込む（未保存なら false）
func (s *SQLiteStore) Load(ctx context.Context) (cache.Entry, bool, error) {
	var payload, fetchedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM aggregate_snapshot WHERE id = 1`,
	).Scan(&payload, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return cache.Entry{}, false, nil
	}
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("スナップショットの読み込みに失敗しました: %w", err)
	}

	var agg domain.Aggregate
	if err := json.Unmarshal([]byte(payload), &agg); err != nil {
		return cache.Entry{}, false, fmt.Errorf("スナップショットの形式が不正です: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, fetchedAt)
	if err != nil {
		return cache.Entry{}, false, fmt.Errorf("スナップショットの取得時刻が不正です: %w", err)
	}

	return cache.Entry{Data: agg.RestoreDays(s.timezone), Timestamp: ts}, true, nil
}

// Close DB接続を閉じる
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
