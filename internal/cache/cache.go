package cache

import (
	"sync"
	"time"

	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

// Entry キャッシュされた集約結果と取得時刻
type Entry struct {
	Data      domain.Aggregate
	Timestamp time.Time
}

// Cache 集約結果を1件だけ保持するキャッシュ
type Cache interface {
	Get() (Entry, bool)
	Put(entry Entry)
	IsFresh(now time.Time, ttl time.Duration) bool
}

// Memory プロセス内で共有するキャッシュ
//
// 鮮度はプロセス（インスタンス）ごとに独立している。
type Memory struct {
	mu    sync.RWMutex
	entry *Entry
}

// NewMemory 空のキャッシュを作成
func NewMemory() *Memory {
	return &Memory{}
}

// Get 保持しているエントリを返す
func (m *Memory) Get() (Entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.entry == nil {
		return Entry{}, false
	}
	return *m.entry, true
}

// Put エントリを丸ごと置き換える
func (m *Memory) Put(entry Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entry = &entry
}

// IsFresh now - Timestamp < ttl のときに true
func (m *Memory) IsFresh(now time.Time, ttl time.Duration) bool {
	entry, ok := m.Get()
	if !ok {
		return false
	}
	return now.Sub(entry.Timestamp) < ttl
}
