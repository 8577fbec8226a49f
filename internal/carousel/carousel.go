package carousel

import "time"

const (
	// WideViewportWidth これより広い画面では3枚ずつ表示する
	WideViewportWidth = 768
	// AutoAdvanceInterval 自動送りの間隔
	AutoAdvanceInterval = 5 * time.Second
	// SwipeThreshold 1ステップとみなす横方向の最小移動量（px）
	SwipeThreshold = 50

	wideCardsPerView   = 3
	narrowCardsPerView = 1
)

// Carousel 今後のイベント一覧を送るカルーセルの表示状態
//
// カードは upcoming の各イベントと、過去イベントがある場合のみ末尾の「過去のイベント」カード。
// goroutine間で共有しない前提なのでロックは持たない。
type Carousel struct {
	totalCards   int
	cardsPerView int
	currentIndex int
	// lastReset 自動送りのカウントダウンを始めた時刻
	lastReset time.Time
}

// New 件数と画面幅からカルーセルを作成する
func New(upcoming, past, viewportWidth int, now time.Time) *Carousel {
	total := upcoming
	if past > 0 {
		total++
	}
	return &Carousel{
		totalCards:   total,
		cardsPerView: CardsPerView(viewportWidth),
		lastReset:    now,
	}
}

// CardsPerView 画面幅から同時に表示する枚数を求める
func CardsPerView(viewportWidth int) int {
	if viewportWidth > WideViewportWidth {
		return wideCardsPerView
	}
	return narrowCardsPerView
}

// TotalCards カードの総数
func (c *Carousel) TotalCards() int { return c.totalCards }

// CardsPerView 現在の1画面あたりの枚数
func (c *Carousel) CardsPerView() int { return c.cardsPerView }

// Index 先頭に表示しているカードの位置
func (c *Carousel) Index() int { return c.currentIndex }

// MaxIndex 先頭に表示できる最後の位置
func (c *Carousel) MaxIndex() int {
	if n := c.totalCards - c.cardsPerView; n > 0 {
		return n
	}
	return 0
}

// Dots ページ送りのドットの数
func (c *Carousel) Dots() int {
	return c.MaxIndex() + 1
}

// Next 1枚進める（最後で止まる）
func (c *Carousel) Next(now time.Time) {
	c.GoTo(c.currentIndex+1, now)
}

// Prev 1枚戻す（先頭で止まる）
func (c *Carousel) Prev(now time.Time) {
	c.GoTo(c.currentIndex-1, now)
}

// GoTo 指定位置へ移動する（範囲外は端に丸める）
func (c *Carousel) GoTo(index int, now time.Time) {
	c.currentIndex = clamp(index, 0, c.MaxIndex())
	c.lastReset = now
}

// Tick 前回のリセットから間隔が経過していれば1枚進める
//
// 最後の位置からは先頭に戻る。進めた場合は true を返す。
func (c *Carousel) Tick(now time.Time) bool {
	if now.Sub(c.lastReset) < AutoAdvanceInterval {
		return false
	}
	if c.currentIndex >= c.MaxIndex() {
		c.currentIndex = 0
	} else {
		c.currentIndex++
	}
	c.lastReset = now
	return true
}

// Resize 画面幅の変更に合わせて枚数を再計算し、位置を丸める
func (c *Carousel) Resize(viewportWidth int) {
	c.cardsPerView = CardsPerView(viewportWidth)
	if maxIndex := c.MaxIndex(); c.currentIndex > maxIndex {
		c.currentIndex = maxIndex
	}
}

// Swipe タッチ操作の移動量を1ステップの送り/戻しとして扱う
//
// 横方向の移動が閾値を超え、かつ縦方向より大きい場合のみ反応する。
// 左へのスワイプ（dx < 0）で進み、右へのスワイプで戻る。
func (c *Carousel) Swipe(dx, dy int, now time.Time) bool {
	if abs(dx) <= SwipeThreshold || abs(dx) <= abs(dy) {
		return false
	}
	if dx < 0 {
		c.Next(now)
	} else {
		c.Prev(now)
	}
	return true
}

// Layout 画面幅ごとの初期表示に必要な値
type Layout struct {
	TotalCards   int  `json:"totalCards"`
	CardsPerView int  `json:"cardsPerView"`
	MaxIndex     int  `json:"maxIndex"`
	Dots         int  `json:"dots"`
	HasPastCard  bool `json:"hasPastCard"`

	// AutoAdvanceMs 自動送りの間隔（ミリ秒）
	AutoAdvanceMs int64 `json:"autoAdvanceMs"`
}

// LayoutFor upcoming / past の件数と画面幅から初期表示の値を求める
func LayoutFor(upcoming, past, viewportWidth int) Layout {
	c := New(upcoming, past, viewportWidth, time.Time{})
	return Layout{
		TotalCards:    c.TotalCards(),
		CardsPerView:  c.CardsPerView(),
		MaxIndex:      c.MaxIndex(),
		Dots:          c.Dots(),
		HasPastCard:   past > 0,
		AutoAdvanceMs: AutoAdvanceInterval.Milliseconds(),
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
