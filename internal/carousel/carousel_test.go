package carousel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var start = time.Date(2024, 11, 20, 9, 0, 0, 0, time.UTC)

func TestNew(t *testing.T) {
	tests := []struct {
		name         string
		upcoming     int
		past         int
		width        int
		expectTotal  int
		expectPer    int
		expectMax    int
		expectedDots int
	}{
		{name: "過去イベントありは末尾にカードを追加", upcoming: 4, past: 2, width: 1024, expectTotal: 5, expectPer: 3, expectMax: 2, expectedDots: 3},
		{name: "過去イベントなし", upcoming: 4, past: 0, width: 1024, expectTotal: 4, expectPer: 3, expectMax: 1, expectedDots: 2},
		{name: "狭い画面は1枚ずつ", upcoming: 4, past: 0, width: 768, expectTotal: 4, expectPer: 1, expectMax: 3, expectedDots: 4},
		{name: "枚数が表示数未満", upcoming: 1, past: 0, width: 1024, expectTotal: 1, expectPer: 3, expectMax: 0, expectedDots: 1},
		{name: "空", upcoming: 0, past: 0, width: 1024, expectTotal: 0, expectPer: 3, expectMax: 0, expectedDots: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(tt.upcoming, tt.past, tt.width, start)

			assert.Equal(t, tt.expectTotal, c.TotalCards())
			assert.Equal(t, tt.expectPer, c.CardsPerView())
			assert.Equal(t, tt.expectMax, c.MaxIndex())
			assert.Equal(t, tt.expectedDots, c.Dots())
			assert.Equal(t, 0, c.Index())
		})
	}
}

func TestNextPrev_Clamp(t *testing.T) {
	// totalCards = 5, cardsPerView = 3
	c := New(4, 1, 1024, start)
	assert.Equal(t, 2, c.MaxIndex())

	for i := 0; i < 10; i++ {
		c.Next(start)
		assert.LessOrEqual(t, c.Index(), 2)
	}
	assert.Equal(t, 2, c.Index())

	for i := 0; i < 10; i++ {
		c.Prev(start)
		assert.GreaterOrEqual(t, c.Index(), 0)
	}
	assert.Equal(t, 0, c.Index())
}

func TestGoTo(t *testing.T) {
	c := New(6, 0, 500, start)

	c.GoTo(3, start)
	assert.Equal(t, 3, c.Index())

	c.GoTo(99, start)
	assert.Equal(t, c.MaxIndex(), c.Index())

	c.GoTo(-1, start)
	assert.Equal(t, 0, c.Index())
}

func TestTick_AutoAdvanceAndWrap(t *testing.T) {
	c := New(4, 1, 1024, start)

	assert.False(t, c.Tick(start.Add(4*time.Second)), "間隔未満では進まない")
	assert.Equal(t, 0, c.Index())

	now := start
	for _, expected := range []int{1, 2, 0, 1} {
		now = now.Add(AutoAdvanceInterval)
		assert.True(t, c.Tick(now))
		assert.Equal(t, expected, c.Index())
	}
}

func TestManualNavigationResetsTimer(t *testing.T) {
	c := New(4, 1, 1024, start)

	// 4秒後に手動で進めると、そこから5秒経つまで自動送りしない
	c.Next(start.Add(4 * time.Second))
	assert.False(t, c.Tick(start.Add(6*time.Second)))
	assert.Equal(t, 1, c.Index())

	assert.True(t, c.Tick(start.Add(9*time.Second)))
	assert.Equal(t, 2, c.Index())
}

func TestResize_ClampsIndex(t *testing.T) {
	c := New(5, 0, 500, start)
	c.GoTo(4, start)
	assert.Equal(t, 4, c.Index())

	c.Resize(1280)
	assert.Equal(t, 3, c.CardsPerView())
	assert.Equal(t, 2, c.MaxIndex())
	assert.Equal(t, 2, c.Index())

	// 狭くしても位置はそのまま
	c.Resize(375)
	assert.Equal(t, 2, c.Index())
	assert.Equal(t, 4, c.MaxIndex())
}

func TestSwipe(t *testing.T) {
	tests := []struct {
		name        string
		dx, dy      int
		handled     bool
		expectIndex int
	}{
		{name: "左スワイプで進む", dx: -80, dy: 10, handled: true, expectIndex: 2},
		{name: "右スワイプで戻る", dx: 80, dy: 10, handled: true, expectIndex: 0},
		{name: "閾値ちょうどは無視", dx: -50, dy: 0, handled: false, expectIndex: 1},
		{name: "縦方向が大きい場合は無視", dx: -80, dy: 120, handled: false, expectIndex: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(6, 0, 500, start)
			c.GoTo(1, start)

			assert.Equal(t, tt.handled, c.Swipe(tt.dx, tt.dy, start))
			assert.Equal(t, tt.expectIndex, c.Index())
		})
	}
}

func TestLayoutFor(t *testing.T) {
	layout := LayoutFor(4, 3, 1024)

	assert.Equal(t, Layout{
		TotalCards:    5,
		CardsPerView:  3,
		MaxIndex:      2,
		Dots:          3,
		HasPastCard:   true,
		AutoAdvanceMs: 5000,
	}, layout)
}
