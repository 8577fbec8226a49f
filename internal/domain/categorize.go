package domain

import (
	"sort"
	"time"
)

// CategorizedEvents 今後のイベントと過去のイベントに分けた結果
type CategorizedEvents struct {
	Upcoming []Event `json:"upcoming"`
	Past     []Event `json:"past"`
}

// Categorize イベントを now 基準で upcoming / past に振り分ける
//
// イベントはその日の終わり（23:59:59.999）まで upcoming として扱う。
// upcoming は日付の昇順、past は日付の降順に並べる。
func Categorize(events []Event, now time.Time) CategorizedEvents {
	today := StartOfDay(now)

	result := CategorizedEvents{
		Upcoming: make([]Event, 0, len(events)),
		Past:     make([]Event, 0),
	}

	for _, event := range events {
		if !event.Day.IsZero() && !endOfDay(event.Day, today.Location()).Before(today) {
			result.Upcoming = append(result.Upcoming, event)
		} else {
			result.Past = append(result.Past, event)
		}
	}

	sort.SliceStable(result.Upcoming, func(i, j int) bool {
		return result.Upcoming[i].Day.Before(result.Upcoming[j].Day)
	})
	sort.SliceStable(result.Past, func(i, j int) bool {
		return result.Past[i].Day.After(result.Past[j].Day)
	})

	return result
}

// StartOfDay t と同じロケーションでのその日の00:00を返す
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// endOfDay 日付部分だけを使い、loc での23:59:59.999を返す
func endOfDay(day time.Time, loc *time.Location) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
}
