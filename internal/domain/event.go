package domain

import "time"

const (
	// DefaultTitle タイトル未設定時の表示名
	DefaultTitle = "Untitled Event"
	// DefaultCTAText CTA未指定時のボタン文言
	DefaultCTAText = "Learn More"
	// DefaultCTALink CTA未指定時のリンク先（サイト内のお問い合わせアンカー）
	DefaultCTALink = "#contact"
	// GenericErrorMessage 失敗理由が分からない場合にクライアントへ返すメッセージ
	GenericErrorMessage = "Failed to fetch calendar events"
)

// CTA イベントカードのボタン（文言とリンク）
type CTA struct {
	Text string `json:"text"`
	Link string `json:"link"`
}

// DefaultCTA デフォルトのCTAを返す
func DefaultCTA() CTA {
	return CTA{Text: DefaultCTAText, Link: DefaultCTALink}
}

// Event 正規化済みのカレンダーイベント
//
// Day は比較用の日付（その日の00:00）で、日付が解析できなかった場合はゼロ値になる。
type Event struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	DisplayDate string    `json:"displayDate"`
	Image       string    `json:"image"`
	CTA         CTA       `json:"cta"`
	Day         time.Time `json:"-"`
}

// Aggregate クライアントに返す集約結果
type Aggregate struct {
	Success      bool    `json:"success"`
	CalendarID   string  `json:"calendarId,omitempty"`
	CalendarName string  `json:"calendarName,omitempty"`
	Timezone     string  `json:"timezone,omitempty"`
	Events       []Event `json:"events"`
	TotalEvents  int     `json:"totalEvents"`
	Error        string  `json:"error,omitempty"`
}

// NewAggregate 成功時の集約結果を作成
func NewAggregate(calendarID, calendarName, timezone string, events []Event) Aggregate {
	if events == nil {
		events = []Event{}
	}
	return Aggregate{
		Success:      true,
		CalendarID:   calendarID,
		CalendarName: calendarName,
		Timezone:     timezone,
		Events:       events,
		TotalEvents:  len(events),
	}
}

// FailedAggregate 失敗時の集約結果を作成
func FailedAggregate(message string) Aggregate {
	return Aggregate{
		Success: false,
		Error:   message,
		Events:  []Event{},
	}
}

// DateLayout Event.Date の書式
const DateLayout = "2006-01-02"

// RestoreDays 永続化から読み戻した集約結果の Day を Date から復元する
//
// DisplayDate が空のイベントは日付を解析できなかったものなので、Day はゼロ値のままにする。
func (a Aggregate) RestoreDays(loc *time.Location) Aggregate {
	events := make([]Event, len(a.Events))
	for i, event := range a.Events {
		if event.DisplayDate != "" {
			if day, err := time.ParseInLocation(DateLayout, event.Date, loc); err == nil {
				event.Day = day
			}
		}
		events[i] = event
	}
	a.Events = events
	return a
}
