package calendar

import (
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

const (
	statusCancelled  = "cancelled"
	eventTypeDefault = "default"
	// holidayCreator Googleが自動生成する祝日カレンダーの作成者
	holidayCreator = "holiday@group.v.calendar.google.com"
)

// Normalizer Google Calendarのイベントを domain.Event に変換する
type Normalizer struct {
	timezone *time.Location
}

// NewNormalizer 指定タイムゾーンで日付を解釈する Normalizer を作成
func NewNormalizer(timezone *time.Location) *Normalizer {
	if timezone == nil {
		timezone = time.UTC
	}
	return &Normalizer{timezone: timezone}
}

// Normalize 対象外のイベントを除外し、残りを変換する
//
// 同じIDのイベントは最初の1件だけを残す。入力の順序は保たれる。
func (n *Normalizer) Normalize(items []*gcal.Event) []domain.Event {
	events := make([]domain.Event, 0, len(items))
	seen := make(map[string]struct{}, len(items))

	for _, item := range items {
		if !shouldInclude(item) {
			continue
		}
		id := eventID(item)
		if _, dup := seen[id]; dup {
			slog.Warn("重複したイベントIDをスキップしました", "id", id)
			continue
		}
		seen[id] = struct{}{}

		event := n.convertToEvent(item)
		event.ID = id
		events = append(events, event)
	}

	return events
}

// eventID IDが無いイベントには開始日時・タイトル・説明から決まるIDを振る
func eventID(item *gcal.Event) string {
	if item.Id != "" {
		return item.Id
	}
	key := strings.Join([]string{rawStart(item.Start), item.Summary, item.Description}, "\x00")
	return "generated-" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// shouldInclude キャンセル済み・祝日カレンダー・default以外の種別を除外する
func shouldInclude(item *gcal.Event) bool {
	if item == nil {
		return false
	}
	if item.Status == statusCancelled {
		return false
	}
	if item.Creator != nil && strings.Contains(item.Creator.Email, holidayCreator) {
		return false
	}
	if item.EventType != "" && item.EventType != eventTypeDefault {
		return false
	}
	return true
}

// convertToEvent 1件のイベントを変換する（欠けている項目はデフォルト値で埋める）
func (n *Normalizer) convertToEvent(item *gcal.Event) domain.Event {
	title := strings.TrimSpace(item.Summary)
	if title == "" {
		title = domain.DefaultTitle
	}

	cta, description := extractCTA(item.Description)

	event := domain.Event{
		ID:          item.Id,
		Title:       title,
		Description: description,
		Image:       resolveImage(item.Attachments),
		CTA:         cta,
	}

	raw := rawStart(item.Start)
	day, ok := n.parseDay(item.Start)
	if !ok {
		if raw != "" {
			slog.Warn("イベント日付の解析に失敗しました", "id", item.Id, "start", raw)
		}
		event.Date = truncate(raw, len(domain.DateLayout))
		return event
	}

	event.Day = day
	event.Date = day.Format(domain.DateLayout)
	event.DisplayDate = FormatDisplayDate(day)
	return event
}

func rawStart(start *gcal.EventDateTime) string {
	if start == nil {
		return ""
	}
	if start.Date != "" {
		return start.Date
	}
	return start.DateTime
}

// parseDay 終日イベントは Date、時刻指定ありは DateTime から日付を求める
func (n *Normalizer) parseDay(start *gcal.EventDateTime) (time.Time, bool) {
	if start == nil {
		return time.Time{}, false
	}

	if start.Date != "" {
		d, err := time.ParseInLocation(domain.DateLayout, start.Date, n.timezone)
		if err != nil {
			return time.Time{}, false
		}
		return d, true
	}

	if start.DateTime != "" {
		t, err := time.Parse(time.RFC3339, start.DateTime)
		if err != nil {
			return time.Time{}, false
		}
		return domain.StartOfDay(t.In(n.timezone)), true
	}

	return time.Time{}, false
}

// FormatDisplayDate "NOV 26" 形式の表示用日付
func FormatDisplayDate(day time.Time) string {
	return strings.ToUpper(day.Format("Jan")) + " " + day.Format("2")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
