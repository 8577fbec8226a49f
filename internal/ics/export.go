package ics

import (
	"net/url"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

const productID = "-//calendar-event-aggregator//EN"

// Exporter 集約結果を iCalendar 形式に変換する
type Exporter struct {
	// siteURL "#contact" のような相対リンクの解決に使う
	siteURL *url.URL
}

// NewExporter Exporterを作成する（siteURLは空でもよい）
func NewExporter(siteURL string) *Exporter {
	e := &Exporter{}
	if u, err := url.Parse(siteURL); err == nil && u.IsAbs() {
		e.siteURL = u
	}
	return e
}

// Export 日付のあるイベントを終日の VEVENT として出力する
//
// DTSTAMP には集約結果の取得時刻を使うため、同じ集約結果からは同じ出力になる。
func (e *Exporter) Export(agg domain.Aggregate, fetchedAt time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if agg.CalendarName != "" {
		cal.SetXWRCalName(agg.CalendarName)
	}
	if agg.Timezone != "" {
		cal.SetXWRTimezone(agg.Timezone)
	}

	for _, event := range agg.Events {
		if event.Day.IsZero() {
			continue
		}

		ve := cal.AddEvent(event.ID)
		ve.SetDtStampTime(fetchedAt.UTC())
		ve.SetAllDayStartAt(event.Day)
		ve.SetAllDayEndAt(event.Day.AddDate(0, 0, 1))
		ve.SetSummary(event.Title)
		if event.Description != "" {
			ve.SetDescription(event.Description)
		}
		if link := e.resolveLink(event.CTA.Link); link != "" {
			ve.SetURL(link)
		}
		if event.Image != "" {
			ve.SetProperty(ical.ComponentPropertyAttach, event.Image)
		}
	}

	return cal.Serialize()
}

// resolveLink 絶対URLはそのまま、相対リンクはサイトURLで解決する（解決できなければ空）
func (e *Exporter) resolveLink(link string) string {
	link = strings.TrimSpace(link)
	if link == "" {
		return ""
	}
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	if u.IsAbs() {
		return u.String()
	}
	if e.siteURL == nil {
		return ""
	}
	return e.siteURL.ResolveReference(u).String()
}
