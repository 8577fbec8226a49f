package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/k-negishi/calendar-event-aggregator/internal/carousel"
	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
	"github.com/k-negishi/calendar-event-aggregator/internal/ics"
	"github.com/k-negishi/calendar-event-aggregator/internal/usecase"
)

// CacheHeader キャッシュ状態（HIT / MISS / STALE）を返すレスポンスヘッダー
const CacheHeader = "X-Cache"

// AggregateService 集約結果を返すユースケース
type AggregateService interface {
	Execute(ctx context.Context) usecase.Result
}

// Server カレンダーイベントAPIのHTTPハンドラー
type Server struct {
	service  AggregateService
	exporter *ics.Exporter
	timezone *time.Location
	clock    func() time.Time
	mux      *http.ServeMux
}

// CategorizedResponse /api/calendar-events/categorized のレスポンス
type CategorizedResponse struct {
	Success      bool             `json:"success"`
	CalendarName string           `json:"calendarName,omitempty"`
	Timezone     string           `json:"timezone,omitempty"`
	Upcoming     []domain.Event   `json:"upcoming"`
	Past         []domain.Event   `json:"past"`
	Carousel     *carousel.Layout `json:"carousel,omitempty"`
	Error        string           `json:"error,omitempty"`
}

// NewServer ハンドラーを作成する
func NewServer(service AggregateService, exporter *ics.Exporter, timezone *time.Location) *Server {
	if timezone == nil {
		timezone = time.UTC
	}
	s := &Server{
		service:  service,
		exporter: exporter,
		timezone: timezone,
		clock:    time.Now,
		mux:      http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler ミドルウェアを適用したハンドラーを返す
func (s *Server) Handler() http.Handler {
	return Chain(s.mux, Recover, AccessLog, RequestID)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/calendar-events", s.handleEvents)
	s.mux.HandleFunc("GET /api/calendar-events/categorized", s.handleCategorized)
	s.mux.HandleFunc("GET /api/calendar-events.ics", s.handleICS)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleEvents 集約結果をそのまま返す
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	res := s.service.Execute(r.Context())
	w.Header().Set(CacheHeader, string(res.Status))
	writeJSON(w, res.HTTPStatus, res.Aggregate)
}

// handleCategorized upcoming / past に振り分けた結果を返す
//
// width を指定するとその画面幅でのカルーセルの初期表示値も返す。
func (s *Server) handleCategorized(w http.ResponseWriter, r *http.Request) {
	res := s.service.Execute(r.Context())
	w.Header().Set(CacheHeader, string(res.Status))

	if !res.Aggregate.Success {
		writeJSON(w, res.HTTPStatus, CategorizedResponse{
			Success:  false,
			Upcoming: []domain.Event{},
			Past:     []domain.Event{},
			Error:    res.Aggregate.Error,
		})
		return
	}

	categorized := domain.Categorize(res.Aggregate.Events, s.clock().In(s.timezone))
	resp := CategorizedResponse{
		Success:      true,
		CalendarName: res.Aggregate.CalendarName,
		Timezone:     res.Aggregate.Timezone,
		Upcoming:     categorized.Upcoming,
		Past:         categorized.Past,
	}

	if v := r.URL.Query().Get("width"); v != "" {
		width, err := strconv.Atoi(v)
		if err != nil || width < 0 {
			writeError(w, http.StatusBadRequest, "width must be a non-negative integer")
			return
		}
		layout := carousel.LayoutFor(len(categorized.Upcoming), len(categorized.Past), width)
		resp.Carousel = &layout
	}

	writeJSON(w, http.StatusOK, resp)
}

// handleICS 集約結果をiCalendar形式で返す
func (s *Server) handleICS(w http.ResponseWriter, r *http.Request) {
	res := s.service.Execute(r.Context())
	w.Header().Set(CacheHeader, string(res.Status))

	if !res.Aggregate.Success {
		writeError(w, res.HTTPStatus, res.Aggregate.Error)
		return
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="calendar-events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(s.exporter.Export(res.Aggregate, res.FetchedAt)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("JSONレスポンスの書き込みに失敗しました", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domain.FailedAggregate(msg))
}
