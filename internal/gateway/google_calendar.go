package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/k-negishi/calendar-event-aggregator/internal/calendar"
	"github.com/k-negishi/calendar-event-aggregator/internal/domain"
)

// GenericErrorMessage 上流のエラー内容が分からない場合にクライアントへ返すメッセージ
const GenericErrorMessage = domain.GenericErrorMessage

// ErrTransport レスポンスを受け取れなかった（接続失敗・タイムアウトなど）
var ErrTransport = errors.New("カレンダーAPIへの接続に失敗しました")

// UpstreamError Google Calendar APIが返したエラー（2xx以外）
type UpstreamError struct {
	StatusCode int
	Message    string
	err        error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("カレンダーAPIがエラーを返しました (Status: %d): %s", e.StatusCode, e.Message)
}

func (e *UpstreamError) Unwrap() error {
	return e.err
}

// HTTPStatus クライアントに返すHTTPステータス
func (e *UpstreamError) HTTPStatus() int {
	if e.StatusCode < 400 || e.StatusCode > 599 {
		return http.StatusInternalServerError
	}
	return e.StatusCode
}

// PublicMessage クライアントに返すエラーメッセージ
func (e *UpstreamError) PublicMessage() string {
	return e.Message
}

// ListQuery Events.List に渡す条件
type ListQuery struct {
	TimeMin    time.Time
	MaxResults int64
	TimeZone   string
}

// EventsProvider Google Calendar APIのイベント一覧取得を抽象化したもの
type EventsProvider interface {
	ListEvents(ctx context.Context, calendarID string, query ListQuery) (*gcal.Events, error)
}

// Options GoogleCalendarRepository の設定
type Options struct {
	CalendarID string
	// APIKey リファラー制限付きのAPIキー
	APIKey string
	// CredentialsJSON サービスアカウントの認証情報（指定時はAPIキーより優先）
	CredentialsJSON []byte
	// Referer APIキーのリファラー制限を通すために付与する値
	Referer    string
	MaxResults int64
	Timezone   *time.Location
	// Lookback 取得対象に含める過去の期間
	Lookback time.Duration
	// Timeout 1回のAPI呼び出しの上限時間
	Timeout time.Duration
}

// GoogleCalendarRepository Google Calendar APIからイベントを取得し正規化する
type GoogleCalendarRepository struct {
	provider   EventsProvider
	normalizer *calendar.Normalizer
	calendarID string
	maxResults int64
	timezone   *time.Location
	lookback   time.Duration
	timeout    time.Duration
	clock      func() time.Time
}

// NewGoogleCalendarRepository Google Calendarリポジトリを作成
func NewGoogleCalendarRepository(ctx context.Context, opts Options) (*GoogleCalendarRepository, error) {
	var clientOption option.ClientOption
	if len(opts.CredentialsJSON) > 0 {
		// サービスアカウント認証
		creds, err := google.CredentialsFromJSON(ctx, opts.CredentialsJSON, gcal.CalendarReadonlyScope)
		if err != nil {
			return nil, fmt.Errorf("google認証情報の読み込みに失敗しました: %w", err)
		}
		clientOption = option.WithCredentials(creds)
	} else {
		if opts.APIKey == "" {
			return nil, errors.New("APIキーまたはサービスアカウントの認証情報が必要です")
		}
		clientOption = option.WithAPIKey(opts.APIKey)
	}

	service, err := gcal.NewService(ctx, clientOption)
	if err != nil {
		return nil, fmt.Errorf("google Calendar APIサービスの作成に失敗しました: %w", err)
	}

	return NewGoogleCalendarRepositoryWithProvider(NewServiceEventsProvider(service, opts.Referer), opts), nil
}

// NewGoogleCalendarRepositoryWithProvider 任意の EventsProvider でリポジトリを作成
func NewGoogleCalendarRepositoryWithProvider(provider EventsProvider, opts Options) *GoogleCalendarRepository {
	timezone := opts.Timezone
	if timezone == nil {
		timezone = time.UTC
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 50
	}
	lookback := opts.Lookback
	if lookback <= 0 {
		lookback = 365 * 24 * time.Hour
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &GoogleCalendarRepository{
		provider:   provider,
		normalizer: calendar.NewNormalizer(timezone),
		calendarID: opts.CalendarID,
		maxResults: maxResults,
		timezone:   timezone,
		lookback:   lookback,
		timeout:    timeout,
		clock:      time.Now,
	}
}

// FetchAggregate イベントを取得し、正規化した集約結果を返す
//
// 返すエラーは *UpstreamError か ErrTransport をラップしたもの。
func (r *GoogleCalendarRepository) FetchAggregate(ctx context.Context) (domain.Aggregate, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := ListQuery{
		TimeMin:    r.clock().Add(-r.lookback),
		MaxResults: r.maxResults,
		TimeZone:   r.timezone.String(),
	}

	events, err := r.provider.ListEvents(ctx, r.calendarID, query)
	if err != nil {
		return domain.Aggregate{}, classifyError(err)
	}
	if events == nil {
		events = &gcal.Events{}
	}

	timezone := events.TimeZone
	if timezone == "" {
		timezone = r.timezone.String()
	}

	items := r.normalizer.Normalize(events.Items)
	return domain.NewAggregate(r.calendarID, events.Summary, timezone, items), nil
}

// classifyError APIのエラーとレスポンスを得られなかったエラーを区別する
func classifyError(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" {
			message = GenericErrorMessage
		}
		return &UpstreamError{StatusCode: apiErr.Code, Message: message, err: err}
	}
	return fmt.Errorf("%w: %v", ErrTransport, err)
}

// serviceEventsProvider calendar.Service を使った EventsProvider
type serviceEventsProvider struct {
	service *gcal.Service
	referer string
}

// NewServiceEventsProvider calendar.Service を EventsProvider として使う
func NewServiceEventsProvider(service *gcal.Service, referer string) EventsProvider {
	return &serviceEventsProvider{service: service, referer: referer}
}

func (p *serviceEventsProvider) ListEvents(ctx context.Context, calendarID string, query ListQuery) (*gcal.Events, error) {
	call := p.service.Events.List(calendarID).
		TimeMin(query.TimeMin.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		EventTypes("default").
		MaxResults(query.MaxResults).
		Context(ctx)
	if query.TimeZone != "" {
		call = call.TimeZone(query.TimeZone)
	}

	// サーバー間通信ではブラウザのRefererが付かないため、明示的に付与する
	if p.referer != "" {
		call.Header().Set("Referer", p.referer)
	}

	return call.Do(googleapi.QueryParameter("supportsAttachments", "true"))
}
