package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLINENotifier テスト用の LINENotifier を構築するヘルパー
func newTestLINENotifier(token, userID string, httpClient *http.Client, endpoint string, clock func() time.Time) *LINENotifier {
	return &LINENotifier{
		channelAccessToken: token,
		userID:             userID,
		httpClient:         httpClient,
		endpoint:           endpoint,
		timezone:           time.FixedZone("JST", 9*60*60),
		clock:              clock,
	}
}

// --- getWeekdayJapanese テスト ---

func TestGetWeekdayJapanese(t *testing.T) {
	tests := []struct {
		weekday  time.Weekday
		expected string
	}{
		{time.Sunday, "日"},
		{time.Monday, "月"},
		{time.Tuesday, "火"},
		{time.Wednesday, "水"},
		{time.Thursday, "木"},
		{time.Friday, "金"},
		{time.Saturday, "土"},
	}

	for _, tt := range tests {
		t.Run(tt.weekday.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, getWeekdayJapanese(tt.weekday))
		})
	}
}

// --- buildFailureMessage テスト ---

func TestBuildFailureMessage_UpstreamError(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	fixedTime := time.Date(2024, 1, 15, 9, 0, 0, 0, jst)

	n := newTestLINENotifier("token", "user", http.DefaultClient, "", func() time.Time {
		return fixedTime
	})

	cause := &UpstreamError{StatusCode: 403, Message: "Requests from referer are blocked."}
	message := n.buildFailureMessage(cause, fixedTime.Add(-2*time.Hour-5*time.Minute))

	assert.Contains(t, message, "カレンダーイベントの更新に失敗しました")
	assert.Contains(t, message, "発生: 1/15(月) 09:00")
	assert.Contains(t, message, "Status: 403")
	assert.Contains(t, message, "Requests from referer are blocked.")
	assert.Contains(t, message, "前回取得: 1/15(月) 06:55 (2時間5分前)")
	assert.Contains(t, message, "前回取得したイベントを返しています")
}

func TestBuildFailureMessage_TransportError(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	fixedTime := time.Date(2024, 1, 15, 9, 0, 0, 0, jst)

	n := newTestLINENotifier("token", "user", http.DefaultClient, "", func() time.Time {
		return fixedTime
	})

	cause := fmt.Errorf("%w: dial tcp: i/o timeout", ErrTransport)
	message := n.buildFailureMessage(cause, time.Time{})

	assert.Contains(t, message, "カレンダーAPIに接続できませんでした")
	assert.NotContains(t, message, "前回取得")
}

func TestFormatElapsed(t *testing.T) {
	tests := []struct {
		name     string
		elapsed  time.Duration
		expected string
	}{
		{name: "1分未満", elapsed: 30 * time.Second, expected: "1分未満"},
		{name: "分のみ", elapsed: 12 * time.Minute, expected: "12分"},
		{name: "時間のみ", elapsed: 3 * time.Hour, expected: "3時間"},
		{name: "時間と分", elapsed: 90 * time.Minute, expected: "1時間30分"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatElapsed(tt.elapsed))
		})
	}
}

// --- sendPushMessage テスト（httptest 使用） ---

func TestSendPushMessage_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// ヘッダーを検証
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		// リクエストボディを検証
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)
		assert.Equal(t, "test-user", pushReq.To)
		assert.Len(t, pushReq.Messages, 1)
		assert.Equal(t, "text", pushReq.Messages[0].Type)

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, time.Now)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.NoError(t, err)
}

func TestSendPushMessage_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		err := json.NewEncoder(w).Encode(lineErrorResponse{
			Message: "Invalid request",
		})
		require.NoError(t, err)
	}))
	defer server.Close()

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, time.Now)

	err := n.sendPushMessage(context.Background(), "テストメッセージ")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "LINE API呼び出しが失敗しました")
}

func TestNotifyRefreshFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var pushReq linePushRequest
		err = json.Unmarshal(body, &pushReq)
		require.NoError(t, err)

		// メッセージが構築されていることを確認
		assert.Contains(t, pushReq.Messages[0].Text, "Calendar Event Aggregator")

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	jst := time.FixedZone("JST", 9*60*60)
	fixedTime := time.Date(2024, 1, 15, 9, 0, 0, 0, jst)

	n := newTestLINENotifier("test-token", "test-user", server.Client(), server.URL, func() time.Time {
		return fixedTime
	})

	err := n.NotifyRefreshFailure(context.Background(), errors.New("boom"), fixedTime.Add(-10*time.Minute))
	assert.NoError(t, err)
}
