package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// LINENotifier LINE Messaging APIで運用者に更新失敗を知らせる
type LINENotifier struct {
	channelAccessToken string
	userID             string
	httpClient         *http.Client
	endpoint           string
	timezone           *time.Location
	clock              func() time.Time
}

// lineMessage LINE APIに送信するメッセージ構造体
type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// linePushRequest LINE Push APIのリクエスト構造体
type linePushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

// lineErrorResponse LINE APIのエラーレスポンス構造体
type lineErrorResponse struct {
	Message string `json:"message"`
	Details []struct {
		Message  string `json:"message"`
		Property string `json:"property"`
	} `json:"details"`
}

// NewLINENotifier LINE通知クライアントを作成
//
// 通知文中の日時は timezone で表示する。
func NewLINENotifier(channelAccessToken, userID string, timezone *time.Location) *LINENotifier {
	if timezone == nil {
		timezone = time.UTC
	}
	return &LINENotifier{
		channelAccessToken: channelAccessToken,
		userID:             userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		endpoint: "https://api.line.me/v2/bot/message/push",
		timezone: timezone,
		clock:    time.Now,
	}
}

// NotifyRefreshFailure カレンダーの更新に失敗し、前回の結果で応答していることをLINEで通知
func (n *LINENotifier) NotifyRefreshFailure(ctx context.Context, cause error, staleSince time.Time) error {
	message := n.buildFailureMessage(cause, staleSince)
	return n.sendPushMessage(ctx, message)
}

// buildFailureMessage 更新失敗通知用のメッセージを構築
func (n *LINENotifier) buildFailureMessage(cause error, staleSince time.Time) string {
	var messageBuilder strings.Builder
	now := n.clock().In(n.timezone)

	messageBuilder.WriteString("Calendar Event Aggregator\n\n")
	messageBuilder.WriteString("⚠️ カレンダーイベントの更新に失敗しました\n")
	messageBuilder.WriteString(fmt.Sprintf("🕒 発生: %s\n", formatDateTime(now)))

	var upstreamErr *UpstreamError
	switch {
	case errors.As(cause, &upstreamErr):
		messageBuilder.WriteString(fmt.Sprintf("🔸 Status: %d\n", upstreamErr.StatusCode))
		messageBuilder.WriteString(fmt.Sprintf("🔸 %s\n", upstreamErr.Message))
	case errors.Is(cause, ErrTransport):
		messageBuilder.WriteString("🔸 カレンダーAPIに接続できませんでした\n")
	case cause != nil:
		messageBuilder.WriteString(fmt.Sprintf("🔸 %s\n", cause.Error()))
	}

	messageBuilder.WriteString("\n")

	// 前回の取得時刻
	if !staleSince.IsZero() {
		stale := staleSince.In(n.timezone)
		elapsed := now.Sub(stale).Truncate(time.Minute)
		messageBuilder.WriteString(fmt.Sprintf("📦 前回取得: %s (%s前)\n", formatDateTime(stale), formatElapsed(elapsed)))
		messageBuilder.WriteString("前回取得したイベントを返しています")
	}

	return messageBuilder.String()
}

// formatDateTime "1/15(月) 09:00" 形式
func formatDateTime(t time.Time) string {
	return fmt.Sprintf("%s(%s) %s", t.Format("1/2"), getWeekdayJapanese(t.Weekday()), t.Format("15:04"))
}

// formatElapsed 経過時間を「2時間5分」のように表す
func formatElapsed(d time.Duration) string {
	if d < time.Minute {
		return "1分未満"
	}
	hours := int(d / time.Hour)
	minutes := int((d % time.Hour) / time.Minute)
	if hours == 0 {
		return fmt.Sprintf("%d分", minutes)
	}
	if minutes == 0 {
		return fmt.Sprintf("%d時間", hours)
	}
	return fmt.Sprintf("%d時間%d分", hours, minutes)
}

// sendPushMessage LINE Push APIでメッセージを送信
func (n *LINENotifier) sendPushMessage(ctx context.Context, message string) error {
	// リクエストボディを作成
	pushRequest := linePushRequest{
		To: n.userID,
		Messages: []lineMessage{
			{
				Type: "text",
				Text: message,
			},
		},
	}

	requestBody, err := json.Marshal(pushRequest)
	if err != nil {
		return fmt.Errorf("リクエストボディのJSON変換に失敗しました: %v", err)
	}

	// HTTPリクエストを作成
	req, err := http.NewRequestWithContext(
		ctx,
		"POST",
		n.endpoint,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %v", err)
	}

	// ヘッダーを設定
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", n.channelAccessToken))

	// APIリクエストを送信
	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("LINE APIリクエストの送信に失敗しました: %v", err)
	}
	defer resp.Body.Close()

	// レスポンスを確認
	if resp.StatusCode != http.StatusOK {
		// エラーレスポンスの詳細を取得
		var errorResponse lineErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errorResponse); err != nil {
			return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d, レスポンス解析不可: %v)", resp.StatusCode, err)
		}

		errorDetails := errorResponse.Message
		if len(errorResponse.Details) > 0 {
			errorDetails += fmt.Sprintf(" (詳細: %s)", errorResponse.Details[0].Message)
		}

		return fmt.Errorf("LINE API呼び出しが失敗しました (Status: %d): %s", resp.StatusCode, errorDetails)
	}

	return nil
}

// getWeekdayJapanese 曜日を日本語に変換
func getWeekdayJapanese(weekday time.Weekday) string {
	weekdays := map[time.Weekday]string{
		time.Sunday:    "日",
		time.Monday:    "月",
		time.Tuesday:   "火",
		time.Wednesday: "水",
		time.Thursday:  "木",
		time.Friday:    "金",
		time.Saturday:  "土",
	}
	return weekdays[weekday]
}
