package logging

import (
	"io"
	"log/slog"
	"strings"
)

// ParseLevel LOG_LEVEL の値をslogのレベルに変換する（不明な値はINFO）
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New ロガーを作成する
//
// CloudWatch Logsで検索しやすいようLambdaではJSON、ローカルではテキストで出力する。
func New(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Setup ロガーを作成し、slogのデフォルトに設定する
func Setup(w io.Writer, level string, json bool) *slog.Logger {
	logger := New(w, level, json)
	slog.SetDefault(logger)
	return logger
}
