package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/k-negishi/calendar-event-aggregator/internal/app"
	"github.com/k-negishi/calendar-event-aggregator/internal/config"
	"github.com/k-negishi/calendar-event-aggregator/internal/handler"
	"github.com/k-negishi/calendar-event-aggregator/internal/logging"
)

// Lambda関数のエントリーポイント（API Gatewayのプロキシ統合）
//
// キャッシュはコンテナが再利用される間だけ有効。
func main() {
	ctx := context.Background()

	// 設定を読み込み
	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("設定読み込みエラー", "err", err)
		os.Exit(1)
	}
	logging.Setup(os.Stdout, cfg.LogLevel, true)

	application, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("初期化エラー", "err", err)
		os.Exit(1)
	}

	lambda.Start(handler.NewLambdaAdapter(application.Handler()).Handle)
}
