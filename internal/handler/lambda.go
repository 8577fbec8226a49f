package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
)

// LambdaAdapter API Gatewayのプロキシイベントを http.Handler に渡す
type LambdaAdapter struct {
	proxy *httpadapter.HandlerAdapter
}

// NewLambdaAdapter アダプターを作成
func NewLambdaAdapter(handler http.Handler) *LambdaAdapter {
	return &LambdaAdapter{proxy: httpadapter.New(handler)}
}

// Handle lambda.Start に渡すハンドラー
//
// レスポンスヘッダーは MultiValueHeaders に入る（同名ヘッダーの複数値も保持される）。
func (a *LambdaAdapter) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	return a.proxy.ProxyWithContext(ctx, event)
}
