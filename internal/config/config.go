package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/joho/godotenv"
)

const parameterPrefix = "/calendar-event-aggregator/"

// SSMParameterGetter Parameter Storeからの取得を抽象化したもの
type SSMParameterGetter interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Config アプリケーション設定構造体
type Config struct {
	// Google Calendar設定
	CalendarID        string
	APIKey            string
	GoogleCredentials string
	// SiteURL APIキーのリファラー制限に合わせて付与するReferer
	SiteURL string

	// キャッシュ・取得条件
	CacheTTL        time.Duration
	MaxResults      int
	Timezone        string
	Lookback        time.Duration
	UpstreamTimeout time.Duration

	// サーバー設定
	ListenAddr string
	WarmupCron string
	SnapshotDB string

	// LINE API設定（更新失敗の通知用、任意）
	LineChannelAccessToken string
	LineUserID             string

	// その他設定
	LogLevel string

	// AWS関連（本番環境でのみ使用）
	ssmClient SSMParameterGetter
}

// Load 環境に応じて設定を読み込み
func Load(ctx context.Context) (*Config, error) {
	if IsLambda() {
		return loadAWSConfig(ctx)
	}
	return loadLocalConfig()
}

// IsLambda AWS Lambda上で実行されているか
func IsLambda() bool {
	return os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}

// loadLocalConfig ローカル開発環境用の設定読み込み
func loadLocalConfig() (*Config, error) {
	// .envファイルを読み込み（存在する場合のみ）
	if err := godotenv.Load(); err != nil {
		slog.Debug(".envファイルが見つかりません", "err", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadAWSConfig AWS Lambda環境用の設定読み込み
func loadAWSConfig(ctx context.Context) (*Config, error) {
	// AWS設定を初期化
	awsConfig, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("AWS設定の読み込みに失敗しました: %w", err)
	}

	cfg, err := fromEnv()
	if err != nil {
		return nil, err
	}
	cfg.ssmClient = ssm.NewFromConfig(awsConfig)

	// Parameter Storeから機密情報を取得
	if err := cfg.loadFromParameterStore(ctx); err != nil {
		return nil, fmt.Errorf("Parameter Storeからの設定読み込みに失敗しました: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// fromEnv 環境変数から設定を読み込む
func fromEnv() (*Config, error) {
	cfg := &Config{
		CalendarID: getEnvOrDefault("GOOGLE_CALENDAR_ID", ""),
		SiteURL:    getEnvOrDefault("SITE_URL", ""),
		Timezone:   getEnvOrDefault("TIMEZONE", "UTC"),
		ListenAddr: getEnvOrDefault("LISTEN_ADDR", ":8080"),
		WarmupCron: getEnvOrDefault("WARMUP_CRON", ""),
		SnapshotDB: getEnvOrDefault("SNAPSHOT_DB", ""),
		LineUserID: getEnvOrDefault("LINE_USER_ID", ""),
		LogLevel:   getEnvOrDefault("LOG_LEVEL", "INFO"),

		// 機密情報も環境変数にあればそれを使う（Lambdaでは未設定分をParameter Storeから補う）
		APIKey:                 getEnvOrDefault("GOOGLE_API_KEY", ""),
		GoogleCredentials:      getEnvOrDefault("GOOGLE_CREDENTIALS", ""),
		LineChannelAccessToken: getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN", ""),
	}

	var err error
	if cfg.CacheTTL, err = getDurationOrDefault("CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.Lookback, err = getDurationOrDefault("LOOKBACK", 365*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.UpstreamTimeout, err = getDurationOrDefault("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.MaxResults, err = getIntOrDefault("MAX_RESULTS", 50); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadFromParameterStore 環境変数に無い機密情報をParameter Storeから読み込み
func (c *Config) loadFromParameterStore(ctx context.Context) error {
	// サービスアカウントの認証情報は指定がある場合のみ取得
	if credentialsParam := getEnvOrDefault("GOOGLE_CREDENTIALS_PARAM", ""); credentialsParam != "" && c.GoogleCredentials == "" {
		credentials, err := c.getParameter(ctx, credentialsParam, true)
		if err != nil {
			return fmt.Errorf("Google認証情報の取得に失敗しました: %w", err)
		}
		c.GoogleCredentials = credentials
	}

	// 認証情報が無い場合だけAPIキーを取得
	if c.APIKey == "" && c.GoogleCredentials == "" {
		apiKeyParam := getEnvOrDefault("GOOGLE_API_KEY_PARAM", parameterPrefix+"google-api-key")
		apiKey, err := c.getParameter(ctx, apiKeyParam, true)
		if err != nil {
			return fmt.Errorf("APIキーの取得に失敗しました: %w", err)
		}
		c.APIKey = apiKey
	}

	// カレンダーIDが環境変数に無ければParameter Storeから取得
	if c.CalendarID == "" {
		calendarIDParam := getEnvOrDefault("GOOGLE_CALENDAR_ID_PARAM", parameterPrefix+"calendar-id")
		calendarID, err := c.getParameter(ctx, calendarIDParam, false)
		if err != nil {
			return fmt.Errorf("カレンダーIDの取得に失敗しました: %w", err)
		}
		c.CalendarID = calendarID
	}

	// LINE Channel Access Tokenは指定がある場合のみ取得
	if lineTokenParam := getEnvOrDefault("LINE_CHANNEL_ACCESS_TOKEN_PARAM", ""); lineTokenParam != "" && c.LineChannelAccessToken == "" {
		lineToken, err := c.getParameter(ctx, lineTokenParam, true)
		if err != nil {
			return fmt.Errorf("LINE Channel Access Tokenの取得に失敗しました: %w", err)
		}
		c.LineChannelAccessToken = lineToken
	}

	return nil
}

// getParameter Parameter Storeから指定されたパラメータを取得
func (c *Config) getParameter(ctx context.Context, paramName string, withDecryption bool) (string, error) {
	input := &ssm.GetParameterInput{
		Name:           aws.String(paramName),
		WithDecryption: aws.Bool(withDecryption),
	}

	result, err := c.ssmClient.GetParameter(ctx, input)
	if err != nil {
		return "", fmt.Errorf("パラメータ %s の取得に失敗しました: %w", paramName, err)
	}

	if result.Parameter == nil || result.Parameter.Value == nil {
		return "", fmt.Errorf("パラメータ %s が空です", paramName)
	}

	value := strings.TrimSpace(*result.Parameter.Value)
	if value == "" {
		return "", fmt.Errorf("パラメータ %s が空の値です", paramName)
	}

	return value, nil
}

// Validate 必須設定項目の確認
func (c *Config) Validate() error {
	if c.CalendarID == "" {
		return fmt.Errorf("GOOGLE_CALENDAR_ID環境変数が設定されていません")
	}
	if c.APIKey == "" && c.GoogleCredentials == "" {
		return fmt.Errorf("GOOGLE_API_KEY環境変数が設定されていません")
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTLは正の値である必要があります: %s", c.CacheTTL)
	}
	if c.MaxResults <= 0 || c.MaxResults > 2500 {
		return fmt.Errorf("MAX_RESULTSは1〜2500の範囲で指定してください: %d", c.MaxResults)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("TIMEZONEが不正です: %w", err)
	}
	return nil
}

// Location 設定されたタイムゾーン（不正な場合はUTC）
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LineEnabled LINE通知の設定が揃っているか
func (c *Config) LineEnabled() bool {
	return c.LineChannelAccessToken != "" && c.LineUserID != ""
}

// getEnvOrDefault 環境変数を取得し、存在しない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// getDurationOrDefault "5m" などの期間を環境変数から取得
func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%sの形式が不正です: %w", key, err)
	}
	return d, nil
}

// getIntOrDefault 整数を環境変数から取得
func getIntOrDefault(key string, defaultValue int) (int, error) {
	value := getEnvOrDefault(key, "")
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%sの形式が不正です: %w", key, err)
	}
	return n, nil
}
