// Package configloader 加载启动配置，并将各类型化配置段暴露给 Wire 依赖图。
package configloader

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Duration 从 YAML/JSON 配置中解析 Go duration 字符串（如 "30s"）。
type Duration time.Duration

// Std 返回标准库 time.Duration。
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// UnmarshalJSON 接受 "1m30s" 形式的字符串或秒数。
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case nil:
		*d = 0
	case float64:
		*d = Duration(time.Duration(v * float64(time.Second)))
	case string:
		if strings.TrimSpace(v) == "" {
			*d = 0
			return nil
		}
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	default:
		return fmt.Errorf("invalid duration value %v", raw)
	}
	return nil
}

// MarshalJSON 将时长输出为字符串。
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Bootstrap 对应 configs/config.yaml 的根节点。
type Bootstrap struct {
	Server    ServerConfig    `json:"server"`
	Data      DataConfig      `json:"data"`
	Auth      AuthConfig      `json:"auth"`
	Upload    UploadConfig    `json:"upload"`
	Transfer  TransferConfig  `json:"transfer"`
	Broadcast BroadcastConfig `json:"broadcast"`
	Messaging MessagingConfig `json:"messaging"`
	Log       LogConfig       `json:"log"`
}

// ServerConfig 配置入站 HTTP 传输。
type ServerConfig struct {
	HTTP        HTTPConfig     `json:"http"`
	Handlers    HandlersConfig `json:"handlers"`
	FrontendURL string         `json:"frontend_url"`
	RateLimit   bool           `json:"rate_limit"`
}

// HTTPConfig 为监听配置段。
type HTTPConfig struct {
	Network string   `json:"network"`
	Addr    string   `json:"addr"`
	Timeout Duration `json:"timeout"`
}

// HandlersConfig 按 handler 类型配置超时。
type HandlersConfig struct {
	DefaultTimeout Duration `json:"default_timeout"`
	CommandTimeout Duration `json:"command_timeout"`
	QueryTimeout   Duration `json:"query_timeout"`
}

// DataConfig 汇总存储后端配置。
type DataConfig struct {
	Postgres PostgresConfig `json:"postgres"`
}

// PostgresConfig 配置 pgx 连接池。
type PostgresConfig struct {
	DSN                      string   `json:"dsn"`
	MaxConns                 int32    `json:"max_conns"`
	MinConns                 int32    `json:"min_conns"`
	MaxConnLifetime          Duration `json:"max_conn_lifetime"`
	MaxConnIdleTime          Duration `json:"max_conn_idle_time"`
	HealthCheckPeriod        Duration `json:"health_check_period"`
	Schema                   string   `json:"schema"`
	EnablePreparedStatements bool     `json:"enable_prepared_statements"`
}

// AuthConfig 包含用户凭证校验与内部共享密钥配置。
type AuthConfig struct {
	JWTSecret          string `json:"jwt_secret"`
	JWTIssuer          string `json:"jwt_issuer"`
	InternalSecret     string `json:"internal_secret"`
	InternalHeader     string `json:"internal_header"`
	GoogleClientID     string `json:"google_client_id"`
	GoogleClientSecret string `json:"google_client_secret"`
}

// 回写模式。
const (
	ModeSync  = "sync"
	ModeAsync = "async"
)

// UploadConfig 限定协调器接受的上传以及等待时长。
type UploadConfig struct {
	MaxBytes          int64    `json:"max_bytes"`
	AllowedExtensions []string `json:"allowed_extensions"`
	Mode              string   `json:"mode"`
	TransferTimeout   Duration `json:"transfer_timeout"`
	ProgressStep      int32    `json:"progress_step"`
	StaleAfter        Duration `json:"stale_after"`
	ReapInterval      Duration `json:"reap_interval"`
	ListAllOwners     bool     `json:"list_all_owners"`
}

// 传输适配器名称。
const (
	AdapterWebhook = "webhook"
	AdapterYouTube = "youtube"
	AdapterGCS     = "gcs"
)

// TransferConfig 选择并配置外部传输目标。
type TransferConfig struct {
	Adapter string        `json:"adapter"`
	Webhook WebhookConfig `json:"webhook"`
	YouTube YouTubeConfig `json:"youtube"`
	GCS     GCSConfig     `json:"gcs"`
}

// WebhookConfig 指向自动化工作流端点。
type WebhookConfig struct {
	URL           string `json:"url"`
	Secret        string `json:"secret"`
	SecretHeader  string `json:"secret_header"`
	AwaitCallback bool   `json:"await_callback"`
}

// YouTubeConfig 设置直传平台时的默认值。
type YouTubeConfig struct {
	PrivacyStatus string `json:"privacy_status"`
	CategoryID    string `json:"category_id"`
}

// GCSConfig 指向对象存储 bucket。
type GCSConfig struct {
	Bucket string `json:"bucket"`
	Prefix string `json:"prefix"`
}

// BroadcastConfig 调整进度 hub 参数。
type BroadcastConfig struct {
	SubscriberBuffer int         `json:"subscriber_buffer"`
	Redis            RedisConfig `json:"redis"`
}

// RedisConfig 在设置 Addr 时启用跨副本 relay。
type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Channel  string `json:"channel"`
}

// MessagingConfig 配置对外的生命周期通知。
type MessagingConfig struct {
	PubSub PubSubConfig `json:"pubsub"`
}

// PubSubConfig 在设置 TopicID 时启用终态通知。
type PubSubConfig struct {
	ProjectID      string   `json:"project_id"`
	TopicID        string   `json:"topic_id"`
	PublishTimeout Duration `json:"publish_timeout"`
}

// LogConfig 设置最低日志级别。
type LogConfig struct {
	Level string `json:"level"`
}

// Validate 在应用默认值与覆盖后校验跨字段约束。
func (b *Bootstrap) Validate() error {
	var errs []error
	if b.Data.Postgres.DSN == "" {
		errs = append(errs, errors.New("data.postgres.dsn is required (set DATABASE_URL)"))
	}
	if b.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required (set JWT_SECRET)"))
	}
	if b.Upload.MaxBytes <= 0 {
		errs = append(errs, errors.New("upload.max_bytes must be positive"))
	}
	if len(b.Upload.AllowedExtensions) == 0 {
		errs = append(errs, errors.New("upload.allowed_extensions must not be empty"))
	}
	if b.Upload.TransferTimeout.Std() <= 0 {
		errs = append(errs, errors.New("upload.transfer_timeout must be positive"))
	}
	if b.Upload.StaleAfter.Std() <= b.Upload.TransferTimeout.Std() {
		errs = append(errs, fmt.Errorf("upload.stale_after (%s) must exceed upload.transfer_timeout (%s)", b.Upload.StaleAfter.Std(), b.Upload.TransferTimeout.Std()))
	}
	switch b.Upload.Mode {
	case ModeSync, ModeAsync:
	default:
		errs = append(errs, fmt.Errorf("upload.mode %q must be %q or %q", b.Upload.Mode, ModeSync, ModeAsync))
	}
	switch b.Transfer.Adapter {
	case AdapterWebhook:
		if b.Transfer.Webhook.URL == "" {
			errs = append(errs, errors.New("transfer.webhook.url is required (set N8N_WEBHOOK_URL)"))
		}
	case AdapterYouTube:
		if b.Auth.GoogleClientID == "" || b.Auth.GoogleClientSecret == "" {
			errs = append(errs, errors.New("auth.google_client_id and auth.google_client_secret are required for the youtube adapter"))
		}
	case AdapterGCS:
		if b.Transfer.GCS.Bucket == "" {
			errs = append(errs, errors.New("transfer.gcs.bucket is required (set GCS_BUCKET)"))
		}
	default:
		errs = append(errs, fmt.Errorf("transfer.adapter %q is not supported", b.Transfer.Adapter))
	}
	if b.Messaging.PubSub.TopicID != "" && b.Messaging.PubSub.ProjectID == "" {
		errs = append(errs, errors.New("messaging.pubsub.project_id is required when topic_id is set"))
	}
	return errors.Join(errs...)
}
