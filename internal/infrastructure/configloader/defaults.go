package configloader

import (
	"strings"
	"time"
)

const (
	// defaultConfPath 为未提供覆盖时的默认配置目录。
	defaultConfPath       = "configs"
	defaultServiceName    = "uploads"
	defaultServiceVersion = "dev"
	// defaultEnvironment 在缺少 APP_ENV 时使用。
	defaultEnvironment = "development"

	defaultHTTPAddr         = "0.0.0.0:8000"
	defaultHTTPTimeout      = 10 * time.Minute
	defaultHandlerTimeout   = 5 * time.Second
	defaultMaxUploadBytes   = 500 << 20
	defaultTransferTimeout  = 5 * time.Minute
	defaultProgressStep     = 5
	defaultStaleAfter       = 30 * time.Minute
	defaultReapInterval     = time.Minute
	defaultSubscriberBuffer = 16
	defaultRedisChannel     = "uploads:progress"
	defaultPublishTimeout   = 5 * time.Second
	defaultInternalHeader   = "X-N8N-Secret"
	defaultYouTubePrivacy   = "private"
	defaultYouTubeCategory  = "22"
)

var defaultAllowedExtensions = []string{".mp4", ".avi", ".mov", ".mkv"}

// applyDefaults 填充零值字段，在环境变量覆盖之后执行，确保覆盖值优先。
func applyDefaults(bc *Bootstrap) {
	if bc.Server.HTTP.Network == "" {
		bc.Server.HTTP.Network = "tcp"
	}
	if bc.Server.HTTP.Addr == "" {
		bc.Server.HTTP.Addr = defaultHTTPAddr
	}
	if bc.Server.HTTP.Timeout <= 0 {
		bc.Server.HTTP.Timeout = Duration(defaultHTTPTimeout)
	}
	if bc.Server.Handlers.DefaultTimeout <= 0 {
		bc.Server.Handlers.DefaultTimeout = Duration(defaultHandlerTimeout)
	}
	if bc.Server.Handlers.QueryTimeout <= 0 {
		bc.Server.Handlers.QueryTimeout = bc.Server.Handlers.DefaultTimeout
	}
	if bc.Server.Handlers.CommandTimeout <= 0 {
		bc.Server.Handlers.CommandTimeout = bc.Server.Handlers.DefaultTimeout
	}

	if bc.Auth.InternalHeader == "" {
		bc.Auth.InternalHeader = defaultInternalHeader
	}

	if bc.Upload.MaxBytes <= 0 {
		bc.Upload.MaxBytes = defaultMaxUploadBytes
	}
	if len(bc.Upload.AllowedExtensions) == 0 {
		bc.Upload.AllowedExtensions = append([]string(nil), defaultAllowedExtensions...)
	}
	bc.Upload.AllowedExtensions = normalizeExtensions(bc.Upload.AllowedExtensions)
	if bc.Upload.Mode == "" {
		bc.Upload.Mode = ModeSync
	}
	bc.Upload.Mode = strings.ToLower(bc.Upload.Mode)
	if bc.Upload.TransferTimeout <= 0 {
		bc.Upload.TransferTimeout = Duration(defaultTransferTimeout)
	}
	if bc.Upload.ProgressStep <= 0 {
		bc.Upload.ProgressStep = defaultProgressStep
	}
	if bc.Upload.StaleAfter <= 0 {
		bc.Upload.StaleAfter = Duration(defaultStaleAfter)
	}
	if bc.Upload.ReapInterval <= 0 {
		bc.Upload.ReapInterval = Duration(defaultReapInterval)
	}

	if bc.Transfer.Adapter == "" {
		bc.Transfer.Adapter = AdapterWebhook
	}
	bc.Transfer.Adapter = strings.ToLower(bc.Transfer.Adapter)
	if bc.Transfer.Webhook.SecretHeader == "" {
		bc.Transfer.Webhook.SecretHeader = defaultInternalHeader
	}
	if bc.Transfer.YouTube.PrivacyStatus == "" {
		bc.Transfer.YouTube.PrivacyStatus = defaultYouTubePrivacy
	}
	if bc.Transfer.YouTube.CategoryID == "" {
		bc.Transfer.YouTube.CategoryID = defaultYouTubeCategory
	}

	if bc.Broadcast.SubscriberBuffer <= 0 {
		bc.Broadcast.SubscriberBuffer = defaultSubscriberBuffer
	}
	if bc.Broadcast.Redis.Channel == "" {
		bc.Broadcast.Redis.Channel = defaultRedisChannel
	}

	if bc.Messaging.PubSub.PublishTimeout <= 0 {
		bc.Messaging.PubSub.PublishTimeout = Duration(defaultPublishTimeout)
	}
	if bc.Log.Level == "" {
		bc.Log.Level = "info"
	}
}

// normalizeExtensions 将扩展名转为小写并补全前导点。
func normalizeExtensions(exts []string) []string {
	out := make([]string, 0, len(exts))
	seen := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}
