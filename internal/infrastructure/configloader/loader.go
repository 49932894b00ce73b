package configloader

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/joho/godotenv"
)

const (
	envConfPath         = "CONF_PATH"
	envServiceName      = "SERVICE_NAME"
	envServiceVersion   = "SERVICE_VERSION"
	envAppEnv           = "APP_ENV"
	envDatabaseURL      = "DATABASE_URL"
	envPort             = "PORT"
	envMaxUploadBytes   = "MAX_UPLOAD_BYTES"
	envAllowedExts      = "ALLOWED_EXTENSIONS"
	envUploadMode       = "UPLOAD_MODE"
	envTransferAdapter  = "TRANSFER_ADAPTER"
	envWebhookURL       = "N8N_WEBHOOK_URL"
	envWebhookSecret    = "N8N_SECRET"
	envInternalSecret   = "INTERNAL_SECRET"
	envGoogleClientID   = "GOOGLE_CLIENT_ID"
	envGoogleSecret     = "GOOGLE_CLIENT_SECRET"
	envJWTSecret        = "JWT_SECRET"
	envFrontendURL      = "FRONTEND_URL"
	envGCSBucket        = "GCS_BUCKET"
	envPubSubProjectID  = "PUBSUB_PROJECT_ID"
	envPubSubTopic      = "PUBSUB_TOPIC"
	envRedisAddr        = "REDIS_ADDR"
	envRedisPassword    = "REDIS_PASSWORD"
	envLogLevel         = "LOG_LEVEL"
	envGoogleProjectAlt = "GOOGLE_CLOUD_PROJECT"
)

var envFileNames = []string{".env.local", ".env"}

// Params 为 Load 的运行时输入。
type Params struct {
	ConfPath string
}

// ServiceMetadata 在日志与指标中标识当前进程。
type ServiceMetadata struct {
	Name        string
	Version     string
	Environment string
	InstanceID  string
}

// Loader 汇总已校验的启动配置与服务元信息。
type Loader struct {
	Bootstrap *Bootstrap
	Service   ServiceMetadata
}

// BuildError 记录加载失败的阶段。
type BuildError struct {
	Stage string
	Path  string
	Err   error
}

// Error 实现 error 接口。
func (e BuildError) Error() string {
	if e.Stage == "" {
		return e.Err.Error()
	}
	if e.Path != "" {
		return fmt.Sprintf("config %s at %q: %v", e.Stage, e.Path, e.Err)
	}
	return fmt.Sprintf("config %s: %v", e.Stage, e.Err)
}

// Unwrap 暴露底层错误，供 errors.Is/As 使用。
func (e BuildError) Unwrap() error {
	return e.Err
}

// Load 读取配置文件，应用默认值与环境变量覆盖后进行校验。
//
// BuildError 报告的阶段：
//   - "load": 无法读取配置源
//   - "scan": YAML/JSON 无法解码为 Bootstrap
//   - "validate": 必填项缺失或配置不一致
func Load(params Params) (*Loader, error) {
	confPath := ResolveConfPath(params.ConfPath)
	loadEnvFiles(confPath)

	bootstrap, err := loadBootstrap(confPath)
	if err != nil {
		return nil, err
	}
	return &Loader{
		Bootstrap: bootstrap,
		Service:   buildServiceMetadata(),
	}, nil
}

// ResolveConfPath 选择配置路径。
// 优先级：显式参数 > CONF_PATH > "configs"。
func ResolveConfPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv(envConfPath); env != "" {
		return env
	}
	return defaultConfPath
}

func loadBootstrap(confPath string) (*Bootstrap, error) {
	c := config.New(config.WithSource(file.NewSource(confPath)))
	if err := c.Load(); err != nil {
		return nil, BuildError{Stage: "load", Path: confPath, Err: err}
	}
	defer c.Close()

	var bc Bootstrap
	if err := c.Scan(&bc); err != nil {
		return nil, BuildError{Stage: "scan", Path: confPath, Err: err}
	}
	applyEnvOverrides(&bc)
	applyDefaults(&bc)

	if err := bc.Validate(); err != nil {
		return nil, BuildError{Stage: "validate", Path: confPath, Err: err}
	}
	return &bc, nil
}

// applyEnvOverrides 使部署环境变量优先于配置文件，空变量不会清空文件中的值。
func applyEnvOverrides(bc *Bootstrap) {
	if bc == nil {
		return
	}
	overrideString(&bc.Data.Postgres.DSN, envDatabaseURL)
	if port := os.Getenv(envPort); port != "" {
		bc.Server.HTTP.Addr = replacePort(bc.Server.HTTP.Addr, port)
	}
	if raw := os.Getenv(envMaxUploadBytes); raw != "" {
		if v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64); err == nil && v > 0 {
			bc.Upload.MaxBytes = v
		}
	}
	if raw := os.Getenv(envAllowedExts); raw != "" {
		bc.Upload.AllowedExtensions = splitList(raw)
	}
	overrideString(&bc.Upload.Mode, envUploadMode)
	overrideString(&bc.Transfer.Adapter, envTransferAdapter)
	overrideString(&bc.Transfer.Webhook.URL, envWebhookURL)
	overrideString(&bc.Transfer.Webhook.Secret, envWebhookSecret)
	overrideString(&bc.Transfer.GCS.Bucket, envGCSBucket)
	overrideString(&bc.Auth.InternalSecret, envInternalSecret)
	overrideString(&bc.Auth.GoogleClientID, envGoogleClientID)
	overrideString(&bc.Auth.GoogleClientSecret, envGoogleSecret)
	overrideString(&bc.Auth.JWTSecret, envJWTSecret)
	overrideString(&bc.Server.FrontendURL, envFrontendURL)
	overrideString(&bc.Messaging.PubSub.ProjectID, envGoogleProjectAlt)
	overrideString(&bc.Messaging.PubSub.ProjectID, envPubSubProjectID)
	overrideString(&bc.Messaging.PubSub.TopicID, envPubSubTopic)
	overrideString(&bc.Broadcast.Redis.Addr, envRedisAddr)
	overrideString(&bc.Broadcast.Redis.Password, envRedisPassword)
	overrideString(&bc.Log.Level, envLogLevel)
}

func overrideString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildServiceMetadata() ServiceMetadata {
	host, _ := os.Hostname()
	return ServiceMetadata{
		Name:        firstNonEmpty(os.Getenv(envServiceName), defaultServiceName),
		Version:     firstNonEmpty(os.Getenv(envServiceVersion), defaultServiceVersion),
		Environment: firstNonEmpty(os.Getenv(envAppEnv), defaultEnvironment),
		InstanceID:  firstNonEmpty(host, "unknown"),
	}
}

// loadEnvFiles 加载配置目录与工作目录下的 .env.local 和 .env。
// 缺失的文件被忽略，已设置的变量保持不变。
func loadEnvFiles(confPath string) {
	files := envFileCandidates(confPath)
	if len(files) == 0 {
		return
	}
	_ = godotenv.Load(files...)
}

func envFileCandidates(confPath string) []string {
	seen := make(map[string]struct{})
	var files []string
	for _, dir := range orderedDirs(confPath) {
		for _, name := range envFileNames {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err != nil {
				continue
			}
			if _, ok := seen[candidate]; ok {
				continue
			}
			files = append(files, candidate)
			seen[candidate] = struct{}{}
		}
	}
	return files
}

func orderedDirs(confPath string) []string {
	var dirs []string
	appendUnique := func(path string) {
		if path == "" {
			return
		}
		clean := filepath.Clean(path)
		for _, existing := range dirs {
			if existing == clean {
				return
			}
		}
		dirs = append(dirs, clean)
	}

	if confPath != "" {
		if info, err := os.Stat(confPath); err == nil {
			if info.IsDir() {
				appendUnique(confPath)
			} else {
				appendUnique(filepath.Dir(confPath))
			}
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		appendUnique(cwd)
	}
	return dirs
}

// replacePort 替换 addr 的端口并保留主机部分：
//   - "0.0.0.0:8000" -> "0.0.0.0:8080"
//   - "[::1]:8000" -> "[::1]:8080"
func replacePort(addr, newPort string) string {
	if addr == "" {
		return "0.0.0.0:" + newPort
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "0.0.0.0:" + newPort
	}
	return net.JoinHostPort(host, newPort)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
