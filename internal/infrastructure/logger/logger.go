// Package logger 构造所有组件共享的根 kratos logger。
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/trace"
)

// Config 记录用于标注日志的运行时元信息。
type Config struct {
	Service string
	Version string
	HostID  string
	Env     string
	Level   string
	Output  io.Writer
}

// ConfigFromMetadata 根据已加载的服务元信息生成 logger 配置。
func ConfigFromMetadata(meta configloader.ServiceMetadata, lc configloader.LogConfig) Config {
	return Config{
		Service: meta.Name,
		Version: meta.Version,
		HostID:  meta.InstanceID,
		Env:     meta.Environment,
		Level:   lc.Level,
	}
}

// NewLogger 构造附带 trace/span 信息的 Kratos logger。
func NewLogger(cfg Config) log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	base := log.With(
		log.NewStdLogger(out),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", cfg.Service,
		"service.version", cfg.Version,
		"service.id", cfg.HostID,
		"env", cfg.Env,
		"trace_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasTraceID() {
				return sc.TraceID().String()
			}
			return ""
		}),
		"span_id", log.Valuer(func(ctx context.Context) interface{} {
			sc := trace.SpanContextFromContext(ctx)
			if sc.HasSpanID() {
				return sc.SpanID().String()
			}
			return ""
		}),
	)
	return log.NewFilter(base, log.FilterLevel(ParseLevel(cfg.Level)))
}

// ParseLevel 将配置字符串映射为 kratos 日志级别，未知值视为 info。
func ParseLevel(raw string) log.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return log.LevelDebug
	case "warn", "warning":
		return log.LevelWarn
	case "error":
		return log.LevelError
	case "fatal":
		return log.LevelFatal
	default:
		return log.LevelInfo
	}
}
