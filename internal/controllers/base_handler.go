package controllers

import (
	"context"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
)

// HandlerType 决定 handler 使用的超时策略。
type HandlerType int

const (
	// HandlerTypeDefault 表示未显式归类的 handler。
	HandlerTypeDefault HandlerType = iota
	// HandlerTypeCommand 表示写操作 handler。
	HandlerTypeCommand
	// HandlerTypeQuery 表示读操作 handler。
	HandlerTypeQuery
)

// HandlerTimeouts 汇总各类 handler 的超时配置。
type HandlerTimeouts struct {
	Default time.Duration
	Command time.Duration
	Query   time.Duration
}

const (
	fallbackDefaultTimeout = 5 * time.Second
	fallbackQueryTimeout   = 3 * time.Second
)

// NewHandlerTimeouts 读取 server 配置中的 handler 段。
func NewHandlerTimeouts(cfg configloader.ServerConfig) HandlerTimeouts {
	return HandlerTimeouts{
		Default: cfg.Handlers.DefaultTimeout.Std(),
		Command: cfg.Handlers.CommandTimeout.Std(),
		Query:   cfg.Handlers.QueryTimeout.Std(),
	}
}

// BaseHandler 承载各具体 handler 共享的超时策略。
type BaseHandler struct {
	timeouts HandlerTimeouts
}

// NewBaseHandler 为缺省的超时填充兜底值。
func NewBaseHandler(timeouts HandlerTimeouts) *BaseHandler {
	if timeouts.Default <= 0 {
		if timeouts.Command > 0 {
			timeouts.Default = timeouts.Command
		} else if timeouts.Query > 0 {
			timeouts.Default = timeouts.Query
		} else {
			timeouts.Default = fallbackDefaultTimeout
		}
	}
	if timeouts.Command <= 0 {
		timeouts.Command = timeouts.Default
	}
	if timeouts.Query <= 0 {
		if timeouts.Default > 0 {
			timeouts.Query = timeouts.Default
		} else {
			timeouts.Query = fallbackQueryTimeout
		}
	}
	return &BaseHandler{timeouts: timeouts}
}

// WithTimeout 按 handler 类型派生带超时的 context。
func (h *BaseHandler) WithTimeout(ctx context.Context, kind HandlerType) (context.Context, context.CancelFunc) {
	if h == nil {
		return context.WithTimeout(ctx, fallbackDefaultTimeout)
	}
	var timeout time.Duration
	switch kind {
	case HandlerTypeCommand:
		timeout = h.timeouts.Command
	case HandlerTypeQuery:
		timeout = h.timeouts.Query
	default:
		timeout = h.timeouts.Default
	}
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
