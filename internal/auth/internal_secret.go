package auth

import (
	"context"
	"crypto/subtle"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
)

// InternalSecret 拒绝请求头与共享密钥不一致的请求。
// 未配置密钥时拒绝所有请求。
func InternalSecret(cfg configloader.AuthConfig) middleware.Middleware {
	header := cfg.InternalHeader
	want := []byte(cfg.InternalSecret)
	return func(next middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			tr, ok := transport.FromServerContext(ctx)
			if !ok || len(want) == 0 {
				return nil, kerrors.Unauthorized(ReasonUnauthorized, "unauthorized")
			}
			got := []byte(tr.RequestHeader().Get(header))
			if subtle.ConstantTimeCompare(got, want) != 1 {
				return nil, kerrors.Unauthorized(ReasonUnauthorized, "unauthorized")
			}
			return next(ctx, req)
		}
	}
}
