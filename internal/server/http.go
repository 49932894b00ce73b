// Package server 装配入站 HTTP 传输、中间件链以及指标导出。
package server

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/bionicotaku/lingo-services-uploads/internal/auth"
	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	"github.com/bionicotaku/lingo-services-uploads/internal/controllers"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/middleware/logging"
	"github.com/go-kratos/kratos/v2/middleware/metrics"
	"github.com/go-kratos/kratos/v2/middleware/ratelimit"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/middleware/selector"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/google/wire"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ProviderSet is server providers.
var ProviderSet = wire.NewSet(NewTelemetry, ProvideMeter, NewHTTPServer)

const readinessTimeout = 2 * time.Second

// Handlers 汇总挂载在 HTTP 服务上的路由 handler。
type Handlers struct {
	Upload    *controllers.UploadHandler
	Query     *controllers.UploadQueryHandler
	Internal  *controllers.InternalHandler
	Websocket *broadcast.WebsocketHandler
}

// NewHTTPServer new an HTTP server.
func NewHTTPServer(
	c configloader.ServerConfig,
	authCfg configloader.AuthConfig,
	gate *auth.Gate,
	handlers Handlers,
	pool *pgxpool.Pool,
	telemetry *Telemetry,
	logger log.Logger,
) *http.Server {
	chain := []middleware.Middleware{
		recovery.Recovery(),
		logging.Server(logger),
	}
	if telemetry != nil {
		chain = append(chain, metrics.Server(
			metrics.WithSeconds(telemetry.SecondsHistogram),
			metrics.WithRequests(telemetry.RequestCounter),
		))
	}
	if c.RateLimit {
		chain = append(chain, ratelimit.Server())
	}
	chain = append(chain,
		selector.Server(gate.Middleware()).Prefix(controllers.UserOperationPrefix).Build(),
		selector.Server(auth.InternalSecret(authCfg)).Prefix(controllers.InternalOperationPrefix).Build(),
	)

	opts := []http.ServerOption{
		http.Middleware(chain...),
		http.Filter(corsFilter(c.FrontendURL)),
		http.ErrorEncoder(controllers.EncodeError),
	}
	if c.HTTP.Network != "" {
		opts = append(opts, http.Network(c.HTTP.Network))
	}
	if c.HTTP.Addr != "" {
		opts = append(opts, http.Address(c.HTTP.Addr))
	}
	if c.HTTP.Timeout > 0 {
		opts = append(opts, http.Timeout(c.HTTP.Timeout.Std()))
	}

	srv := http.NewServer(opts...)

	srv.Handle("/healthz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, _ *stdhttp.Request) {
		w.WriteHeader(stdhttp.StatusOK)
	}))

	srv.Handle("/readyz", stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if pool != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
			defer cancel()
			if err := pool.Ping(ctx); err != nil {
				log.NewHelper(logger).WithContext(ctx).Warnf("readiness check failed: %v", err)
				w.WriteHeader(stdhttp.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(stdhttp.StatusOK)
	}))

	if telemetry != nil && telemetry.PrometheusRegistry != nil {
		srv.Handle("/metrics", promhttp.HandlerFor(telemetry.PrometheusRegistry, promhttp.HandlerOpts{}))
	}
	if handlers.Websocket != nil {
		srv.Handle("/ws", handlers.Websocket)
	}

	controllers.RegisterHTTPRoutes(srv, handlers.Upload, handlers.Query, handlers.Internal)
	return srv
}
