package server

import (
	"net/http"
	"strings"

	khttp "github.com/go-kratos/kratos/v2/transport/http"
	"github.com/gorilla/handlers"
)

const corsMaxAge = 600

// corsFilter 允许来自配置的前端 origin 的带凭证请求，origin 为空时不启用。
func corsFilter(origin string) khttp.FilterFunc {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return handlers.CORS(
		handlers.AllowedOrigins([]string{origin}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.AllowCredentials(),
		handlers.MaxAge(corsMaxAge),
		handlers.OptionStatusCode(http.StatusNoContent),
	)
}
