package controllers

import "github.com/google/wire"

// ProviderSet 暴露 controller/handler 构造函数供依赖注入使用。
var ProviderSet = wire.NewSet(
	NewHandlerTimeouts,
	NewBaseHandler,
	NewUploadHandler,
	NewUploadQueryHandler,
	NewInternalHandler,
)
