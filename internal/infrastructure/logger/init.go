package logger

import "github.com/google/wire"

// ProviderSet 提供日志组件的依赖注入。
var ProviderSet = wire.NewSet(ConfigFromMetadata, NewLogger)
