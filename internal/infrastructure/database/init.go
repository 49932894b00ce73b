package database

import "github.com/google/wire"

// ProviderSet 暴露连接池构造函数供 Wire 使用。
var ProviderSet = wire.NewSet(
	NewPgxPool,
)
