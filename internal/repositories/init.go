package repositories

import "github.com/google/wire"

// ProviderSet 暴露仓储构造函数供 Wire 使用。
var ProviderSet = wire.NewSet(
	NewUploadRepository,
	NewOwnerRepository,
)
