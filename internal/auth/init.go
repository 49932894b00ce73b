package auth

import "github.com/google/wire"

// ProviderSet 暴露身份校验 Gate。
var ProviderSet = wire.NewSet(NewGate)
