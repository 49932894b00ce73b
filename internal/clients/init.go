package clients

import "github.com/google/wire"

// ProviderSet 汇总对外集成的构造函数，供 Wire 使用。
var ProviderSet = wire.NewSet(NewTransferAdapter, NewLifecycleNotifier)
