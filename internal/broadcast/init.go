package broadcast

import "github.com/google/wire"

// ProviderSet 装配 hub、可选的 relay 以及 websocket 端点。
var ProviderSet = wire.NewSet(NewRelay, NewHub, NewWebsocketHandler)
