package configloader

import "github.com/google/wire"

// ProviderSet 暴露由配置派生的依赖，供 Wire 依赖图使用。
var ProviderSet = wire.NewSet(
	Load,
	ProvideServiceMetadata,
	ProvideBootstrap,
	ProvideServerConfig,
	ProvideDatabaseConfig,
	ProvideAuthConfig,
	ProvideUploadConfig,
	ProvideTransferConfig,
	ProvideBroadcastConfig,
	ProvidePubSubConfig,
	ProvideLogConfig,
)

// ProvideServiceMetadata 返回 loader 解析出的 ServiceMetadata。
func ProvideServiceMetadata(l *Loader) ServiceMetadata {
	if l == nil {
		return ServiceMetadata{}
	}
	return l.Service
}

// ProvideBootstrap 暴露强类型的启动配置。
func ProvideBootstrap(l *Loader) *Bootstrap {
	if l == nil {
		return &Bootstrap{}
	}
	return l.Bootstrap
}

// ProvideServerConfig 返回 server 配置段。
func ProvideServerConfig(bc *Bootstrap) ServerConfig { return bc.Server }

// ProvideDatabaseConfig 返回 postgres 配置段。
func ProvideDatabaseConfig(bc *Bootstrap) PostgresConfig { return bc.Data.Postgres }

// ProvideAuthConfig 返回 auth 配置段。
func ProvideAuthConfig(bc *Bootstrap) AuthConfig { return bc.Auth }

// ProvideUploadConfig 返回 upload 配置段。
func ProvideUploadConfig(bc *Bootstrap) UploadConfig { return bc.Upload }

// ProvideTransferConfig 返回传输适配器配置段。
func ProvideTransferConfig(bc *Bootstrap) TransferConfig { return bc.Transfer }

// ProvideBroadcastConfig 返回 broadcast 配置段。
func ProvideBroadcastConfig(bc *Bootstrap) BroadcastConfig { return bc.Broadcast }

// ProvidePubSubConfig 返回 Pub/Sub 配置段。
func ProvidePubSubConfig(bc *Bootstrap) PubSubConfig { return bc.Messaging.PubSub }

// ProvideLogConfig 返回 log 配置段。
func ProvideLogConfig(bc *Bootstrap) LogConfig { return bc.Log }
