// Package services 负责应用层用例编排。
package services

import "github.com/google/wire"

// ProviderSet 汇总 services 层构造函数。
var ProviderSet = wire.NewSet(
	NewUploadPolicy,
	NewQueryPolicy,
	NewUploadMetrics,
	NewReconciler,
	NewUploadService,
	NewUploadQueryService,
	NewCallbackService,
)
