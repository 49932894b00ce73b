// Package gcs 封装 Google Cloud Storage client 的生命周期。
package gcs

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"github.com/go-kratos/kratos/v2/log"
	"google.golang.org/api/option"
)

// NewStorageClient 基于 Application Default Credentials 创建 client。
// client 库会识别 STORAGE_EMULATOR_HOST。
func NewStorageClient(ctx context.Context, logger log.Logger, opts ...option.ClientOption) (*storage.Client, func(), error) {
	helper := log.NewHelper(logger)
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("init gcs client: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			helper.Warnf("close gcs client: %v", err)
		}
	}
	return client, cleanup, nil
}
