package clients

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/gcs"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// NewTransferAdapter 按 transfer.adapter 选择适配器。
func NewTransferAdapter(ctx context.Context, cfg configloader.TransferConfig, auth configloader.AuthConfig, upload configloader.UploadConfig, logger log.Logger) (services.TransferAdapter, func(), error) {
	switch cfg.Adapter {
	case configloader.AdapterWebhook:
		adapter, cleanup, err := NewWebhookTransfer(ctx, cfg.Webhook, upload.TransferTimeout.Std(), logger)
		if err != nil {
			return nil, nil, err
		}
		return adapter, cleanup, nil
	case configloader.AdapterYouTube:
		adapter, err := NewYouTubeTransfer(auth, cfg.YouTube, logger)
		if err != nil {
			return nil, nil, err
		}
		return adapter, func() {}, nil
	case configloader.AdapterGCS:
		client, cleanup, err := gcs.NewStorageClient(ctx, logger)
		if err != nil {
			return nil, nil, err
		}
		adapter, err := NewGCSTransfer(StorageObjectWriter(client), cfg.GCS, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		return adapter, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("transfer adapter %q is not supported", cfg.Adapter)
	}
}
