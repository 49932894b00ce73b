package reaper

import (
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"

	"github.com/go-kratos/kratos/v2/log"
)

// ProvideRunner 根据 upload 配置装配清理任务。
func ProvideRunner(
	store *repositories.UploadRepository,
	reconciler *services.Reconciler,
	cfg configloader.UploadConfig,
	logger log.Logger,
) (*Runner, error) {
	return NewRunner(RunnerParams{
		Store:      store,
		Reconciler: reconciler,
		StaleAfter: cfg.StaleAfter.Std(),
		Interval:   cfg.ReapInterval.Std(),
		Logger:     logger,
	})
}
