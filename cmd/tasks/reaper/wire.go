//go:build wireinject
// +build wireinject

// Package main 声明清理任务的 Wire 依赖图。
package main

import (
	"context"
	"fmt"

	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	"github.com/bionicotaku/lingo-services-uploads/internal/clients"
	configloader "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/database"
	loginfra "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"
	"github.com/bionicotaku/lingo-services-uploads/internal/tasks/reaper"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

func wireReaperTask(context.Context, configloader.Params) (*reaperTaskApp, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.NewUploadRepository,
		broadcast.NewRelay,
		broadcast.NewHub,
		clients.NewLifecycleNotifier,
		services.NewReconciler,
		wire.Bind(new(services.UploadStore), new(*repositories.UploadRepository)),
		wire.Bind(new(services.ProgressPublisher), new(*broadcast.Hub)),
		reaper.ProvideRunner,
		newReaperTaskApp,
	))
}

func newReaperTaskApp(logger log.Logger, runner *reaper.Runner, hub *broadcast.Hub) (*reaperTaskApp, error) {
	if runner == nil || hub == nil {
		return nil, fmt.Errorf("reaper task not initialized")
	}
	return &reaperTaskApp{Runner: runner, Hub: hub, Logger: logger}, nil
}
