//go:build wireinject
// +build wireinject

// The build tag makes sure the stub is not built in the final build.

package main

import (
	"context"

	"github.com/bionicotaku/lingo-services-uploads/internal/auth"
	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	"github.com/bionicotaku/lingo-services-uploads/internal/clients"
	"github.com/bionicotaku/lingo-services-uploads/internal/controllers"
	configloader "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/database"
	loginfra "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/logger"
	"github.com/bionicotaku/lingo-services-uploads/internal/repositories"
	"github.com/bionicotaku/lingo-services-uploads/internal/server"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"
	"github.com/bionicotaku/lingo-services-uploads/internal/tasks/reaper"

	"github.com/go-kratos/kratos/v2"
	"github.com/google/wire"
)

//go:generate go run github.com/google/wire/cmd/wire

// wireApp init kratos application.
func wireApp(context.Context, configloader.Params) (*kratos.App, func(), error) {
	panic(wire.Build(
		configloader.ProviderSet,
		loginfra.ProviderSet,
		database.ProviderSet,
		repositories.ProviderSet,
		auth.ProviderSet,
		clients.ProviderSet,
		broadcast.ProviderSet,
		services.ProviderSet,
		controllers.ProviderSet,
		server.ProviderSet,
		reaper.ProvideRunner,
		wire.Bind(new(services.UploadStore), new(*repositories.UploadRepository)),
		wire.Bind(new(services.OwnerDirectory), new(*repositories.OwnerRepository)),
		wire.Bind(new(services.ProgressPublisher), new(*broadcast.Hub)),
		wire.Bind(new(broadcast.TokenVerifier), new(*auth.Gate)),
		wire.Struct(new(server.Handlers), "*"),
		newApp,
	))
}
