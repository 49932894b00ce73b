// Package main 启动 uploads HTTP 服务。
package main

import (
	"context"
	"flag"

	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	configloader "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/services"
	"github.com/bionicotaku/lingo-services-uploads/internal/tasks/reaper"

	"github.com/go-kratos/kratos/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	_ "go.uber.org/automaxprocs"
)

// go build -ldflags "-X main.Version=x.y.z"
var (
	// Name is the name of the compiled software.
	Name string
	// Version is the version of the compiled software.
	Version string
)

func newApp(
	meta configloader.ServiceMetadata,
	logger log.Logger,
	hs *http.Server,
	hub *broadcast.Hub,
	uploads *services.UploadService,
	sweeper *reaper.Runner,
) *kratos.App {
	name, version := meta.Name, meta.Version
	if Name != "" {
		name = Name
	}
	if Version != "" {
		version = Version
	}
	return kratos.New(
		kratos.ID(meta.InstanceID),
		kratos.Name(name),
		kratos.Version(version),
		kratos.Metadata(map[string]string{"environment": meta.Environment}),
		kratos.Logger(logger),
		kratos.Server(
			hs,
			hub,
			uploads,
			sweeper,
		),
	)
}

func main() {
	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	flag.Parse()

	// 通过 Wire 装配配置、日志、存储、适配器与服务器。
	app, cleanup, err := wireApp(context.Background(), configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	// 启动应用并阻塞直到收到停止信号。
	if err := app.Run(); err != nil {
		panic(err)
	}
}
