// Package main 以独立进程运行过期上传清理任务，
// 适用于不希望在 HTTP 副本内执行清理的部署。
package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/bionicotaku/lingo-services-uploads/internal/broadcast"
	configloader "github.com/bionicotaku/lingo-services-uploads/internal/infrastructure/configloader"
	"github.com/bionicotaku/lingo-services-uploads/internal/tasks/reaper"

	"github.com/go-kratos/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

type reaperTaskApp struct {
	Runner *reaper.Runner
	Hub    *broadcast.Hub
	Logger log.Logger
}

func main() {
	ctx := context.Background()

	confFlag := flag.String("conf", "", "config path or directory, eg: -conf configs/config.yaml")
	once := flag.Bool("once", false, "run a single sweep and exit")
	flag.Parse()

	app, cleanup, err := wireReaperTask(ctx, configloader.Params{ConfPath: *confFlag})
	if err != nil {
		panic(err)
	}
	defer cleanup()

	logger := app.Logger
	if logger == nil {
		logger = log.NewStdLogger(os.Stdout)
	}
	helper := log.NewHelper(logger)

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// hub 将终态事件转发给 relay，HTTP 副本上的在线客户端仍能收到。
	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return app.Hub.Start(gctx) })
	g.Go(func() error {
		defer func() { _ = app.Hub.Stop(context.Background()) }()
		if *once {
			count, err := app.Runner.RunOnce(gctx)
			helper.Infof("reaper sweep finished: count=%d", count)
			return err
		}
		helper.Info("starting stale upload reaper")
		return app.Runner.Start(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		helper.Errorf("reaper stopped unexpectedly: %v", err)
		os.Exit(1)
	}
	helper.Info("reaper stopped")
}
