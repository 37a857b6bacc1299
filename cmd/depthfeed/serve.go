package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"depth-feed-go/internal/container"
)

func newServeCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Connect to the depth feed and serve the latest snapshot over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), cfgPath)
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "配置文件路径（留空则只用环境变量/.env）")
	return cmd
}

func serve(parent context.Context, cfgPath string) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := container.New(cfgPath)
	if err != nil {
		return err
	}
	if err := c.Build(); err != nil {
		return err
	}
	log := c.Logger()
	if err := c.Start(ctx); err != nil {
		return err
	}
	if _, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		log.Warn("sd_notify ready failed", zap.Error(err))
	}

	err = supervise(ctx, func(ctx context.Context) error {
		return watchdog(ctx, c)
	})

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	log.Info("shutting down")
	if stopErr := c.Stop(); stopErr != nil {
		return stopErr
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// supervise 运行后台任务直到 ctx 结束或任一任务出错。
// 任务提前正常返回不会结束进程。
func supervise(ctx context.Context, workers ...func(context.Context) error) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, w := range workers {
		w := w
		g.Go(func() error { return w(gctx) })
	}
	<-gctx.Done()
	return g.Wait()
}

// watchdog 在 systemd 开启 WatchdogSec 时定期喂狗。
// 行情断线不影响喂狗：进程仍能服务最后一份快照。
func watchdog(ctx context.Context, c *container.Container) error {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return nil
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.HealthCheck(); err != nil {
				c.Logger().Debug("health degraded", zap.Error(err))
			}
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
