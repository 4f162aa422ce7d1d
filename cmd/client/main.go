package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gamenet-core/internal/config"
	"gamenet-core/internal/core/log"
	"gamenet-core/internal/scheduler"
	"gamenet-core/internal/transport"
)

var (
	flagConfig   string
	flagAddress  string
	flagPort     int
	flagChannel  string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "gamenet-client",
		Short: "游戏网络栈交互客户端",
		Long:  "连接游戏服务器的交互式调试客户端：连接管理、聊天、移动、带宽模式与诊断统计。",
		RunE:  runClient,
	}

	root.Flags().StringVarP(&flagConfig, "config", "c", "", "配置文件路径（YAML）")
	root.Flags().StringVar(&flagAddress, "address", "", "服务器地址（覆盖配置）")
	root.Flags().IntVar(&flagPort, "port", 0, "服务器端口（覆盖配置）")
	root.Flags().StringVar(&flagChannel, "channel", "", "通道类型 udp|kcp（覆盖配置）")
	root.Flags().StringVar(&flagLogLevel, "log-level", "", "日志级别（覆盖配置）")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagAddress != "" {
		cfg.Server.Address = flagAddress
	}
	if flagPort != 0 {
		cfg.Server.Port = flagPort
	}
	if flagChannel != "" {
		cfg.Server.Channel = flagChannel
	}
	if flagLogLevel != "" {
		cfg.Log.Level = flagLogLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.SetDefault(log.NewLoggerFromConfig(cfg.Log, os.Stderr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched, err := buildScheduler(cfg, ctx)
	if err != nil {
		return err
	}
	defer sched.Close()

	tp, err := transport.New(cfg, sched, nil, ctx)
	if err != nil {
		return err
	}
	defer tp.Close()

	// Ctrl+C 直接退出控制台，连接由 defer 收尾
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	console, err := newConsole(tp, cfg)
	if err != nil {
		return err
	}
	defer console.close()

	return console.run(ctx)
}

// buildScheduler 按配置选择工作池或即时执行实现
func buildScheduler(cfg *config.Config, ctx context.Context) (scheduler.Scheduler, error) {
	if cfg.Scheduler.Mode == "immediate" {
		return scheduler.NewImmediate(ctx), nil
	}
	return scheduler.NewPool(cfg.Scheduler.Workers, ctx)
}
