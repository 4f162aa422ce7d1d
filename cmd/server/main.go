package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gamenet-core/internal/core/log"
)

var (
	flagAddress  string
	flagUDPPort  int
	flagKCPPort  int
	flagMotd     string
	flagLogLevel string
)

func main() {
	root := &cobra.Command{
		Use:   "gamenet-server",
		Short: "开发用回环游戏服务器",
		Long:  "轻量开发服务器：回显心跳、应答认证、广播聊天，同时监听 UDP 与 KCP。",
		RunE:  runServer,
	}

	root.Flags().StringVar(&flagAddress, "address", "0.0.0.0", "监听地址")
	root.Flags().IntVar(&flagUDPPort, "udp-port", 7777, "UDP 监听端口")
	root.Flags().IntVar(&flagKCPPort, "kcp-port", 7778, "KCP 监听端口")
	root.Flags().StringVar(&flagMotd, "motd", "welcome to gamenet dev server", "认证成功后的 MOTD")
	root.Flags().StringVar(&flagLogLevel, "log-level", "info", "日志级别")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	log.SetDefault(log.NewLoggerFromConfig(log.Config{Level: flagLogLevel, Format: "text"}, os.Stderr))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Infof("server: shutdown signal received")
		cancel()
	}()

	world := newWorld(flagMotd)

	// 两个监听器并行跑，任一失败整体退出
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return serveUDP(groupCtx, fmt.Sprintf("%s:%d", flagAddress, flagUDPPort), world)
	})
	group.Go(func() error {
		return serveKCP(groupCtx, fmt.Sprintf("%s:%d", flagAddress, flagKCPPort), world)
	})

	err := group.Wait()
	if err == context.Canceled {
		return nil
	}
	return err
}
