package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"gamenet-core/internal/bandwidth"
	"gamenet-core/internal/config"
	"gamenet-core/internal/core/safe"
	"gamenet-core/internal/packet"
	"gamenet-core/internal/transport"
)

var (
	promptColor = color.New(color.FgCyan)
	chatColor   = color.New(color.FgGreen)
	sysColor    = color.New(color.FgYellow)
	errColor    = color.New(color.FgRed)
)

// console 交互控制台
// 一个 readline 循环处理用户输入，一个后台循环轮询入站事件
type console struct {
	tp       *transport.Transport
	cfg      *config.Config
	rl       *readline.Instance
	username string
}

func newConsole(tp *transport.Transport, cfg *config.Config) (*console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          promptColor.Sprint("gamenet> "),
		HistoryFile:     "/tmp/gamenet-client-history",
		InterruptPrompt: "^C",
		AutoComplete: readline.NewPrefixCompleter(
			readline.PcItem("connect"),
			readline.PcItem("disconnect"),
			readline.PcItem("reconnect"),
			readline.PcItem("auth"),
			readline.PcItem("say"),
			readline.PcItem("whisper"),
			readline.PcItem("move"),
			readline.PcItem("delta"),
			readline.PcItem("teleport"),
			readline.PcItem("legacy"),
			readline.PcItem("mode",
				readline.PcItem("normal"),
				readline.PcItem("combat"),
				readline.PcItem("crafting"),
			),
			readline.PcItem("throttle"),
			readline.PcItem("zone"),
			readline.PcItem("stats"),
			readline.PcItem("queue"),
			readline.PcItem("state"),
			readline.PcItem("help"),
			readline.PcItem("quit"),
		),
	})
	if err != nil {
		return nil, err
	}

	c := &console{tp: tp, cfg: cfg, rl: rl, username: "player"}
	c.registerHandlers()
	return c, nil
}

func (c *console) close() {
	c.rl.Close()
}

// registerHandlers 把入站报文接到控制台输出
func (c *console) registerHandlers() {
	out := c.rl.Stdout()

	c.tp.OnMessage(packet.TypeChatMessage, func(msg packet.Message) {
		chat := msg.(packet.ChatMessage)
		chatColor.Fprintf(out, "[chat:%d] %s: %s\n", chat.Channel, chat.Sender, chat.Text)
	})
	c.tp.OnMessage(packet.TypeWhisper, func(msg packet.Message) {
		w := msg.(packet.Whisper)
		chatColor.Fprintf(out, "[whisper] %s -> %s: %s\n", w.From, w.To, w.Text)
	})
	c.tp.OnMessage(packet.TypeSystemMessage, func(msg packet.Message) {
		sys := msg.(packet.SystemMessage)
		sysColor.Fprintf(out, "[system:%d] %s\n", sys.Severity, sys.Text)
	})
	c.tp.OnMessage(packet.TypeAuthResponse, func(msg packet.Message) {
		resp := msg.(packet.AuthResponse)
		if resp.Success {
			sysColor.Fprintf(out, "[auth] ok, session %s\n", resp.SessionID)
			if resp.Motd != "" {
				sysColor.Fprintf(out, "[motd] %s\n", resp.Motd)
			}
		} else {
			errColor.Fprintf(out, "[auth] rejected\n")
		}
	})
	c.tp.OnDisconnect(func(reason string) {
		errColor.Fprintf(out, "[network] connection lost: %s\n", reason)
	})
}

// run 控制台主循环
func (c *console) run(ctx context.Context) error {
	// 后台轮询入站事件
	safe.GoLoop(ctx, "console-poll", func(loopCtx context.Context) error {
		select {
		case <-loopCtx.Done():
			return nil
		case <-time.After(50 * time.Millisecond):
		}
		c.tp.Poll(0)
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := c.rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return nil
		}
		if err := c.execute(line); err != nil {
			errColor.Fprintf(c.rl.Stdout(), "error: %v\n", err)
		}
	}
}

// execute 解析并执行一条控制台命令
func (c *console) execute(line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	out := c.rl.Stdout()

	switch cmd {
	case "connect":
		return c.tp.Connect()

	case "disconnect":
		return c.tp.Disconnect()

	case "reconnect":
		return c.tp.Reconnect()

	case "auth":
		if len(args) < 2 {
			return fmt.Errorf("usage: auth <username> <password>")
		}
		c.username = args[0]
		return c.tp.Send(packet.AuthRequest{Username: args[0], Password: args[1]}, true)

	case "say":
		if len(args) == 0 {
			return fmt.Errorf("usage: say <text>")
		}
		return c.tp.Send(packet.ChatMessage{
			Channel: 0,
			Sender:  c.username,
			Text:    strings.Join(args, " "),
		}, true)

	case "whisper":
		if len(args) < 2 {
			return fmt.Errorf("usage: whisper <target> <text>")
		}
		return c.tp.Send(packet.Whisper{
			From: c.username,
			To:   args[0],
			Text: strings.Join(args[1:], " "),
		}, true)

	case "move":
		if len(args) < 3 {
			return fmt.Errorf("usage: move <x> <y> <z> [heading]")
		}
		coords, err := parseFloats(args, 3, 4)
		if err != nil {
			return err
		}
		update := packet.PositionUpdate{EntityID: 1, X: coords[0], Y: coords[1], Z: coords[2]}
		if len(coords) == 4 {
			update.Heading = coords[3]
		}
		return c.tp.Send(update, false)

	case "delta":
		if len(args) != 3 {
			return fmt.Errorf("usage: delta <dx> <dy> <dz>")
		}
		deltas, err := parseFloats(args, 3, 3)
		if err != nil {
			return err
		}
		return c.tp.Send(packet.DeltaPositionUpdate{
			EntityID: 1, DX: deltas[0], DY: deltas[1], DZ: deltas[2],
		}, false)

	case "teleport":
		if len(args) != 4 {
			return fmt.Errorf("usage: teleport <x> <y> <z> <zone>")
		}
		coords, err := parseFloats(args[:3], 3, 3)
		if err != nil {
			return err
		}
		return c.tp.Send(packet.Teleport{
			EntityID: 1, X: coords[0], Y: coords[1], Z: coords[2], Zone: args[3],
		}, true)

	case "legacy":
		if len(args) == 0 {
			return fmt.Errorf("usage: legacy <raw line, e.g. CHAT:hello>")
		}
		return c.tp.SendLegacy(strings.Join(args, " "))

	case "mode":
		if len(args) != 1 {
			return fmt.Errorf("usage: mode <normal|combat|crafting>")
		}
		mode, ok := bandwidth.ParseMode(args[0])
		if !ok {
			return fmt.Errorf("unknown mode %q", args[0])
		}
		c.tp.SetPriorityMode(mode)
		return nil

	case "throttle":
		if len(args) != 1 {
			return fmt.Errorf("usage: throttle <0-5>")
		}
		level, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		return c.tp.SetThrottleLevel(level)

	case "zone":
		c.tp.PrepareZoneTransition()
		sysColor.Fprintln(out, "zone transition relief engaged")
		return nil

	case "state":
		fmt.Fprintf(out, "state=%s session=%s degraded=%v queue=%d\n",
			c.tp.State(), c.tp.SessionID(), c.tp.IsDegraded(), c.tp.QueueLen())
		return nil

	case "stats":
		c.printStats(out)
		return nil

	case "queue":
		fmt.Fprintf(out, "queued packets: %d\n", c.tp.QueueLen())
		return nil

	case "help":
		c.printHelp(out)
		return nil

	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

func (c *console) printStats(out io.Writer) {
	snap := c.tp.DiagnosticsSnapshot()
	fmt.Fprintf(out, "ping: min=%v avg=%v max=%v jitter=%v\n",
		snap.PingMin, snap.PingAvg, snap.PingMax, snap.Jitter)
	fmt.Fprintf(out, "loss: %.1f%% (%d/%d)\n",
		snap.PacketLossPct, snap.PingsLost, snap.PingsSent)
	fmt.Fprintf(out, "disconnections: %d reconnections: %d longest downtime: %v\n",
		snap.Disconnections, snap.Reconnections, snap.LongestDowntime)

	shaper := c.tp.Shaper()
	fmt.Fprintf(out, "bandwidth: mode=%s throttle=%d effective=%.0f B/s\n",
		shaper.Mode(), shaper.ThrottleLevel(), shaper.EffectiveGlobalRate())
	for _, cat := range bandwidth.AllCategories() {
		if denied := shaper.DeniedCount(cat); denied > 0 {
			fmt.Fprintf(out, "  denied[%s]=%d\n", cat, denied)
		}
	}
}

func (c *console) printHelp(out io.Writer) {
	fmt.Fprint(out, `commands:
  connect / disconnect / reconnect    连接管理
  auth <user> <pass>                  登录
  say <text>                          频道聊天
  whisper <target> <text>             私聊
  move <x> <y> <z> [heading]          位置上报
  delta <dx> <dy> <dz>                增量移动
  teleport <x> <y> <z> <zone>         传送
  legacy <line>                       发送旧文本协议行
  mode <normal|combat|crafting>       带宽分配模式
  throttle <0-5>                      限流级别
  zone                                区域切换减压
  state / stats / queue               状态与诊断
  quit                                退出
`)
}

func parseFloats(args []string, min, max int) ([]float32, error) {
	if len(args) < min || len(args) > max {
		return nil, fmt.Errorf("expected %d-%d numeric arguments", min, max)
	}
	values := make([]float32, len(args))
	for i, arg := range args {
		v, err := strconv.ParseFloat(arg, 32)
		if err != nil {
			return nil, fmt.Errorf("bad number %q: %w", arg, err)
		}
		values[i] = float32(v)
	}
	return values, nil
}
