// Video streaming client — CLI entry point.
//
// Opens a shared UDP socket for the control exchange and the incoming data
// flow, then drives an interactive shell: PLAY <file> starts a stream, STOP
// tears it down, QUIT exits and prints the playback metrics summary.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/config"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/metrics"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/monitor"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/player"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/util"
)

var version = "dev"

func main() {
	// CLI flags override the reference configuration.
	cfg := config.Default()
	flag.StringVar(&cfg.ServerIP, "server", cfg.ServerIP, "Server address")
	flag.IntVar(&cfg.ControlPort, "serverPort", cfg.ControlPort, "Server control port, 1~65535")
	flag.IntVar(&cfg.ClientPort, "port", cfg.ClientPort, "Local UDP port to receive the stream on, 1~65535")
	flag.IntVar(&cfg.PrebufferFrames, "prebuffer", cfg.PrebufferFrames, "Frames to buffer before playback starts")
	showProgress := flag.Bool("monitor", true, "Show a playback progress bar")
	wsPort := flag.Int("wsPort", 0, "Serve a WebSocket monitor feed on this port (0 = disabled)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}
	util.SetupEngineLog(!*debugMode)

	pterm.Info.Println(fmt.Sprintf("Video streaming client — v%s", version))
	pterm.Println()

	if cfg.ControlPort < 1 || cfg.ControlPort > 65535 || cfg.ClientPort < 1 || cfg.ClientPort > 65535 {
		util.LogError("invalid port (must be 1~65535)")
		os.Exit(1)
	}

	serverAddr, err := net.ResolveUDPAddr("udp", fmt.Sprintf("%s:%d", cfg.ServerIP, cfg.ControlPort))
	if err != nil {
		util.LogError("failed to resolve server address: %v", err)
		os.Exit(1)
	}

	conn, err := net.ListenPacket("udp", fmt.Sprintf(":%d", cfg.ClientPort))
	if err != nil {
		util.LogError("failed to bind local port %d: %v", cfg.ClientPort, err)
		os.Exit(1)
	}
	defer conn.Close()

	mon, cleanup := buildMonitor(*showProgress, *wsPort)
	defer cleanup()

	p := player.New(conn, serverAddr, mon, player.Options{
		PrebufferFrames: cfg.PrebufferFrames,
		StallThreshold:  cfg.StallThreshold,
	})
	defer p.Close()

	util.LogInfo("control endpoint %s, receiving on local port %d", serverAddr, cfg.ClientPort)

	runShell(p, cfg.ClientPort)
}

// ---------------------------------------------------------------------------
// Interactive shell
// ---------------------------------------------------------------------------

// runShell loops over user commands until QUIT. The last session's metrics
// summary is rendered on the way out.
func runShell(p *player.Player, dataPort int) {
	pterm.Println()
	pterm.DefaultBasicText.Println("Commands: PLAY <file> [port]  |  STOP  |  STATUS  |  QUIT")
	pterm.Println()

	var lastStats *metrics.Stats

	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(">").
			Show()

		fields := strings.Fields(raw)
		if len(fields) == 0 {
			continue
		}

		switch strings.ToUpper(fields[0]) {
		case "PLAY":
			if len(fields) < 2 || len(fields) > 3 {
				util.LogWarning("usage: PLAY <file> [port]")
				continue
			}
			// The data port defaults to the locally bound socket; an explicit
			// override is accepted for redirect setups.
			port := dataPort
			if len(fields) == 3 {
				v, err := strconv.Atoi(fields[2])
				if err != nil || v < 1 || v > 65535 {
					util.LogWarning("invalid port %q (must be 1~65535)", fields[2])
					continue
				}
				port = v
			}
			if err := p.Play(fields[1], port); err != nil {
				util.LogError("%v", err)
				continue
			}
			util.LogSuccess("streaming %q", fields[1])

		case "STOP":
			snapshot := p.Metrics().Snapshot()
			if err := p.Stop(); err != nil {
				util.LogWarning("%v", err)
			} else {
				util.LogInfo("playback stopped")
			}
			if snapshot.FramesPlayed > 0 {
				lastStats = &snapshot
			}

		case "STATUS":
			printStatus(p)

		case "QUIT", "EXIT":
			if p.Active() {
				snapshot := p.Metrics().Snapshot()
				if err := p.Stop(); err != nil {
					util.LogWarning("%v", err)
				}
				if snapshot.FramesPlayed > 0 {
					lastStats = &snapshot
				}
			}
			if s := p.Metrics().Snapshot(); s.FramesPlayed > 0 {
				lastStats = &s
			}
			if lastStats != nil {
				metrics.RenderSummary(*lastStats)
			}
			return

		default:
			util.LogWarning("unknown command %q", fields[0])
		}
	}
}

// printStatus reports the session phase and live counters.
func printStatus(p *player.Player) {
	s := p.Metrics().Snapshot()
	util.LogInfo("state=%s played=%d dropped=%d lost=%d stalls=%d",
		p.State(), s.FramesPlayed, s.FramesDropped, s.FramesLost, s.Stalls)
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// buildMonitor assembles the configured monitors. The returned cleanup is
// safe to call even when every monitor is disabled.
func buildMonitor(progress bool, wsPort int) (monitor.Monitor, func()) {
	var mons monitor.Multi
	cleanup := func() {}

	if progress {
		mons = append(mons, monitor.NewProgressBar())
	}

	if wsPort > 0 {
		feed, err := monitor.NewWSFeed(fmt.Sprintf(":%d", wsPort))
		if err != nil {
			util.LogWarning("monitor feed disabled: %v", err)
		} else {
			util.LogInfo("monitor feed at ws://%s/monitor", hostPort(feed.Addr()))
			mons = append(mons, feed)
			cleanup = func() { feed.Close() }
		}
	}

	if len(mons) == 0 {
		return monitor.Nop{}, cleanup
	}
	return mons, cleanup
}

// hostPort renders a printable host:port for the monitor hint, falling back
// to localhost when the feed is bound to all interfaces.
func hostPort(addr string) string {
	host, p, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	if host == "" || host == "::" || host == "0.0.0.0" {
		host = "127.0.0.1"
	}
	return net.JoinHostPort(host, p)
}
