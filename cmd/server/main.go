// Video streaming server — CLI entry point.
//
// Listens for control commands on a UDP port and streams chunked video
// assets back to clients over a separate UDP data flow, paced at the
// configured frame rate.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/pterm/pterm"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/config"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/stream"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags override the reference configuration.
	cfg := config.Default()
	addr := flag.String("addr", "", "Address to bind the control socket to (default: all interfaces)")
	flag.IntVar(&cfg.ControlPort, "port", cfg.ControlPort, "Control port to listen on, 1~65535")
	flag.StringVar(&cfg.ChunksDir, "video", cfg.ChunksDir, "Directory holding chunked video assets")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frames sent per second")
	flag.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "Frame payload size in bytes")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}
	util.SetupEngineLog(!*debugMode)

	pterm.Info.Println(fmt.Sprintf("Video streaming server — v%s", version))
	pterm.Println()

	if cfg.ControlPort < 1 || cfg.ControlPort > 65535 {
		util.LogError("invalid -port (must be 1~65535)")
		os.Exit(1)
	}
	if cfg.FPS < 1 {
		util.LogError("invalid -fps (must be >= 1)")
		os.Exit(1)
	}
	if cfg.ChunkSize < 1 {
		util.LogError("invalid -chunk (must be >= 1)")
		os.Exit(1)
	}

	if _, err := os.Stat(cfg.ChunksDir); err != nil {
		util.LogWarning("video directory %q is not accessible: %v", cfg.ChunksDir, err)
	}

	srv, err := stream.NewServer(fmt.Sprintf("%s:%d", *addr, cfg.ControlPort), cfg.ChunksDir, cfg.FPS, cfg.ChunkSize)
	if err != nil {
		util.LogError("failed to start server: %v", err)
		os.Exit(1)
	}

	util.LogSuccess("listening for control commands on %s", srv.Addr())
	util.LogInfo("serving assets from %q at %d fps", cfg.ChunksDir, cfg.FPS)

	if err := srv.Run(ctx); err != nil {
		util.LogError("server terminated: %v", err)
		os.Exit(1)
	}

	util.LogInfo("server shut down")
}
