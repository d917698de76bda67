// Offline chunking tool — CLI entry point.
//
// Splits a video file into fixed-size frame chunks the streaming server can
// serve, and verifies that a chunk directory reassembles byte-for-byte into
// the original source.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pterm/pterm"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/chunker"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/config"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/util"
)

var version = "dev"

func main() {
	// CLI flags override the reference configuration.
	cfg := config.Default()
	splitMode := flag.Bool("split", false, "Split -src into chunks under -dir")
	verifyMode := flag.Bool("verify", false, "Verify that chunks under -dir reassemble into -src")
	src := flag.String("src", "", "Source video file")
	flag.StringVar(&cfg.ChunksDir, "dir", cfg.ChunksDir, "Chunk directory")
	flag.IntVar(&cfg.ChunkSize, "chunk", cfg.ChunkSize, "Chunk size in bytes")
	flag.IntVar(&cfg.FPS, "fps", cfg.FPS, "Frame rate used for timestamp assignment")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Video chunking tool — v%s", version))
	pterm.Println()

	if *src == "" {
		util.LogError("missing -src")
		os.Exit(1)
	}
	if *splitMode == *verifyMode {
		util.LogError("exactly one of -split or -verify is required")
		os.Exit(1)
	}
	if cfg.ChunkSize < 1 {
		util.LogError("invalid -chunk (must be >= 1)")
		os.Exit(1)
	}

	switch {
	case *splitMode:
		runSplit(*src, cfg.ChunksDir, cfg.ChunkSize, cfg.FPS)
	case *verifyMode:
		runVerify(*src, cfg.ChunksDir)
	}
}

// runSplit chunks the source file and reports the resulting frame count.
func runSplit(src, dir string, chunkSize, fps int) {
	n, err := chunker.SplitToDir(src, dir, chunkSize, fps)
	if err != nil {
		util.LogError("failed to split %q: %v", src, err)
		os.Exit(1)
	}

	digest, err := chunker.FileDigest(src)
	if err != nil {
		util.LogWarning("failed to digest source: %v", err)
	} else {
		util.LogInfo("source md5 %s", digest)
	}

	util.LogSuccess("wrote %d chunks of up to %d bytes to %q", n, chunkSize, dir)
}

// runVerify streams the chunks back and compares against the source digest.
func runVerify(src, dir string) {
	ok, err := chunker.VerifyDir(src, dir)
	if err != nil {
		util.LogError("failed to verify %q: %v", dir, err)
		os.Exit(1)
	}
	if !ok {
		util.LogError("verification FAILED: %q does not reassemble into %q", dir, src)
		os.Exit(1)
	}

	util.LogSuccess("verification passed: %q reassembles into %q", dir, src)
}
