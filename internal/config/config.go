// Package config holds the process configuration for the streaming tools.
package config

import "time"

// Defaults mirroring the project's reference deployment.
const (
	DefaultServerIP    = "127.0.0.1"
	DefaultControlPort = 8000
	DefaultClientPort  = 9000
	DefaultFPS         = 24
	DefaultChunkSize   = 4096
	DefaultSourceDir   = "video_source"
	DefaultChunksDir   = "video_chunks"

	// DefaultPrebufferFrames is the minimum buffered frame count before
	// playback starts.
	DefaultPrebufferFrames = 10

	// DefaultStallThreshold is how long the playback buffer may stay empty
	// mid-stream before a stall is recorded.
	DefaultStallThreshold = 500 * time.Millisecond
)

// Config stores all parameters for one process (server, client, or the
// offline chunk tools). Values come from Default() plus CLI flag overrides.
type Config struct {
	ServerIP    string // server address the client connects to
	ControlPort int    // server's control/data UDP port
	ClientPort  int    // client's local UDP port for control and data

	FPS       int // simulated video frame rate
	ChunkSize int // bytes per segment

	SourceDir string // directory holding source assets (server side)
	ChunksDir string // directory for the offline chunk splitter

	PrebufferFrames int
	StallThreshold  time.Duration
}

// Default returns the reference configuration.
func Default() Config {
	return Config{
		ServerIP:        DefaultServerIP,
		ControlPort:     DefaultControlPort,
		ClientPort:      DefaultClientPort,
		FPS:             DefaultFPS,
		ChunkSize:       DefaultChunkSize,
		SourceDir:       DefaultSourceDir,
		ChunksDir:       DefaultChunksDir,
		PrebufferFrames: DefaultPrebufferFrames,
		StallThreshold:  DefaultStallThreshold,
	}
}
