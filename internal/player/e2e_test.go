package player

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/stream"
)

// orderMonitor records the order in which frames are played.
type orderMonitor struct {
	mu     sync.Mutex
	played []uint32
	total  uint32
	ended  bool
}

func (m *orderMonitor) StreamStarted(total uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = total
}

func (m *orderMonitor) FrameReceived(uint32) {}

func (m *orderMonitor) FramePlayed(id, _ uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.played = append(m.played, id)
}

func (m *orderMonitor) StreamEnded() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ended = true
}

// startE2EServer serves a 100-segment asset over loopback.
func startE2EServer(t *testing.T, fps int) *stream.Server {
	t.Helper()

	dir := t.TempDir()
	data := make([]byte, 100*256)
	for i := range data {
		data[i] = byte(i * 13)
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "e2e.mp4"), data, 0o644))

	srv, err := stream.NewServer("127.0.0.1:0", dir, fps, 256)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(3 * time.Second):
			t.Error("server did not shut down")
		}
	})
	return srv
}

func TestLosslessStreamPlaysEveryFrameInOrder(t *testing.T) {
	srv := startE2EServer(t, 24)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	mon := &orderMonitor{}
	p := New(conn, srv.Addr(), mon, Options{
		PrebufferFrames: 10,
		StallThreshold:  time.Second,
	})

	port := conn.LocalAddr().(*net.UDPAddr).Port
	require.NoError(t, p.Play("e2e.mp4", port))
	p.Wait()

	assert.Equal(t, StateEnded, p.State())
	assert.False(t, p.Active())

	mon.mu.Lock()
	defer mon.mu.Unlock()
	assert.Equal(t, uint32(100), mon.total)
	assert.True(t, mon.ended)
	require.Len(t, mon.played, 100)
	for i, id := range mon.played {
		assert.Equal(t, uint32(i), id)
	}

	s := p.Metrics().Snapshot()
	assert.Equal(t, 100, s.FramesPlayed)
	assert.Zero(t, s.FramesDropped)
	assert.Zero(t, s.FramesLost)
	assert.Equal(t, int64(100*256), s.BytesDelivered)
	assert.Positive(t, s.GoodputBytes)
	assert.Positive(t, s.PlaybackTime)
}

func TestPlayRefusedForMissingAsset(t *testing.T) {
	srv := startE2EServer(t, 24)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	p := New(conn, srv.Addr(), nil, Options{PrebufferFrames: 10, StallThreshold: time.Second})
	port := conn.LocalAddr().(*net.UDPAddr).Port

	err = p.Play("absent.mp4", port)
	assert.Error(t, err)
	// A refused PLAY leaves the session flags in the idle state.
	assert.False(t, p.Active())
}

func TestStopMidStreamLeavesIdleSession(t *testing.T) {
	srv := startE2EServer(t, 24)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	p := New(conn, srv.Addr(), nil, Options{PrebufferFrames: 5, StallThreshold: time.Second})
	port := conn.LocalAddr().(*net.UDPAddr).Port

	require.NoError(t, p.Play("e2e.mp4", port))
	time.Sleep(500 * time.Millisecond)
	require.NoError(t, p.Stop())

	assert.False(t, p.Active())

	// The session can be restarted cleanly after a stop.
	require.NoError(t, p.Play("e2e.mp4", port))
	p.Wait()
	assert.Equal(t, 100, p.Metrics().Snapshot().FramesPlayed)
}

func TestPlayWhileActiveRejectedByClient(t *testing.T) {
	srv := startE2EServer(t, 24)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer conn.Close()

	p := New(conn, srv.Addr(), nil, Options{PrebufferFrames: 5, StallThreshold: time.Second})
	port := conn.LocalAddr().(*net.UDPAddr).Port

	require.NoError(t, p.Play("e2e.mp4", port))
	assert.Error(t, p.Play("e2e.mp4", port))

	require.NoError(t, p.Stop())
}
