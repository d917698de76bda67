package control

import (
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// fakeServer is an in-process command receiver with a configurable number of
// suppressed acknowledgments. It executes each distinct sequence number at
// most once but always acknowledges accepted retransmissions, mirroring the
// idempotent-ack contract of the real dispatcher.
type fakeServer struct {
	conn     net.PacketConn
	dropAcks int

	mu         sync.Mutex
	received   int
	executions map[uint32]int
}

func startFakeServer(t *testing.T, dropAcks int) *fakeServer {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	s := &fakeServer{
		conn:       conn,
		dropAcks:   dropAcks,
		executions: make(map[uint32]int),
	}
	t.Cleanup(func() { conn.Close() })

	go s.loop()
	return s
}

func (s *fakeServer) loop() {
	buf := make([]byte, 65536)
	for {
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			return
		}
		pkt, err := protocol.DecodeControl(buf[:n])
		if err != nil {
			continue
		}

		s.mu.Lock()
		s.received++
		if s.executions[pkt.Seq] == 0 {
			s.executions[pkt.Seq] = 1
		}
		suppress := s.received <= s.dropAcks
		s.mu.Unlock()

		if suppress {
			continue
		}
		s.conn.WriteTo(protocol.EncodeAck(&protocol.Ack{Seq: pkt.Seq, TotalFrames: 100, HasTotal: true}), addr)
	}
}

func (s *fakeServer) executionCount(seq uint32) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.executions[seq]
}

func newTestSender(t *testing.T, server *fakeServer) *Sender {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewSender(conn, server.conn.LocalAddr())
}

func TestSendSucceedsFirstAttempt(t *testing.T) {
	server := startFakeServer(t, 0)
	sender := newTestSender(t, server)

	ack, err := sender.Send(protocol.CmdPlay, []byte("test.mp4 9000"))
	require.NoError(t, err)
	assert.True(t, ack.HasTotal)
	assert.Equal(t, uint32(100), ack.TotalFrames)
	assert.Equal(t, uint32(0), ack.Seq)
	assert.Equal(t, 1, server.executionCount(0))
}

func TestSendConvergesAfterLostAcks(t *testing.T) {
	// Four suppressed acknowledgments, the fifth attempt gets through.
	server := startFakeServer(t, 4)
	sender := newTestSender(t, server)

	ack, err := sender.Send(protocol.CmdPlay, []byte("test.mp4 9000"))
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ack.Seq)

	// Retransmissions must not multiply the command's effect.
	assert.Equal(t, 1, server.executionCount(0))
}

func TestSendFailsAfterRetryExhaustion(t *testing.T) {
	server := startFakeServer(t, MaxRetries)
	sender := newTestSender(t, server)

	_, err := sender.Send(protocol.CmdStop, nil)
	assert.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 1, server.executionCount(0))
}

func TestSequenceNumbersStrictlyIncrease(t *testing.T) {
	server := startFakeServer(t, 0)
	sender := newTestSender(t, server)

	for want := uint32(0); want < 3; want++ {
		ack, err := sender.Send(protocol.CmdStop, nil)
		require.NoError(t, err)
		assert.Equal(t, want, ack.Seq)
	}
}

func TestMismatchedAckIsSkippedWithinAttempt(t *testing.T) {
	server := startFakeServer(t, 0)

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	sender := NewSender(conn, server.conn.LocalAddr())

	// Inject a stale ack and a stray data packet ahead of time; both must be
	// skipped while waiting without consuming the attempt.
	local := conn.LocalAddr()
	server.conn.WriteTo(protocol.EncodeAck(&protocol.Ack{Seq: 99}), local)
	server.conn.WriteTo(protocol.EncodeData(&protocol.DataPacket{ConnID: 1, FrameID: 2}), local)

	ack, err := sender.Send(protocol.CmdStop, nil)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), ack.Seq)
}

func TestSendToClosedSocketAborts(t *testing.T) {
	server := startFakeServer(t, 0)
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	sender := NewSender(conn, server.conn.LocalAddr())
	conn.Close()

	_, err = sender.Send(protocol.CmdStop, nil)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrRetriesExhausted)
}
