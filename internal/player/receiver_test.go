package player

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/metrics"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/monitor"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// receiverHarness runs a Receiver over a loopback UDP pair.
type receiverHarness struct {
	sender   net.PacketConn
	destAddr net.Addr
	buffer   *JitterBuffer
	col      *metrics.Collector
	flags    *sessionFlags
	done     chan struct{}
}

func startReceiver(t *testing.T) *receiverHarness {
	t.Helper()

	recvConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	sendConn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	h := &receiverHarness{
		sender:   sendConn,
		destAddr: recvConn.LocalAddr(),
		buffer:   NewJitterBuffer(),
		col:      metrics.NewCollector(),
		flags:    &sessionFlags{},
		done:     make(chan struct{}),
	}
	h.flags.arm()

	r := newReceiver(recvConn, h.buffer, h.col, monitor.Nop{}, h.flags, time.Now())
	go func() {
		r.Run()
		close(h.done)
	}()

	t.Cleanup(func() {
		h.flags.reset()
		select {
		case <-h.done:
		case <-time.After(2 * time.Second):
			t.Error("receiver did not stop")
		}
		recvConn.Close()
		sendConn.Close()
	})
	return h
}

func (h *receiverHarness) send(t *testing.T, data []byte) {
	t.Helper()
	_, err := h.sender.WriteTo(data, h.destAddr)
	require.NoError(t, err)
}

// sendFrame transmits a well-formed data packet for the given frame id.
func (h *receiverHarness) sendFrame(t *testing.T, connID, frameID uint32, body []byte) {
	t.Helper()
	compressed := protocol.Compress(body)
	h.send(t, protocol.EncodeData(&protocol.DataPacket{
		ConnID:   connID,
		FrameID:  frameID,
		Checksum: protocol.Checksum(compressed),
		Payload:  compressed,
	}))
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestValidFrameAdmitted(t *testing.T) {
	h := startReceiver(t)
	h.sendFrame(t, 7, 0, []byte("hello frame"))

	waitFor(t, func() bool { return h.buffer.Len() == 1 })
	f, ok := h.buffer.Pop()
	require.True(t, ok)
	assert.Equal(t, uint32(0), f.ID)
	assert.Equal(t, []byte("hello frame"), f.Payload)

	s := h.col.Snapshot()
	assert.Zero(t, s.FramesLost)
	assert.Positive(t, s.BytesReceived)
}

func TestChecksumMismatchCountsExactlyOneLoss(t *testing.T) {
	h := startReceiver(t)

	compressed := protocol.Compress([]byte("payload"))
	raw := protocol.EncodeData(&protocol.DataPacket{
		ConnID:   7,
		FrameID:  0,
		Checksum: protocol.Checksum(compressed),
		Payload:  compressed,
	})
	raw[protocol.DataHeaderSize] ^= 0xFF // mutate after checksum computation
	h.send(t, raw)

	waitFor(t, func() bool { return h.col.Snapshot().FramesLost == 1 })
	assert.Zero(t, h.buffer.Len())
}

func TestMalformedHeaderCountsLoss(t *testing.T) {
	h := startReceiver(t)
	// Long enough to not look like an ack, too short for a data header.
	h.send(t, []byte{1, 2, 3})

	waitFor(t, func() bool { return h.col.Snapshot().FramesLost == 1 })
	assert.Zero(t, h.buffer.Len())
}

func TestForeignConnectionIDRejected(t *testing.T) {
	h := startReceiver(t)
	h.sendFrame(t, 7, 0, []byte("a")) // latches connID 7
	waitFor(t, func() bool { return h.buffer.Len() == 1 })

	h.sendFrame(t, 8, 1, []byte("b")) // stale/foreign sender
	waitFor(t, func() bool { return h.col.Snapshot().FramesLost == 1 })
	assert.Equal(t, 1, h.buffer.Len())
}

func TestStrayAckDiscardedWithoutLoss(t *testing.T) {
	h := startReceiver(t)
	h.send(t, protocol.EncodeAck(&protocol.Ack{Seq: 3}))
	h.sendFrame(t, 7, 0, []byte("a"))

	waitFor(t, func() bool { return h.buffer.Len() == 1 })
	assert.Zero(t, h.col.Snapshot().FramesLost)
}

func TestBadCompressionCountsLoss(t *testing.T) {
	h := startReceiver(t)
	bogus := []byte("definitely not zlib")
	h.send(t, protocol.EncodeData(&protocol.DataPacket{
		ConnID:   7,
		FrameID:  0,
		Checksum: protocol.Checksum(bogus),
		Payload:  bogus,
	}))

	waitFor(t, func() bool { return h.col.Snapshot().FramesLost == 1 })
	assert.Zero(t, h.buffer.Len())
}

func TestEndOfStreamIsTerminal(t *testing.T) {
	h := startReceiver(t)
	h.sendFrame(t, 7, 0, []byte("a"))
	waitFor(t, func() bool { return h.buffer.Len() == 1 })

	h.send(t, protocol.EncodeData(&protocol.DataPacket{
		ConnID:  7,
		FrameID: protocol.FrameEndOfStream,
	}))
	waitFor(t, func() bool { return h.flags.ended.Load() })
	assert.Equal(t, 2, h.buffer.Len()) // frame 0 + sentinel

	// Frames after the sentinel no longer join playback accounting.
	h.sendFrame(t, 7, 1, []byte("late"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 2, h.buffer.Len())
}
