package stream

import (
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/chunker"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// stopWait bounds how long Stop waits for the streaming goroutine to finish.
const stopWait = 2 * time.Second

// Streamer sends one asset to one client data endpoint at the configured
// frame cadence. It runs as its own goroutine, independent of the control
// listener once started.
type Streamer struct {
	conn   net.PacketConn
	client net.Addr
	src    *chunker.Chunker

	connID   uint32
	interval time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	log *logrus.Entry
}

// newStreamer creates a streamer for an open chunker. Ownership of the
// chunker transfers to the streamer, which closes it when the loop exits.
func newStreamer(conn net.PacketConn, client net.Addr, src *chunker.Chunker, connID uint32, fps int) *Streamer {
	return &Streamer{
		conn:     conn,
		client:   client,
		src:      src,
		connID:   connID,
		interval: time.Second / time.Duration(fps),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
		log: logrus.WithFields(logrus.Fields{
			"component": "streamer",
			"client":    client.String(),
			"connId":    connID,
		}),
	}
}

// Run is the streaming loop: read a segment, compress it, checksum the
// compressed bytes, frame and send, then sleep whatever remains of the frame
// interval. The end-of-stream sentinel goes out on every exit path — clean
// end, external stop, or transport failure — so the client can tell a
// finished stream from a dead sender.
func (st *Streamer) Run() {
	defer close(st.done)
	defer st.src.Close()
	defer st.sendEndOfStream()

	st.log.Info("streaming started")
	var frameID uint32

	for {
		select {
		case <-st.stop:
			st.log.Info("streamer stopped externally")
			return
		default:
		}

		start := time.Now()

		payload, pts, isLast, err := st.src.NextFrame()
		if err != nil {
			st.log.WithError(err).Error("frame source failed")
			return
		}
		if payload == nil {
			return // exhausted
		}

		compressed := protocol.Compress(payload)
		pkt := protocol.EncodeData(&protocol.DataPacket{
			ConnID:   st.connID,
			FrameID:  frameID,
			PTSms:    pts,
			Checksum: protocol.Checksum(compressed),
			Payload:  compressed,
		})

		if _, err := st.conn.WriteTo(pkt, st.client); err != nil {
			// Transport failure is fatal to this session.
			st.log.WithError(err).Error("send failed, streamer exiting")
			return
		}

		if frameID%100 == 0 {
			st.log.WithFields(logrus.Fields{"frame": frameID, "size": len(pkt)}).
				Debug("frame sent")
		}
		frameID++

		if isLast {
			st.log.WithField("frames", frameID).Info("asset exhausted")
			return
		}

		// Keep the long-run send rate at the configured frame rate
		// regardless of per-iteration processing cost.
		if sleep := st.interval - time.Since(start); sleep > 0 {
			select {
			case <-st.stop:
				st.log.Info("streamer stopped externally")
				return
			case <-time.After(sleep):
			}
		}
	}
}

// sendEndOfStream emits the sentinel packet.
func (st *Streamer) sendEndOfStream() {
	pkt := protocol.EncodeData(&protocol.DataPacket{
		ConnID:  st.connID,
		FrameID: protocol.FrameEndOfStream,
	})
	if _, err := st.conn.WriteTo(pkt, st.client); err != nil {
		st.log.WithError(err).Warn("failed to send end-of-stream marker")
		return
	}
	st.log.Debug("end-of-stream marker sent")
}

// Stop signals the streaming loop and waits for it to finish, bounded by
// stopWait.
func (st *Streamer) Stop() {
	st.stopOnce.Do(func() { close(st.stop) })
	select {
	case <-st.done:
	case <-time.After(stopWait):
		st.log.Warn("streamer did not stop in time")
	}
}

// Done reports completion of the streaming loop.
func (st *Streamer) Done() <-chan struct{} {
	return st.done
}
