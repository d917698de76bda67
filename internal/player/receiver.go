package player

import (
	"net"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/metrics"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/monitor"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// readDeadline bounds each socket read so the loop can observe a cleared
// receiving flag promptly.
const readDeadline = 500 * time.Millisecond

// Receiver validates arriving datagrams and admits decompressed frames into
// the jitter buffer. It runs as one goroutine per session.
type Receiver struct {
	conn    net.PacketConn
	buffer  *JitterBuffer
	metrics *metrics.Collector
	monitor monitor.Monitor
	flags   *sessionFlags

	// sessionStart anchors the transit-delay estimate: a packet whose
	// presentation time is t should arrive no later than sessionStart+t.
	sessionStart time.Time

	connID    uint32
	connIDSet bool

	log *logrus.Entry
}

// newReceiver wires a receiver to the session's shared state.
func newReceiver(conn net.PacketConn, buf *JitterBuffer, col *metrics.Collector,
	mon monitor.Monitor, flags *sessionFlags, sessionStart time.Time) *Receiver {
	return &Receiver{
		conn:         conn,
		buffer:       buf,
		metrics:      col,
		monitor:      mon,
		flags:        flags,
		sessionStart: sessionStart,
		log:          logrus.WithField("component", "receiver"),
	}
}

// Run reads datagrams until the receiving flag clears or the socket dies.
// Every branch that discards a packet for an integrity reason counts exactly
// one loss event; sequencing anomalies are the scheduler's business.
func (r *Receiver) Run() {
	buf := make([]byte, 65536)

	for r.flags.receiving.Load() {
		if err := r.conn.SetReadDeadline(time.Now().Add(readDeadline)); err != nil {
			r.log.WithError(err).Error("failed to set read deadline")
			return
		}

		n, _, err := r.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			if r.flags.receiving.Load() {
				r.log.WithError(err).Error("receive failed, receiver exiting")
			}
			return
		}

		r.handleDatagram(buf[:n])
	}
	r.log.Debug("receiver loop finished")
}

// handleDatagram classifies and validates one datagram.
func (r *Receiver) handleDatagram(data []byte) {
	// Stray control acknowledgment on the shared socket: the control sender
	// is the consumer for those, never the media path.
	if protocol.IsAck(data) {
		return
	}

	pkt, err := protocol.DecodeData(data)
	if err != nil {
		r.log.WithError(err).Debug("malformed data packet, counting loss")
		r.metrics.RecordLoss()
		return
	}

	// Checksum covers the compressed bytes as received.
	if !pkt.EndOfStream() && !pkt.VerifyChecksum() {
		r.log.WithField("frame", pkt.FrameID).Debug("checksum mismatch, counting loss")
		r.metrics.RecordLoss()
		return
	}

	// Latch the connection id from the first valid packet; anything else is
	// a stale or foreign sender.
	if !r.connIDSet {
		r.connID = pkt.ConnID
		r.connIDSet = true
		r.log.WithField("connId", r.connID).Debug("connection id latched")
	} else if pkt.ConnID != r.connID {
		r.log.WithFields(logrus.Fields{"got": pkt.ConnID, "want": r.connID}).
			Debug("foreign connection id, counting loss")
		r.metrics.RecordLoss()
		return
	}

	if pkt.EndOfStream() {
		// Terminal: stop admitting data frames but enqueue the sentinel so
		// the scheduler sees it in order relative to buffered frames.
		if !r.flags.ended.Swap(true) {
			r.log.Info("end-of-stream marker received")
			r.buffer.Push(Frame{ID: protocol.FrameEndOfStream})
		}
		return
	}
	if r.flags.ended.Load() {
		// Data frames after the sentinel no longer join playback accounting.
		return
	}

	payload, err := protocol.Decompress(pkt.Payload)
	if err != nil {
		r.log.WithField("frame", pkt.FrameID).WithError(err).
			Debug("decompression failed, counting loss")
		r.metrics.RecordLoss()
		return
	}

	transit := time.Since(r.sessionStart) - time.Duration(pkt.PTSms)*time.Millisecond
	if transit < 0 {
		transit = 0
	}
	r.metrics.RecordReceived(len(data), transit)

	r.buffer.Push(Frame{ID: pkt.FrameID, PTSms: pkt.PTSms, Payload: payload})
	r.monitor.FrameReceived(pkt.FrameID)
}
