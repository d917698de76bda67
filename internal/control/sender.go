// Package control implements the reliable side of the signaling channel:
// a stop-and-wait ARQ for PLAY/STOP commands layered on the same unreliable
// datagram socket that carries media data.
package control

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// Tuning constants for the stop-and-wait exchange.
const (
	// AckTimeout is how long one attempt waits for a matching acknowledgment
	// before retransmitting.
	AckTimeout = 500 * time.Millisecond

	// MaxRetries bounds the number of transmissions per command.
	MaxRetries = 5
)

// ErrRetriesExhausted is returned when every attempt timed out without a
// matching acknowledgment. The caller must not assume the command took
// effect on the server.
var ErrRetriesExhausted = errors.New("control: no acknowledgment after all retries")

// Sender issues reliable commands over a shared datagram socket.
//
// Exactly one stop-and-wait exchange is expected in flight at a time: Send
// blocks its caller for up to AckTimeout×MaxRetries, which is deliberate
// backpressure. Sequence numbers are assigned under a mutex and strictly
// increase for the lifetime of the Sender.
type Sender struct {
	conn   net.PacketConn
	server net.Addr

	mu  sync.Mutex
	seq uint32

	log *logrus.Entry
}

// NewSender creates a Sender that transmits to server over conn. The conn is
// shared with the media receiver; replies that are not acknowledgments are
// tolerated and skipped while waiting.
func NewSender(conn net.PacketConn, server net.Addr) *Sender {
	return &Sender{
		conn:   conn,
		server: server,
		log:    logrus.WithField("component", "control"),
	}
}

// nextSeq assigns the next sequence number under mutual exclusion.
func (s *Sender) nextSeq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq := s.seq
	s.seq++
	return seq
}

// Send transmits one command and waits for its acknowledgment, retrying up
// to MaxRetries times. On success it returns the acknowledgment (which for
// PLAY may carry the asset's total frame count). A transport error aborts
// immediately; exhausting the retry budget returns ErrRetriesExhausted.
func (s *Sender) Send(cmd protocol.Command, payload []byte) (protocol.Ack, error) {
	seq := s.nextSeq()
	packet := protocol.EncodeControl(&protocol.ControlPacket{
		Cmd:     cmd,
		Seq:     seq,
		Payload: payload,
	})

	buf := make([]byte, 65536)

	for attempt := 1; attempt <= MaxRetries; attempt++ {
		s.log.WithFields(logrus.Fields{
			"cmd":     cmd,
			"seq":     seq,
			"attempt": attempt,
		}).Debug("sending control command")

		if _, err := s.conn.WriteTo(packet, s.server); err != nil {
			return protocol.Ack{}, fmt.Errorf("control send failed: %w", err)
		}

		ack, err := s.awaitAck(seq, time.Now().Add(AckTimeout), buf)
		if err == nil {
			return ack, nil
		}
		if !errors.Is(err, errTimeout) {
			return protocol.Ack{}, err
		}
		s.log.WithFields(logrus.Fields{"seq": seq, "attempt": attempt}).
			Warn("timeout waiting for ack, retrying")
	}

	return protocol.Ack{}, ErrRetriesExhausted
}

// errTimeout distinguishes a lapsed attempt window from a fatal read error.
var errTimeout = errors.New("control: attempt window elapsed")

// awaitAck reads replies until deadline, skipping anything that is not the
// acknowledgment for seq: stray data packets misrouted onto the control path
// and acks for other sequence numbers do not consume the attempt.
func (s *Sender) awaitAck(seq uint32, deadline time.Time, buf []byte) (protocol.Ack, error) {
	for {
		if !time.Now().Before(deadline) {
			return protocol.Ack{}, errTimeout
		}
		if err := s.conn.SetReadDeadline(deadline); err != nil {
			return protocol.Ack{}, fmt.Errorf("control deadline failed: %w", err)
		}

		n, _, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				return protocol.Ack{}, errTimeout
			}
			return protocol.Ack{}, fmt.Errorf("control receive failed: %w", err)
		}

		if !protocol.IsAck(buf[:n]) {
			// A media packet or foreign datagram on the control path: the
			// receiver loop handles those, keep waiting for our ack.
			s.log.WithField("size", n).Debug("non-ack datagram on control path, skipping")
			continue
		}

		ack, err := protocol.DecodeAck(buf[:n])
		if err != nil {
			s.log.WithError(err).Debug("malformed ack, skipping")
			continue
		}
		if ack.Seq != seq {
			s.log.WithFields(logrus.Fields{"got": ack.Seq, "want": seq}).
				Debug("ack for a different sequence, skipping")
			continue
		}
		return *ack, nil
	}
}
