// Package stream implements the server side: a control listener on a single
// datagram socket shared with data transmission, idempotent PLAY/STOP
// dispatch, and the per-session paced streamer.
package stream

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/chunker"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// listenDeadline bounds each control read so the loop observes shutdown
// promptly.
const listenDeadline = 500 * time.Millisecond

// clientState tracks the stop-and-wait exchange per client: the last
// executed sequence number and the acknowledgment that answered it, so a
// retransmission is re-acked without executing the command again.
type clientState struct {
	lastSeq uint32
	lastAck []byte
}

// Server owns the UDP socket and at most one active streaming session.
type Server struct {
	conn net.PacketConn

	videoDir  string
	fps       int
	chunkSize int

	mu       sync.Mutex
	clients  map[string]*clientState
	streamer *Streamer

	log *logrus.Entry
}

// NewServer binds the control/data socket on addr and prepares to serve
// assets out of videoDir.
func NewServer(addr, videoDir string, fps, chunkSize int) (*Server, error) {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind control socket: %w", err)
	}
	return &Server{
		conn:      conn,
		videoDir:  videoDir,
		fps:       fps,
		chunkSize: chunkSize,
		clients:   make(map[string]*clientState),
		log:       logrus.WithField("component", "server"),
	}, nil
}

// Addr returns the bound socket address.
func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Run is the control listener loop. It blocks until ctx is cancelled, then
// tears down any active session and returns.
func (s *Server) Run(ctx context.Context) error {
	s.log.WithField("addr", s.Addr().String()).Info("listening for control commands")
	buf := make([]byte, 65536)

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return nil
		default:
		}

		if err := s.conn.SetReadDeadline(time.Now().Add(listenDeadline)); err != nil {
			return fmt.Errorf("control deadline failed: %w", err)
		}
		n, addr, err := s.conn.ReadFrom(buf)
		if err != nil {
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				continue
			}
			select {
			case <-ctx.Done():
				s.shutdown()
				return nil
			default:
				return fmt.Errorf("control receive failed: %w", err)
			}
		}

		pkt, err := protocol.DecodeControl(buf[:n])
		if err != nil {
			s.log.WithError(err).WithField("from", addr.String()).
				Debug("unparseable datagram on control socket, dropping")
			continue
		}
		s.handleCommand(pkt, addr)
	}
}

// handleCommand executes a control command at most once per sequence number
// and always acknowledges it — including retransmissions and no-op STOPs —
// so the client's stop-and-wait converges even when an ack is lost.
func (s *Server) handleCommand(pkt *protocol.ControlPacket, addr net.Addr) {
	key := addr.String()
	log := s.log.WithFields(logrus.Fields{"cmd": pkt.Cmd, "seq": pkt.Seq, "from": key})

	s.mu.Lock()
	if st, ok := s.clients[key]; ok && st.lastSeq == pkt.Seq && st.lastAck != nil {
		ack := st.lastAck
		s.mu.Unlock()
		log.Debug("retransmission, re-acking without executing")
		s.sendRaw(ack, addr)
		return
	}
	s.mu.Unlock()

	var ack protocol.Ack
	ack.Seq = pkt.Seq

	switch pkt.Cmd {
	case protocol.CmdPlay:
		if total, err := s.startSession(string(pkt.Payload), addr); err != nil {
			// Protocol contract: acknowledge anyway, refusal is signaled by
			// the absent stream metadata.
			log.WithError(err).Warn("PLAY refused")
		} else {
			ack.TotalFrames = total
			ack.HasTotal = true
			log.WithField("totalFrames", total).Info("PLAY accepted")
		}

	case protocol.CmdStop:
		if s.stopSession() {
			log.Info("STOP executed, session torn down")
		} else {
			log.Info("STOP with no active session, acknowledging anyway")
		}

	default:
		log.Warn("unknown command, acknowledging without effect")
	}

	encoded := protocol.EncodeAck(&ack)
	s.mu.Lock()
	s.clients[key] = &clientState{lastSeq: pkt.Seq, lastAck: encoded}
	s.mu.Unlock()
	s.sendRaw(encoded, addr)
}

// startSession parses a PLAY payload ("<filename> <udpPort>"), opens the
// asset, and starts a streamer toward the client's data endpoint. An already
// active session is torn down first and replaced by the new one.
func (s *Server) startSession(payload string, from net.Addr) (uint32, error) {
	fields := strings.Fields(payload)
	if len(fields) != 2 {
		return 0, fmt.Errorf("malformed PLAY payload %q", payload)
	}
	port, err := strconv.Atoi(fields[1])
	if err != nil || port < 1 || port > 65535 {
		return 0, fmt.Errorf("invalid data port %q", fields[1])
	}

	// Assets are served strictly out of videoDir; the client-supplied name
	// cannot traverse outside it.
	path := filepath.Join(s.videoDir, filepath.Base(fields[0]))
	src, err := chunker.Open(path, s.chunkSize, s.fps)
	if err != nil {
		return 0, fmt.Errorf("asset unavailable: %w", err)
	}

	dataAddr, err := dataEndpoint(from, port)
	if err != nil {
		src.Close()
		return 0, err
	}

	s.mu.Lock()
	prev := s.streamer
	s.mu.Unlock()
	if prev != nil {
		// Replacement policy: the newest PLAY wins. The prior session gets
		// its end-of-stream marker through the streamer's exit path.
		s.log.Info("PLAY while session active, tearing down prior session")
		prev.Stop()
	}

	st := newStreamer(s.conn, dataAddr, src, rand.Uint32(), s.fps)
	s.mu.Lock()
	s.streamer = st
	s.mu.Unlock()
	go st.Run()

	return src.FrameCount(), nil
}

// stopSession tears down the active session, reporting whether one existed.
func (s *Server) stopSession() bool {
	s.mu.Lock()
	st := s.streamer
	s.streamer = nil
	s.mu.Unlock()

	if st == nil {
		return false
	}
	st.Stop()
	return true
}

// shutdown stops any session and closes the socket.
func (s *Server) shutdown() {
	s.stopSession()
	s.conn.Close()
	s.log.Info("server shut down")
}

// sendRaw transmits an encoded packet, logging transport errors.
func (s *Server) sendRaw(data []byte, addr net.Addr) {
	if _, err := s.conn.WriteTo(data, addr); err != nil {
		s.log.WithError(err).WithField("to", addr.String()).Error("send failed")
	}
}

// dataEndpoint derives the client's data address from its control address
// and the port named in the PLAY payload.
func dataEndpoint(control net.Addr, port int) (net.Addr, error) {
	ua, ok := control.(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("unexpected control address type %T", control)
	}
	return &net.UDPAddr{IP: ua.IP, Port: port, Zone: ua.Zone}, nil
}
