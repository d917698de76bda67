package player

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/control"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/metrics"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/monitor"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// joinTimeout bounds how long Stop waits for the session goroutines. Missing
// the deadline is tolerated: socket deadlines unblock any pending read right
// after, so the goroutines cannot leak for long.
const joinTimeout = 2 * time.Second

// Options tunes a Player.
type Options struct {
	PrebufferFrames int           // minimum buffered frames before playback starts
	StallThreshold  time.Duration // empty-buffer duration that counts as a stall
}

// Player owns the client side of one streaming session at a time: the
// reliable control exchange, the receiver and scheduler goroutines, and the
// jitter buffer bridging them.
type Player struct {
	conn net.PacketConn
	ctrl *control.Sender
	mon  monitor.Monitor
	opts Options

	buffer *JitterBuffer
	flags  sessionFlags

	mu        sync.Mutex
	collector *metrics.Collector
	sched     *Scheduler
	wg        sync.WaitGroup

	log *logrus.Entry
}

// New creates a Player bound to the client's shared datagram socket.
func New(conn net.PacketConn, serverAddr net.Addr, mon monitor.Monitor, opts Options) *Player {
	if mon == nil {
		mon = monitor.Nop{}
	}
	return &Player{
		conn:      conn,
		ctrl:      control.NewSender(conn, serverAddr),
		mon:       mon,
		opts:      opts,
		buffer:    NewJitterBuffer(),
		collector: metrics.NewCollector(),
		log:       logrus.WithField("component", "player"),
	}
}

// Active reports whether a session is currently receiving or playing.
func (p *Player) Active() bool {
	return p.flags.receiving.Load() || p.flags.playing.Load()
}

// Metrics returns the current session's collector.
func (p *Player) Metrics() *metrics.Collector {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.collector
}

// State returns the scheduler phase of the current session, or StateEnded
// when no session ever started.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.sched == nil {
		return StateEnded
	}
	return p.sched.State()
}

// Play reliably delivers a PLAY command and, on acceptance, starts the
// receiver and scheduler goroutines. dataPort is the UDP port the server
// should stream to (normally the port this Player's socket is bound to).
func (p *Player) Play(filename string, dataPort int) error {
	if p.Active() {
		return fmt.Errorf("a session is already active, send STOP first")
	}

	payload := []byte(fmt.Sprintf("%s %d", filename, dataPort))
	ack, err := p.ctrl.Send(protocol.CmdPlay, payload)
	if err != nil {
		p.flags.reset()
		return fmt.Errorf("PLAY not confirmed: %w", err)
	}
	if !ack.HasTotal {
		// The server acknowledges every command; a PLAY ack without stream
		// metadata means it refused to start (asset unavailable).
		p.flags.reset()
		return fmt.Errorf("server refused PLAY: asset %q unavailable", filename)
	}

	p.log.WithFields(logrus.Fields{
		"file":  filename,
		"port":  dataPort,
		"total": ack.TotalFrames,
	}).Info("PLAY confirmed, session starting")

	p.buffer.Reset()
	p.flags.arm()

	p.mu.Lock()
	p.collector = metrics.NewCollector()
	p.sched = newScheduler(p.buffer, p.collector, p.mon, &p.flags,
		p.opts.PrebufferFrames, p.opts.StallThreshold)
	recv := newReceiver(p.conn, p.buffer, p.collector, p.mon, &p.flags, time.Now())
	p.mu.Unlock()

	p.mon.StreamStarted(ack.TotalFrames)

	p.wg.Add(2)
	go func() {
		defer p.wg.Done()
		recv.Run()
	}()
	go func() {
		defer p.wg.Done()
		p.mu.Lock()
		sched := p.sched
		p.mu.Unlock()
		sched.Run()
	}()

	return nil
}

// Stop tears the local session down and reliably delivers a STOP command.
// The local teardown comes first so the receiver loop stops competing for
// the shared socket before the stop-and-wait exchange needs it; either way
// the flags end up in the consistent idle state.
func (p *Player) Stop() error {
	if !p.flags.receiving.Load() && !p.flags.playing.Load() {
		return fmt.Errorf("no active session")
	}

	p.flags.reset()
	p.join()

	_, err := p.ctrl.Send(protocol.CmdStop, nil)
	if err != nil {
		p.log.WithError(err).Warn("STOP not confirmed by server")
	}
	p.drainSocket()

	p.log.Info("session stopped")
	if err != nil {
		return fmt.Errorf("session stopped locally, but STOP not confirmed: %w", err)
	}
	return nil
}

// Wait blocks until the current session's goroutines finish (end-of-stream
// or stop).
func (p *Player) Wait() {
	p.wg.Wait()
}

// drainSocket discards straggler datagrams from the torn-down session so the
// next session's connection-id latch cannot pick up a stale packet. Bounded:
// it stops at the first quiet window or after half a second overall.
func (p *Player) drainSocket() {
	buf := make([]byte, 65536)
	overall := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(overall) {
		if err := p.conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond)); err != nil {
			return
		}
		if _, _, err := p.conn.ReadFrom(buf); err != nil {
			return
		}
	}
}

// join waits for the session goroutines with a bounded timeout.
func (p *Player) join() {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(joinTimeout):
		p.log.Warn("session goroutines did not finish in time")
	}
}

// Close stops any active session and releases nothing else: the socket is
// owned by the caller.
func (p *Player) Close() {
	if p.Active() {
		_ = p.Stop()
	}
}
