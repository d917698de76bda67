package player

import (
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/metrics"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/monitor"
	"github.com/AndCplusplus/VideoPlayer-CNproject/internal/protocol"
)

// State is the playback scheduler's lifecycle phase.
type State int32

const (
	StatePrebuffering State = iota
	StatePlaying
	StateDraining
	StateEnded
)

func (s State) String() string {
	switch s {
	case StatePrebuffering:
		return "prebuffering"
	case StatePlaying:
		return "playing"
	case StateDraining:
		return "draining"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// pollInterval is the short sleep used by the bounded condition-wait loops
// (pre-buffer fill and drain), keeping cancellation responsive.
const pollInterval = 10 * time.Millisecond

// Scheduler drains the jitter buffer at a pace derived from presentation
// timestamps, charging gaps as drops and classifying frames as on-time or
// late. One goroutine per session.
type Scheduler struct {
	buffer  *JitterBuffer
	metrics *metrics.Collector
	monitor monitor.Monitor
	flags   *sessionFlags

	prebufferFrames int
	stallThreshold  time.Duration

	expected      uint32
	playbackStart time.Time
	state         atomic.Int32

	log *logrus.Entry
}

// newScheduler wires a scheduler to the session's shared state.
func newScheduler(buf *JitterBuffer, col *metrics.Collector, mon monitor.Monitor,
	flags *sessionFlags, prebufferFrames int, stallThreshold time.Duration) *Scheduler {
	return &Scheduler{
		buffer:          buf,
		metrics:         col,
		monitor:         mon,
		flags:           flags,
		prebufferFrames: prebufferFrames,
		stallThreshold:  stallThreshold,
		log:             logrus.WithField("component", "scheduler"),
	}
}

// State returns the current lifecycle phase.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run executes the PREBUFFERING → PLAYING → DRAINING → ENDED state machine.
func (s *Scheduler) Run() {
	s.prebuffer()

	s.playbackStart = time.Now()
	s.metrics.MarkPlaybackStart(s.playbackStart)
	s.state.Store(int32(StatePlaying))

	s.consume()

	s.metrics.MarkPlaybackEnd(time.Now())
	s.state.Store(int32(StateEnded))
	s.flags.playing.Store(false)
	s.flags.receiving.Store(false)
	s.monitor.StreamEnded()
	s.log.Info("playback ended")
}

// prebuffer waits until the buffer holds the minimum frame count, bounded by
// the receiving flag so a dead stream does not block forever.
func (s *Scheduler) prebuffer() {
	start := time.Now()
	s.log.WithField("frames", s.prebufferFrames).Info("pre-buffering")

	for s.flags.receiving.Load() && !s.flags.ended.Load() && s.buffer.Len() < s.prebufferFrames {
		time.Sleep(pollInterval)
	}

	elapsed := time.Since(start)
	s.metrics.SetPrebuffer(elapsed)
	s.log.WithField("elapsed", elapsed.Round(time.Millisecond)).Info("pre-buffering complete")
}

// consume is the PLAYING/DRAINING loop. It returns once end-of-stream is
// observed or the session is stopped and the buffer is drained.
func (s *Scheduler) consume() {
	var emptySince time.Time
	stalled := false

	for {
		frame, ok := s.buffer.Pop()
		if !ok {
			if s.flags.ended.Load() {
				break // stream over and nothing left to drain
			}
			if !s.flags.playing.Load() {
				break // stopped externally, buffer empty
			}

			s.state.Store(int32(StateDraining))
			if emptySince.IsZero() {
				emptySince = time.Now()
			}
			if !stalled && s.flags.receiving.Load() && time.Since(emptySince) > s.stallThreshold {
				stalled = true
				s.log.Warn("playback stalled: buffer empty while still receiving")
			}
			time.Sleep(pollInterval)
			continue
		}

		if stalled {
			s.metrics.RecordStall(time.Since(emptySince))
		}
		stalled = false
		emptySince = time.Time{}
		s.state.Store(int32(StatePlaying))

		if frame.ID == protocol.FrameEndOfStream {
			s.log.Info("end-of-stream reached in playback order")
			break
		}

		if frame.ID < s.expected {
			// Stale duplicate or late out-of-order arrival: discarded without
			// touching the counters.
			s.log.WithFields(logrus.Fields{"frame": frame.ID, "expected": s.expected}).
				Debug("stale frame discarded")
			continue
		}

		if frame.ID > s.expected {
			gap := int(frame.ID - s.expected)
			s.metrics.RecordDropped(gap)
			s.log.WithFields(logrus.Fields{
				"expected": s.expected,
				"got":      frame.ID,
				"dropped":  gap,
			}).Warn("gap in frame sequence")
		}

		s.play(frame)
		s.expected = frame.ID + 1
	}

	if stalled {
		s.metrics.RecordStall(time.Since(emptySince))
	}
}

// play presents one frame at its scheduled instant. An early frame sleeps
// until it is due and records zero delay; a late frame plays immediately and
// records how far behind schedule it ran. The same computation applies on
// every path.
func (s *Scheduler) play(frame Frame) {
	due := s.playbackStart.Add(time.Duration(frame.PTSms) * time.Millisecond)
	wait := time.Until(due)

	var delay time.Duration
	if wait > 0 {
		time.Sleep(wait)
	} else {
		delay = -wait
	}

	s.metrics.RecordPlayed(len(frame.Payload), delay)
	s.monitor.FramePlayed(frame.ID, frame.PTSms)
	s.log.WithFields(logrus.Fields{
		"frame": frame.ID,
		"pts":   frame.PTSms,
		"delay": delay.Round(time.Microsecond),
	}).Info("frame played")
}
