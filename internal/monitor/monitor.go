// Package monitor provides optional progress visualizers. Monitors only
// consume frame-arrival and playback events; they never participate in
// protocol logic, and a slow or absent monitor must not affect playback.
package monitor

// Monitor receives playback lifecycle events from the client session.
// Implementations must return quickly; heavy work belongs on their own
// goroutines.
type Monitor interface {
	// StreamStarted announces a new session and its total frame count when
	// known (0 when the server did not report one).
	StreamStarted(totalFrames uint32)

	// FrameReceived fires when a validated frame enters the reorder buffer.
	FrameReceived(frameID uint32)

	// FramePlayed fires when the scheduler plays a frame.
	FramePlayed(frameID, ptsMs uint32)

	// StreamEnded fires once when the session reaches its terminal state.
	StreamEnded()
}

// Nop is a Monitor that ignores every event.
type Nop struct{}

func (Nop) StreamStarted(uint32)    {}
func (Nop) FrameReceived(uint32)    {}
func (Nop) FramePlayed(_, _ uint32) {}
func (Nop) StreamEnded()            {}

// Multi fans events out to several monitors in order.
type Multi []Monitor

func (m Multi) StreamStarted(total uint32) {
	for _, mon := range m {
		mon.StreamStarted(total)
	}
}

func (m Multi) FrameReceived(id uint32) {
	for _, mon := range m {
		mon.FrameReceived(id)
	}
}

func (m Multi) FramePlayed(id, pts uint32) {
	for _, mon := range m {
		mon.FramePlayed(id, pts)
	}
}

func (m Multi) StreamEnded() {
	for _, mon := range m {
		mon.StreamEnded()
	}
}
