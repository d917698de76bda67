package player

import "sync/atomic"

// sessionFlags are the read-mostly session state bits shared between the
// receiver, the scheduler, and the controlling Player. They carry no data;
// frames travel only through the JitterBuffer.
type sessionFlags struct {
	receiving atomic.Bool // the receiver loop should keep reading
	playing   atomic.Bool // the scheduler should keep consuming
	ended     atomic.Bool // end-of-stream observed from the wire
}

// reset puts the flags into the consistent idle state. Called before a new
// session and on every failure path, so no command failure leaves the
// session half-armed.
func (f *sessionFlags) reset() {
	f.receiving.Store(false)
	f.playing.Store(false)
	f.ended.Store(false)
}

// arm marks the session as actively receiving and playing.
func (f *sessionFlags) arm() {
	f.receiving.Store(true)
	f.playing.Store(true)
	f.ended.Store(false)
}
