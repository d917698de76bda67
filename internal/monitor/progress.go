package monitor

import (
	"sync"
	"sync/atomic"

	"github.com/pterm/pterm"
)

// ProgressBar renders playback progress in the terminal. The bar total comes
// from the PLAY acknowledgment's frame count; without one the bar degrades
// to a played-frame counter.
type ProgressBar struct {
	mu       sync.Mutex
	bar      *pterm.ProgressbarPrinter
	received atomic.Int64
}

// NewProgressBar creates an idle progress bar monitor.
func NewProgressBar() *ProgressBar {
	return &ProgressBar{}
}

func (p *ProgressBar) StreamStarted(totalFrames uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := int(totalFrames)
	if total == 0 {
		total = 1 // pterm needs a positive total; unknown length renders as a counter
	}
	bar, err := pterm.DefaultProgressbar.
		WithTotal(total).
		WithTitle("Playing").
		WithShowElapsedTime(true).
		Start()
	if err != nil {
		return
	}
	p.bar = bar
	p.received.Store(0)
}

func (p *ProgressBar) FrameReceived(uint32) {
	p.received.Add(1)
}

func (p *ProgressBar) FramePlayed(_, _ uint32) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Increment()
	}
}

func (p *ProgressBar) StreamEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		p.bar.Stop()
		p.bar = nil
	}
}
