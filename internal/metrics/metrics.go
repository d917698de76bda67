// Package metrics aggregates playback statistics. A single Collector is
// mutated by both the receiver and the scheduler goroutines, so every
// read-modify-write goes through one mutex.
package metrics

import (
	"sort"
	"sync"
	"time"
)

// Collector is the per-session statistics sink.
type Collector struct {
	mu sync.Mutex

	framesPlayed  int
	framesDropped int // gap anomalies: ids charged as missing by the scheduler
	framesLost    int // integrity failures: discarded before admission
	stalls        int
	stallTotal    time.Duration

	bytesReceived  int64 // wire bytes accepted by the receiver
	bytesDelivered int64 // decompressed bytes credited by played frames

	delaySamples   []time.Duration // scheduled-vs-actual, one per played frame
	transitSamples []time.Duration // arrival-vs-presentation estimate per accepted packet

	prebuffer     time.Duration
	playbackStart time.Time
	playbackEnd   time.Time
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{}
}

// RecordPlayed accounts one played frame: its decompressed size toward
// goodput and its scheduling delay (zero when the frame was on time).
func (c *Collector) RecordPlayed(size int, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesPlayed++
	c.bytesDelivered += int64(size)
	c.delaySamples = append(c.delaySamples, delay)
}

// RecordDropped charges n missing frame ids as drops.
func (c *Collector) RecordDropped(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesDropped += n
}

// RecordLoss counts one packet discarded for an integrity failure
// (malformed header, checksum or connection-id mismatch, bad decompress).
func (c *Collector) RecordLoss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.framesLost++
}

// RecordReceived accounts one validated packet: its wire size and the
// estimated transit delay against its presentation timestamp.
func (c *Collector) RecordReceived(size int, transit time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bytesReceived += int64(size)
	c.transitSamples = append(c.transitSamples, transit)
}

// RecordStall counts one playback stall of the given duration.
func (c *Collector) RecordStall(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stalls++
	c.stallTotal += d
}

// SetPrebuffer records the elapsed pre-buffering duration.
func (c *Collector) SetPrebuffer(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prebuffer = d
}

// MarkPlaybackStart latches the playback start instant. Only the first call
// takes effect.
func (c *Collector) MarkPlaybackStart(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playbackStart.IsZero() {
		c.playbackStart = t
	}
}

// MarkPlaybackEnd latches the playback end instant exactly once, so goodput
// is computed over a single well-defined window.
func (c *Collector) MarkPlaybackEnd(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playbackEnd.IsZero() {
		c.playbackEnd = t
	}
}

// FramesPlayed returns the number of frames played so far.
func (c *Collector) FramesPlayed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.framesPlayed
}

// Stats is an immutable snapshot of the collector with derived figures.
type Stats struct {
	FramesPlayed  int
	FramesDropped int
	FramesLost    int
	Stalls        int

	BytesReceived  int64
	BytesDelivered int64

	Prebuffer    time.Duration
	PlaybackTime time.Duration

	MaxDelay     time.Duration
	AvgDelay     time.Duration
	P95Delay     time.Duration
	AvgTransit   time.Duration
	AvgStall     time.Duration
	GoodputBytes float64 // delivered bytes per second of playback wall-time
}

// Snapshot computes the derived statistics under the lock.
func (c *Collector) Snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Stats{
		FramesPlayed:   c.framesPlayed,
		FramesDropped:  c.framesDropped,
		FramesLost:     c.framesLost,
		Stalls:         c.stalls,
		BytesReceived:  c.bytesReceived,
		BytesDelivered: c.bytesDelivered,
		Prebuffer:      c.prebuffer,
	}

	s.MaxDelay, s.AvgDelay, s.P95Delay = summarize(c.delaySamples)
	if len(c.transitSamples) > 0 {
		var total time.Duration
		for _, d := range c.transitSamples {
			total += d
		}
		s.AvgTransit = total / time.Duration(len(c.transitSamples))
	}
	if c.stalls > 0 {
		s.AvgStall = c.stallTotal / time.Duration(c.stalls)
	}

	if !c.playbackStart.IsZero() {
		end := c.playbackEnd
		if end.IsZero() {
			end = time.Now()
		}
		s.PlaybackTime = end.Sub(c.playbackStart)
		if s.PlaybackTime > 0 {
			s.GoodputBytes = float64(c.bytesDelivered) / s.PlaybackTime.Seconds()
		}
	}
	return s
}

// summarize computes max, mean, and 95th percentile of a sample series.
func summarize(samples []time.Duration) (max, avg, p95 time.Duration) {
	if len(samples) == 0 {
		return 0, 0, 0
	}

	sorted := make([]time.Duration, len(samples))
	copy(sorted, samples)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var total time.Duration
	for _, d := range sorted {
		total += d
	}

	max = sorted[len(sorted)-1]
	avg = total / time.Duration(len(sorted))

	idx := (len(sorted)*95 + 99) / 100
	if idx > 0 {
		idx--
	}
	p95 = sorted[idx]
	return max, avg, p95
}
