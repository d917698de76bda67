// Package chunker reads a media asset sequentially in fixed-size segments,
// assigning each segment a monotonic frame id and a synthetic presentation
// timestamp derived from a constant frame rate. It also provides the offline
// split/verify tools that validate the slicing against a whole-file digest.
package chunker

import (
	"fmt"
	"io"
	"os"
)

// Chunker is the frame source for one streaming session. It is purely
// sequential: no seeking, no re-reads. Not safe for concurrent use; each
// session owns exactly one Chunker.
type Chunker struct {
	file      *os.File
	fileSize  int64
	bytesRead int64

	chunkSize int
	fps       int
	frameID   uint32
}

// Open opens the asset at path for sequential chunked reading.
func Open(path string, chunkSize, fps int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("invalid chunk size %d", chunkSize)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("invalid frame rate %d", fps)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open asset: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat asset: %w", err)
	}

	return &Chunker{
		file:      f,
		fileSize:  info.Size(),
		chunkSize: chunkSize,
		fps:       fps,
	}, nil
}

// NextFrame reads the next fixed-size segment. It returns the segment bytes,
// its presentation timestamp in milliseconds, and whether this segment is the
// last one. A nil payload with isLast=true signals exhaustion (zero-length
// read at end of asset).
func (c *Chunker) NextFrame() (payload []byte, ptsMs uint32, isLast bool, err error) {
	buf := make([]byte, c.chunkSize)
	n, err := c.file.Read(buf)
	if n == 0 {
		if err == io.EOF || err == nil {
			return nil, 0, true, nil
		}
		return nil, 0, true, fmt.Errorf("asset read failed: %w", err)
	}

	ptsMs = uint32(float64(c.frameID) * 1000.0 / float64(c.fps))
	c.frameID++
	c.bytesRead += int64(n)

	return buf[:n], ptsMs, c.bytesRead >= c.fileSize, nil
}

// FrameCount returns the total number of segments the asset will yield.
func (c *Chunker) FrameCount() uint32 {
	return uint32((c.fileSize + int64(c.chunkSize) - 1) / int64(c.chunkSize))
}

// Size returns the asset size in bytes.
func (c *Chunker) Size() int64 {
	return c.fileSize
}

// Close closes the underlying file.
func (c *Chunker) Close() error {
	return c.file.Close()
}
