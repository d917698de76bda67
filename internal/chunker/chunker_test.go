package chunker

import (
	"bytes"
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeAsset creates a deterministic pseudo-random asset of the given size.
func writeAsset(t *testing.T, size int) string {
	t.Helper()
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*31 + i/7)
	}
	path := filepath.Join(t.TempDir(), "test.mp4")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestSequentialReadsAndPTS(t *testing.T) {
	// 2.5 chunks worth of data at 24 fps.
	path := writeAsset(t, 2*4096+2048)
	c, err := Open(path, 4096, 24)
	require.NoError(t, err)
	defer c.Close()

	assert.Equal(t, uint32(3), c.FrameCount())

	p0, pts0, last0, err := c.NextFrame()
	require.NoError(t, err)
	assert.Len(t, p0, 4096)
	assert.Equal(t, uint32(0), pts0)
	assert.False(t, last0)

	p1, pts1, last1, err := c.NextFrame()
	require.NoError(t, err)
	assert.Len(t, p1, 4096)
	assert.Equal(t, uint32(41), pts1) // 1000/24 truncated
	assert.False(t, last1)

	p2, pts2, last2, err := c.NextFrame()
	require.NoError(t, err)
	assert.Len(t, p2, 2048)
	assert.Equal(t, uint32(83), pts2)
	assert.True(t, last2)

	// Exhausted source: nil payload, isLast stays true.
	p3, _, last3, err := c.NextFrame()
	require.NoError(t, err)
	assert.Nil(t, p3)
	assert.True(t, last3)
}

func TestConcatenationReproducesDigest(t *testing.T) {
	path := writeAsset(t, 10*1000+337)
	c, err := Open(path, 1000, 24)
	require.NoError(t, err)
	defer c.Close()

	var assembled bytes.Buffer
	for {
		payload, _, isLast, err := c.NextFrame()
		require.NoError(t, err)
		if payload == nil {
			break
		}
		assembled.Write(payload)
		if isLast {
			break
		}
	}

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, md5.Sum(original), md5.Sum(assembled.Bytes()))
}

func TestSplitAndVerifyDir(t *testing.T) {
	path := writeAsset(t, 5*512+100)
	dir := filepath.Join(t.TempDir(), "chunks")

	count, err := SplitToDir(path, dir, 512, 24)
	require.NoError(t, err)
	assert.Equal(t, 6, count)

	ok, err := VerifyDir(path, dir)
	require.NoError(t, err)
	assert.True(t, ok)

	// Corrupting one segment must fail verification.
	corrupt := filepath.Join(dir, fmt.Sprintf("frame_%05d.bin", 2))
	require.NoError(t, os.WriteFile(corrupt, []byte("garbage"), 0o644))
	ok, err = VerifyDir(path, dir)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpenMissingAsset(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "absent.mp4"), 4096, 24)
	assert.Error(t, err)
}
