package chunker

import (
	"crypto/md5"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// chunkExt is the suffix of the numbered segment files written by SplitToDir.
const chunkExt = ".bin"

// SplitToDir slices the source asset into numbered fixed-size segment files
// (frame_00000.bin, frame_00001.bin, ...) under dir, creating it if needed.
// Returns the number of segments written.
func SplitToDir(src, dir string, chunkSize, fps int) (int, error) {
	c, err := Open(src, chunkSize, fps)
	if err != nil {
		return 0, err
	}
	defer c.Close()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create chunk dir: %w", err)
	}

	count := 0
	for {
		payload, _, isLast, err := c.NextFrame()
		if err != nil {
			return count, err
		}
		if payload == nil {
			break
		}

		name := filepath.Join(dir, fmt.Sprintf("frame_%05d%s", count, chunkExt))
		if err := os.WriteFile(name, payload, 0o644); err != nil {
			return count, fmt.Errorf("failed to write %s: %w", name, err)
		}
		count++

		if isLast {
			break
		}
	}
	return count, nil
}

// VerifyDir reassembles the segment files under dir in name order and
// compares the resulting digest against the original asset's digest.
// Filesystem listing order is not trusted; names are sorted so that the
// frame_00000-style numbering dictates concatenation order.
func VerifyDir(src, dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("failed to list chunk dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), chunkExt) {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return false, fmt.Errorf("no %s segments found in %s", chunkExt, dir)
	}
	sort.Strings(names)

	hasher := md5.New()
	for _, name := range names {
		f, err := os.Open(filepath.Join(dir, name))
		if err != nil {
			return false, fmt.Errorf("failed to open segment %s: %w", name, err)
		}
		_, err = io.Copy(hasher, f)
		f.Close()
		if err != nil {
			return false, fmt.Errorf("failed to read segment %s: %w", name, err)
		}
	}
	reassembled := fmt.Sprintf("%x", hasher.Sum(nil))

	original, err := FileDigest(src)
	if err != nil {
		return false, err
	}
	return reassembled == original, nil
}

// FileDigest returns the hex MD5 digest of a whole file, read in bounded
// pieces so large assets do not load into memory at once.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	hasher := md5.New()
	if _, err := io.Copy(hasher, f); err != nil {
		return "", fmt.Errorf("failed to digest %s: %w", path, err)
	}
	return fmt.Sprintf("%x", hasher.Sum(nil)), nil
}
