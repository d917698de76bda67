package protocol

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Compress deflates a frame payload with zlib at the default level.
func Compress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data) // writes to a bytes.Buffer cannot fail
	w.Close()
	return buf.Bytes()
}

// Decompress inflates a zlib-compressed payload. Corrupt input returns an
// error so the receiver can count it as a loss and keep going.
func Decompress(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib stream rejected: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib inflate failed: %w", err)
	}
	return out, nil
}
