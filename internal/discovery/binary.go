package discovery

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// binaryDetectionBytes is the number of bytes read from the beginning of a
// file to detect binary content. This matches Git's approach of checking the
// first 8KB for null bytes, so detection cost stays constant regardless of
// file size.
const binaryDetectionBytes = 8192

// IsBinary reports whether the file at the given path contains binary
// content. It reads the first 8192 bytes and checks for a null byte
// (\x00), matching Git's heuristic.
//
// An empty file (0 bytes) is NOT considered binary. Files that cannot be
// opened or read return an error.
func IsBinary(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("opening %s for binary detection: %w", path, err)
	}
	defer f.Close()

	buf := make([]byte, binaryDetectionBytes)
	n, err := f.Read(buf)
	if err != nil && err != io.EOF {
		return false, fmt.Errorf("reading %s for binary detection: %w", path, err)
	}

	if n == 0 {
		return false, nil
	}

	return bytes.IndexByte(buf[:n], 0) != -1, nil
}
