package opensubtitles

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// hashChunkSize is the number of bytes read from each end of the file.
const hashChunkSize = 64 * 1024

// MovieHash computes the OpenSubtitles hash of the file at path: the file size
// plus the little-endian uint64 sum of its first and last 64 KiB.
func MovieHash(path string) (string, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", 0, fmt.Errorf("stat %s: %w", path, err)
	}
	size := info.Size()
	if size < hashChunkSize {
		return "", size, fmt.Errorf("hash %s: file smaller than %d bytes", path, hashChunkSize)
	}

	hash := uint64(size)
	buf := make([]byte, hashChunkSize)
	for _, offset := range []int64{0, size - hashChunkSize} {
		if _, err := file.ReadAt(buf, offset); err != nil && err != io.EOF {
			return "", size, fmt.Errorf("read %s: %w", path, err)
		}
		for i := 0; i < hashChunkSize; i += 8 {
			hash += binary.LittleEndian.Uint64(buf[i : i+8])
		}
	}
	return fmt.Sprintf("%016x", hash), size, nil
}
