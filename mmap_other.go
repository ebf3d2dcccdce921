//go:build !unix

package gciso

import "os"

// mmapRegion falls back to a plain read on platforms with no POSIX mmap
// binding wired up (golang.org/x/sys/unix doesn't cover windows/plan9/js).
// Writes are tracked in this buffer and flushed back with a WriteAt on every
// Put/Insert/Delete, so the ByteStream contract still holds; only the "true
// zero-copy mapping" property is lost outside unix.
func mmapRegion(f *os.File, size int64, writable bool) ([]byte, error) {
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func munmapRegion(data []byte) error {
	return nil
}

// syncRegion flushes the in-memory fallback buffer back to the file, since
// this platform has no true shared mapping to write through.
func syncRegion(f *os.File, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	_, err := f.WriteAt(data, 0)
	return err
}
