//go:build unix

package gciso

import (
	"os"

	"golang.org/x/sys/unix"
)

func mmapRegion(f *os.File, size int64, writable bool) ([]byte, error) {
	prot := unix.PROT_READ
	if writable {
		prot |= unix.PROT_WRITE
	}
	return unix.Mmap(int(f.Fd()), 0, int(size), prot, unix.MAP_SHARED)
}

func munmapRegion(data []byte) error {
	return unix.Munmap(data)
}

// syncRegion is a no-op on unix: the mapping is MAP_SHARED, so writes
// already go straight through to the file.
func syncRegion(f *os.File, data []byte) error {
	return nil
}
