package gciso_test

import (
	"testing"

	"github.com/rotobash/gciso"
)

// Layout of the synthetic image assembled by buildTestImage. The data
// region deliberately starts past the end of the system region (0x3000)
// so defragmentation has gaps to close.
const (
	mockDolOffset  = 0x2600
	mockFSTOffset  = 0x2800
	mockImageSize  = 0x6000
	mockSystemSize = 0x3000

	mockOpeningOffset = 0x4000
	mockADatOffset    = 0x4800
	mockBDatOffset    = 0x5000
	mockTailOffset    = 0x5800

	mockOpeningSize = 64
	mockADatSize    = 100
	mockBDatSize    = 2048
	mockTailSize    = 32
)

// filePayload returns n bytes of a deterministic per-file pattern.
func filePayload(n int, seed byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = seed ^ byte(i)
	}
	return out
}

// mockFSTBytes builds the FST blob for the synthetic image:
//
//	/
//	├── opening.bnr
//	├── data/
//	│   ├── a.dat
//	│   └── b.dat
//	└── tail.bin
func mockFSTBytes() []byte {
	entries := gciso.NewMemStreamSize(6 * 12)

	var strtab []byte
	nameOff := func(name string) uint32 {
		off := uint32(len(strtab))
		strtab = append(strtab, name...)
		strtab = append(strtab, 0)
		return off
	}
	put := func(idx int, word0, a, b uint32) {
		base := int64(idx) * 12
		entries.PutU32BE(base, word0)
		entries.PutU32BE(base+4, a)
		entries.PutU32BE(base+8, b)
	}

	put(0, 1<<24, 0, 6)
	put(1, nameOff("opening.bnr"), mockOpeningOffset, mockOpeningSize)
	put(2, 1<<24|nameOff("data"), 0, 5)
	put(3, nameOff("a.dat"), mockADatOffset, mockADatSize)
	put(4, nameOff("b.dat"), mockBDatOffset, mockBDatSize)
	put(5, nameOff("tail.bin"), mockTailOffset, mockTailSize)

	return append(entries.Bytes(), strtab...)
}

// buildTestImage assembles a minimal but structurally complete GameCube
// image in memory: disc header, header information, apploader, a DOL with
// one text and one data section, the FST, and four file payloads. All gap
// bytes are zero so a rebuild into a fresh stream can be compared for full
// byte equality.
func buildTestImage() *gciso.MemStream {
	s := gciso.NewMemStreamSize(mockImageSize)

	fstBin := mockFSTBytes()

	// disc header
	s.Put(0x00, []byte("GM"))
	s.PutU8(0x02, 'E')
	s.Put(0x03, []byte("01"))
	s.PutCString(0x20, []byte("MOCK GAME"))
	s.PutU32BE(0x420, mockDolOffset)
	s.PutU32BE(0x424, mockFSTOffset)
	s.PutU32BE(0x428, uint32(len(fstBin)))
	s.PutU32BE(0x42C, 0x1000)

	// header information: a repeating pattern so corruption is visible
	info := make([]byte, 0x2000)
	for i := range info {
		info[i] = byte(i % 251)
	}
	s.Put(0x440, info)

	// apploader fills 0x2440 up to the DOL
	app := make([]byte, mockDolOffset-0x2440)
	for i := range app {
		app[i] = byte(0xA0 + i%16)
	}
	s.Put(0x2440, app)

	// DOL: text0 at +0x100 (0x20 bytes), data0 at +0x120 (0x40 bytes)
	s.PutU32BE(mockDolOffset+0x00, 0x100)
	s.PutU32BE(mockDolOffset+0x48, 0x80003100)
	s.PutU32BE(mockDolOffset+0x90, 0x20)
	s.PutU32BE(mockDolOffset+0x1C, 0x120)
	s.PutU32BE(mockDolOffset+0x64, 0x80004000)
	s.PutU32BE(mockDolOffset+0xAC, 0x40)
	s.PutU32BE(mockDolOffset+0xD8, 0x80005000)
	s.PutU32BE(mockDolOffset+0xDC, 0x100)
	s.PutU32BE(mockDolOffset+0xE0, 0x80003100)
	s.Put(mockDolOffset+0x100, filePayload(0x20, 0x7A))
	s.Put(mockDolOffset+0x120, filePayload(0x40, 0x5B))

	s.Put(mockFSTOffset, fstBin)

	s.Put(mockOpeningOffset, filePayload(mockOpeningSize, 0x11))
	s.Put(mockADatOffset, filePayload(mockADatSize, 0x22))
	s.Put(mockBDatOffset, filePayload(mockBDatSize, 0x33))
	s.Put(mockTailOffset, filePayload(mockTailSize, 0x44))

	return s
}

// openTestImage builds the synthetic image and opens an engine on it,
// returning both the engine and a private copy of the pristine bytes.
func openTestImage(t *testing.T) (*gciso.Engine, []byte) {
	t.Helper()
	src := buildTestImage()
	pristine := append([]byte(nil), src.Bytes()...)
	eng, err := gciso.Open(src)
	if err != nil {
		t.Fatalf("Open: %s", err)
	}
	return eng, pristine
}
