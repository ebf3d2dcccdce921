package gciso

import (
	"encoding/binary"
	"log"
	"os"
)

// MappedStream is a ByteStream backed by a memory mapping of an open file.
// Writes go through to the mapping directly; Insert/Delete/grow resize the
// underlying file and remap it. This is the only backing that is
// concurrency-sensitive (see the package doc): once a rebuild
// has started writing to a MappedStream that aliases the source image,
// nothing may lazily extract from it any longer.
type MappedStream struct {
	f        *os.File
	data     []byte
	size     int64
	writable bool
}

var _ ByteStream = (*MappedStream)(nil)

// OpenMapped maps the file at path. When writable is false the mapping is
// read-only and any Put/Insert/Delete call fails with ErrOutOfRange.
func OpenMapped(path string, writable bool) (*MappedStream, error) {
	flag := os.O_RDONLY
	if writable {
		flag = os.O_RDWR
	}
	f, err := os.OpenFile(path, flag, 0)
	if err != nil {
		return nil, err
	}
	return newMappedStream(f, writable)
}

func newMappedStream(f *os.File, writable bool) (*MappedStream, error) {
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	m := &MappedStream{f: f, size: st.Size(), writable: writable}
	if m.size > 0 {
		log.Printf("gciso: mapping %d bytes of %s", m.size, f.Name())
		data, err := mmapRegion(f, m.size, writable)
		if err != nil {
			f.Close()
			return nil, err
		}
		m.data = data
	}
	return m, nil
}

func (m *MappedStream) Size() int64 { return m.size }

func (m *MappedStream) IsValidRange(o, n int64) bool {
	return validRange(m.size, o, n)
}

func (m *MappedStream) Get(o, n int64) ([]byte, error) {
	if !m.IsValidRange(o, n) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	copy(out, m.data[o:o+n])
	return out, nil
}

func (m *MappedStream) GetU8(o int64) (uint8, error) {
	if !m.IsValidRange(o, 1) {
		return 0, ErrOutOfRange
	}
	return m.data[o], nil
}

func (m *MappedStream) GetU32BE(o int64) (uint32, error) {
	if !m.IsValidRange(o, 4) {
		return 0, ErrOutOfRange
	}
	return binary.BigEndian.Uint32(m.data[o : o+4]), nil
}

func (m *MappedStream) GetCString(o int64) ([]byte, error) {
	return getCString(m.data, o)
}

// remap unmaps the current region (if any), resizes the file to newSize and
// remaps it. Bytes in [0, min(old,new)) are preserved; growth zero-fills.
func (m *MappedStream) remap(newSize int64) error {
	if m.data != nil {
		if err := munmapRegion(m.data); err != nil {
			return err
		}
		m.data = nil
	}
	if err := m.f.Truncate(newSize); err != nil {
		return err
	}
	m.size = newSize
	if newSize > 0 {
		data, err := mmapRegion(m.f, newSize, m.writable)
		if err != nil {
			return err
		}
		m.data = data
	}
	return nil
}

func (m *MappedStream) Put(o int64, data []byte) error {
	if !m.writable {
		return ErrOutOfRange
	}
	if o < 0 {
		return ErrOutOfRange
	}
	end := o + int64(len(data))
	if end > m.size {
		if err := m.remap(end); err != nil {
			return err
		}
	}
	copy(m.data[o:end], data)
	return syncRegion(m.f, m.data)
}

func (m *MappedStream) PutU8(o int64, v uint8) error {
	return m.Put(o, []byte{v})
}

func (m *MappedStream) PutU32BE(o int64, v uint32) error {
	return m.Put(o, encodeU32BE(v))
}

func (m *MappedStream) PutCString(o int64, data []byte) error {
	return m.Put(o, encodeCString(data))
}

func (m *MappedStream) Insert(o int64, data []byte) error {
	if !m.writable {
		return ErrOutOfRange
	}
	if o < 0 {
		return ErrOutOfRange
	}
	old := m.size
	if o >= old {
		// gap: remap grows the file with zero fill, then write data at o.
		if err := m.remap(o + int64(len(data))); err != nil {
			return err
		}
		copy(m.data[o:], data)
		return syncRegion(m.f, m.data)
	}

	newSize := old + int64(len(data))
	if err := m.remap(newSize); err != nil {
		return err
	}
	// shift [o, old) right by len(data); copy() handles the overlap like memmove.
	copy(m.data[o+int64(len(data)):newSize], m.data[o:old])
	copy(m.data[o:o+int64(len(data))], data)
	return syncRegion(m.f, m.data)
}

func (m *MappedStream) Delete(o, n int64) error {
	if !m.writable {
		return ErrOutOfRange
	}
	if !m.IsValidRange(o, n) {
		return ErrOutOfRange
	}
	old := m.size
	tailStart := o + n
	tailLen := old - tailStart
	copy(m.data[o:o+tailLen], m.data[tailStart:old])
	// flush the shifted-but-not-yet-truncated buffer before remap shrinks and
	// re-reads the file: on the non-mmap fallback, remap's re-read would
	// otherwise observe the stale pre-shift bytes.
	if err := syncRegion(m.f, m.data); err != nil {
		return err
	}
	return m.remap(old - n)
}

func (m *MappedStream) Close() error {
	var err error
	if m.data != nil {
		err = munmapRegion(m.data)
		m.data = nil
	}
	cerr := m.f.Close()
	if err == nil {
		err = cerr
	}
	return err
}
