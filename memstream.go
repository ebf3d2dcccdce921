package gciso

import "encoding/binary"

// MemStream is a ByteStream backed by a contiguous in-memory buffer. It is
// used for extracted files, freshly built FST blobs, and any target image
// that isn't opened directly against a file descriptor.
type MemStream struct {
	buf []byte
}

var _ ByteStream = (*MemStream)(nil)

// NewMemStream wraps data as a ByteStream. The stream takes ownership of data;
// callers should not mutate it afterward except through the returned stream.
func NewMemStream(data []byte) *MemStream {
	return &MemStream{buf: data}
}

// NewMemStreamSize returns a zero-filled MemStream of the given size.
func NewMemStreamSize(size int64) *MemStream {
	return &MemStream{buf: make([]byte, size)}
}

func (m *MemStream) Size() int64 { return int64(len(m.buf)) }

func (m *MemStream) IsValidRange(o, n int64) bool {
	return validRange(m.Size(), o, n)
}

func (m *MemStream) Get(o, n int64) ([]byte, error) {
	if !m.IsValidRange(o, n) {
		return nil, ErrOutOfRange
	}
	out := make([]byte, n)
	copy(out, m.buf[o:o+n])
	return out, nil
}

func (m *MemStream) GetU8(o int64) (uint8, error) {
	if !m.IsValidRange(o, 1) {
		return 0, ErrOutOfRange
	}
	return m.buf[o], nil
}

func (m *MemStream) GetU32BE(o int64) (uint32, error) {
	if !m.IsValidRange(o, 4) {
		return 0, ErrOutOfRange
	}
	return binary.BigEndian.Uint32(m.buf[o : o+4]), nil
}

func (m *MemStream) GetCString(o int64) ([]byte, error) {
	return getCString(m.buf, o)
}

// grow extends the buffer to at least size bytes, zero-filling the gap.
func (m *MemStream) grow(size int64) {
	if size <= int64(len(m.buf)) {
		return
	}
	grown := make([]byte, size)
	copy(grown, m.buf)
	m.buf = grown
}

func (m *MemStream) Put(o int64, data []byte) error {
	if o < 0 {
		return ErrOutOfRange
	}
	end := o + int64(len(data))
	m.grow(end)
	copy(m.buf[o:end], data)
	return nil
}

func (m *MemStream) PutU8(o int64, v uint8) error {
	return m.Put(o, []byte{v})
}

func (m *MemStream) PutU32BE(o int64, v uint32) error {
	return m.Put(o, encodeU32BE(v))
}

func (m *MemStream) PutCString(o int64, data []byte) error {
	return m.Put(o, encodeCString(data))
}

// Insert performs a single bulk splice: [o, Size()) shifts right by
// len(data), and data is written at o. o > Size() pads the gap with zeros.
func (m *MemStream) Insert(o int64, data []byte) error {
	if o < 0 {
		return ErrOutOfRange
	}
	if o >= int64(len(m.buf)) {
		m.grow(o)
		m.buf = append(m.buf, data...)
		return nil
	}
	out := make([]byte, 0, int64(len(m.buf))+int64(len(data)))
	out = append(out, m.buf[:o]...)
	out = append(out, data...)
	out = append(out, m.buf[o:]...)
	m.buf = out
	return nil
}

func (m *MemStream) Delete(o, n int64) error {
	if !m.IsValidRange(o, n) {
		return ErrOutOfRange
	}
	m.buf = append(m.buf[:o], m.buf[o+n:]...)
	return nil
}

func (m *MemStream) Close() error { return nil }

// Bytes returns the stream's backing buffer directly, without copying.
// Callers must not retain it across further mutation of the stream.
func (m *MemStream) Bytes() []byte { return m.buf }
