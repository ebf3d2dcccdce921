package gciso

import "fmt"

const (
	dolHeaderSize   = 0x100
	dolTextSections = 7
	dolDataSections = 11

	dolTextOffsetBase = 0x00
	dolDataOffsetBase = 0x1C
	dolTextAddrBase   = 0x48
	dolDataAddrBase   = 0x64
	dolTextSizeBase   = 0x90
	dolDataSizeBase   = 0xAC
	dolBSSAddress     = 0xD8
	dolBSSSize        = 0xDC
	dolEntryPoint     = 0xE0
)

// dolSection is one text or data section of the main executable: where its
// payload lives within the DOL (Offset, relative to the DOL start), where it
// loads in memory (LoadAddress), and its byte length.
type dolSection struct {
	Offset      uint32
	LoadAddress uint32
	Size        uint32
	contents    []byte
}

// DOL is the GameCube main executable: a fixed header describing up to 7
// text and 11 data sections, followed by their payloads.
type DOL struct {
	Text [dolTextSections]dolSection
	Data [dolDataSections]dolSection

	BSSAddress uint32
	BSSSize    uint32
	EntryPoint uint32

	loaded bool
}

// ParseDOL reads just the dolHeaderSize-byte header starting at offset o.
// Section payloads are not read; call LoadSectionContents before Bytes().
func ParseDOL(s ByteStream, o int64) (*DOL, error) {
	if !s.IsValidRange(o, dolHeaderSize) {
		return nil, ErrMalformedHeader
	}

	d := &DOL{}
	for i := 0; i < dolTextSections; i++ {
		off, err1 := s.GetU32BE(o + dolTextOffsetBase + int64(i)*4)
		addr, err2 := s.GetU32BE(o + dolTextAddrBase + int64(i)*4)
		size, err3 := s.GetU32BE(o + dolTextSizeBase + int64(i)*4)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ErrMalformedHeader
		}
		d.Text[i] = dolSection{Offset: off, LoadAddress: addr, Size: size}
	}
	for i := 0; i < dolDataSections; i++ {
		off, err1 := s.GetU32BE(o + dolDataOffsetBase + int64(i)*4)
		addr, err2 := s.GetU32BE(o + dolDataAddrBase + int64(i)*4)
		size, err3 := s.GetU32BE(o + dolDataSizeBase + int64(i)*4)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ErrMalformedHeader
		}
		d.Data[i] = dolSection{Offset: off, LoadAddress: addr, Size: size}
	}

	var err error
	d.BSSAddress, err = s.GetU32BE(o + dolBSSAddress)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	d.BSSSize, err = s.GetU32BE(o + dolBSSSize)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	d.EntryPoint, err = s.GetU32BE(o + dolEntryPoint)
	if err != nil {
		return nil, ErrMalformedHeader
	}

	return d, nil
}

// TotalSize returns 0x100 + the sum of all text and data section sizes, the
// full on-disc length of this DOL.
func (d *DOL) TotalSize() uint32 {
	total := uint32(dolHeaderSize)
	for _, t := range d.Text {
		total += t.Size
	}
	for _, v := range d.Data {
		total += v.Size
	}
	return total
}

// LoadSectionContents reads every section's payload from s, where o is the
// offset of this DOL's start within s (section offsets are relative to it).
func (d *DOL) LoadSectionContents(s ByteStream, o int64) error {
	for i := range d.Text {
		sec := &d.Text[i]
		if sec.Size == 0 {
			continue
		}
		data, err := s.Get(o+int64(sec.Offset), int64(sec.Size))
		if err != nil {
			return fmt.Errorf("gciso: loading DOL text section %d: %w", i, err)
		}
		sec.contents = data
	}
	for i := range d.Data {
		sec := &d.Data[i]
		if sec.Size == 0 {
			continue
		}
		data, err := s.Get(o+int64(sec.Offset), int64(sec.Size))
		if err != nil {
			return fmt.Errorf("gciso: loading DOL data section %d: %w", i, err)
		}
		sec.contents = data
	}
	d.loaded = true
	return nil
}

// SectionContentsLoaded reports whether LoadSectionContents has run.
func (d *DOL) SectionContentsLoaded() bool {
	return d.loaded
}

// Bytes serializes the header and, if loaded, every section's payload back
// to their original relative offsets. Re-emitting a parsed DOL whose
// sections were loaded reproduces the original byte sequence verbatim.
func (d *DOL) Bytes() ([]byte, error) {
	if !d.loaded {
		return nil, ErrNotLoaded
	}

	buf := NewMemStreamSize(int64(d.TotalSize()))
	for i, sec := range d.Text {
		buf.PutU32BE(dolTextOffsetBase+int64(i)*4, sec.Offset)
		buf.PutU32BE(dolTextAddrBase+int64(i)*4, sec.LoadAddress)
		buf.PutU32BE(dolTextSizeBase+int64(i)*4, sec.Size)
		if sec.Size > 0 {
			buf.Put(int64(sec.Offset), sec.contents)
		}
	}
	for i, sec := range d.Data {
		buf.PutU32BE(dolDataOffsetBase+int64(i)*4, sec.Offset)
		buf.PutU32BE(dolDataAddrBase+int64(i)*4, sec.LoadAddress)
		buf.PutU32BE(dolDataSizeBase+int64(i)*4, sec.Size)
		if sec.Size > 0 {
			buf.Put(int64(sec.Offset), sec.contents)
		}
	}
	buf.PutU32BE(dolBSSAddress, d.BSSAddress)
	buf.PutU32BE(dolBSSSize, d.BSSSize)
	buf.PutU32BE(dolEntryPoint, d.EntryPoint)

	return buf.Bytes(), nil
}
