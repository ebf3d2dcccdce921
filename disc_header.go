package gciso

const (
	discHeaderSize = 0x440

	offGameCode   = 0x00
	offCountry    = 0x02
	offMakerID    = 0x03
	offDiskID     = 0x05
	offVersion    = 0x06
	offGameName   = 0x20
	gameNameSpace = 0x3E0
	offDolOffset  = 0x420
	offFSTOffset  = 0x424
	offFSTSize    = 0x428
	offFSTMaxSize = 0x42C
)

// DiscHeader is the fixed 0x440-byte header at the start of every GameCube
// disc image: game identification, the disc name, and the four offsets
// that locate the DOL and FST.
type DiscHeader struct {
	GameCode [2]byte
	Country  byte
	MakerID  [2]byte
	DiskID   byte
	Version  byte
	GameName []byte

	DolOffset  uint32
	FSTOffset  uint32
	FSTSize    uint32
	FSTMaxSize uint32
}

// ParseDiscHeader reads a DiscHeader from the first discHeaderSize bytes of s.
func ParseDiscHeader(s ByteStream) (*DiscHeader, error) {
	if !s.IsValidRange(0, discHeaderSize) {
		return nil, ErrMalformedHeader
	}

	h := &DiscHeader{}

	gc, err := s.Get(offGameCode, 2)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	copy(h.GameCode[:], gc)

	country, err := s.GetU8(offCountry)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.Country = country

	maker, err := s.Get(offMakerID, 2)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	copy(h.MakerID[:], maker)

	diskID, err := s.GetU8(offDiskID)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.DiskID = diskID

	version, err := s.GetU8(offVersion)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.Version = version

	name, err := s.GetCString(offGameName)
	if err != nil || len(name) > gameNameSpace {
		return nil, ErrMalformedHeader
	}
	h.GameName = name

	h.DolOffset, err = s.GetU32BE(offDolOffset)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.FSTOffset, err = s.GetU32BE(offFSTOffset)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.FSTSize, err = s.GetU32BE(offFSTSize)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	h.FSTMaxSize, err = s.GetU32BE(offFSTMaxSize)
	if err != nil {
		return nil, ErrMalformedHeader
	}

	if h.FSTOffset == 0 || h.DolOffset == 0 {
		return nil, ErrMalformedHeader
	}

	return h, nil
}

// Bytes serializes the header back to its on-disc 0x440-byte form.
func (h *DiscHeader) Bytes() []byte {
	buf := NewMemStreamSize(discHeaderSize)
	buf.Put(offGameCode, h.GameCode[:])
	buf.PutU8(offCountry, h.Country)
	buf.Put(offMakerID, h.MakerID[:])
	buf.PutU8(offDiskID, h.DiskID)
	buf.PutU8(offVersion, h.Version)
	buf.PutCString(offGameName, h.GameName)
	buf.PutU32BE(offDolOffset, h.DolOffset)
	buf.PutU32BE(offFSTOffset, h.FSTOffset)
	buf.PutU32BE(offFSTSize, h.FSTSize)
	buf.PutU32BE(offFSTMaxSize, h.FSTMaxSize)
	return buf.Bytes()
}
