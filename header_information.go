package gciso

// headerInformationSize is the fixed size of the opaque header-information
// block that follows the DiscHeader.
const headerInformationSize = 0x2000

// HeaderInformation is an opaque 0x2000-byte blob immediately following
// DiscHeader. The engine preserves it byte-for-byte; nothing in it is
// interpreted.
type HeaderInformation struct {
	raw []byte
}

// ParseHeaderInformation reads the block starting at discHeaderSize.
func ParseHeaderInformation(s ByteStream) (*HeaderInformation, error) {
	raw, err := s.Get(discHeaderSize, headerInformationSize)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	return &HeaderInformation{raw: raw}, nil
}

// Bytes returns the verbatim block contents.
func (h *HeaderInformation) Bytes() []byte {
	return h.raw
}
