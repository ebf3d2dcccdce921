package gciso

// apploaderStart is the fixed byte offset where the apploader begins.
const apploaderStart = 0x2440

// Apploader is the opaque boot-time loader blob between HeaderInformation
// and the main executable. The engine preserves it byte-for-byte; its end
// is derived from whichever of DolOffset/FSTOffset comes first, since on
// some discs the FST is laid out ahead of the DOL.
type Apploader struct {
	raw []byte
}

// apploaderEnd computes where the apploader blob ends given the two
// candidate boundaries recorded in the disc header.
func apploaderEnd(h *DiscHeader) uint32 {
	if h.FSTOffset < h.DolOffset {
		return h.FSTOffset
	}
	return h.DolOffset
}

// ParseApploader reads the apploader blob using the disc header to find its end.
func ParseApploader(s ByteStream, h *DiscHeader) (*Apploader, error) {
	end := apploaderEnd(h)
	if end < apploaderStart {
		return nil, ErrMalformedHeader
	}
	raw, err := s.Get(apploaderStart, int64(end)-apploaderStart)
	if err != nil {
		return nil, ErrMalformedHeader
	}
	return &Apploader{raw: raw}, nil
}

// Bytes returns the verbatim apploader contents.
func (a *Apploader) Bytes() []byte {
	return a.raw
}
