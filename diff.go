package gciso

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// The patch codec needs a content-preserving diff/patch pair. This one
// isn't a minimal edit script: it trims the common prefix and suffix
// between the two buffers and stores the (possibly large) differing middle
// verbatim. That's enough to satisfy diff(a,b) -> d, patch(a,d) -> b
// exactly, which is all the codec needs of the delta format.
//
// Wire format: varint(prefixLen), varint(suffixLen), varint(middleLen), middle bytes.

func binDiff(a, b []byte) []byte {
	prefix := commonPrefixLen(a, b)
	suffix := commonSuffixLen(a[prefix:], b[prefix:])

	middle := b[prefix : len(b)-suffix]

	var buf bytes.Buffer
	putUvarint(&buf, uint64(prefix))
	putUvarint(&buf, uint64(suffix))
	putUvarint(&buf, uint64(len(middle)))
	buf.Write(middle)
	return buf.Bytes()
}

func binPatch(a, delta []byte) ([]byte, error) {
	r := bytes.NewReader(delta)

	prefix, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("gciso: reading patch prefix length: %w", err)
	}
	suffix, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("gciso: reading patch suffix length: %w", err)
	}
	middleLen, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, fmt.Errorf("gciso: reading patch middle length: %w", err)
	}

	middle := make([]byte, middleLen)
	if _, err := io.ReadFull(r, middle); err != nil {
		return nil, fmt.Errorf("gciso: reading patch middle: %w", err)
	}

	if int64(prefix)+int64(suffix) > int64(len(a)) {
		return nil, fmt.Errorf("gciso: patch prefix/suffix exceed source length: %w", ErrBadPatch)
	}

	out := make([]byte, 0, int(prefix)+len(middle)+int(suffix))
	out = append(out, a[:prefix]...)
	out = append(out, middle...)
	out = append(out, a[int64(len(a))-int64(suffix):]...)
	return out, nil
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func commonSuffixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[len(a)-1-i] == b[len(b)-1-i] {
		i++
	}
	return i
}

func putUvarint(buf *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	buf.Write(tmp[:n])
}
