//go:build xz

package gciso

import (
	"bytes"
	"io"

	"github.com/ulikunitz/xz"
)

type xzService struct{}

func (xzService) Name() string { return "xz" }

func (xzService) Apply(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := xz.NewWriter(&out)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func (xzService) Invert(data []byte) ([]byte, error) {
	r, err := xz.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

func init() {
	builtinCompress = append(builtinCompress, xzService{})
}
