//go:build zstd

package gciso

import "github.com/klauspost/compress/zstd"

type zstdService struct{}

func (zstdService) Name() string { return "zstd" }

func (zstdService) Apply(data []byte) ([]byte, error) {
	w, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer w.Close()
	return w.EncodeAll(data, nil), nil
}

func (zstdService) Invert(data []byte) ([]byte, error) {
	r, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return r.DecodeAll(data, nil)
}

func init() {
	builtinCompress = append(builtinCompress, zstdService{})
}
