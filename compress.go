package gciso

import (
	"bytes"
	"fmt"
	"io"

	kflate "github.com/klauspost/compress/flate"
)

// TransformService is a named, invertible byte-stream transform consumed by
// file objects: compression and encryption are both modeled this
// way, and the core itself never calls one directly. Apply/Invert operate
// on whole buffers rather than ByteStream directly since most transforms
// (flate, xz, zstd) are naturally stream-to-stream codecs, not random
// access ones.
type TransformService interface {
	Name() string
	Apply(data []byte) ([]byte, error)
	Invert(data []byte) ([]byte, error)
}

// TransformRegistry maps a transform name to its implementation. It is a
// plain value owned by whoever constructed it (the engine holds one for
// compression and one for encryption); nothing is registered process-wide,
// so no test or embedding application depends on another's registrations.
type TransformRegistry struct {
	services map[string]TransformService
}

// NewTransformRegistry returns a registry holding the given transforms.
func NewTransformRegistry(svcs ...TransformService) *TransformRegistry {
	r := &TransformRegistry{services: make(map[string]TransformService, len(svcs))}
	for _, svc := range svcs {
		r.Register(svc)
	}
	return r
}

// Register adds (or replaces) a named transform.
func (r *TransformRegistry) Register(svc TransformService) {
	r.services[svc.Name()] = svc
}

// Lookup returns the transform registered under name.
func (r *TransformRegistry) Lookup(name string) (TransformService, bool) {
	svc, ok := r.services[name]
	return svc, ok
}

// builtinCompress lists the compression transforms compiled into this
// binary: flate always, xz and zstd when their build tags are on. It is a
// build manifest, not a registry: only NewCompressRegistry reads it, and
// nothing mutates it after program init.
var builtinCompress = []TransformService{flateService{}}

// NewCompressRegistry returns a fresh registry preloaded with every
// compression transform built into this binary.
func NewCompressRegistry() *TransformRegistry {
	return NewTransformRegistry(builtinCompress...)
}

type flateService struct{}

func (flateService) Name() string { return "flate" }

func (flateService) Apply(data []byte) ([]byte, error) {
	var out bytes.Buffer
	w, err := kflate.NewWriter(&out, kflate.DefaultCompression)
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

func (flateService) Invert(data []byte) ([]byte, error) {
	r := kflate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gciso: inflating: %w", err)
	}
	return out, nil
}
