package gciso

import (
	"path/filepath"
	"strings"
)

// FileConstructor builds a typed File object from a freshly materialized
// byte stream holding that file's contents.
type FileConstructor func(name string, s ByteStream) (File, error)

// FileFactory dispatches a filename extension (including the leading dot,
// lowercased) to a FileConstructor. Registration is additive: registering
// the same extension twice replaces the previous constructor. A lookup miss
// yields a generic UnknownFile rather than an error.
//
// The core intentionally ships no format-specific constructors: parsing
// individual game file formats (REL, FSYS, ...) is left to the embedding
// application.
type FileFactory struct {
	ctors map[string]FileConstructor
}

// NewFileFactory returns an empty factory; every lookup falls back to UnknownFile.
func NewFileFactory() *FileFactory {
	return &FileFactory{ctors: make(map[string]FileConstructor)}
}

// Register associates ext (e.g. ".dol") with ctor, replacing any prior
// registration for that extension.
func (f *FileFactory) Register(ext string, ctor FileConstructor) {
	f.ctors[strings.ToLower(ext)] = ctor
}

// Read dispatches on name's extension, falling back to UnknownFile when no
// constructor is registered for it.
func (f *FileFactory) Read(name string, s ByteStream) (File, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ctor, ok := f.ctors[ext]; ok {
		return ctor(name, s)
	}
	data, err := s.Get(0, s.Size())
	if err != nil {
		return nil, err
	}
	return NewUnknownFile(name, data), nil
}
