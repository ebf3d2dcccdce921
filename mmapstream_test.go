package gciso_test

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotobash/gciso"
)

func writeTempFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stream.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("writing temp file: %s", err)
	}
	return path
}

func TestMappedStreamReadOnly(t *testing.T) {
	path := writeTempFile(t, []byte{0, 0, 0, 42, 'o', 'k', 0})

	s, err := gciso.OpenMapped(path, false)
	if err != nil {
		t.Fatalf("OpenMapped: %s", err)
	}
	defer s.Close()

	if s.Size() != 7 {
		t.Errorf("Size = %d, want 7", s.Size())
	}
	v, err := s.GetU32BE(0)
	if err != nil || v != 42 {
		t.Errorf("GetU32BE = %d, %v", v, err)
	}
	cs, err := s.GetCString(4)
	if err != nil || string(cs) != "ok" {
		t.Errorf("GetCString = %q, %v", cs, err)
	}

	// a read-only mapping rejects every mutation
	if err := s.Put(0, []byte{1}); err == nil {
		t.Errorf("Put on read-only mapping succeeded")
	}
	if err := s.Insert(0, []byte{1}); err == nil {
		t.Errorf("Insert on read-only mapping succeeded")
	}
	if err := s.Delete(0, 1); err == nil {
		t.Errorf("Delete on read-only mapping succeeded")
	}
}

func TestMappedStreamWriteThrough(t *testing.T) {
	path := writeTempFile(t, []byte("abcdef"))

	s, err := gciso.OpenMapped(path, true)
	if err != nil {
		t.Fatalf("OpenMapped: %s", err)
	}

	if err := s.Put(2, []byte("XY")); err != nil {
		t.Fatalf("Put: %s", err)
	}
	if err := s.Insert(4, []byte("__")); err != nil {
		t.Fatalf("Insert: %s", err)
	}
	if err := s.Delete(0, 1); err != nil {
		t.Fatalf("Delete: %s", err)
	}
	// grow past the end through Put
	if err := s.Put(9, []byte{0x7F}); err != nil {
		t.Fatalf("Put past end: %s", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}

	// abcdef -> abXYef -> abXY__ef -> bXY__ef -> bXY__ef..0x7F
	want := []byte{'b', 'X', 'Y', '_', '_', 'e', 'f', 0, 0, 0x7F}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading back: %s", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("file contents = %q, want %q", got, want)
	}
}

func TestMappedStreamRangeErrors(t *testing.T) {
	path := writeTempFile(t, []byte("1234"))

	s, err := gciso.OpenMapped(path, true)
	if err != nil {
		t.Fatalf("OpenMapped: %s", err)
	}
	defer s.Close()

	if _, err := s.Get(2, 10); !errors.Is(err, gciso.ErrOutOfRange) {
		t.Errorf("Get past end err = %v, want ErrOutOfRange", err)
	}
	if err := s.Delete(2, 10); !errors.Is(err, gciso.ErrOutOfRange) {
		t.Errorf("Delete past end err = %v, want ErrOutOfRange", err)
	}
	if _, err := s.GetCString(0); !errors.Is(err, gciso.ErrOutOfRange) {
		t.Errorf("GetCString with no terminator err = %v, want ErrOutOfRange", err)
	}
}
