package gciso

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	kflate "github.com/klauspost/compress/flate"
)

const (
	sysCodeEntryName     = "SYSCODE"
	systemPatchEntryName = "system.bin.patch"
	patchSuffix          = ".patch"
)

// MakePatch emits a zipped bundle of per-file binary diffs plus a
// system-region diff, computed against the bytes read at Open time. Only
// files with an outstanding edit, or that were replaced or added since
// Open, contribute a member; a pristine engine's patch carries just SYSCODE
// and a system.bin.patch whose delta changes nothing. That member is never
// empty: the delta always records the common prefix and suffix lengths.
func (e *Engine) MakePatch() ([]byte, error) {
	var out bytes.Buffer
	zw := zip.NewWriter(&out)
	// Use klauspost's drop-in flate implementation for this archive's
	// Deflate members.
	zw.RegisterCompressor(zip.Deflate, func(w io.Writer) (io.WriteCloser, error) {
		return kflate.NewWriter(w, kflate.DefaultCompression)
	})

	sw, err := zw.Create(sysCodeEntryName)
	if err != nil {
		return nil, err
	}
	if _, err := sw.Write([]byte{e.sysCode}); err != nil {
		return nil, err
	}

	curSys, err := e.ExtractSystemBlob()
	if err != nil {
		return nil, err
	}
	sysDelta := binDiff(e.pristineSystemBlob, curSys)
	sysw, err := zw.Create(systemPatchEntryName)
	if err != nil {
		return nil, err
	}
	if _, err := sysw.Write(sysDelta); err != nil {
		return nil, err
	}

	for name, pf := range e.pending {
		if name == systemBinName {
			continue
		}

		edited := true
		if et, ok := pf.(editTracker); ok {
			edited = et.Edited()
		}
		if !e.added[name] && !e.replaced[name] && !edited {
			continue
		}

		var pristine []byte
		if !e.added[name] {
			entry, err := e.fst.FindFile(name)
			if err != nil {
				return nil, err
			}
			pristine, err = e.src.Get(int64(entry.DataOffset), int64(entry.DataSize))
			if err != nil {
				return nil, err
			}
		}

		cur, err := pf.Bytes()
		if err != nil {
			return nil, err
		}

		delta := binDiff(pristine, cur)
		fw, err := zw.Create(name + patchSuffix)
		if err != nil {
			return nil, err
		}
		if _, err := fw.Write(delta); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// ApplyPatch replays a bundle produced by MakePatch (against this engine's
// own pristine state or a copy of it) onto the current engine state:
// SYSCODE is checked against the platform tag, system.bin.patch is applied
// and fed through the system.bin replacement path, and every per-file
// *.patch member recovers its new bytes and is replaced (or, if the name
// doesn't yet exist in this engine, added).
func (e *Engine) ApplyPatch(data []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("gciso: opening patch archive: %w: %v", ErrBadPatch, err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return kflate.NewReader(r)
	})

	var sysCode []byte
	var sysDelta []byte
	fileDeltas := make(map[string][]byte)

	for _, zf := range zr.File {
		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("gciso: reading patch member %q: %w: %v", zf.Name, ErrBadPatch, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return fmt.Errorf("gciso: reading patch member %q: %w: %v", zf.Name, ErrBadPatch, err)
		}

		switch {
		case zf.Name == sysCodeEntryName:
			sysCode = content
		case zf.Name == systemPatchEntryName:
			sysDelta = content
		case strings.HasSuffix(zf.Name, patchSuffix):
			fileDeltas[strings.TrimSuffix(zf.Name, patchSuffix)] = content
		}
	}

	if len(sysCode) != 1 {
		return fmt.Errorf("gciso: patch missing SYSCODE: %w", ErrBadPatch)
	}
	if sysCode[0] != e.sysCode {
		return ErrSysCodeMismatch
	}

	if sysDelta != nil {
		curSys, err := e.ExtractSystemBlob()
		if err != nil {
			return err
		}
		newSys, err := binPatch(curSys, sysDelta)
		if err != nil {
			return fmt.Errorf("gciso: applying system.bin.patch: %w", err)
		}
		if err := e.replaceSystemBin(NewUnknownFile(systemBinName, newSys)); err != nil {
			return err
		}
	}

	for name, delta := range fileDeltas {
		cur, existed, err := e.currentBytesOrEmpty(name)
		if err != nil {
			return err
		}
		newBytes, err := binPatch(cur, delta)
		if err != nil {
			return fmt.Errorf("gciso: applying %s%s: %w", name, patchSuffix, err)
		}

		nf := NewUnknownFile(name, newBytes)
		if existed {
			if err := e.ReplaceFile(nf); err != nil {
				return err
			}
		} else {
			if err := e.AddFile(nf, ""); err != nil {
				return err
			}
		}
	}

	return nil
}
