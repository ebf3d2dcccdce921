package gciso

import (
	"errors"
	"fmt"
	"log"
	"os"
)

// SysCodeGameCube is the platform tag a patch archive's SYSCODE member
// carries when it targets a standard GameCube disc image.
const SysCodeGameCube byte = 1

// systemBinName is the synthetic filename extract/replace treat as the
// concatenation of the four system records rather than an FST entry.
const systemBinName = "system.bin"

// Engine is the disc image archive engine. It owns the source
// ByteStream, the parsed system records and FST, and a pending-files map of
// filenames that have been explicitly extracted, replaced, or added since
// Open. A file absent from the pending map is materialized from the source
// stream on demand.
type Engine struct {
	src ByteStream

	header     *DiscHeader
	headerInfo *HeaderInformation
	apploader  *Apploader
	dol        *DOL
	fst        *FST

	pending  map[string]File
	added    map[string]bool // pending names created via AddFile (no pristine counterpart)
	replaced map[string]bool // pending names swapped wholesale via ReplaceFile

	pristineSystemBlob []byte

	maxImageSize int64
	sysCode      byte
	factory      *FileFactory
	compress     *TransformRegistry
	encrypt      *TransformRegistry
	progress     ProgressFunc
}

// Open parses the system region and FST out of src and returns a ready
// Engine. src is retained as the read-only view files are lazily
// materialized from until they're explicitly extracted or replaced.
func Open(src ByteStream, opts ...EngineOption) (*Engine, error) {
	header, err := ParseDiscHeader(src)
	if err != nil {
		return nil, fmt.Errorf("gciso: parsing disc header: %w", err)
	}

	headerInfo, err := ParseHeaderInformation(src)
	if err != nil {
		return nil, fmt.Errorf("gciso: parsing header information: %w", err)
	}

	apploader, err := ParseApploader(src, header)
	if err != nil {
		return nil, fmt.Errorf("gciso: parsing apploader: %w", err)
	}

	dol, err := ParseDOL(src, int64(header.DolOffset))
	if err != nil {
		return nil, fmt.Errorf("gciso: parsing DOL header: %w", err)
	}
	if err := dol.LoadSectionContents(src, int64(header.DolOffset)); err != nil {
		return nil, fmt.Errorf("gciso: loading DOL sections: %w", err)
	}

	if !src.IsValidRange(int64(header.FSTOffset), int64(header.FSTSize)) {
		return nil, fmt.Errorf("gciso: FST region out of range: %w", ErrMalformedFST)
	}
	fstBin, err := src.Get(int64(header.FSTOffset), int64(header.FSTSize))
	if err != nil {
		return nil, fmt.Errorf("gciso: reading FST: %w", err)
	}
	fst, err := ParseFST(NewMemStream(fstBin))
	if err != nil {
		return nil, fmt.Errorf("gciso: parsing FST: %w", err)
	}

	log.Printf("gciso: opened image, %d FST entries, FST at 0x%x (%d bytes)", fst.EntryCount(), header.FSTOffset, header.FSTSize)

	e := &Engine{
		src:          src,
		header:       header,
		headerInfo:   headerInfo,
		apploader:    apploader,
		dol:          dol,
		fst:          fst,
		pending:      make(map[string]File),
		added:        make(map[string]bool),
		replaced:     make(map[string]bool),
		maxImageSize: MaxDiscSize,
		sysCode:      SysCodeGameCube,
		factory:      NewFileFactory(),
		compress:     NewCompressRegistry(),
		encrypt:      NewEncryptRegistry(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	blob, err := e.ExtractSystemBlob()
	if err != nil {
		return nil, err
	}
	e.pristineSystemBlob = blob

	return e, nil
}

// OpenPath maps the file at path (writable if the caller intends to rebuild
// in place) and opens an Engine against it.
func OpenPath(path string, writable bool, opts ...EngineOption) (*Engine, error) {
	src, err := OpenMapped(path, writable)
	if err != nil {
		return nil, err
	}
	e, err := Open(src, opts...)
	if err != nil {
		src.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the Engine's owned records and, last, the source stream.
func (e *Engine) Close() error {
	return e.src.Close()
}

// FileList returns every filename in the FST in pre-order.
func (e *Engine) FileList() []string {
	files := e.fst.ListFiles()
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Name
	}
	return out
}

// ExtractSystemBlob returns a single buffer concatenating the disc header,
// header information, apploader, and DOL bytes, in that order.
func (e *Engine) ExtractSystemBlob() ([]byte, error) {
	dolBytes, err := e.dol.Bytes()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, discHeaderSize+headerInformationSize+len(e.apploader.Bytes())+len(dolBytes))
	out = append(out, e.header.Bytes()...)
	out = append(out, e.headerInfo.Bytes()...)
	out = append(out, e.apploader.Bytes()...)
	out = append(out, dolBytes...)
	return out, nil
}

// Extract returns the typed file object for name, dispatched through the
// engine's FileFactory. The result is retained in the pending map: once
// extracted, a file is "pending" until Build materializes it, even if it's
// never mutated. The synthetic name "system.bin" returns the same
// concatenation ExtractSystemBlob produces.
func (e *Engine) Extract(name string) (File, error) {
	if pf, ok := e.pending[name]; ok {
		return pf, nil
	}

	if name == systemBinName {
		blob, err := e.ExtractSystemBlob()
		if err != nil {
			return nil, err
		}
		f := NewUnknownFile(name, blob)
		e.pending[name] = f
		return f, nil
	}

	entry, err := e.fst.FindFile(name)
	if err != nil {
		return nil, err
	}
	data, err := e.src.Get(int64(entry.DataOffset), int64(entry.DataSize))
	if err != nil {
		return nil, fmt.Errorf("gciso: extracting %q: %w", name, err)
	}
	f, err := e.factory.Read(name, NewMemStream(data))
	if err != nil {
		return nil, err
	}
	e.pending[name] = f
	return f, nil
}

// syncFSTSize mirrors the FST's current serialized length into the disc
// header so a Build started immediately after AddFile/DeleteFile writes a
// header consistent with the FST it's about to emit. FSTMaxSize only ever
// grows: it tracks the largest the table has been, not its current size.
func (e *Engine) syncFSTSize() {
	size := uint32(len(e.fst.Bytes()))
	e.header.FSTSize = size
	if size > e.header.FSTMaxSize {
		e.header.FSTMaxSize = size
	}
}

// AddFile inserts file into the FST under parentDir (root if empty),
// placing its data at end-of-image or in the first sufficient interior gap.
// The file becomes pending with file's current bytes as its contents.
func (e *Engine) AddFile(file File, parentDir string) error {
	parent := e.fst.Root()
	if parentDir != "" {
		p, err := e.fst.FindDirectory(parentDir)
		if err != nil {
			return fmt.Errorf("gciso: add %q: parent %q: %w", file.Name(), parentDir, err)
		}
		parent = p
	}

	name := file.Name()
	if e.fst.HasChildNamed(parent, name) {
		return fmt.Errorf("gciso: add %q: %w", name, ErrDuplicateName)
	}

	data, err := file.Bytes()
	if err != nil {
		return err
	}

	if _, err := e.fst.AddFile(name, uint32(len(data)), parent, e.SystemSize(), e.maxImageSize); err != nil {
		return fmt.Errorf("gciso: add %q: %w", name, err)
	}

	e.syncFSTSize()
	e.pending[name] = file
	e.added[name] = true
	return nil
}

// ReplaceFile stages file as the new contents for its FST entry. The
// special name "system.bin" instead re-parses the system region (disc
// header, header information, apploader, DOL) from file's bytes.
func (e *Engine) ReplaceFile(file File) error {
	name := file.Name()
	if name == systemBinName {
		return e.replaceSystemBin(file)
	}

	if _, err := e.fst.FindFile(name); err != nil {
		return fmt.Errorf("gciso: replace %q: %w", name, err)
	}
	e.pending[name] = file
	e.replaced[name] = true
	return nil
}

// replaceSystemBin decomposes file's bytes back into the four system
// records. The first discHeaderSize+headerInformationSize bytes line up
// with the fixed header/header-information layout regardless of disc
// offsets; the apploader/DOL split is derived from the re-parsed header's
// own DolOffset/FSTOffset fields, exactly as ParseApploader does for a live
// disc image.
func (e *Engine) replaceSystemBin(file File) error {
	raw, err := file.Bytes()
	if err != nil {
		return err
	}
	buf := NewMemStream(append([]byte(nil), raw...))

	newHeader, err := ParseDiscHeader(buf)
	if err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}
	newInfo, err := ParseHeaderInformation(buf)
	if err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}

	end := apploaderEnd(newHeader)
	if int64(end) < apploaderStart {
		return fmt.Errorf("gciso: replacing system.bin: %w", ErrMalformedHeader)
	}
	apploaderLen := int64(end) - apploaderStart
	apploaderRaw, err := buf.Get(apploaderStart, apploaderLen)
	if err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}

	dolStart := apploaderStart + apploaderLen
	dolLen := buf.Size() - dolStart
	if dolLen < 0 {
		return fmt.Errorf("gciso: replacing system.bin: %w", ErrMalformedHeader)
	}
	dolBytes, err := buf.Get(dolStart, dolLen)
	if err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}
	dolBuf := NewMemStream(dolBytes)
	newDOL, err := ParseDOL(dolBuf, 0)
	if err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}
	if err := newDOL.LoadSectionContents(dolBuf, 0); err != nil {
		return fmt.Errorf("gciso: replacing system.bin: %w", err)
	}

	e.header = newHeader
	e.headerInfo = newInfo
	e.apploader = &Apploader{raw: apploaderRaw}
	e.dol = newDOL
	delete(e.pending, systemBinName)
	return nil
}

// DeleteFile removes file's FST entry and any pending copy. The freed data
// region is not reclaimed until the data is defragmented: by an explicit
// Defragment call, or inside Build when a pending file has grown.
func (e *Engine) DeleteFile(file File) error {
	name := file.Name()
	entry, err := e.fst.FindFile(name)
	if err != nil {
		return fmt.Errorf("gciso: delete %q: %w", name, err)
	}
	if err := e.fst.RemoveFile(entry); err != nil {
		return fmt.Errorf("gciso: delete %q: %w", name, err)
	}
	e.syncFSTSize()
	delete(e.pending, name)
	delete(e.added, name)
	delete(e.replaced, name)
	return nil
}

// FST returns the engine's parsed file-system table. Callers may traverse
// it (FileList, Children, Path) but must route mutations through the engine.
func (e *Engine) FST() *FST { return e.fst }

// CompressRegistry returns the compression transforms this engine owns.
// File-object constructors resolve named codecs here rather than through
// any process-wide state.
func (e *Engine) CompressRegistry() *TransformRegistry { return e.compress }

// EncryptRegistry returns the encryption transforms this engine owns.
func (e *Engine) EncryptRegistry() *TransformRegistry { return e.encrypt }

// Defragment reassigns every file's data offset so adjacent files touch
// modulo 2048-byte alignment, packed immediately after the system region.
// Every file not already pending is materialized from the source stream
// first: once offsets move, the source positions they were read from are
// gone.
func (e *Engine) Defragment() error {
	for _, entry := range e.fst.ListFiles() {
		if _, ok := e.pending[entry.Name]; ok {
			continue
		}
		data, err := e.src.Get(int64(entry.DataOffset), int64(entry.DataSize))
		if err != nil {
			return fmt.Errorf("gciso: materializing %q before defragment: %w", entry.Name, err)
		}
		f, err := e.factory.Read(entry.Name, NewMemStream(data))
		if err != nil {
			return err
		}
		e.pending[entry.Name] = f
	}
	e.fst.Defragment(e.SystemSize())
	return nil
}

// SystemSize returns the byte count of the system region (disc header
// through the FST and DOL, whichever ends later) rounded up to 2048.
func (e *Engine) SystemSize() int64 {
	total := int64(e.header.FSTOffset) + int64(len(e.fst.Bytes()))
	if dolEnd := int64(e.header.DolOffset) + int64(e.dol.TotalSize()); dolEnd > total {
		total = dolEnd
	}
	return total + AlignPadding(total, DefaultAlign)
}

// ArchiveSize returns the byte count of the whole logical image (system
// region plus every file's current data range) rounded up to 2048.
func (e *Engine) ArchiveSize() int64 {
	total := e.SystemSize()
	for _, entry := range e.fst.ListFiles() {
		end := int64(entry.DataOffset) + int64(entry.DataSize)
		if end > total {
			total = end
		}
	}
	return total + AlignPadding(total, DefaultAlign)
}

// Build serializes the full image into target, which must be at least
// ArchiveSize() bytes writable. Every referenced file (pending or not) is
// materialized before any byte is written, so the source stream may safely
// alias target for an in-place rebuild.
func (e *Engine) Build(target ByteStream) error {
	files := e.fst.ListFiles()

	payloads := make(map[uint32][]byte, len(files))
	for _, entry := range files {
		if pf, ok := e.pending[entry.Name]; ok {
			data, err := pf.Bytes()
			if err != nil {
				return fmt.Errorf("gciso: materializing %q: %w", entry.Name, err)
			}
			payloads[entry.Index] = data
			continue
		}
		data, err := e.src.Get(int64(entry.DataOffset), int64(entry.DataSize))
		if err != nil {
			return fmt.Errorf("gciso: reading %q from source: %w", entry.Name, err)
		}
		payloads[entry.Index] = data
	}

	e.reportProgress("system", 0, 1)
	dolBytes, err := e.dol.Bytes()
	if err != nil {
		return err
	}
	if err := target.Put(0, e.header.Bytes()); err != nil {
		return err
	}
	if err := target.Put(discHeaderSize, e.headerInfo.Bytes()); err != nil {
		return err
	}
	if err := target.Put(apploaderStart, e.apploader.Bytes()); err != nil {
		return err
	}
	if err := target.Put(int64(e.header.DolOffset), dolBytes); err != nil {
		return err
	}
	e.reportProgress("system", 1, 1)

	layoutChanged := false
	for _, entry := range files {
		newSize := int64(len(payloads[entry.Index]))
		if newSize > int64(entry.DataSize) {
			entry.DataSize = uint32(newSize + AlignPadding(newSize, DefaultAlign))
			layoutChanged = true
		}
	}

	if layoutChanged {
		log.Printf("gciso: layout changed, defragmenting from 0x%x", e.SystemSize())
		e.fst.Defragment(e.SystemSize())
		e.fst.UpdateOffsets()
		if total := e.ArchiveSize(); total > e.maxImageSize {
			return fmt.Errorf("gciso: rebuilt image would be %d bytes: %w", total, ErrNoSpace)
		}
	}

	fstBytes := e.fst.Bytes()
	padded := make([]byte, int64(len(fstBytes))+AlignPadding(int64(len(fstBytes)), DefaultAlign))
	copy(padded, fstBytes)
	e.reportProgress("fst", 0, 1)
	if err := target.Put(int64(e.header.FSTOffset), padded); err != nil {
		return err
	}
	e.reportProgress("fst", 1, 1)

	ordered := e.fst.sortedFilesByOffset()
	total := len(ordered)
	for i, entry := range ordered {
		if err := target.Put(int64(entry.DataOffset), payloads[entry.Index]); err != nil {
			return fmt.Errorf("gciso: writing %q: %w", entry.Name, err)
		}
		e.reportProgress("write", i+1, total)
	}

	return nil
}

// SaveToPath builds the image into a fresh in-memory buffer and writes it
// to path as a new file.
func (e *Engine) SaveToPath(path string) error {
	target := NewMemStreamSize(e.ArchiveSize())
	if err := e.Build(target); err != nil {
		return err
	}
	if err := os.WriteFile(path, target.Bytes(), 0o644); err != nil {
		return fmt.Errorf("gciso: saving %q: %w", path, err)
	}
	return nil
}

// currentBytesOrEmpty returns name's current bytes (via Extract) and
// whether it exists at all in this engine. Used by the patch codec to
// distinguish "modify an existing file" from "apply a brand-new add".
func (e *Engine) currentBytesOrEmpty(name string) ([]byte, bool, error) {
	f, err := e.Extract(name)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}
