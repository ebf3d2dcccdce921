package gciso

import (
	"math"
	"sort"
	"strings"
)

const (
	fstEntrySize        = 12
	fstEntryCountOffset = 8

	// MaxDiscSize is the total size of a standard GameCube disc image.
	// add_file refuses to place a file past this boundary unless the
	// caller has explicitly opted into a larger image.
	MaxDiscSize int64 = 1459978240
)

// FSTEntry is one node of the parsed file-system table: either a file (leaf)
// or a directory. Index reflects this entry's position in the pre-order
// traversal of the tree; it is also this entry's position in the FST's
// 12-byte entry array.
type FSTEntry struct {
	Index      uint32
	Name       string
	NameOffset uint32
	IsDir      bool

	// Valid when IsDir is false.
	DataOffset uint32
	DataSize   uint32

	// ParentIndex is set for files and directories alike: the index of
	// the containing directory (always a strictly earlier index). The
	// root directory (Index 0) has no meaningful ParentIndex. NextIndex is
	// valid when IsDir is true: one past the last entry in this
	// directory's subtree.
	ParentIndex uint32
	NextIndex   uint32
}

// FST is the in-memory directory tree parsed from (or destined for) a
// GameCube fst.bin. Entries are always kept in pre-order / index order:
// entries[i].Index == i.
type FST struct {
	entries        []*FSTEntry
	stringTableLen uint32
}

// ParseFST parses an FST from its binary form (entries followed by the
// packed string table).
func ParseFST(bin ByteStream) (*FST, error) {
	count, err := bin.GetU32BE(fstEntryCountOffset)
	if err != nil {
		return nil, ErrMalformedFST
	}
	if count == 0 {
		return nil, ErrMalformedFST
	}

	stringTableStart := int64(count) * fstEntrySize
	if stringTableStart > bin.Size() {
		return nil, ErrMalformedFST
	}
	stringTableLen := bin.Size() - stringTableStart

	entries := make([]*FSTEntry, count)
	root := &FSTEntry{Index: 0, IsDir: true, NextIndex: count}
	entries[0] = root

	// dirStack holds the chain of directories currently open (i.e. whose
	// subtree we're still inside), root always at the bottom.
	dirStack := []*FSTEntry{root}

	for idx := uint32(1); idx < count; idx++ {
		for len(dirStack) > 1 && idx >= dirStack[len(dirStack)-1].NextIndex {
			dirStack = dirStack[:len(dirStack)-1]
		}
		parent := dirStack[len(dirStack)-1]

		off := int64(idx) * fstEntrySize
		word0, err := bin.GetU32BE(off)
		if err != nil {
			return nil, ErrMalformedFST
		}
		isDir := (word0 >> 24) != 0
		nameOffset := word0 & 0x00FFFFFF
		if int64(nameOffset) >= stringTableLen {
			return nil, ErrMalformedFST
		}

		name, err := bin.GetCString(stringTableStart + int64(nameOffset))
		if err != nil {
			return nil, ErrMalformedFST
		}

		entry := &FSTEntry{
			Index:      idx,
			Name:       string(name),
			NameOffset: nameOffset,
			IsDir:      isDir,
		}

		if isDir {
			parentIdx, err1 := bin.GetU32BE(off + 4)
			nextIdx, err2 := bin.GetU32BE(off + 8)
			if err1 != nil || err2 != nil {
				return nil, ErrMalformedFST
			}
			if parentIdx >= idx || nextIdx <= idx || nextIdx > count {
				return nil, ErrMalformedFST
			}
			entry.ParentIndex = parentIdx
			entry.NextIndex = nextIdx
			dirStack = append(dirStack, entry)
		} else {
			dataOffset, err1 := bin.GetU32BE(off + 4)
			dataSize, err2 := bin.GetU32BE(off + 8)
			if err1 != nil || err2 != nil {
				return nil, ErrMalformedFST
			}
			entry.DataOffset = dataOffset
			entry.DataSize = dataSize
			entry.ParentIndex = parent.Index
		}

		entries[idx] = entry
	}

	return &FST{entries: entries, stringTableLen: uint32(stringTableLen)}, nil
}

// Root returns the FST's root directory entry (always index 0).
func (f *FST) Root() *FSTEntry { return f.entries[0] }

// EntryCount returns the total number of entries, including the root.
func (f *FST) EntryCount() int { return len(f.entries) }

// ListAll returns every non-root entry in pre-order.
func (f *FST) ListAll() []*FSTEntry {
	return append([]*FSTEntry(nil), f.entries[1:]...)
}

// ListFiles returns every file entry in pre-order.
func (f *FST) ListFiles() []*FSTEntry {
	var out []*FSTEntry
	for _, e := range f.entries[1:] {
		if !e.IsDir {
			out = append(out, e)
		}
	}
	return out
}

// ListDirectories returns every non-root directory entry in pre-order.
func (f *FST) ListDirectories() []*FSTEntry {
	var out []*FSTEntry
	for _, e := range f.entries[1:] {
		if e.IsDir {
			out = append(out, e)
		}
	}
	return out
}

// FindFile does a depth-first (= pre-order), first-match search for a file by name.
func (f *FST) FindFile(name string) (*FSTEntry, error) {
	for _, e := range f.entries[1:] {
		if !e.IsDir && e.Name == name {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// FindDirectory does a depth-first, first-match search for a directory by name.
func (f *FST) FindDirectory(name string) (*FSTEntry, error) {
	for _, e := range f.entries[1:] {
		if e.IsDir && e.Name == name {
			return e, nil
		}
	}
	return nil, ErrNotFound
}

// Path returns e's slash-separated path from the root; the root itself is "".
func (f *FST) Path(e *FSTEntry) string {
	if e.Index == 0 {
		return ""
	}
	parts := []string{e.Name}
	for p := f.entries[e.ParentIndex]; p.Index != 0; p = f.entries[p.ParentIndex] {
		parts = append(parts, p.Name)
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "/")
}

// sortedFilesByOffset returns every file entry sorted ascending by DataOffset.
func (f *FST) sortedFilesByOffset() []*FSTEntry {
	files := f.ListFiles()
	sort.Slice(files, func(i, j int) bool { return files[i].DataOffset < files[j].DataOffset })
	return files
}

// Children returns dir's immediate children (files and directories) in
// pre-order, excluding deeper descendants.
func (f *FST) Children(dir *FSTEntry) []*FSTEntry {
	if dir == nil {
		dir = f.Root()
	}
	var out []*FSTEntry
	for _, e := range f.entries[1:] {
		if e.ParentIndex == dir.Index {
			out = append(out, e)
		}
	}
	return out
}

// HasChildNamed reports whether dir already has an immediate child (file or
// directory) with the given name.
func (f *FST) HasChildNamed(dir *FSTEntry, name string) bool {
	for _, e := range f.Children(dir) {
		if e.Name == name {
			return true
		}
	}
	return false
}

// AddFile places a new file of the given size under parent (root if nil),
// choosing end-of-image placement when it fits within maxImageSize,
// otherwise the first interior gap large enough to hold it.
func (f *FST) AddFile(name string, size uint32, parent *FSTEntry, systemSize, maxImageSize int64) (*FSTEntry, error) {
	if parent == nil {
		parent = f.Root()
	}
	if uint64(len(f.entries))+1 > math.MaxUint32 {
		return nil, ErrIndexOverflow
	}

	files := f.sortedFilesByOffset()

	var target int64 = -1
	if len(files) == 0 {
		target = systemSize
	} else {
		var maxEnd int64
		for _, file := range files {
			end := int64(file.DataOffset) + int64(file.DataSize)
			if end > maxEnd {
				maxEnd = end
			}
		}
		maxEnd += AlignPadding(maxEnd, DefaultAlign)
		if maxEnd+int64(size) <= maxImageSize {
			target = maxEnd
		} else {
			for i := 0; i < len(files)-1; i++ {
				cur, next := files[i], files[i+1]
				curEnd := int64(cur.DataOffset) + int64(cur.DataSize)
				gap := int64(next.DataOffset) - curEnd
				if gap >= int64(size) {
					target = curEnd
					break
				}
			}
		}
	}
	if target < 0 {
		return nil, ErrNoSpace
	}

	ins := parent.NextIndex

	// Widen the ancestor chain of the new entry: parent, parent's parent,
	// up to and including root. An interval test on NextIndex can't do this
	// correctly, since a sibling subtree ending exactly at ins would match.
	for p := parent; ; {
		p.NextIndex++
		if p.Index == 0 {
			break
		}
		p = f.entries[p.ParentIndex]
	}
	// Shift every entry at or past the insertion point up by one, fixing
	// stored parent references along the way. Directories past the insertion
	// point reference only entries that also shift, so their NextIndex moves
	// with them.
	for _, e := range f.entries {
		if e.Index >= ins {
			e.Index++
			if e.IsDir {
				e.NextIndex++
			}
		}
		if e.ParentIndex >= ins {
			e.ParentIndex++
		}
	}

	entry := &FSTEntry{
		Index:       ins,
		Name:        name,
		NameOffset:  f.stringTableLen,
		IsDir:       false,
		DataOffset:  uint32(target),
		DataSize:    size,
		ParentIndex: parent.Index,
	}

	out := make([]*FSTEntry, 0, len(f.entries)+1)
	out = append(out, f.entries[:ins]...)
	out = append(out, entry)
	out = append(out, f.entries[ins:]...)
	f.entries = out

	f.stringTableLen += uint32(len(name)) + 1

	return entry, nil
}

// RemoveFile deletes entry from the tree, compacting indices and narrowing
// containing directories' NextIndex. The freed data-region gap is not
// reclaimed until Defragment runs.
func (f *FST) RemoveFile(entry *FSTEntry) error {
	ins := entry.Index

	found := false
	for _, e := range f.entries {
		if e == entry {
			found = true
			break
		}
	}
	if !found {
		return ErrNotFound
	}

	for _, e := range f.entries {
		if e.IsDir && e.Index < ins && ins < e.NextIndex {
			e.NextIndex--
		}
	}
	for _, e := range f.entries {
		if e.Index > ins {
			e.Index--
			if e.IsDir {
				e.NextIndex--
			}
		}
		if e.ParentIndex > ins {
			e.ParentIndex--
		}
	}

	out := make([]*FSTEntry, 0, len(f.entries)-1)
	for _, e := range f.entries {
		if e != entry {
			out = append(out, e)
		}
	}
	f.entries = out
	return nil
}

// UpdateOffsets closes overlaps introduced by a replacement that grew: files
// are sorted by DataOffset and walked pairwise, and any file overlapped by
// its predecessor's new end is pushed forward. The push uses the updated end
// of the previous file, so a single growth cascades down the whole chain
// instead of under-correcting by one pair's delta. It never reorders files
// and never shrinks a gap that isn't an overlap.
func (f *FST) UpdateOffsets() {
	files := f.sortedFilesByOffset()
	for i := 0; i < len(files)-1; i++ {
		a, b := files[i], files[i+1]
		end := int64(a.DataOffset) + int64(a.DataSize)
		if end > int64(b.DataOffset) {
			b.DataOffset = uint32(end)
		}
	}
}

// Defragment reassigns every file's DataOffset so adjacent files touch
// modulo 2048-byte alignment padding, starting at startOffset (or the first
// file's current offset if startOffset is negative).
func (f *FST) Defragment(startOffset int64) {
	files := f.sortedFilesByOffset()
	if len(files) == 0 {
		return
	}

	offset := startOffset
	if offset < 0 {
		offset = int64(files[0].DataOffset)
	}
	for _, file := range files {
		file.DataOffset = uint32(offset)
		offset += int64(file.DataSize) + AlignPadding(int64(file.DataSize), DefaultAlign)
	}
}

// Bytes serializes the FST: every entry in index order (12 bytes each)
// followed by the packed, null-terminated string table.
func (f *FST) Bytes() []byte {
	entryBuf := NewMemStreamSize(int64(len(f.entries)) * fstEntrySize)
	for _, e := range f.entries {
		off := int64(e.Index) * fstEntrySize
		word0 := e.NameOffset & 0x00FFFFFF
		if e.IsDir {
			word0 |= 1 << 24
		}
		entryBuf.PutU32BE(off, word0)
		if e.IsDir {
			entryBuf.PutU32BE(off+4, e.ParentIndex)
			entryBuf.PutU32BE(off+8, e.NextIndex)
		} else {
			entryBuf.PutU32BE(off+4, e.DataOffset)
			entryBuf.PutU32BE(off+8, e.DataSize)
		}
	}

	strBuf := NewMemStreamSize(int64(f.stringTableLen))
	for _, e := range f.entries[1:] {
		strBuf.PutCString(int64(e.NameOffset), []byte(e.Name))
	}

	out := make([]byte, 0, entryBuf.Size()+strBuf.Size())
	out = append(out, entryBuf.Bytes()...)
	out = append(out, strBuf.Bytes()...)
	return out
}
