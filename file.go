package gciso

// File is the contract the Archive Engine and Patch Codec operate on: a
// named blob that can emit its current bytes. Typed file objects (produced
// by a FileFactory constructor) wrap this around a parsed representation;
// the fallback is UnknownFile.
type File interface {
	Name() string
	Bytes() ([]byte, error)
}

// editTracker is implemented by file objects that record whether any change
// has been made since they were loaded. The Patch Codec uses it to decide
// whether a file contributes a patch member; file objects that don't
// implement it are always treated as edited.
type editTracker interface {
	Edited() bool
}

type changeKind int

const (
	changeReplace changeKind = iota
	changeInsert
	changeDelete
)

// change is one entry in a file object's edit log: Replace(offset, bytes),
// Insert(offset, bytes), or Delete(offset, count).
type change struct {
	kind   changeKind
	offset int64
	data   []byte
	count  int64
}

// UnknownFile is the generic file object the File Factory yields when no
// typed constructor is registered for an extension (or when a caller just
// wants to stage raw bytes). Its state machine is Loaded{base} -> Edited
// {base, log}: Bytes() replays the log lazily over a fresh copy of base, it
// never mutates base itself.
type UnknownFile struct {
	name string
	base []byte
	log  []change
}

var _ File = (*UnknownFile)(nil)

// NewUnknownFile wraps base as a File named name with no pending edits.
func NewUnknownFile(name string, base []byte) *UnknownFile {
	return &UnknownFile{name: name, base: base}
}

func (f *UnknownFile) Name() string { return f.name }

// Bytes replays the edit log over a copy of the base bytes.
func (f *UnknownFile) Bytes() ([]byte, error) {
	if len(f.log) == 0 {
		out := make([]byte, len(f.base))
		copy(out, f.base)
		return out, nil
	}

	buf := NewMemStream(append([]byte(nil), f.base...))
	for _, c := range f.log {
		var err error
		switch c.kind {
		case changeReplace:
			err = buf.Put(c.offset, c.data)
		case changeInsert:
			err = buf.Insert(c.offset, c.data)
		case changeDelete:
			err = buf.Delete(c.offset, c.count)
		}
		if err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Replace overwrites len(data) bytes starting at offset.
func (f *UnknownFile) Replace(offset int64, data []byte) {
	f.log = append(f.log, change{kind: changeReplace, offset: offset, data: data})
}

// Insert splices data in at offset, shifting everything after it forward.
func (f *UnknownFile) Insert(offset int64, data []byte) {
	f.log = append(f.log, change{kind: changeInsert, offset: offset, data: data})
}

// Delete removes count bytes starting at offset.
func (f *UnknownFile) Delete(offset, count int64) {
	f.log = append(f.log, change{kind: changeDelete, offset: offset, count: count})
}

// Edited reports whether any change has been recorded against this file.
func (f *UnknownFile) Edited() bool { return len(f.log) > 0 }
