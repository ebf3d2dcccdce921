// Package fuseview exposes a parsed GameCube disc image as a read-only FUSE
// filesystem: the FST's directory tree appears under the mountpoint, and
// optionally a synthetic system.bin carrying the concatenated system region.
//
// The view only ever calls Engine.FST, Engine.Extract and
// Engine.ExtractSystemBlob; it never mutates the archive. Because the kernel
// delivers FUSE requests concurrently while the engine itself is not
// re-entrant (extraction populates its pending map), all engine access is
// serialized behind one mutex.
package fuseview

import (
	"context"
	"sync"
	"syscall"

	"github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/rotobash/gciso"
)

// systemBinIno is the synthetic inode number system.bin is served under;
// FST entry indices are nowhere near it.
const systemBinIno = 1 << 40

type view struct {
	mu  sync.Mutex
	eng *gciso.Engine

	// non-nil when the mount exposes the system region as system.bin
	systemBlob []byte
}

func (v *view) extract(name string) ([]byte, syscall.Errno) {
	v.mu.Lock()
	defer v.mu.Unlock()
	f, err := v.eng.Extract(name)
	if err != nil {
		return nil, syscall.ENOENT
	}
	b, err := f.Bytes()
	if err != nil {
		return nil, syscall.EIO
	}
	return b, 0
}

func (v *view) children(dir *gciso.FSTEntry) []*gciso.FSTEntry {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.eng.FST().Children(dir)
}

// dirNode serves one FST directory; a nil entry means the root.
type dirNode struct {
	fs.Inode
	v   *view
	dir *gciso.FSTEntry
}

var _ fs.NodeReaddirer = (*dirNode)(nil)
var _ fs.NodeLookuper = (*dirNode)(nil)

func (n *dirNode) Readdir(ctx context.Context) (fs.DirStream, syscall.Errno) {
	children := n.v.children(n.dir)
	entries := make([]fuse.DirEntry, 0, len(children)+1)
	for _, c := range children {
		mode := uint32(fuse.S_IFREG)
		if c.IsDir {
			mode = fuse.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: c.Name,
			Mode: mode,
			Ino:  uint64(c.Index) + 1,
		})
	}
	if n.dir == nil && n.v.systemBlob != nil {
		entries = append(entries, fuse.DirEntry{
			Name: "system.bin",
			Mode: fuse.S_IFREG,
			Ino:  systemBinIno,
		})
	}
	return fs.NewListDirStream(entries), 0
}

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*fs.Inode, syscall.Errno) {
	if n.dir == nil && n.v.systemBlob != nil && name == "system.bin" {
		out.Attr.Size = uint64(len(n.v.systemBlob))
		child := n.NewInode(ctx, &fileNode{v: n.v, name: name, size: uint64(len(n.v.systemBlob))},
			fs.StableAttr{Mode: fuse.S_IFREG, Ino: systemBinIno})
		return child, 0
	}

	for _, c := range n.v.children(n.dir) {
		if c.Name != name {
			continue
		}
		if c.IsDir {
			child := n.NewInode(ctx, &dirNode{v: n.v, dir: c},
				fs.StableAttr{Mode: fuse.S_IFDIR, Ino: uint64(c.Index) + 1})
			return child, 0
		}
		out.Attr.Size = uint64(c.DataSize)
		child := n.NewInode(ctx, &fileNode{v: n.v, name: c.Name, size: uint64(c.DataSize)},
			fs.StableAttr{Mode: fuse.S_IFREG, Ino: uint64(c.Index) + 1})
		return child, 0
	}
	return nil, syscall.ENOENT
}

// fileNode serves one file's bytes, materialized on first open.
type fileNode struct {
	fs.Inode
	v    *view
	name string
	size uint64
}

var _ fs.NodeGetattrer = (*fileNode)(nil)
var _ fs.NodeOpener = (*fileNode)(nil)
var _ fs.NodeReader = (*fileNode)(nil)

func (n *fileNode) Getattr(ctx context.Context, fh fs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	out.Attr.Size = n.size
	return 0
}

func (n *fileNode) Open(ctx context.Context, flags uint32) (fs.FileHandle, uint32, syscall.Errno) {
	if n.name == "system.bin" && n.v.systemBlob != nil {
		return &fileHandle{data: n.v.systemBlob}, fuse.FOPEN_KEEP_CACHE, 0
	}
	data, errno := n.v.extract(n.name)
	if errno != 0 {
		return nil, 0, errno
	}
	// the image is read-only under the mount, so the kernel may cache freely
	return &fileHandle{data: data}, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *fileNode) Read(ctx context.Context, fh fs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	h, ok := fh.(*fileHandle)
	if !ok {
		return nil, syscall.EBADF
	}
	if off >= int64(len(h.data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(h.data)) {
		end = int64(len(h.data))
	}
	return fuse.ReadResultData(h.data[off:end]), 0
}

type fileHandle struct {
	data []byte
}

// Mount exposes eng's directory tree read-only at mountpoint. When
// withSystem is true, a synthetic system.bin at the root carries the
// concatenated system region. The returned server runs until Unmount is
// called on it (or the mountpoint is unmounted externally).
func Mount(eng *gciso.Engine, mountpoint string, withSystem bool) (*fuse.Server, error) {
	v := &view{eng: eng}
	if withSystem {
		blob, err := eng.ExtractSystemBlob()
		if err != nil {
			return nil, err
		}
		v.systemBlob = blob
	}
	return fs.Mount(mountpoint, &dirNode{v: v}, &fs.Options{
		MountOptions: fuse.MountOptions{
			Name:    "gciso",
			Options: []string{"ro"},
		},
	})
}
