// Package mountfs projects an fs.FileService onto a POSIX mount point using
// go-fuse's InodeEmbedder tree API.
package mountfs

import (
	"context"
	"crypto/sha512"
	"encoding/binary"
	"os"
	"sync"
	"syscall"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/t-mind/flocons/fs"
)

// dirNode is the InodeEmbedder for one directory in the file tree.
type dirNode struct {
	gofs.Inode
	service fs.FileService
	path    fs.Path
}

// regNode is the InodeEmbedder for one regular file.
type regNode struct {
	gofs.Inode
	service fs.FileService
	path    fs.Path

	mu   sync.Mutex
	data []byte // materialized lazily on first Open, cached for the node's lifetime
}

var (
	_ gofs.InodeEmbedder = (*dirNode)(nil)
	_ gofs.NodeLookuper  = (*dirNode)(nil)
	_ gofs.NodeReaddirer = (*dirNode)(nil)
	_ gofs.NodeGetattrer = (*dirNode)(nil)
	_ gofs.NodeMkdirer   = (*dirNode)(nil)
	_ gofs.NodeCreater   = (*dirNode)(nil)

	_ gofs.InodeEmbedder = (*regNode)(nil)
	_ gofs.NodeOpener    = (*regNode)(nil)
	_ gofs.NodeGetattrer = (*regNode)(nil)
	_ gofs.NodeReader    = (*regNode)(nil)
)

func setAttrFromFile(a *fuse.Attr, f fs.File) {
	if f.Kind() == fs.KindDirectory {
		a.Mode |= syscall.S_IFDIR
	} else {
		a.Mode |= syscall.S_IFREG
		a.Size = uint64(f.(*fs.RegularFile).Size())
	}
	a.Mode |= uint32(f.Mode().Perm())
	if mt := f.ModTime(); !mt.IsZero() {
		a.SetTimes(nil, &mt, nil)
	}
}

// hashIno derives a stable inode number from the parent's inode number and
// the child name, so repeated lookups of the same path always return the
// same inode instead of handing out a fresh automatic one.
func hashIno(parent gofs.InodeEmbedder, name string) uint64 {
	h := sha512.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], parent.EmbeddedInode().StableAttr().Ino)
	h.Write(buf[:])
	h.Write([]byte(name))
	return binary.LittleEndian.Uint64(h.Sum(nil)[:8])
}

func (n *dirNode) childInode(ctx context.Context, name string, f fs.File) *gofs.Inode {
	ino := hashIno(n, name)
	if f.Kind() == fs.KindDirectory {
		embed := &dirNode{service: n.service, path: f.Path()}
		return n.NewInode(ctx, embed, gofs.StableAttr{Mode: syscall.S_IFDIR, Ino: ino})
	}
	embed := &regNode{service: n.service, path: f.Path()}
	return n.NewInode(ctx, embed, gofs.StableAttr{Mode: syscall.S_IFREG, Ino: ino})
}

func (n *dirNode) Lookup(ctx context.Context, name string, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	d, err := n.service.GetDirectory(n.path)
	if err != nil {
		return nil, errToErrno(err)
	}
	child, err := d.GetFile(name)
	if err != nil {
		return nil, errToErrno(err)
	}
	inode := n.childInode(ctx, name, child)
	setAttrFromFile(&out.Attr, child)
	out.Ino = inode.StableAttr().Ino
	return inode, 0
}

func (n *dirNode) Readdir(ctx context.Context) (gofs.DirStream, syscall.Errno) {
	d, err := n.service.GetDirectory(n.path)
	if err != nil {
		return nil, errToErrno(err)
	}
	files, err := d.ListFiles()
	if err != nil {
		return nil, errToErrno(err)
	}
	entries := make([]fuse.DirEntry, 0, len(files))
	for _, f := range files {
		mode := uint32(syscall.S_IFREG)
		if f.Kind() == fs.KindDirectory {
			mode = syscall.S_IFDIR
		}
		entries = append(entries, fuse.DirEntry{
			Name: f.Path().Basename(),
			Mode: mode,
			Ino:  hashIno(n, f.Path().Basename()),
		})
	}
	return gofs.NewListDirStream(entries), 0
}

func (n *dirNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	d, err := n.service.GetDirectory(n.path)
	if err != nil {
		return errToErrno(err)
	}
	setAttrFromFile(&out.Attr, d)
	return 0
}

func (n *dirNode) Mkdir(ctx context.Context, name string, mode uint32, out *fuse.EntryOut) (*gofs.Inode, syscall.Errno) {
	d, err := n.service.GetDirectory(n.path)
	if err != nil {
		return nil, errToErrno(err)
	}
	child, err := d.CreateDirectory(name, os.FileMode(mode).Perm())
	if err != nil {
		return nil, errToErrno(err)
	}
	inode := n.childInode(ctx, name, child)
	setAttrFromFile(&out.Attr, child)
	out.Ino = inode.StableAttr().Ino
	return inode, 0
}

// Create registers a not-yet-backed regular file node: FUSE writes
// accumulate in the returned fileHandle and are committed as a single
// CreateRegularFile call on Flush (close), since the container format this
// bridges to is append-only with no notion of a partial or in-place write.
func (n *dirNode) Create(ctx context.Context, name string, flags uint32, mode uint32, out *fuse.EntryOut) (*gofs.Inode, gofs.FileHandle, uint32, syscall.Errno) {
	if _, err := n.service.GetDirectory(n.path); err != nil {
		return nil, nil, 0, errToErrno(err)
	}
	childPath := n.path.Join(name)
	embed := &regNode{service: n.service, path: childPath, data: []byte{}}
	ino := hashIno(n, name)
	inode := n.NewInode(ctx, embed, gofs.StableAttr{Mode: syscall.S_IFREG, Ino: ino})
	out.Attr.Mode = syscall.S_IFREG | uint32(os.FileMode(mode).Perm())
	out.Ino = ino
	h := &writeHandle{node: embed, mode: os.FileMode(mode).Perm()}
	return inode, h, 0, 0
}

func (n *regNode) load() ([]byte, syscall.Errno) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.data != nil {
		return n.data, 0
	}
	rf, err := n.service.GetRegularFile(n.path)
	if err != nil {
		return nil, errToErrno(err)
	}
	data, err := rf.Data()
	if err != nil {
		return nil, errToErrno(err)
	}
	n.data = data
	return data, 0
}

func (n *regNode) Open(ctx context.Context, flags uint32) (gofs.FileHandle, uint32, syscall.Errno) {
	if _, errno := n.load(); errno != 0 {
		return nil, 0, errno
	}
	return nil, fuse.FOPEN_KEEP_CACHE, 0
}

func (n *regNode) Read(ctx context.Context, f gofs.FileHandle, dest []byte, off int64) (fuse.ReadResult, syscall.Errno) {
	data, errno := n.load()
	if errno != 0 {
		return nil, errno
	}
	if off >= int64(len(data)) {
		return fuse.ReadResultData(nil), 0
	}
	end := off + int64(len(dest))
	if end > int64(len(data)) {
		end = int64(len(data))
	}
	return fuse.ReadResultData(data[off:end]), 0
}

func (n *regNode) Getattr(ctx context.Context, f gofs.FileHandle, out *fuse.AttrOut) syscall.Errno {
	rf, err := n.service.GetRegularFile(n.path)
	if err != nil {
		// Not yet flushed: report the size of what's buffered so far, the
		// way an in-progress local write is visible via fstat before close.
		n.mu.Lock()
		buffered := n.data
		n.mu.Unlock()
		if buffered == nil {
			return errToErrno(err)
		}
		size := len(buffered)
		if h, ok := f.(*writeHandle); ok {
			h.mu.Lock()
			size = len(h.buf)
			h.mu.Unlock()
		}
		out.Attr.Mode = syscall.S_IFREG
		out.Attr.Size = uint64(size)
		return 0
	}
	setAttrFromFile(&out.Attr, rf)
	return 0
}

// writeHandle accumulates writes to a freshly created file until Flush,
// when it is committed as a single CreateRegularFile call: the container
// format this bridges to has no in-place update, so a FUSE write(2) cannot
// be reflected until the file is closed.
type writeHandle struct {
	mu        sync.Mutex
	node      *regNode
	buf       []byte
	mode      os.FileMode
	committed bool
}

var (
	_ gofs.FileWriter  = (*writeHandle)(nil)
	_ gofs.FileFlusher = (*writeHandle)(nil)
)

func (h *writeHandle) Write(ctx context.Context, data []byte, off int64) (uint32, syscall.Errno) {
	h.mu.Lock()
	defer h.mu.Unlock()
	end := off + int64(len(data))
	if end > int64(len(h.buf)) {
		grown := make([]byte, end)
		copy(grown, h.buf)
		h.buf = grown
	}
	copy(h.buf[off:end], data)
	return uint32(len(data)), 0
}

// Flush commits the accumulated write as the file's one and only content.
// It commits only once per handle: a second Flush on the same handle (e.g.
// when a duplicated descriptor is closed) returns without writing, since
// another CreateRegularFile call would append a second copy of the file.
func (h *writeHandle) Flush(ctx context.Context) syscall.Errno {
	h.mu.Lock()
	buf := append([]byte(nil), h.buf...)
	committed := h.committed
	h.committed = true
	h.mu.Unlock()
	if committed {
		return 0
	}

	parent, err := h.node.service.GetDirectory(h.node.path.Parent())
	if err != nil {
		return errToErrno(err)
	}
	rf, err := parent.CreateRegularFile(h.node.path.Basename(), buf, h.mode)
	if err != nil {
		return errToErrno(err)
	}
	h.node.mu.Lock()
	h.node.data = buf
	h.node.path = rf.Path()
	h.node.mu.Unlock()
	return 0
}
