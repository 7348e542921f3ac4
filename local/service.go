package local

import (
	"os"

	"github.com/t-mind/flocons/fs"
)

// LocalFileService is the root of one context's file tree. Every lookup
// funnels through the context's directory cache.
type LocalFileService struct {
	ctx  *Context
	root *fs.Directory
}

// NewLocalFileService creates a file service for context name rooted at
// root on disk. root must already exist.
func NewLocalFileService(name, root string) (*LocalFileService, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fs.NewIOError(err, "stat root %s", root)
	}
	if !info.IsDir() {
		return nil, fs.NewNotADirectoryError("root %s is not a directory", root)
	}

	ctx := NewContext(name, root)
	rootAccessor := NewLocalDirectoryAccessor(ctx, fs.Root, root)
	rootDir := fs.NewDirectory(fs.Root, info.Mode().Perm(), info.ModTime(), rootAccessor)
	ctx.Cache().Set(fs.Root, rootDir)

	return &LocalFileService{ctx: ctx, root: rootDir}, nil
}

// Context returns the underlying Context, e.g. for tests that want to
// construct a second LocalFileService sharing the same root.
func (s *LocalFileService) Context() *Context { return s.ctx }

// GetFile resolves path to a File, consulting the cache before walking.
func (s *LocalFileService) GetFile(p fs.Path) (fs.File, error) {
	if p.IsRoot() {
		return s.root, nil
	}
	if d, ok := s.ctx.Cache().Get(p); ok {
		return d, nil
	}
	if d, ok := s.ctx.Cache().Get(p.Parent()); ok {
		return d.GetFile(p.Basename())
	}
	return s.walk(p)
}

// walk resolves path one component at a time from the root, populating
// the directory cache as a side effect. Apart from the root, which
// NewLocalFileService caches up front, directories enter the cache when a
// lookup, a listing or a create reaches them.
func (s *LocalFileService) walk(p fs.Path) (fs.File, error) {
	current := fs.File(s.root)
	components := p.Components()
	for i, name := range components {
		dir, ok := current.(*fs.Directory)
		if !ok {
			return nil, fs.NewNotADirectoryError("%s is not a directory", current.Path())
		}
		next, err := dir.GetFile(name)
		if err != nil {
			return nil, err
		}
		if i < len(components)-1 {
			if _, ok := next.(*fs.Directory); !ok {
				return nil, fs.NewNotADirectoryError("%s is not a directory", next.Path())
			}
		}
		current = next
	}
	return current, nil
}

// GetDirectory resolves path and requires it to be a directory.
func (s *LocalFileService) GetDirectory(p fs.Path) (*fs.Directory, error) {
	f, err := s.GetFile(p)
	if err != nil {
		return nil, err
	}
	d, ok := f.(*fs.Directory)
	if !ok {
		return nil, fs.NewNotADirectoryError("%s is not a directory", p)
	}
	return d, nil
}

// GetRegularFile resolves path and requires it to be a regular file.
func (s *LocalFileService) GetRegularFile(p fs.Path) (*fs.RegularFile, error) {
	f, err := s.GetFile(p)
	if err != nil {
		return nil, err
	}
	rf, ok := f.(*fs.RegularFile)
	if !ok {
		return nil, fs.NewIsADirectoryError("%s is a directory", p)
	}
	return rf, nil
}

// CreateDirectory creates path as a new directory with the given
// permission bits.
func (s *LocalFileService) CreateDirectory(p fs.Path, mode os.FileMode) (*fs.Directory, error) {
	if p.IsRoot() {
		return nil, fs.NewAlreadyExistsError("root always exists")
	}
	parent, err := s.GetDirectory(p.Parent())
	if err != nil {
		return nil, err
	}
	return parent.CreateDirectory(p.Basename(), mode)
}

// CreateRegularFile writes data as path, with the given permission bits.
func (s *LocalFileService) CreateRegularFile(p fs.Path, data []byte, mode os.FileMode) (*fs.RegularFile, error) {
	if p.IsRoot() {
		return nil, fs.NewIsADirectoryError("cannot write to root")
	}
	parent, err := s.GetDirectory(p.Parent())
	if err != nil {
		return nil, err
	}
	return parent.CreateRegularFile(p.Basename(), data, int64(len(data)), mode)
}

// ListFiles returns the children of path.
func (s *LocalFileService) ListFiles(p fs.Path) ([]fs.File, error) {
	d, err := s.GetDirectory(p)
	if err != nil {
		return nil, err
	}
	return d.ListFiles()
}

var _ fs.FileService = (*LocalFileService)(nil)
