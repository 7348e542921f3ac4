package fs

import (
	"os"
	"time"
)

// FileKind distinguishes the two file types this service knows about.
type FileKind int

const (
	// KindRegular is an ordinary file packed into a container.
	KindRegular FileKind = iota
	// KindDirectory is an ordinary on-disk directory.
	KindDirectory
)

func (k FileKind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "file"
}

// File is the abstract view shared by RegularFile and Directory.
type File interface {
	Kind() FileKind
	Path() Path
	Mode() os.FileMode
	ModTime() time.Time
	MimeType() string
}

// DataAccessor lazily materializes a RegularFile's bytes. It is polymorphic
// over two cases in practice: bytes already held in memory (wrapped with
// StaticData, used for inbound HTTP bodies) and bytes computed on demand
// from a container (offset, size), via a closure captured over the
// container and address. Representing it as a plain func value avoids a
// virtual-dispatch hierarchy for what is just "give me the bytes".
type DataAccessor func() ([]byte, error)

// StaticData wraps an in-memory byte slice as a DataAccessor.
func StaticData(b []byte) DataAccessor {
	return func() ([]byte, error) { return b, nil }
}

// RegularFile is a small file packed into a container.
type RegularFile struct {
	path    Path
	size    int64
	mode    os.FileMode
	modTime time.Time
	// address is the byte offset within the owning container where this
	// member's tar header begins. Address 0 is valid for the first member.
	address int64
	data    DataAccessor
}

// NewRegularFile constructs a RegularFile with the given lazy or
// already-materialized data accessor.
func NewRegularFile(path Path, size int64, mode os.FileMode, modTime time.Time, address int64, data DataAccessor) *RegularFile {
	return &RegularFile{path: path, size: size, mode: mode, modTime: modTime, address: address, data: data}
}

func (f *RegularFile) Kind() FileKind      { return KindRegular }
func (f *RegularFile) Path() Path         { return f.path }
func (f *RegularFile) Mode() os.FileMode  { return f.mode }
func (f *RegularFile) ModTime() time.Time { return f.modTime }
func (f *RegularFile) MimeType() string   { return f.path.MimeType(false) }
func (f *RegularFile) Size() int64        { return f.size }
func (f *RegularFile) Address() int64     { return f.address }
func (f *RegularFile) Basename() string   { return f.path.Basename() }

// Data invokes the lazy accessor to materialize the file's bytes.
func (f *RegularFile) Data() ([]byte, error) { return f.data() }

// DirectoryAccessor implements how one directory discovers, reads, and
// writes its children. local.LocalDirectoryAccessor and the httpfs client's
// remote accessor implement it; the interface keeps Directory decoupled
// from its storage.
type DirectoryAccessor interface {
	GetFile(name string) (File, error)
	GetRegularFile(name string) (*RegularFile, error)
	CreateDirectory(name string, mode os.FileMode) (*Directory, error)
	CreateRegularFile(name string, data []byte, size int64, mode os.FileMode) (*RegularFile, error)
	ListFiles() ([]File, error)
}

// Directory is a node in the file tree. It holds an optional accessor that
// knows how to list/create/look up children; directories are uniquely
// identified by path within a context and shared by every lookup that
// traverses them via the owning context's DirectoryCache.
type Directory struct {
	path     Path
	mode     os.FileMode
	modTime  time.Time
	accessor DirectoryAccessor
}

// NewDirectory constructs a Directory bound to the given accessor.
func NewDirectory(path Path, mode os.FileMode, modTime time.Time, accessor DirectoryAccessor) *Directory {
	return &Directory{path: path, mode: mode, modTime: modTime, accessor: accessor}
}

func (d *Directory) Kind() FileKind      { return KindDirectory }
func (d *Directory) Path() Path         { return d.path }
func (d *Directory) Mode() os.FileMode  { return d.mode }
func (d *Directory) ModTime() time.Time { return d.modTime }
func (d *Directory) MimeType() string   { return d.path.MimeType(true) }

// Accessor returns the directory's accessor, or nil if none is attached.
func (d *Directory) Accessor() DirectoryAccessor { return d.accessor }

func (d *Directory) GetFile(name string) (File, error) {
	return d.accessor.GetFile(name)
}

func (d *Directory) GetRegularFile(name string) (*RegularFile, error) {
	return d.accessor.GetRegularFile(name)
}

func (d *Directory) CreateDirectory(name string, mode os.FileMode) (*Directory, error) {
	return d.accessor.CreateDirectory(name, mode)
}

func (d *Directory) CreateRegularFile(name string, data []byte, size int64, mode os.FileMode) (*RegularFile, error) {
	return d.accessor.CreateRegularFile(name, data, size, mode)
}

func (d *Directory) ListFiles() ([]File, error) {
	return d.accessor.ListFiles()
}

// FileService is the uniform interface above the directory substrate,
// implemented locally by local.LocalFileService and remotely by
// httpfs.Client.
type FileService interface {
	GetFile(p Path) (File, error)
	GetDirectory(p Path) (*Directory, error)
	GetRegularFile(p Path) (*RegularFile, error)
	CreateDirectory(p Path, mode os.FileMode) (*Directory, error)
	CreateRegularFile(p Path, data []byte, mode os.FileMode) (*RegularFile, error)
	ListFiles(p Path) ([]File, error)
}
