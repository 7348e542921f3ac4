package local

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/t-mind/flocons/fs"
)

// containerFormatVersion is the current on-disk container format version,
// embedded in every container's filename.
const containerFormatVersion = 0

// containerFilenamePattern matches "files_<context>_v<version>_<order>.<ext>".
// The context capture is greedy so names containing "_" still parse
// correctly, since the remaining "_v<digits>_<digits>.<ext>" suffix is
// unambiguous.
var containerFilenamePattern = regexp.MustCompile(`^files_(.+)_v(\d+)_(\d+)\.(tar|csv)$`)

// containerPrefix builds the "files_<context>_v<version>_<order>" stem
// shared by a container's .tar and .csv files.
func containerPrefix(context string, order int) string {
	return fmt.Sprintf("files_%s_v%d_%d", context, containerFormatVersion, order)
}

// parsedContainerFilename is one files_* entry discovered on disk.
type parsedContainerFilename struct {
	context string
	version int
	order   int
	ext     string // "tar" or "csv"
}

func parseContainerFilename(name string) (parsedContainerFilename, bool) {
	m := containerFilenamePattern.FindStringSubmatch(name)
	if m == nil {
		return parsedContainerFilename{}, false
	}
	version, err := strconv.Atoi(m[2])
	if err != nil {
		return parsedContainerFilename{}, false
	}
	order, err := strconv.Atoi(m[3])
	if err != nil {
		return parsedContainerFilename{}, false
	}
	return parsedContainerFilename{context: m[1], version: version, order: order, ext: m[4]}, true
}

// RegularFileContainer owns one append-only ustar archive paired with one
// RegularFileIndex. Mode local means this process's own context wrote it
// and may append; mode remote means it belongs to another writer sharing
// this directory and is read-only to us.
type RegularFileContainer struct {
	mode    indexMode
	dirPath fs.Path
	prefix  string // e.g. "files_test1_v0_3"
	order   int

	tarPath string
	index   *RegularFileIndex

	mu         sync.Mutex
	appendFile *os.File
}

// NewRegularFileContainer constructs a container bound to dirOnDisk
// (the filesystem directory it lives in) for the given context/order.
func NewRegularFileContainer(dirPath fs.Path, dirOnDisk, containerContext string, order int, mode indexMode) *RegularFileContainer {
	prefix := containerPrefix(containerContext, order)
	return &RegularFileContainer{
		mode:    mode,
		dirPath: dirPath,
		prefix:  prefix,
		order:   order,
		tarPath: dirOnDisk + "/" + prefix + ".tar",
		index:   NewRegularFileIndex(dirOnDisk+"/"+prefix+".csv", mode),
	}
}

// Mode reports whether this container is writable by this process.
func (c *RegularFileContainer) Mode() indexMode { return c.mode }

// Order returns the container's per-context serial number.
func (c *RegularFileContainer) Order() int { return c.order }

// Prefix returns the shared "files_<ctx>_v<ver>_<order>" stem.
func (c *RegularFileContainer) Prefix() string { return c.prefix }

// WriteRegularFile appends basename's bytes as one ustar member and
// records it in the index. It fails with ErrorLogic if this container is
// not in local mode.
func (c *RegularFileContainer) WriteRegularFile(basename string, data []byte, mode os.FileMode) (*fs.RegularFile, error) {
	if c.mode != indexLocal {
		return nil, fs.NewError(fs.ErrorLogic, "cannot write to remote-mode container %s", c.prefix)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.appendFile == nil {
		f, err := os.OpenFile(c.tarPath, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
		if err != nil {
			return nil, fs.NewIOError(err, "opening container %s for append", c.tarPath)
		}
		c.appendFile = f
	}

	position, err := c.appendFile.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fs.NewIOError(err, "seeking container %s", c.tarPath)
	}

	tw := tar.NewWriter(c.appendFile)
	hdr := &tar.Header{
		Name:     basename,
		Typeflag: tar.TypeReg,
		Mode:     int64(mode.Perm()),
		Size:     int64(len(data)),
		ModTime:  time.Now(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fs.NewIOError(err, "writing container header for %s", basename)
	}
	if _, err := tw.Write(data); err != nil {
		return nil, fs.NewIOError(err, "writing container body for %s", basename)
	}
	// Close writes this member's padding followed by two 512-byte
	// end-of-archive zero blocks. The append handle is O_APPEND, so the
	// next session's member lands after those blocks rather than over
	// them; its address is taken from the file end above, so readers that
	// seek to a recorded address never meet the blocks, and the raw scan
	// below steps over them.
	if err := tw.Close(); err != nil {
		return nil, fs.NewIOError(err, "closing container writer for %s", basename)
	}
	if err := c.appendFile.Sync(); err != nil {
		return nil, fs.NewIOError(err, "fsyncing container %s", c.tarPath)
	}

	now := hdr.ModTime
	entry := IndexEntry{Offset: position, Size: int64(len(data)), Mode: mode, ModTime: now, Name: basename}
	if err := c.index.Add(entry); err != nil {
		return nil, err
	}

	path := c.dirPath.Join(basename)
	rf := fs.NewRegularFile(path, int64(len(data)), mode, now, position, c.dataAccessor(basename, position, int64(len(data))))
	return rf, nil
}

// GetRegularFile looks up basename in the index and attaches a lazy reader
// if found.
func (c *RegularFileContainer) GetRegularFile(basename string) (*fs.RegularFile, error) {
	entry, err := c.index.Get(basename)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}
	return c.entryToFile(*entry), nil
}

func (c *RegularFileContainer) entryToFile(e IndexEntry) *fs.RegularFile {
	path := c.dirPath.Join(e.Name)
	return fs.NewRegularFile(path, e.Size, e.Mode, e.ModTime, e.Offset, c.dataAccessor(e.Name, e.Offset, e.Size))
}

// dataAccessor returns a DataAccessor closure capturing (container,
// address, size), materializing bytes only when first invoked. Each
// invocation opens its own read handle rather than sharing the append
// handle, so readers never contend with the writer's handle.
func (c *RegularFileContainer) dataAccessor(basename string, address, size int64) fs.DataAccessor {
	return func() ([]byte, error) {
		return c.readMember(basename, address, size)
	}
}

func (c *RegularFileContainer) readMember(basename string, address, size int64) ([]byte, error) {
	f, err := os.Open(c.tarPath)
	if err != nil {
		return nil, fs.NewIOError(err, "opening container %s for read", c.tarPath)
	}
	defer f.Close()

	if _, err := f.Seek(address, io.SeekStart); err != nil {
		return nil, fs.NewIOError(err, "seeking container %s to %d", c.tarPath, address)
	}

	tr := tar.NewReader(f)
	hdr, err := tr.Next()
	if err != nil {
		return nil, fs.NewIOError(err, "reading container header at %d in %s", address, c.tarPath)
	}
	if hdr.Name != basename {
		return nil, fs.NewError(fs.ErrorIO, "container %s corrupt: expected member %q at offset %d, found %q", c.tarPath, basename, address, hdr.Name)
	}

	buf := make([]byte, size)
	if _, err := io.ReadFull(tr, buf); err != nil {
		return nil, fs.NewIOError(err, "reading container body for %s in %s", basename, c.tarPath)
	}
	return buf, nil
}

// ListRegularFiles refreshes the index and returns one RegularFile per
// known member, each with its lazy accessor attached.
func (c *RegularFileContainer) ListRegularFiles() ([]*fs.RegularFile, error) {
	entries, err := c.index.List()
	if err != nil {
		return nil, err
	}
	out := make([]*fs.RegularFile, 0, len(entries))
	for _, e := range entries {
		out = append(out, c.entryToFile(e))
	}
	return out, nil
}

// GetRegularFileFromRawContainer is a recovery fallback used when the CSV
// sidecar is absent or broken: it scans the tar sequentially and returns
// the first member whose pathname equals basename, using the offset at
// which that member's header starts as the address.
func (c *RegularFileContainer) GetRegularFileFromRawContainer(basename string) (*fs.RegularFile, error) {
	f, err := os.Open(c.tarPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fs.NewIOError(err, "opening container %s for raw scan", c.tarPath)
	}
	defer f.Close()

	tr := tar.NewReader(f)
	for {
		position, err := f.Seek(0, io.SeekCurrent)
		if err != nil {
			return nil, fs.NewIOError(err, "tracking offset in %s", c.tarPath)
		}
		// Skip the previous member's padding up to the next 512-byte block.
		position = (position + 511) &^ 511
		hdr, err := tr.Next()
		if err == io.EOF {
			// Each append session ends with its own end-of-archive blocks;
			// continue with a fresh reader if more members follow them.
			end, serr := f.Seek(0, io.SeekCurrent)
			info, statErr := f.Stat()
			if serr != nil || statErr != nil || end >= info.Size() {
				return nil, nil
			}
			tr = tar.NewReader(f)
			continue
		}
		if err != nil {
			return nil, fs.NewIOError(err, "scanning container %s", c.tarPath)
		}
		if hdr.Name == basename {
			buf := make([]byte, hdr.Size)
			if _, err := io.ReadFull(tr, buf); err != nil {
				return nil, fs.NewIOError(err, "reading container body for %s in %s", basename, c.tarPath)
			}
			path := c.dirPath.Join(basename)
			return fs.NewRegularFile(path, hdr.Size, os.FileMode(hdr.Mode).Perm(), hdr.ModTime, position, fs.StaticData(buf)), nil
		}
		if _, err := io.Copy(io.Discard, tr); err != nil {
			return nil, fs.NewIOError(err, "scanning container %s", c.tarPath)
		}
	}
}

// Close releases the append handle and the index's write handle.
func (c *RegularFileContainer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	var firstErr error
	if c.appendFile != nil {
		if err := c.appendFile.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.appendFile = nil
	}
	if err := c.index.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
