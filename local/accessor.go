package local

import (
	"context"
	"os"
	"sync"

	"github.com/t-mind/flocons/fs"
)

// LocalDirectoryAccessor is the DirectoryAccessor for one directory within
// one Context: it discovers that directory's containers, routes small-file
// reads and writes to them, and lists children (subdirectories via the
// filesystem, regular files via container indices).
type LocalDirectoryAccessor struct {
	ctx       *Context // shared, not owned; see the note on Context
	dirPath   fs.Path
	dirOnDisk string

	containerMu sync.Mutex // guards containers and writable
	containers  map[string]*RegularFileContainer
	writable    *RegularFileContainer

	dirCacheMu sync.Mutex // guards check-then-insert into ctx.Cache()
}

// NewLocalDirectoryAccessor constructs an accessor for dirPath (the
// logical path) backed by dirOnDisk (its filesystem location).
func NewLocalDirectoryAccessor(ctx *Context, dirPath fs.Path, dirOnDisk string) *LocalDirectoryAccessor {
	return &LocalDirectoryAccessor{
		ctx:        ctx,
		dirPath:    dirPath,
		dirOnDisk:  dirOnDisk,
		containers: make(map[string]*RegularFileContainer),
	}
}

// GetFile resolves a child of this directory, consulting the context's
// directory cache first, then the filesystem for subdirectories, then the
// containers for regular files.
func (a *LocalDirectoryAccessor) GetFile(name string) (fs.File, error) {
	full := a.dirPath.Join(name)
	if d, ok := a.ctx.Cache().Get(full); ok {
		return d, nil
	}

	info, statErr := os.Stat(a.dirOnDisk + "/" + name)
	switch {
	case statErr == nil && info.IsDir():
		return a.cachedDirectory(full, name, info)
	case statErr == nil:
		// A real inode exists but isn't a directory; logical regular files
		// never have their own inode (they live inside containers), so
		// fall through and look it up the normal way.
		fallthrough
	case os.IsNotExist(statErr):
		rf, err := a.GetRegularFile(name)
		if err != nil {
			return nil, err
		}
		if rf != nil {
			return rf, nil
		}
		return nil, fs.NewNotFoundError("no file named %q in %s", name, a.dirPath)
	default:
		return nil, fs.NewIOError(statErr, "stat %s/%s", a.dirOnDisk, name)
	}
}

func (a *LocalDirectoryAccessor) cachedDirectory(full fs.Path, name string, info os.FileInfo) (fs.File, error) {
	a.dirCacheMu.Lock()
	defer a.dirCacheMu.Unlock()
	if d, ok := a.ctx.Cache().Get(full); ok {
		return d, nil
	}
	childAccessor := NewLocalDirectoryAccessor(a.ctx, full, a.dirOnDisk+"/"+name)
	dir := fs.NewDirectory(full, info.Mode().Perm(), info.ModTime(), childAccessor)
	a.ctx.Cache().Set(full, dir)
	return dir, nil
}

// GetRegularFile tries each known container's index, then rescans the
// directory for newly appeared containers and tries only those. It never
// retries a container already exhausted within the same call.
func (a *LocalDirectoryAccessor) GetRegularFile(name string) (*fs.RegularFile, error) {
	a.containerMu.Lock()
	known := a.containerSnapshotLocked()
	a.containerMu.Unlock()

	if rf, err := probeContainers(known, name); rf != nil || err != nil {
		return rf, err
	}

	a.containerMu.Lock()
	fresh, err := a.refreshContainersLocked()
	a.containerMu.Unlock()
	if err != nil {
		return nil, err
	}

	return probeContainers(fresh, name)
}

func (a *LocalDirectoryAccessor) containerSnapshotLocked() []*RegularFileContainer {
	out := make([]*RegularFileContainer, 0, len(a.containers))
	for _, c := range a.containers {
		out = append(out, c)
	}
	return out
}

// probeContainers looks up name in each container concurrently, returning
// the first hit. A container whose index lookup fails is logged and
// skipped: one corrupt container must not mask files in the others.
func probeContainers(containers []*RegularFileContainer, name string) (*fs.RegularFile, error) {
	if len(containers) == 0 {
		return nil, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var found *fs.RegularFile
	var wg sync.WaitGroup

	for _, c := range containers {
		c := c
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			default:
			}
			rf, err := c.GetRegularFile(name)
			if err != nil {
				fs.Errorf(c.Prefix(), "index lookup for %q failed, skipping container: %v", name, err)
				return
			}
			if rf != nil {
				mu.Lock()
				if found == nil {
					found = rf
				}
				mu.Unlock()
				cancel()
			}
		}()
	}
	wg.Wait()
	return found, nil
}

// CreateDirectory creates a subdirectory on disk and caches its node. It
// fails with ErrorAlreadyExists if the path is already cached or the OS
// reports EEXIST.
func (a *LocalDirectoryAccessor) CreateDirectory(name string, mode os.FileMode) (*fs.Directory, error) {
	a.dirCacheMu.Lock()
	defer a.dirCacheMu.Unlock()

	full := a.dirPath.Join(name)
	if _, ok := a.ctx.Cache().Get(full); ok {
		return nil, fs.NewAlreadyExistsError("directory %s already exists", full)
	}

	childOnDisk := a.dirOnDisk + "/" + name
	if err := os.Mkdir(childOnDisk, mode); err != nil {
		if os.IsExist(err) {
			return nil, fs.NewAlreadyExistsError("directory %s already exists", full)
		}
		return nil, fs.NewIOError(err, "creating directory %s", full)
	}
	info, err := os.Stat(childOnDisk)
	if err != nil {
		return nil, fs.NewIOError(err, "stat %s", childOnDisk)
	}

	childAccessor := NewLocalDirectoryAccessor(a.ctx, full, childOnDisk)
	dir := fs.NewDirectory(full, info.Mode().Perm(), info.ModTime(), childAccessor)
	a.ctx.Cache().Set(full, dir)
	return dir, nil
}

// CreateRegularFile writes data into this context's current writable
// container, creating one if none exists yet.
func (a *LocalDirectoryAccessor) CreateRegularFile(name string, data []byte, size int64, mode os.FileMode) (*fs.RegularFile, error) {
	a.containerMu.Lock()
	defer a.containerMu.Unlock()

	if a.writable == nil {
		if _, err := a.refreshContainersLocked(); err != nil {
			return nil, err
		}
		a.writable = a.bestWritableLocked()
		if a.writable == nil {
			c, err := a.newWritableContainerLocked()
			if err != nil {
				return nil, err
			}
			a.writable = c
		}
	}

	return a.writable.WriteRegularFile(name, data, mode)
}

// bestWritableLocked returns the known local-mode container with the
// greatest order, so successive process runs continue appending to the
// latest container instead of fragmenting into many small ones.
func (a *LocalDirectoryAccessor) bestWritableLocked() *RegularFileContainer {
	var best *RegularFileContainer
	for _, c := range a.containers {
		if c.Mode() != indexLocal {
			continue
		}
		if best == nil || c.Order() > best.Order() {
			best = c
		}
	}
	return best
}

func (a *LocalDirectoryAccessor) newWritableContainerLocked() (*RegularFileContainer, error) {
	order := 1
	for _, c := range a.containers {
		if c.Mode() == indexLocal && c.Order() >= order {
			order = c.Order() + 1
		}
	}
	c := NewRegularFileContainer(a.dirPath, a.dirOnDisk, a.ctx.Name, order, indexLocal)
	a.containers[c.Prefix()] = c
	return c, nil
}

// ListFiles refreshes containers, then returns the combined set of
// subdirectories (from the filesystem) and regular files (from every
// container). The two sources are disjoint namespaces so no duplicates
// occur.
func (a *LocalDirectoryAccessor) ListFiles() ([]fs.File, error) {
	a.containerMu.Lock()
	_, err := a.refreshContainersLocked()
	containers := a.containerSnapshotLocked()
	a.containerMu.Unlock()
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(a.dirOnDisk)
	if err != nil {
		return nil, fs.NewIOError(err, "reading directory %s", a.dirOnDisk)
	}

	var files []fs.File
	for _, de := range entries {
		if !de.IsDir() {
			continue
		}
		child, err := a.GetFile(de.Name())
		if err != nil {
			fs.Errorf(a.dirPath, "listing: skipping %s: %v", de.Name(), err)
			continue
		}
		files = append(files, child)
	}

	for _, c := range containers {
		rfs, err := c.ListRegularFiles()
		if err != nil {
			fs.Errorf(c.Prefix(), "listing: skipping container: %v", err)
			continue
		}
		for _, rf := range rfs {
			files = append(files, rf)
		}
	}
	return files, nil
}

// refreshContainersLocked scans the directory for files_* pairs not
// already known and constructs a RegularFileContainer for each. It returns
// only the newly discovered containers. Callers must hold containerMu.
func (a *LocalDirectoryAccessor) refreshContainersLocked() ([]*RegularFileContainer, error) {
	entries, err := os.ReadDir(a.dirOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fs.NewIOError(err, "reading directory %s", a.dirOnDisk)
	}

	var added []*RegularFileContainer
	for _, de := range entries {
		if de.IsDir() {
			continue
		}
		parsed, ok := parseContainerFilename(de.Name())
		if !ok || parsed.ext != "tar" {
			continue
		}
		prefix := containerPrefix(parsed.context, parsed.order)
		if _, exists := a.containers[prefix]; exists {
			continue
		}
		mode := indexRemote
		if parsed.context == a.ctx.Name {
			mode = indexLocal
		}
		c := NewRegularFileContainer(a.dirPath, a.dirOnDisk, parsed.context, parsed.order, mode)
		a.containers[prefix] = c
		added = append(added, c)
	}
	return added, nil
}
