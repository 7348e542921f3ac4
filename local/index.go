package local

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/t-mind/flocons/fs"
	"github.com/t-mind/flocons/local/filelock"
)

// indexMode tells a RegularFileIndex whether this process owns the
// container it indexes (local) or is only allowed to read it because
// another context wrote it (remote).
type indexMode int

const (
	indexLocal indexMode = iota
	indexRemote
)

// IndexEntry is one parsed CSV record: a member's basename and its
// location/metadata within the owning container.
type IndexEntry struct {
	Offset  int64
	Size    int64
	Mode    os.FileMode
	ModTime time.Time
	Name    string
}

// csvLine serializes the entry to the on-disk CSV format:
// "offset;size;octal_mode;mtime;name\n".
func (e IndexEntry) csvLine() string {
	return fmt.Sprintf("%d;%d;%o;%d;%s\n", e.Offset, e.Size, uint32(e.Mode.Perm()), e.ModTime.Unix(), e.Name)
}

func parseIndexLine(line string) (IndexEntry, error) {
	fields := strings.SplitN(line, ";", 5)
	if len(fields) != 5 {
		return IndexEntry{}, fmt.Errorf("malformed index line %q: want 5 fields, got %d", line, len(fields))
	}
	offset, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("malformed offset in %q: %w", line, err)
	}
	size, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("malformed size in %q: %w", line, err)
	}
	modeBits, err := strconv.ParseUint(fields[2], 8, 32)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("malformed mode in %q: %w", line, err)
	}
	mtime, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return IndexEntry{}, fmt.Errorf("malformed mtime in %q: %w", line, err)
	}
	name := strings.TrimSuffix(fields[4], "\n")
	return IndexEntry{
		Offset:  offset,
		Size:    size,
		Mode:    os.FileMode(modeBits),
		ModTime: time.Unix(mtime, 0),
		Name:    name,
	}, nil
}

// RegularFileIndex owns the CSV sidecar for one container in one
// directory, maintaining an in-memory mapping from member basename to its
// IndexEntry.
type RegularFileIndex struct {
	pathOnDisk string
	mode       indexMode

	mu        sync.Mutex
	cache     map[string]IndexEntry
	refreshed bool
	lastMtime time.Time
	lastSize  int64

	writeMu sync.Mutex
	writer  *os.File
}

// NewRegularFileIndex opens the index backed by pathOnDisk (the .csv
// file). The file need not exist yet.
func NewRegularFileIndex(pathOnDisk string, mode indexMode) *RegularFileIndex {
	return &RegularFileIndex{
		pathOnDisk: pathOnDisk,
		mode:       mode,
		cache:      make(map[string]IndexEntry),
	}
}

// Get looks up name (a basename, no directory part). A cache miss triggers
// a refresh (lazily, the first time) and, for remote-mode indexes, a
// second refresh-and-retry since peers may have appended behind our back.
func (idx *RegularFileIndex) Get(name string) (*IndexEntry, error) {
	idx.mu.Lock()
	needInitialRefresh := !idx.refreshed
	idx.mu.Unlock()
	if needInitialRefresh {
		if err := idx.Refresh(); err != nil && !fs.IsNotFound(err) {
			return nil, err
		}
	}

	if e, ok := idx.lookup(name); ok {
		return &e, nil
	}

	if idx.mode == indexRemote {
		if err := idx.Refresh(); err != nil && !fs.IsNotFound(err) {
			return nil, err
		}
		if e, ok := idx.lookup(name); ok {
			return &e, nil
		}
	}
	return nil, nil
}

func (idx *RegularFileIndex) lookup(name string) (IndexEntry, bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	e, ok := idx.cache[name]
	return e, ok
}

// Add records a newly-appended member: it is a LogicError to add to a
// remote-mode index, since only the owning context may append. The CSV
// line is written, flushed, and fsynced before Add returns.
func (idx *RegularFileIndex) Add(e IndexEntry) error {
	if idx.mode != indexLocal {
		return fs.NewError(fs.ErrorLogic, "cannot add to a remote-mode index %s", idx.pathOnDisk)
	}

	idx.mu.Lock()
	if !idx.refreshed {
		idx.mu.Unlock()
		if err := idx.Refresh(); err != nil && !fs.IsNotFound(err) {
			return err
		}
	} else {
		idx.mu.Unlock()
	}

	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()

	if idx.writer == nil {
		w, err := os.OpenFile(idx.pathOnDisk, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fs.NewIOError(err, "opening index %s for append", idx.pathOnDisk)
		}
		idx.writer = w
	}

	if err := filelock.Lock(idx.writer); err != nil {
		return fs.NewIOError(err, "locking index %s", idx.pathOnDisk)
	}
	defer filelock.Unlock(idx.writer)

	line := e.csvLine()
	n, err := idx.writer.WriteString(line)
	if err != nil {
		return fs.NewIOError(err, "writing index line to %s", idx.pathOnDisk)
	}
	if err := idx.writer.Sync(); err != nil {
		return fs.NewIOError(err, "fsyncing index %s", idx.pathOnDisk)
	}

	idx.mu.Lock()
	idx.cache[e.Name] = e
	idx.lastSize += int64(n)
	idx.mu.Unlock()
	return nil
}

// Refresh re-stats the CSV, and if it has grown (by mtime or size, since a
// truncate-then-rewrite at the exact same size with an updated mtime is
// possible after a crash-recovery tool runs) reads the newly appended
// lines. A trailing line with no terminating "\n" is a partial write in
// progress and is left for the next Refresh.
func (idx *RegularFileIndex) Refresh() error {
	info, err := os.Stat(idx.pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.NewNotFoundError("index %s does not exist", idx.pathOnDisk)
		}
		return fs.NewIOError(err, "stat index %s", idx.pathOnDisk)
	}

	idx.mu.Lock()
	needsRefresh := info.ModTime().After(idx.lastMtime) || info.Size() > idx.lastSize
	startAt := idx.lastSize
	idx.refreshed = true
	idx.mu.Unlock()
	if !needsRefresh {
		return nil
	}

	f, err := os.Open(idx.pathOnDisk)
	if err != nil {
		if os.IsNotExist(err) {
			return fs.NewNotFoundError("index %s does not exist", idx.pathOnDisk)
		}
		return fs.NewIOError(err, "opening index %s", idx.pathOnDisk)
	}
	defer f.Close()

	if err := filelock.Lock(f); err != nil {
		return fs.NewIOError(err, "locking index %s", idx.pathOnDisk)
	}
	defer filelock.Unlock(f)

	if _, err := f.Seek(startAt, io.SeekStart); err != nil {
		return fs.NewIOError(err, "seeking index %s", idx.pathOnDisk)
	}

	r := bufio.NewReader(f)
	consumed := int64(0)
	entries := make([]IndexEntry, 0, 8)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Partial trailing line: leave it for the next refresh by
				// not counting it as consumed.
				break
			}
			return fs.NewIOError(err, "reading index %s", idx.pathOnDisk)
		}
		entry, perr := parseIndexLine(line)
		if perr != nil {
			return fs.WrapError(fs.ErrorIO, perr, "parsing index %s", idx.pathOnDisk)
		}
		entries = append(entries, entry)
		consumed += int64(len(line))
	}

	idx.mu.Lock()
	for _, e := range entries {
		idx.cache[e.Name] = e
	}
	idx.lastSize = startAt + consumed
	idx.lastMtime = info.ModTime()
	idx.mu.Unlock()
	return nil
}

// Count refreshes and returns the number of known members.
func (idx *RegularFileIndex) Count() (int, error) {
	if err := idx.Refresh(); err != nil && !fs.IsNotFound(err) {
		return 0, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.cache), nil
}

// List refreshes and returns every known entry. Order is unspecified.
func (idx *RegularFileIndex) List() ([]IndexEntry, error) {
	if err := idx.Refresh(); err != nil && !fs.IsNotFound(err) {
		return nil, err
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	out := make([]IndexEntry, 0, len(idx.cache))
	for _, e := range idx.cache {
		out = append(out, e)
	}
	return out, nil
}

// Close flushes and releases the append handle, if one is open.
func (idx *RegularFileIndex) Close() error {
	idx.writeMu.Lock()
	defer idx.writeMu.Unlock()
	if idx.writer == nil {
		return nil
	}
	if err := idx.writer.Sync(); err != nil {
		_ = idx.writer.Close()
		idx.writer = nil
		return err
	}
	err := idx.writer.Close()
	idx.writer = nil
	return err
}
