package local

import (
	"sync"

	"github.com/t-mind/flocons/fs"
)

// DirectoryCache maps a canonical path string to its live Directory node
// within one LocalContext. It is the primary retainer of Directory nodes:
// as long as a path is cached, every lookup that traverses it observes the
// same accessor, which is what makes concurrent readers see a consistent
// view of a directory's containers.
//
// There is no eviction in this core; the advisory capacity below exists so
// a future LRU layer can be added without changing external behavior.
type DirectoryCache struct {
	mu      sync.RWMutex
	entries map[string]*fs.Directory
}

// DefaultDirectoryCacheCapacity is advisory only; nothing in this package
// enforces it.
const DefaultDirectoryCacheCapacity = 4096

// NewDirectoryCache creates an empty cache.
func NewDirectoryCache() *DirectoryCache {
	return &DirectoryCache{entries: make(map[string]*fs.Directory)}
}

// Get returns the cached Directory for path, if any.
func (c *DirectoryCache) Get(path fs.Path) (*fs.Directory, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[path.String()]
	return d, ok
}

// Set inserts or overwrites the Directory cached for path.
func (c *DirectoryCache) Set(path fs.Path, dir *fs.Directory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path.String()] = dir
}

// Clear empties the cache.
func (c *DirectoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*fs.Directory)
}
