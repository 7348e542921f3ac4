package local

import "github.com/t-mind/flocons/fs"

// Context identifies one writer rooted at a filesystem path. Its Name
// participates in container filenames so each writer owns a disjoint set
// of containers even when multiple writers share a Root. Context is shared
// by every directory accessor created under it; they hold it weakly (a
// plain field here, since Go has no weak references, but accessors never
// retain a Context beyond their own lifetime and a Context never retains
// its accessors, only its cache retains Directory nodes).
type Context struct {
	Name  string
	Root  string
	cache *DirectoryCache
}

// NewContext creates a context named name, rooted at root, with a fresh
// directory cache.
func NewContext(name, root string) *Context {
	return &Context{Name: name, Root: root, cache: NewDirectoryCache()}
}

// Cache returns the context's directory cache.
func (c *Context) Cache() *DirectoryCache { return c.cache }

// RootPath returns the filesystem path corresponding to p under this
// context's root.
func (c *Context) RootPath(p fs.Path) string {
	if p.IsRoot() {
		return c.Root
	}
	return c.Root + p.String()
}
