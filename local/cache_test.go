package local

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/t-mind/flocons/fs"
)

func TestDirectoryCacheSetGetClear(t *testing.T) {
	cache := NewDirectoryCache()
	p := fs.MustPath("/a/b")

	_, ok := cache.Get(p)
	assert.False(t, ok)

	dir := fs.NewDirectory(p, 0755, time.Time{}, nil)
	cache.Set(p, dir)

	got, ok := cache.Get(p)
	assert.True(t, ok)
	assert.Same(t, dir, got)

	cache.Clear()
	_, ok = cache.Get(p)
	assert.False(t, ok)
}
