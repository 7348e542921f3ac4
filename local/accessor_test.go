package local

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-mind/flocons/fs"
)

func TestAccessorListFilesCombinesDirsAndRegularFiles(t *testing.T) {
	svc := newTestService(t, "test1")

	_, err := svc.CreateDirectory(fs.MustPath("/sub"), 0755)
	require.NoError(t, err)
	_, err = svc.CreateRegularFile(fs.MustPath("/a.txt"), []byte("x"), 0644)
	require.NoError(t, err)
	_, err = svc.CreateRegularFile(fs.MustPath("/b.txt"), []byte("y"), 0644)
	require.NoError(t, err)

	files, err := svc.ListFiles(fs.Root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	var dirs, regs int
	for _, f := range files {
		if f.Kind() == fs.KindDirectory {
			dirs++
		} else {
			regs++
		}
	}
	assert.Equal(t, 1, dirs)
	assert.Equal(t, 2, regs)
}

func TestAccessorWritableContainerPersistsAcrossCreates(t *testing.T) {
	svc := newTestService(t, "test1")

	_, err := svc.CreateRegularFile(fs.MustPath("/a.txt"), []byte("first"), 0644)
	require.NoError(t, err)
	_, err = svc.CreateRegularFile(fs.MustPath("/b.txt"), []byte("second"), 0644)
	require.NoError(t, err)

	root, err := svc.GetDirectory(fs.Root)
	require.NoError(t, err)
	accessor, ok := root.Accessor().(*LocalDirectoryAccessor)
	require.True(t, ok)

	accessor.containerMu.Lock()
	count := len(accessor.containers)
	accessor.containerMu.Unlock()
	assert.Equal(t, 1, count, "both writes should land in the same container")
}

func TestAccessorDiscoversContainerWrittenByAnotherContext(t *testing.T) {
	root := t.TempDir()

	svc1, err := NewLocalFileService("host1", root)
	require.NoError(t, err)
	_, err = svc1.CreateRegularFile(fs.MustPath("/a.txt"), []byte("from host1"), 0644)
	require.NoError(t, err)

	svc2, err := NewLocalFileService("host2", root)
	require.NoError(t, err)
	files, err := svc2.ListFiles(fs.Root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Path().Basename())
}
