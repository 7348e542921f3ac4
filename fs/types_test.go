package fs

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticDataReturnsSameBytes(t *testing.T) {
	b := []byte("hello")
	accessor := StaticData(b)
	got, err := accessor()
	require.NoError(t, err)
	assert.Equal(t, b, got)
}

func TestRegularFileAccessors(t *testing.T) {
	now := time.Unix(1700000000, 0)
	rf := NewRegularFile(MustPath("/a/b.txt"), 5, 0644, now, 128, StaticData([]byte("hello")))

	assert.Equal(t, KindRegular, rf.Kind())
	assert.Equal(t, "/a/b.txt", rf.Path().String())
	assert.Equal(t, os.FileMode(0644), rf.Mode())
	assert.Equal(t, now, rf.ModTime())
	assert.Equal(t, "text/plain", rf.MimeType())
	assert.Equal(t, int64(5), rf.Size())
	assert.Equal(t, int64(128), rf.Address())
	assert.Equal(t, "b.txt", rf.Basename())

	data, err := rf.Data()
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
}

type stubAccessor struct {
	files map[string]File
}

func (s *stubAccessor) GetFile(name string) (File, error) {
	f, ok := s.files[name]
	if !ok {
		return nil, NewNotFoundError("%s not found", name)
	}
	return f, nil
}

func (s *stubAccessor) GetRegularFile(name string) (*RegularFile, error) {
	f, err := s.GetFile(name)
	if err != nil {
		return nil, err
	}
	rf, ok := f.(*RegularFile)
	if !ok {
		return nil, NewIsADirectoryError("%s is a directory", name)
	}
	return rf, nil
}

func (s *stubAccessor) CreateDirectory(name string, mode os.FileMode) (*Directory, error) {
	d := NewDirectory(MustPath("/"+name), mode, time.Time{}, s)
	s.files[name] = d
	return d, nil
}

func (s *stubAccessor) CreateRegularFile(name string, data []byte, size int64, mode os.FileMode) (*RegularFile, error) {
	rf := NewRegularFile(MustPath("/"+name), size, mode, time.Time{}, 0, StaticData(data))
	s.files[name] = rf
	return rf, nil
}

func (s *stubAccessor) ListFiles() ([]File, error) {
	out := make([]File, 0, len(s.files))
	for _, f := range s.files {
		out = append(out, f)
	}
	return out, nil
}

func TestDirectoryDelegatesToAccessor(t *testing.T) {
	accessor := &stubAccessor{files: map[string]File{}}
	dir := NewDirectory(Root, 0755, time.Time{}, accessor)

	assert.Equal(t, KindDirectory, dir.Kind())
	assert.Equal(t, DirectoryMimeType, dir.MimeType())
	assert.Same(t, accessor, dir.Accessor().(*stubAccessor))

	created, err := dir.CreateRegularFile("a.txt", []byte("hi"), 2, 0644)
	require.NoError(t, err)
	assert.Equal(t, int64(2), created.Size())

	got, err := dir.GetRegularFile("a.txt")
	require.NoError(t, err)
	assert.Equal(t, created, got)

	files, err := dir.ListFiles()
	require.NoError(t, err)
	assert.Len(t, files, 1)

	_, err = dir.GetFile("missing")
	assert.True(t, IsNotFound(err))
}
