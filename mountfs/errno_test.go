package mountfs

import (
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/t-mind/flocons/fs"
)

func TestErrToErrno(t *testing.T) {
	assert.Equal(t, syscall.Errno(0), errToErrno(nil))
	assert.Equal(t, syscall.ENOENT, errToErrno(fs.NewNotFoundError("missing")))
	assert.Equal(t, syscall.ENOTDIR, errToErrno(fs.NewNotADirectoryError("not a dir")))
	assert.Equal(t, syscall.EISDIR, errToErrno(fs.NewIsADirectoryError("is a dir")))
	assert.Equal(t, syscall.EEXIST, errToErrno(fs.NewAlreadyExistsError("exists")))

	assert.Equal(t, syscall.EIO, errToErrno(fs.NewError(fs.ErrorLogic, "no errno carried")))
}
