package mountfs

import (
	"syscall"

	"github.com/t-mind/flocons/fs"
)

// errToErrno maps this module's *fs.Error onto the syscall.Errno go-fuse
// expects every node/file method to return, reading the errno carried by
// the error's own kind rather than guessing from its message.
func errToErrno(err error) syscall.Errno {
	if err == nil {
		return 0
	}
	if errno, ok := fs.Errno(err); ok {
		return errno
	}
	return syscall.EIO
}
