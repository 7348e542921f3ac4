//go:build !windows && !plan9

// Package filelock applies POSIX advisory locking directly to an open
// file's descriptor, used by local.RegularFileIndex to serialize CSV
// refresh/append across processes sharing a root (a plain sync.Mutex only
// protects one process). Locking the CSV's own descriptor, rather than a
// separate sidecar lock file, keeps a managed directory's on-disk layout
// to container pairs only.
package filelock

import (
	"os"
	"syscall"
)

// Lock acquires an exclusive advisory lock on f's underlying descriptor,
// blocking until it is available. Every Lock must be paired with Unlock.
func Lock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_EX)
}

// Unlock releases the lock acquired by Lock.
func Unlock(f *os.File) error {
	return syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
}
