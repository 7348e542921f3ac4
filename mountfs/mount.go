package mountfs

import (
	"context"

	gofs "github.com/hanwen/go-fuse/v2/fs"
	"github.com/hanwen/go-fuse/v2/fuse"

	"github.com/t-mind/flocons/fs"
)

// NewRoot builds the FUSE inode tree root wrapping service, rooted at
// fs.Root.
func NewRoot(service fs.FileService) gofs.InodeEmbedder {
	return &dirNode{service: service, path: fs.Root}
}

// Options configures a mount.
type Options struct {
	FsName        string
	Debug         bool
	AllowOther    bool
	DefaultPerms  bool
	MaxReadAhead  int
	DisableXAttrs bool
}

// DefaultOptions returns reasonable mount options for this file service: no
// extended attributes, since none are modeled.
func DefaultOptions() Options {
	return Options{FsName: "flocons", DisableXAttrs: true}
}

// Mount mounts service at mountpoint and returns the running fuse.Server,
// whose Wait method blocks until the filesystem is unmounted.
func Mount(mountpoint string, service fs.FileService, opts Options) (*fuse.Server, error) {
	root := NewRoot(service)
	server, err := gofs.Mount(mountpoint, root, &gofs.Options{
		MountOptions: fuse.MountOptions{
			FsName:        opts.FsName,
			Debug:         opts.Debug,
			AllowOther:    opts.AllowOther,
			DisableXAttrs: opts.DisableXAttrs,
		},
	})
	if err != nil {
		return nil, fs.NewIOError(err, "mounting %s", mountpoint)
	}
	return server, nil
}

// Unmount requests an orderly unmount; context is accepted for symmetry
// with the rest of this repo's blocking operations but go-fuse's Unmount
// itself takes none.
func Unmount(ctx context.Context, server *fuse.Server) error {
	return server.Unmount()
}
