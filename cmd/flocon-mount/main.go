// Command flocon-mount projects a local directory or a flocond peer onto a
// POSIX mount point via FUSE.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/t-mind/flocons/fs"
	"github.com/t-mind/flocons/httpfs"
	"github.com/t-mind/flocons/local"
	"github.com/t-mind/flocons/mountfs"
)

var (
	verbose     bool
	veryVerbose bool
	hostname    string
)

func main() {
	root := &cobra.Command{
		Use:   "flocon-mount <source> <mount_point>",
		Short: "Mount a flocons source onto a local directory",
		Args:  cobra.ExactArgs(2),
		RunE:  run,
	}

	flags := root.Flags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVarP(&veryVerbose, "very-verbose", "V", false, "enable debug logging")
	flags.StringVarP(&hostname, "hostname", "H", "", "override the hostname reported for a local source's context")

	root.SilenceUsage = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configureLogging()

	source, mountPoint := args[0], args[1]
	service, err := resolveSource(source)
	if err != nil {
		return err
	}

	server, err := mountfs.Mount(mountPoint, service, mountfs.DefaultOptions())
	if err != nil {
		return err
	}
	fs.Logf(nil, "flocon-mount: %s mounted at %s", source, mountPoint)
	server.Wait()
	return nil
}

// resolveSource decides whether source names a flocons peer (a URL) or a
// local directory, per the "source is parsed as a URL or a filesystem path"
// rule: a string that parses as a URL with both a scheme and a host is
// treated as a peer, everything else as a local path.
func resolveSource(source string) (fs.FileService, error) {
	if u, err := httpfs.ParseURL(source); err == nil {
		return httpfs.NewClient(u.String(), httpfs.Auth{})
	}
	name := hostname
	if name == "" {
		name, _ = os.Hostname()
	}
	return local.NewLocalFileService(name, source)
}

func configureLogging() {
	switch {
	case veryVerbose:
		fs.SetLogLevel(fs.LogLevelDebug)
	case verbose:
		fs.SetLogLevel(fs.LogLevelInfo)
	default:
		fs.SetLogLevel(fs.LogLevelError)
	}
}
