// Command flocond serves one context's directory tree over HTTP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/t-mind/flocons/fs"
	"github.com/t-mind/flocons/httpfs"
	"github.com/t-mind/flocons/local"
)

var (
	verbose     bool
	veryVerbose bool
	hostname    string
	port        int
)

func main() {
	root := &cobra.Command{
		Use:   "flocond <data_folder>",
		Short: "Serve a flocons directory tree over HTTP",
		Args:  cobra.ExactArgs(1),
		RunE:  run,
	}

	flags := root.Flags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVarP(&veryVerbose, "very-verbose", "V", false, "enable debug logging")
	flags.StringVarP(&hostname, "hostname", "H", "localhost", "address to bind to")
	flags.IntVarP(&port, "port", "p", 8080, "port to bind to")

	root.SilenceUsage = true
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	configureLogging()

	dataFolder := args[0]
	name := contextNameFor(dataFolder)
	service, err := local.NewLocalFileService(name, dataFolder)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", hostname, port)
	server := httpfs.NewServer(service, httpfs.Options{Addr: addr})
	fs.Logf(nil, "flocond: serving %s on %s", dataFolder, addr)
	return server.Serve()
}

func contextNameFor(dataFolder string) string {
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "flocond"
	}
	return h
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
