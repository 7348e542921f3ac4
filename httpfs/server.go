package httpfs

import (
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/gorilla/mux"

	"github.com/t-mind/flocons/fs"
)

// Auth holds optional HTTP basic-auth credentials gating the server, a
// transport-level concern only: it does not participate in the core file
// semantics (no per-file ACLs).
type Auth struct {
	BasicUser string
	BasicPass string
}

// Options configures a Server.
type Options struct {
	Addr string // host:port to listen on
	Auth Auth
}

// Server maps HTTP verbs onto fs.FileService calls: GET/HEAD for reads,
// PUT for writes, scoped to this repo's own file service.
type Server struct {
	service  fs.FileService
	opts     Options
	router   *mux.Router
	listener net.Listener
}

// NewServer constructs a Server; call Serve to start accepting
// connections.
func NewServer(service fs.FileService, opts Options) *Server {
	s := &Server{service: service, opts: opts, router: mux.NewRouter()}
	s.router.PathPrefix("/").Methods(http.MethodGet, http.MethodHead).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.handleGet(w, r, r.Method == http.MethodHead)
	})
	s.router.PathPrefix("/").Methods(http.MethodPut).HandlerFunc(s.handlePut)
	return s
}

// Addr returns the address the server is actually bound to, valid only
// after Serve has started listening.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Serve binds the listen address and serves until the listener is closed.
// A bind failure surfaces as an IOError with EADDRINUSE attached when the
// port is already occupied.
func (s *Server) Serve() error {
	ln, err := net.Listen("tcp", s.opts.Addr)
	if err != nil {
		var syscallErr syscall.Errno
		if errors.As(err, &syscallErr) && syscallErr == syscall.EADDRINUSE {
			return fs.NewIOError(err, "address %s already in use", s.opts.Addr)
		}
		return fs.NewIOError(err, "listening on %s", s.opts.Addr)
	}
	s.listener = ln
	fs.Logf(nil, "httpfs: serving on %s", ln.Addr())
	return http.Serve(ln, s.withAuth(s.router))
}

// Close stops the listener.
func (s *Server) Close() error {
	if s.listener == nil {
		return nil
	}
	return s.listener.Close()
}

func (s *Server) withAuth(next http.Handler) http.Handler {
	if s.opts.Auth.BasicUser == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.opts.Auth.BasicUser || pass != s.opts.Auth.BasicPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="flocons"`)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestPath(r *http.Request) (fs.Path, error) {
	return fs.NewPath(r.URL.Path)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request, headOnly bool) {
	p, err := s.requestPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, err := s.service.GetFile(p)
	if err != nil {
		writeError(w, err)
		return
	}

	if dir, ok := f.(*fs.Directory); ok {
		if !strings.HasSuffix(r.URL.Path, "/") {
			w.Header().Set(HeaderLocation, r.URL.Path+"/")
			w.WriteHeader(http.StatusTemporaryRedirect)
			return
		}
		files, err := dir.ListFiles()
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set(HeaderLastModified, dir.ModTime().UTC().Format(http.TimeFormat))
		w.Header().Set(HeaderFileMode, strconv.FormatUint(uint64(dir.Mode().Perm()), 8))
		if headOnly {
			w.Header().Set(HeaderContentType, fs.DirectoryMimeType)
			return
		}
		if acceptsJSON(r) {
			_ = writeJSONListing(w, files)
		} else {
			_ = writeHTMLListing(w, p.String(), files)
		}
		return
	}

	rf := f.(*fs.RegularFile)
	w.Header().Set(HeaderContentType, rf.MimeType())
	w.Header().Set(HeaderContentLength, strconv.FormatInt(rf.Size(), 10))
	w.Header().Set(HeaderLastModified, rf.ModTime().UTC().Format(http.TimeFormat))
	w.Header().Set(HeaderFileMode, strconv.FormatUint(uint64(rf.Mode().Perm()), 8))
	if headOnly {
		return
	}
	data, err := rf.Data()
	if err != nil {
		writeError(w, err)
		return
	}
	_, _ = w.Write(data)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	p, err := s.requestPath(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if r.Header.Get(HeaderContentType) == fs.DirectoryMimeType {
		mode := os.FileMode(0755)
		if h := r.Header.Get(HeaderFileMode); h != "" {
			mode = parseFileMode(h)
		}
		if _, err := s.service.CreateDirectory(p, mode); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		return
	}

	data, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.service.CreateRegularFile(p, data, parseFileMode(r.Header.Get(HeaderFileMode))); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// defaultPutMode is used when a PUT carries no X-File-Mode header.
const defaultPutMode = os.FileMode(0644)

func parseFileMode(s string) os.FileMode {
	if s == "" {
		return defaultPutMode
	}
	bits, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return defaultPutMode
	}
	return os.FileMode(bits).Perm()
}

func writeError(w http.ResponseWriter, err error) {
	if fs.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
