package httpfs

import (
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/t-mind/flocons/fs"
	"github.com/t-mind/flocons/local"
)

// startTestServer starts s.Serve in the background and blocks until the
// listener accepts connections, polling with a fresh HEAD request instead
// of sleeping a fixed duration.
func startTestServer(t *testing.T, s *Server) string {
	t.Helper()
	go func() {
		_ = s.Serve()
	}()
	t.Cleanup(func() { _ = s.Close() })

	pause := time.Millisecond
	for i := 0; i < 10; i++ {
		if addr := s.Addr(); addr != "" {
			if resp, err := http.Head("http://" + addr + "/"); err == nil {
				_ = resp.Body.Close()
				return addr
			}
		}
		time.Sleep(pause)
		pause *= 2
	}
	t.Fatal("server did not become ready")
	return ""
}

func TestServerPutHeadGetRoundTrip(t *testing.T) {
	svc, err := local.NewLocalFileService("test", t.TempDir())
	require.NoError(t, err)
	_, err = svc.CreateDirectory(fs.MustPath("/test"), 0755)
	require.NoError(t, err)

	s := NewServer(svc, Options{Addr: "127.0.0.1:0"})
	addr := startTestServer(t, s)
	base := "http://" + addr

	resp, err := http.Head(base + "/test/myFile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	body := "my test data\x00"
	req, err := http.NewRequest(http.MethodPut, base+"/test/myFile", strings.NewReader(body))
	require.NoError(t, err)
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp, err = http.Head(base + "/test/myFile")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, strconv.Itoa(len(body)), resp.Header.Get(HeaderContentLength))
	resp.Body.Close()

	resp, err = http.Get(base + "/test/myFile")
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, body, string(data))
}

func TestServerPutDirectoryThenGetDirectoryLocally(t *testing.T) {
	svc, err := local.NewLocalFileService("test", t.TempDir())
	require.NoError(t, err)

	s := NewServer(svc, Options{Addr: "127.0.0.1:0"})
	addr := startTestServer(t, s)
	base := "http://" + addr

	req, err := http.NewRequest(http.MethodPut, base+"/test", nil)
	require.NoError(t, err)
	req.Header.Set(HeaderContentType, fs.DirectoryMimeType)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	dir, err := svc.GetDirectory(fs.MustPath("/test"))
	require.NoError(t, err)
	assert.Equal(t, "/test", dir.Path().String())
}

func TestServerBindFailsWithAddrInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	svc, err := local.NewLocalFileService("test", t.TempDir())
	require.NoError(t, err)

	s := NewServer(svc, Options{Addr: ln.Addr().String()})
	err = s.Serve()
	require.Error(t, err)

	var fsErr *fs.Error
	require.ErrorAs(t, err, &fsErr)
	assert.Equal(t, fs.ErrorIO, fsErr.Kind)
	errno, ok := fs.Errno(err)
	require.True(t, ok)
	assert.Equal(t, "address already in use", errno.Error())
}
