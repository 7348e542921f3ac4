package httpfs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURLDefaultsPortByScheme(t *testing.T) {
	u, err := ParseURL("http://localhost")
	require.NoError(t, err)
	assert.Equal(t, "http", u.Protocol())
	assert.Equal(t, "localhost", u.Hostname())
	assert.Equal(t, 80, u.Port())
}

func TestParseURLExplicitPort(t *testing.T) {
	u, err := ParseURL("https://test:8000")
	require.NoError(t, err)
	assert.Equal(t, "https", u.Protocol())
	assert.Equal(t, "test", u.Hostname())
	assert.Equal(t, 8000, u.Port())
}

func TestParseURLHTTPSDefaultPort(t *testing.T) {
	u, err := ParseURL("https://localhost")
	require.NoError(t, err)
	assert.Equal(t, 443, u.Port())
}

func TestURLJoin(t *testing.T) {
	u, err := ParseURL("https://test:8000")
	require.NoError(t, err)
	joined := u.Join("test")
	assert.Equal(t, "https://test:8000/test", joined.String())
}

func TestParseURLRejectsMissingSchemeOrHost(t *testing.T) {
	_, err := ParseURL("not a url")
	require.Error(t, err)

	_, err = ParseURL("/just/a/path")
	require.Error(t, err)
}
