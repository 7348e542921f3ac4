package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMimeTypeForExtensionKnownAndUnknown(t *testing.T) {
	assert.Equal(t, "text/plain", MimeTypeForExtension("txt"))
	assert.Equal(t, "text/plain", MimeTypeForExtension("TXT"), "case insensitive")
	assert.Equal(t, "application/gzip", MimeTypeForExtension("gz"))
	assert.Equal(t, "application/octet-stream", MimeTypeForExtension(""))
	assert.Equal(t, "application/octet-stream", MimeTypeForExtension("unknownext"))
}

func TestPathMimeType(t *testing.T) {
	assert.Equal(t, DirectoryMimeType, MustPath("/a/b").MimeType(true))
	assert.Equal(t, "text/csv", MustPath("/a/b.csv").MimeType(false))
	assert.Equal(t, "application/octet-stream", MustPath("/a/b").MimeType(false))
}
