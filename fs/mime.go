package fs

import "strings"

// DirectoryMimeType is the mime type reported for directories, used on
// both the local and HTTP-wire representation.
const DirectoryMimeType = "inode/directory"

// defaultMimeType is reported for extensions with no entry below.
const defaultMimeType = "application/octet-stream"

// mimeByExtension covers the extensions this repo's test scenarios and
// HTML listing rely on; unlike the system-dependent mime.TypeByExtension
// this table is fixed so behavior doesn't vary by platform.
var mimeByExtension = map[string]string{
	"txt":  "text/plain",
	"html": "text/html",
	"htm":  "text/html",
	"css":  "text/css",
	"js":   "application/javascript",
	"json": "application/json",
	"csv":  "text/csv",
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"mp4":  "video/mp4",
	"mp3":  "audio/mpeg",
	"pdf":  "application/pdf",
	"tar":  "application/x-tar",
	"gz":   "application/gzip",
	"zip":  "application/zip",
}

// MimeTypeForExtension returns the mime type for a file extension (without
// the leading "."), case-insensitively, or defaultMimeType if unknown.
func MimeTypeForExtension(ext string) string {
	if ext == "" {
		return defaultMimeType
	}
	if m, ok := mimeByExtension[strings.ToLower(ext)]; ok {
		return m
	}
	return defaultMimeType
}

// MimeType returns the mime type for p: DirectoryMimeType for directories,
// otherwise the extension-derived type.
func (p Path) MimeType(isDir bool) string {
	if isDir {
		return DirectoryMimeType
	}
	return MimeTypeForExtension(p.Extension())
}
