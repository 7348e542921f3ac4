package fs

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Path is an absolute, forward-slash separated path, normalized so that
// equal full-string representations always compare equal and land on the
// same directory-cache slot.
//
// Path values are immutable and freely copyable.
type Path struct {
	full  string
	parts []string
}

// Root is the canonical empty path, "/".
var Root = Path{full: "/"}

// NewPath builds a Path from a string. The string is tokenized on "/",
// empty components are discarded, and the result is always absolute: a
// relative-looking input ("a/b") is treated the same as "/a/b".
//
// NewPath fails with ErrorInvalidPath if s contains invalid UTF-8.
func NewPath(s string) (Path, error) {
	if !utf8.ValidString(s) {
		return Path{}, NewError(ErrorInvalidPath, "path is not valid UTF-8: %q", s)
	}
	return Path{full: s}.normalize(), nil
}

// MustPath is NewPath but panics on error; intended for constants and tests.
func MustPath(s string) Path {
	p, err := NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// WithNFCNormalization returns a copy of p with every component normalized
// to Unicode NFC form, for filenames read off decomposed (NFD) filesystems
// such as HFS+.
func (p Path) WithNFCNormalization() Path {
	parts := make([]string, len(p.parts))
	for i, c := range p.parts {
		parts[i] = norm.NFC.String(c)
	}
	return Path{full: "/" + strings.Join(parts, "/"), parts: parts}.normalize()
}

func (p Path) normalize() Path {
	parts := splitComponents(p.full)
	full := "/" + strings.Join(parts, "/")
	return Path{full: full, parts: parts}
}

func splitComponents(s string) []string {
	raw := strings.Split(s, "/")
	parts := make([]string, 0, len(raw))
	for _, c := range raw {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return parts
}

// Join appends a relative path string to p. An absolute string (leading
// "/") resets the result to that string instead of appending.
func (p Path) Join(s string) Path {
	if strings.HasPrefix(s, "/") {
		return MustNormalizedPath(s)
	}
	parts := splitComponents(s)
	all := append(append([]string{}, p.parts...), parts...)
	return Path{full: "/" + strings.Join(all, "/"), parts: all}
}

// JoinPath appends another Path's components to p.
func (p Path) JoinPath(other Path) Path {
	all := append(append([]string{}, p.parts...), other.parts...)
	return Path{full: "/" + strings.Join(all, "/"), parts: all}
}

// MustNormalizedPath builds a Path from a string known to be valid,
// panicking like MustPath if it is not. Used internally where validity is
// guaranteed.
func MustNormalizedPath(s string) Path {
	p, err := NewPath(s)
	if err != nil {
		panic(err)
	}
	return p
}

// String returns the full normalized path, e.g. "/a/b/c" or "/" for root.
func (p Path) String() string {
	if p.full == "" {
		return "/"
	}
	return p.full
}

// Components returns the ordered path components; root returns an empty
// slice.
func (p Path) Components() []string {
	out := make([]string, len(p.parts))
	copy(out, p.parts)
	return out
}

// IsRoot reports whether p denotes the root directory.
func (p Path) IsRoot() bool {
	return len(p.parts) == 0
}

// Basename returns the last path component; the basename of root is "/".
func (p Path) Basename() string {
	if p.IsRoot() {
		return "/"
	}
	return p.parts[len(p.parts)-1]
}

// Parent returns the path to the containing directory; the parent of root
// is root.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return Root
	}
	parts := p.parts[:len(p.parts)-1]
	return Path{full: "/" + strings.Join(parts, "/"), parts: parts}
}

// Extension returns the substring of the basename after the last ".", or
// "" if the basename has no ".", or the basename is entirely the
// extension-less root.
func (p Path) Extension() string {
	base := p.Basename()
	i := strings.LastIndex(base, ".")
	if i < 0 || i == len(base)-1 {
		return ""
	}
	return base[i+1:]
}

// Equal reports string equality of the canonical forms, which is the only
// equality this package defines.
func (p Path) Equal(other Path) bool {
	return p.full == other.full
}
