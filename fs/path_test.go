package fs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPathNormalizesEquivalentForms(t *testing.T) {
	for _, pair := range [][2]string{
		{"/a/b", "/a/b"},
		{"a/b", "/a/b"},
		{"/a/b/", "/a/b"},
		{"//a//b//", "/a/b"},
		{"", "/"},
		{"/", "/"},
	} {
		p, err := NewPath(pair[0])
		require.NoError(t, err)
		assert.Equal(t, pair[1], p.String(), "normalizing %q", pair[0])
	}
}

func TestPathEqualityIsCanonical(t *testing.T) {
	a := MustPath("/a/b")
	b := MustPath("a/b/")
	assert.True(t, a.Equal(b))
}

func TestNewPathRejectsInvalidUTF8(t *testing.T) {
	_, err := NewPath("/a/\xff\xfe")
	require.Error(t, err)
	assert.True(t, errorKindIs(err, ErrorInvalidPath))
}

func TestPathComponentsBasenameParent(t *testing.T) {
	p := MustPath("/a/b/c.txt")
	assert.Equal(t, []string{"a", "b", "c.txt"}, p.Components())
	assert.Equal(t, "c.txt", p.Basename())
	assert.Equal(t, "/a/b", p.Parent().String())
	assert.Equal(t, "txt", p.Extension())
}

func TestRootBasenameAndParent(t *testing.T) {
	assert.True(t, Root.IsRoot())
	assert.Equal(t, "/", Root.Basename())
	assert.Equal(t, Root, Root.Parent())
}

func TestPathJoin(t *testing.T) {
	base := MustPath("/a/b")
	assert.Equal(t, "/a/b/c", base.Join("c").String())
	assert.Equal(t, "/x/y", base.Join("/x/y").String(), "absolute join resets")
}

func TestPathJoinPath(t *testing.T) {
	base := MustPath("/a")
	other := MustPath("/ignored/b/c")
	assert.Equal(t, "/a/ignored/b/c", base.JoinPath(other).String())
}

func TestWithNFCNormalization(t *testing.T) {
	// "e" (U+0065) followed by a combining acute accent (U+0301): NFD form.
	decomposed := MustPath("/caf" + "é")
	composed := decomposed.WithNFCNormalization()
	assert.Equal(t, "/caf"+"é", composed.String()) // precomposed "e" + acute (NFC)
	assert.NotEqual(t, decomposed.String(), composed.String())
}

func TestExtensionEdgeCases(t *testing.T) {
	assert.Equal(t, "", MustPath("/noext").Extension())
	assert.Equal(t, "", MustPath("/trailingdot.").Extension())
	assert.Equal(t, "gz", MustPath("/a.tar.gz").Extension())
}

func errorKindIs(err error, k Kind) bool {
	fe, ok := err.(*Error)
	return ok && fe.Kind == k
}
